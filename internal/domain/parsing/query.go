package parsing

import "strings"

type SongQueryKind string

const (
	QueryKeyword SongQueryKind = "keyword"
	QueryID      SongQueryKind = "id"
)

type SongQuery struct {
	Kind  SongQueryKind
	Value string
}

// ParseSongQuery interprets play arguments: "id <songID>" selects a song directly,
// anything else is a search keyword. A bare "id" is searched for like any word.
func ParseSongQuery(args []string) (SongQuery, bool) {
	if len(args) == 0 {
		return SongQuery{}, false
	}

	if strings.EqualFold(args[0], "id") && len(args) > 1 && args[1] != "" {
		return SongQuery{Kind: QueryID, Value: args[1]}, true
	}

	keyword := strings.TrimSpace(strings.Join(args, " "))
	if keyword == "" {
		return SongQuery{}, false
	}

	return SongQuery{Kind: QueryKeyword, Value: keyword}, true
}
