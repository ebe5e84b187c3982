package queue

import (
	"strings"
	"time"
)

const unknownArtist = "未知"

type Track struct {
	ID       string
	Name     string
	Artists  []string
	URL      string
	Duration time.Duration
}

func (t Track) ArtistLine() string {
	if len(t.Artists) == 0 {
		return unknownArtist
	}
	return strings.Join(t.Artists, ", ")
}

// Describe renders the track as "name - artists".
func (t Track) Describe() string {
	return t.Name + " - " + t.ArtistLine()
}
