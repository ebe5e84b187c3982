package parsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		reason string
		want   time.Duration
		wantOK bool
	}{
		{"ban hint", "flood ban: you may retry in 12 seconds", 12 * time.Second, true},
		{"case insensitive", "Retry In 5 Seconds", 5 * time.Second, true},
		{"embedded in query error", "error id=3329 msg=connection failed, you are banned extra_msg=you may retry in 600 seconds", 600 * time.Second, true},
		{"no hint", "connection refused", 0, false},
		{"missing number", "retry in a few seconds", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseRetryAfter(tt.reason)
			assert.Equal(t, tt.wantOK, ok, "ParseRetryAfter() ok")
			assert.Equal(t, tt.want, got, "ParseRetryAfter() value")
		})
	}
}

func TestParsePosition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{"first", "1", 1, true},
		{"padded", " 3 ", 3, true},
		{"zero", "0", 0, false},
		{"negative", "-2", 0, false},
		{"not a number", "abc", 0, false},
		{"empty", "", 0, false},
		{"too long", "12345678901", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParsePosition(tt.input)
			assert.Equal(t, tt.wantOK, ok, "ParsePosition(%q) ok", tt.input)
			assert.Equal(t, tt.want, got, "ParsePosition(%q) value", tt.input)
		})
	}
}

func TestParseSongQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		args   []string
		want   SongQuery
		wantOK bool
	}{
		{"keyword", []string{"hello"}, SongQuery{Kind: QueryKeyword, Value: "hello"}, true},
		{"multi word keyword", []string{"let", "it", "be"}, SongQuery{Kind: QueryKeyword, Value: "let it be"}, true},
		{"by id", []string{"id", "186016"}, SongQuery{Kind: QueryID, Value: "186016"}, true},
		{"by id uppercase", []string{"ID", "42"}, SongQuery{Kind: QueryID, Value: "42"}, true},
		{"id without value searches the word", []string{"id"}, SongQuery{Kind: QueryKeyword, Value: "id"}, true},
		{"id with empty value searches the word", []string{"id", ""}, SongQuery{Kind: QueryKeyword, Value: "id"}, true},
		{"no args", nil, SongQuery{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseSongQuery(tt.args)
			assert.Equal(t, tt.wantOK, ok, "ParseSongQuery() ok")
			assert.Equal(t, tt.want, got, "ParseSongQuery() value")
		})
	}
}
