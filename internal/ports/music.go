package ports

import (
	"context"
	"time"
)

type Song struct {
	ID       string
	Name     string
	Artists  []string
	Duration time.Duration
}

type SongSearcher interface {
	Search(ctx context.Context, keyword string) ([]Song, error)

	SongDetail(ctx context.Context, id string) (Song, error)

	SongURL(ctx context.Context, id string) (string, error)
}

type PlayerState struct {
	Playing bool
	Raw     string
}

type PlaybackController interface {
	Play(ctx context.Context, url string) error

	Stop(ctx context.Context) error

	Pause(ctx context.Context) error

	Resume(ctx context.Context) error

	State(ctx context.Context) (PlayerState, error)
}
