package queue

import (
	"errors"
	"sync"
)

var ErrInvalidPosition = errors.New("invalid queue position")

// Queue is a FIFO of tracks waiting to be played. It is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	tracks []Track
}

func New() *Queue {
	return &Queue{}
}

func (q *Queue) Push(t Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
	return len(q.tracks)
}

func (q *Queue) Pop() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	t := q.tracks[0]
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]
	return t, true
}

// Remove deletes the track at the given 1-based position.
func (q *Queue) Remove(position int) (Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if position < 1 || position > len(q.tracks) {
		return Track{}, ErrInvalidPosition
	}
	idx := position - 1
	t := q.tracks[idx]
	q.tracks = append(q.tracks[:idx:idx], q.tracks[idx+1:]...)
	return t, nil
}

func (q *Queue) Clear() {
	q.mu.Lock()
	q.tracks = nil
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

func (q *Queue) Snapshot() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}
