package eventbus

import "tsmodbot/internal/domain/queue"

// Event is implemented by every event published on the bus. The set is closed.
type Event interface {
	event()
}

// CommandDispatched is published after a command handler returns without error.
type CommandDispatched struct {
	Command string
	Args    []string
}

// TrackStarted is published when the playback service accepts a track.
type TrackStarted struct {
	Track queue.Track
}

// SessionConnected is published once a query session is fully set up.
type SessionConnected struct {
	ClientID string
}

// SessionLost is published when a live session drops and a reconnect is scheduled.
type SessionLost struct {
	Reason string
}

func (CommandDispatched) event() {}
func (TrackStarted) event()      {}
func (SessionConnected) event()  {}
func (SessionLost) event()       {}
