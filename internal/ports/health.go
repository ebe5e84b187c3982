package ports

type BotStats struct {
	Status          string   `json:"status"`
	Uptime          string   `json:"uptime"`
	UptimeSeconds   float64  `json:"uptime_seconds"`
	Connected       bool     `json:"connected"`
	ReconnectCount  int      `json:"reconnect_count"`
	MessagesRecv    int      `json:"messages_received"`
	CommandsHandled int      `json:"commands_handled"`
	Modules         []string `json:"modules"`
	NowPlaying      string   `json:"now_playing,omitempty"`
	QueueLength     int      `json:"queue_length"`
}

type StatsProvider interface {
	GetStats() BotStats
}

type PlaybackStatus struct {
	NowPlaying  string
	Playing     bool
	QueueLength int
}

// PlaybackReporter is implemented by modules that can describe their playback state.
type PlaybackReporter interface {
	PlaybackStatus() PlaybackStatus
}
