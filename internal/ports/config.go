package ports

import "time"

type Config struct {
	TeamSpeak TeamSpeakConfig `yaml:"teamspeak" envPrefix:"TS_"`
	App       AppConfig       `yaml:"app" envPrefix:"APP_"`
	Music     MusicConfig     `yaml:"music" envPrefix:"MUSIC_"`
	Modules   ModulesConfig   `yaml:"modules" envPrefix:"MODULES_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"OTEL_"`
}

type TeamSpeakConfig struct {
	Host       string `yaml:"host" env:"HOST"`
	Protocol   string `yaml:"protocol" env:"PROTOCOL"`
	QueryPort  int    `yaml:"query_port" env:"QUERY_PORT"`
	ServerPort int    `yaml:"server_port" env:"SERVER_PORT"`
	Username   string `yaml:"username" env:"USERNAME"`
	Password   string `yaml:"password" env:"PASSWORD"`
	Nickname   string `yaml:"nickname" env:"NICKNAME"`

	KeepaliveInterval time.Duration `yaml:"keepalive_interval" env:"KEEPALIVE_INTERVAL"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	DialTimeout       time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	CommandTimeout    time.Duration `yaml:"command_timeout" env:"COMMAND_TIMEOUT"`

	// FloodRate is the number of query commands per second; 0 disables throttling.
	FloodRate  float64 `yaml:"flood_rate" env:"FLOOD_RATE"`
	FloodBurst int     `yaml:"flood_burst" env:"FLOOD_BURST"`
}

type AppConfig struct {
	Prefix     string `yaml:"prefix" env:"PREFIX"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL"`
	HealthPort int    `yaml:"health_port" env:"HEALTH_PORT"`
}

type MusicConfig struct {
	NCM          ServiceConfig `yaml:"ncm" envPrefix:"NCM_"`
	TS3A         ServiceConfig `yaml:"ts3a" envPrefix:"TS3A_"`
	Queue        QueueConfig   `yaml:"queue" envPrefix:"QUEUE_"`
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
}

type ServiceConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type QueueConfig struct {
	Announce bool `yaml:"announce" env:"ANNOUNCE"`
}

type ModulesConfig struct {
	Music bool `yaml:"music" env:"MUSIC"`
}

// Enabled lists the enabled module names in load order.
func (m ModulesConfig) Enabled() []string {
	var names []string
	if m.Music {
		names = append(names, "music")
	}
	return names
}

type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}
