package config

import (
	"time"

	"tsmodbot/internal/ports"
)

const (
	DefaultQueryPort   = 10011
	DefaultSSHPort     = 10022
	DefaultServerPort  = 9987
	DefaultPrefix      = "/"
	DefaultNickname    = "MusicBot"
	DefaultServiceName = "tsmodbot"

	ProtocolRaw = "raw"
	ProtocolSSH = "ssh"
)

func Defaults() ports.Config {
	return ports.Config{
		TeamSpeak: ports.TeamSpeakConfig{
			Host:              "127.0.0.1",
			Protocol:          ProtocolRaw,
			QueryPort:         DefaultQueryPort,
			ServerPort:        DefaultServerPort,
			Nickname:          DefaultNickname,
			KeepaliveInterval: 20 * time.Second,
			ReconnectDelay:    3 * time.Second,
			DialTimeout:       10 * time.Second,
			CommandTimeout:    10 * time.Second,
			FloodRate:         4,
			FloodBurst:        8,
		},
		App: ports.AppConfig{
			Prefix:   DefaultPrefix,
			LogLevel: "info",
		},
		Music: ports.MusicConfig{
			NCM: ports.ServiceConfig{
				BaseURL: "http://127.0.0.1:3000",
				Timeout: 8 * time.Second,
			},
			TS3A: ports.ServiceConfig{
				BaseURL: "http://127.0.0.1:58913",
				Timeout: 8 * time.Second,
			},
			Queue:        ports.QueueConfig{Announce: true},
			PollInterval: 5 * time.Second,
		},
		Modules: ports.ModulesConfig{Music: true},
		Telemetry: ports.TelemetryConfig{
			ServiceName: DefaultServiceName,
		},
	}
}
