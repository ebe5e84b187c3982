package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tsmodbot/internal/adapters/config"
	"tsmodbot/internal/adapters/healthcheck"
	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/adapters/teamspeak"
	"tsmodbot/internal/adapters/telemetry"
	"tsmodbot/internal/application"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/modules/music"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime)

	envPath := config.ResolveEnvPath()
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("[WARN] Could not load .env from %s: %v", envPath, err)
	}

	cfgPath := config.ResolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] Configuration error: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("[FATAL] Invalid configuration: %v", err)
	}

	identity := fmt.Sprintf("%s-%d-%s", cfg.TeamSpeak.Host, cfg.TeamSpeak.ServerPort, cfg.TeamSpeak.Nickname)
	if !acquireInstanceLock(identity) {
		log.Fatalf("[FATAL] Another tsmodbot instance is already running as %s", identity)
	}
	defer releaseInstanceLock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.NewFromString(cfg.App.LogLevel)
	logger.Infof(ctx, "tsmodbot %s (commit: %s, built: %s)", version, commit, buildDate)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warnf(ctx, "Tracing disabled: %v", err)
	}

	bus := eventbus.New(logger.With("component", "eventbus"))
	session := teamspeak.NewClient(cfg.TeamSpeak,
		teamspeak.WithLogger(logger),
		teamspeak.WithEventBus(bus),
	)

	bot := application.NewBot(cfg, session, bus, logger)
	bot.Registry().RegisterFactory(music.Name, music.New)
	bot.Init(ctx)

	if cfg.App.HealthPort > 0 {
		healthServer := healthcheck.NewServer(cfg.App.HealthPort, bot, logger)
		if err := healthServer.Start(ctx); err != nil {
			logger.Errorf(ctx, "Failed to start health server: %v", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go bot.Start(ctx)

	sig := <-sigChan
	logger.Infof(ctx, "Received signal %v, shutting down...", sig)

	bot.Stop(ctx)
	cancel()
	if err := shutdownTracing(context.Background()); err != nil {
		logger.Warnf(context.Background(), "Flushing traces: %v", err)
	}
	logger.Infof(context.Background(), "Application terminated")
}
