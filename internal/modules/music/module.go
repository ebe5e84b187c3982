package music

import (
	"context"

	"tsmodbot/internal/adapters/audiobot"
	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/adapters/netease"
	"tsmodbot/internal/application"
	"tsmodbot/internal/ports"
)

const Name = "music"

// Module adapts Service to the bot's module lifecycle.
type Module struct {
	service *Service
	router  *application.Router
	logger  *logging.Logger
}

var (
	_ application.Initializer = (*Module)(nil)
	_ application.Starter     = (*Module)(nil)
	_ application.Stopper     = (*Module)(nil)
	_ ports.PlaybackReporter  = (*Module)(nil)
)

// New is the registry factory for the music module.
func New(deps application.Deps) (application.Module, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.With("module", Name)
	cfg := deps.Config.Music

	searcher := netease.New(cfg.NCM, netease.WithLogger(logger))
	player := audiobot.New(cfg.TS3A, audiobot.WithLogger(logger))

	return NewModule(NewService(deps.Session, searcher, player, deps.Bus, cfg, logger), deps.Router), nil
}

func NewModule(service *Service, router *application.Router) *Module {
	return &Module{service: service, router: router, logger: service.logger}
}

func (m *Module) Name() string {
	return Name
}

func (m *Module) Init(context.Context) error {
	m.service.RegisterCommands(m.router)
	return nil
}

func (m *Module) Start(ctx context.Context) error {
	m.service.StartWatcher(ctx)
	m.logger.Infof(ctx, "Music module started")
	return nil
}

func (m *Module) Stop(ctx context.Context) error {
	m.service.UnregisterCommands(m.router)
	m.service.Shutdown(ctx)
	m.logger.Infof(ctx, "Music module stopped")
	return nil
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) PlaybackStatus() ports.PlaybackStatus {
	return m.service.PlaybackStatus()
}
