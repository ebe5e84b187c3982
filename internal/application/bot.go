package application

import (
	"context"
	"math"
	"sync"
	"time"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
)

// Bot wires the session, router and module registry together.
type Bot struct {
	config  ports.Config
	session ports.Session
	bus     *eventbus.Bus
	logger  *logging.Logger

	router   *Router
	registry *Registry
	ingress  *MessageHandler

	mu              sync.Mutex
	startTime       time.Time
	commandsHandled int
	unsubscribe     []func()

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(cfg ports.Config, session ports.Session, bus *eventbus.Bus, logger *logging.Logger) *Bot {
	if logger == nil {
		logger = logging.Discard()
	}
	if bus == nil {
		bus = eventbus.New(logger)
	}

	router := NewRouter(cfg.App.Prefix, session, bus, logger.With("component", "router"))
	b := &Bot{
		config:  cfg,
		session: session,
		bus:     bus,
		logger:  logger,
		router:  router,
		registry: NewRegistry(Deps{
			Session: session,
			Router:  router,
			Bus:     bus,
			Config:  cfg,
			Logger:  logger,
		}),
		ctx: context.Background(),
	}
	b.ingress = NewMessageHandler(router, logger)

	router.Register("help", func(ctx context.Context, cmd *CommandContext) error {
		return cmd.Reply(ctx, router.HelpText())
	}, "显示命令列表")

	return b
}

func (b *Bot) Router() *Router {
	return b.router
}

func (b *Bot) Registry() *Registry {
	return b.registry
}

func (b *Bot) Bus() *eventbus.Bus {
	return b.bus
}

// Init loads every enabled module and hooks the session's text messages into the router.
func (b *Bot) Init(ctx context.Context) {
	b.logger.Infof(ctx, "Initializing bot core")

	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.unsubscribe = append(b.unsubscribe,
		eventbus.Subscribe(b.bus, b.onCommandDispatched),
		eventbus.Subscribe(b.bus, b.onTrackStarted),
		eventbus.Subscribe(b.bus, b.onSessionLost),
	)
	b.mu.Unlock()

	for _, name := range b.config.Modules.Enabled() {
		b.registry.Load(ctx, name)
	}

	b.session.OnTextMessage(b.onTextMessage)
}

func (b *Bot) Start(ctx context.Context) {
	b.mu.Lock()
	b.startTime = time.Now()
	b.mu.Unlock()

	b.session.Connect(ctx)
	b.registry.StartAll(ctx)
	b.logger.Infof(ctx, "Bot started with modules: %v", b.registry.Loaded())
}

func (b *Bot) Stop(ctx context.Context) {
	b.registry.StopAll(ctx)
	if err := b.session.Close(); err != nil {
		b.logger.Warnf(ctx, "Closing session: %v", err)
	}

	b.mu.Lock()
	unsubscribe := b.unsubscribe
	b.unsubscribe = nil
	cancel := b.cancel
	b.mu.Unlock()

	for _, u := range unsubscribe {
		u()
	}
	if cancel != nil {
		cancel()
	}
}

func (b *Bot) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctx
}

func (b *Bot) onTextMessage(msg ports.InboundMessage) {
	b.ingress.HandleMessage(b.context(), msg)
}

func (b *Bot) onCommandDispatched(e eventbus.CommandDispatched) {
	b.mu.Lock()
	b.commandsHandled++
	b.mu.Unlock()
	b.logger.Debugf(b.context(), "Handled command %s %v", e.Command, e.Args)
}

func (b *Bot) onTrackStarted(e eventbus.TrackStarted) {
	b.logger.Infof(b.context(), "Now playing: %s", e.Track.Describe())
}

func (b *Bot) onSessionLost(e eventbus.SessionLost) {
	b.logger.Debugf(b.context(), "Session lost: %s", e.Reason)
}

func (b *Bot) GetStats() ports.BotStats {
	b.mu.Lock()
	start := b.startTime
	handled := b.commandsHandled
	b.mu.Unlock()

	var uptime time.Duration
	if !start.IsZero() {
		uptime = time.Since(start).Truncate(time.Second)
	}

	stats := ports.BotStats{
		Status:          "ok",
		Uptime:          uptime.String(),
		UptimeSeconds:   math.Floor(uptime.Seconds()),
		Connected:       b.session.IsConnected(),
		ReconnectCount:  b.session.ReconnectCount(),
		MessagesRecv:    b.ingress.Received(),
		CommandsHandled: handled,
		Modules:         b.registry.Loaded(),
	}
	if !stats.Connected {
		stats.Status = "degraded"
	}

	for _, name := range stats.Modules {
		m, ok := b.registry.Get(name)
		if !ok {
			continue
		}
		if r, ok := m.(ports.PlaybackReporter); ok {
			ps := r.PlaybackStatus()
			stats.NowPlaying = ps.NowPlaying
			stats.QueueLength = ps.QueueLength
		}
	}
	return stats
}
