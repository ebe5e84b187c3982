package teamspeak

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"tsmodbot/internal/adapters/config"
	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/domain/parsing"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
	"tsmodbot/internal/schedule"
)

var (
	ErrNotConnected  = errors.New("teamspeak: not connected")
	ErrMissingTarget = errors.New("teamspeak: missing reply target")
)

const (
	defaultReconnectDelay = 3 * time.Second
	retryHintMargin       = 2 * time.Second
	maxMessageRunes       = 1024
	quitTimeout           = 2 * time.Second
)

var textEvents = []string{"textserver", "textchannel", "textprivate"}

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

// Client keeps one ServerQuery session alive and turns incoming text messages into
// ports.InboundMessage values.
type Client struct {
	cfg     ports.TeamSpeakConfig
	logger  *logging.Logger
	bus     *eventbus.Bus
	dial    DialFunc
	login   bool
	limiter *rate.Limiter
	after   afterFunc

	mu             sync.Mutex
	ctx            context.Context
	conn           *queryConn
	connecting     bool
	closed         bool
	reconnectTimer timer
	reconnects     int
	clientID       string
	channelID      string

	inbound   *dispatcher
	keepalive schedule.Recurring
}

var _ ports.Session = (*Client)(nil)

type Option func(*Client)

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithEventBus(b *eventbus.Bus) Option {
	return func(c *Client) { c.bus = b }
}

// WithDialer replaces the transport. Login is still governed by the configured protocol.
func WithDialer(d DialFunc) Option {
	return func(c *Client) { c.dial = d }
}

func withAfterFunc(f afterFunc) Option {
	return func(c *Client) { c.after = f }
}

func NewClient(cfg ports.TeamSpeakConfig, opts ...Option) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = 20 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 10 * time.Second
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.QueryPort))
	c := &Client{
		cfg:     cfg,
		logger:  logging.Discard(),
		login:   cfg.Protocol != config.ProtocolSSH,
		limiter: newLimiter(cfg.FloodRate, cfg.FloodBurst),
		after: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		ctx: context.Background(),
	}
	if cfg.Protocol == config.ProtocolSSH {
		c.dial = SSHDialer(addr, cfg.Username, cfg.Password, cfg.DialTimeout)
	} else {
		c.dial = RawDialer(addr, cfg.DialTimeout)
	}

	for _, opt := range opts {
		opt(c)
	}
	c.inbound = newDispatcher(c.logger)
	return c
}

func newLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Connect establishes a session. It never returns an error: failures are logged
// and a reconnect is scheduled. Calls while connected or connecting are ignored.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.connecting || c.conn != nil {
		c.mu.Unlock()
		return
	}
	c.connecting = true
	c.ctx = ctx
	c.mu.Unlock()
	c.inbound.start()

	conn, clientID, channelID, err := c.establish(ctx)

	c.mu.Lock()
	c.connecting = false
	if err == nil && conn.closed() {
		err = conn.closedError()
	}
	if err != nil {
		c.mu.Unlock()
		if conn != nil {
			conn.close()
		}
		if ctx.Err() != nil {
			return
		}
		c.logger.Errorf(ctx, "TeamSpeak connection failed: %v", err)
		c.scheduleReconnect(err.Error())
		return
	}
	if c.closed {
		c.mu.Unlock()
		conn.close()
		return
	}
	c.conn = conn
	c.clientID = clientID
	c.channelID = channelID
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	// keepalive runs only while conn is live; fail stops it after taking mu.
	c.keepalive.Start(ctx, c.cfg.KeepaliveInterval, c.keepaliveTick)
	c.mu.Unlock()

	c.logger.Infof(ctx, "Connected to TeamSpeak %s as %s (clid=%s)", c.cfg.Host, c.cfg.Nickname, clientID)
	if c.bus != nil {
		c.bus.Publish(eventbus.SessionConnected{ClientID: clientID})
	}
}

func (c *Client) establish(ctx context.Context) (*queryConn, string, string, error) {
	rwc, err := c.dial(ctx)
	if err != nil {
		return nil, "", "", err
	}

	conn := newQueryConn(rwc, c.limiter)
	hsCtx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	err = conn.handshake(hsCtx)
	cancel()
	if err != nil {
		_ = rwc.Close()
		return nil, "", "", fmt.Errorf("query handshake: %w", err)
	}

	conn.onNotify = func(name string, rec record) { c.onNotify(conn, name, rec) }
	conn.onClose = func(reason string) { c.fail(conn, reason) }
	conn.start()

	if c.login {
		if _, err := c.exec(ctx, conn, command("login", kv("client_login_name", c.cfg.Username), kv("client_login_password", c.cfg.Password))); err != nil {
			return conn, "", "", fmt.Errorf("login: %w", err)
		}
	}
	if _, err := c.exec(ctx, conn, command("use", kv("port", c.cfg.ServerPort))); err != nil {
		return conn, "", "", fmt.Errorf("selecting virtual server %d: %w", c.cfg.ServerPort, err)
	}
	if c.cfg.Nickname != "" {
		if _, err := c.exec(ctx, conn, command("clientupdate", kv("client_nickname", c.cfg.Nickname))); err != nil {
			return conn, "", "", fmt.Errorf("setting nickname: %w", err)
		}
	}

	recs, err := c.exec(ctx, conn, "whoami")
	if err != nil {
		return conn, "", "", fmt.Errorf("whoami: %w", err)
	}
	var clientID, channelID string
	if len(recs) > 0 {
		clientID = recs[0]["client_id"]
		channelID = recs[0]["client_channel_id"]
	}

	for _, ev := range textEvents {
		if _, err := c.exec(ctx, conn, command("servernotifyregister", kv("event", ev))); err != nil {
			c.logger.Warnf(ctx, "Failed to subscribe to %s: %v", ev, err)
		}
	}

	return conn, clientID, channelID, nil
}

func (c *Client) exec(ctx context.Context, conn *queryConn, cmd string) ([]record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	return conn.exec(ctx, cmd)
}

func (c *Client) keepaliveTick(ctx context.Context) {
	conn := c.current()
	if conn == nil {
		return
	}
	if _, err := c.exec(ctx, conn, "whoami"); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Warnf(ctx, "Keepalive failed: %v", err)
		c.fail(conn, err.Error())
	}
}

// fail drops conn if it is still the live connection and schedules a reconnect.
func (c *Client) fail(conn *queryConn, reason string) {
	c.mu.Lock()
	if conn == nil || c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	ctx := c.ctx
	c.mu.Unlock()

	conn.close()
	c.logger.Warnf(ctx, "TeamSpeak session lost: %s", reason)
	if c.bus != nil {
		c.bus.Publish(eventbus.SessionLost{Reason: reason})
	}
	c.scheduleReconnect(reason)
}

// scheduleReconnect arms the reconnect timer unless one is already pending.
func (c *Client) scheduleReconnect(reason string) {
	c.keepalive.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.reconnectTimer != nil {
		return
	}

	delay := reconnectDelay(reason, c.cfg.ReconnectDelay)
	c.reconnects++
	c.logger.Infof(c.ctx, "Reconnecting to TeamSpeak in %s", delay)
	c.reconnectTimer = c.after(delay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		ctx := c.ctx
		c.mu.Unlock()
		c.Connect(ctx)
	})
}

func reconnectDelay(reason string, fallback time.Duration) time.Duration {
	if wait, ok := parsing.ParseRetryAfter(reason); ok {
		return wait + retryHintMargin
	}
	return fallback
}

func (c *Client) onNotify(conn *queryConn, name string, rec record) {
	if name != "notifytextmessage" {
		return
	}

	c.mu.Lock()
	if c.conn != nil && c.conn != conn {
		c.mu.Unlock()
		return
	}
	selfID := c.clientID
	channelID := c.channelID
	c.mu.Unlock()

	invokerID := rec["invokerid"]
	if selfID != "" && invokerID == selfID {
		return
	}

	mode, _ := rec.intValue("targetmode")
	msg := ports.InboundMessage{
		Text:        rec["msg"],
		InvokerID:   invokerID,
		InvokerName: rec["invokername"],
		InvokerUID:  rec["invokeruid"],
		TargetMode:  ports.TargetMode(mode),
		Target:      rec["target"],
		ReceivedAt:  time.Now(),
	}
	if msg.TargetMode == ports.TargetChannel {
		msg.ChannelID = channelID
	}

	c.inbound.enqueue(msg)
}

// OnTextMessage registers a listener. Messages are delivered one at a time in
// arrival order; a slow handler delays the next message, not the session.
func (c *Client) OnTextMessage(handler func(ports.InboundMessage)) {
	c.inbound.subscribe(handler)
}

func (c *Client) Respond(ctx context.Context, target ports.ReplyTarget, message string) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	if !target.Valid() {
		return ErrMissingTarget
	}

	for _, chunk := range splitMessage(message, maxMessageRunes) {
		cmd := command("sendtextmessage",
			kv("targetmode", int(target.Mode)),
			kv("target", target.ID),
			kv("msg", chunk),
		)
		if _, err := c.exec(ctx, conn, cmd); err != nil {
			return fmt.Errorf("sending text message: %w", err)
		}
	}
	return nil
}

func (c *Client) SendToChannel(ctx context.Context, channelID, message string) error {
	return c.Respond(ctx, ports.ChannelTarget(channelID), message)
}

// Close ends the session for good; no reconnect follows.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	t := c.reconnectTimer
	c.reconnectTimer = nil
	c.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	c.keepalive.Stop()
	c.inbound.stop()

	if conn != nil {
		ctx, cancel := context.WithTimeout(context.Background(), quitTimeout)
		_, _ = conn.exec(ctx, "quit")
		cancel()
		conn.close()
	}
	return nil
}

func (c *Client) current() *queryConn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) IsConnected() bool {
	return c.current() != nil
}

func (c *Client) ReconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnects
}

func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// splitMessage breaks s into chunks of at most limit runes, preferring line breaks.
func splitMessage(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}

	var chunks []string
	runes := []rune(s)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
		if len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
