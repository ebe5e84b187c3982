package teamspeak

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
)

const welcome = "TS3\n\rWelcome to the TeamSpeak 3 ServerQuery interface, type \"help\" for a list of commands.\n\r"

// fakeServer speaks just enough ServerQuery to drive the client.
type fakeServer struct {
	conn    net.Conn
	writeMu sync.Mutex

	mu       sync.Mutex
	commands []string

	banner      string
	failWhoami  atomic.Bool
	failCommand map[string]string
	// hangupAfter closes the connection right after answering this exact line.
	hangupAfter string
}

func newFakeServer(conn net.Conn) *fakeServer {
	return &fakeServer{conn: conn, banner: welcome, failCommand: map[string]string{}}
}

func (s *fakeServer) write(text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, _ = io.WriteString(s.conn, text)
}

func (s *fakeServer) push(line string) {
	s.write(line + "\n\r")
}

func (s *fakeServer) serve() {
	s.write(s.banner)
	r := bufio.NewReader(s.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		name, _, _ := strings.Cut(line, " ")
		if status, ok := s.failCommand[name]; ok {
			s.push(status)
			continue
		}

		switch name {
		case "whoami":
			if s.failWhoami.Load() {
				s.push("error id=1794 msg=not\\sconnected")
				continue
			}
			s.push("virtualserver_status=online virtualserver_id=1 client_id=5 client_channel_id=1 client_nickname=MusicBot")
			s.push("error id=0 msg=ok")
		case "quit":
			s.push("error id=0 msg=ok")
			_ = s.conn.Close()
			return
		default:
			s.push("error id=0 msg=ok")
		}

		if s.hangupAfter != "" && line == s.hangupAfter {
			_ = s.conn.Close()
			return
		}
	}
}

func (s *fakeServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

func (s *fakeServer) hasCommand(prefix string) bool {
	for _, c := range s.received() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// pipeDialer hands out one in-memory connection per dial, each backed by a fresh
// fakeServer configured by setup.
type pipeDialer struct {
	setup   func(*fakeServer)
	servers chan *fakeServer
	fail    atomic.Pointer[error]
}

func newPipeDialer(setup func(*fakeServer)) *pipeDialer {
	return &pipeDialer{setup: setup, servers: make(chan *fakeServer, 8)}
}

func (d *pipeDialer) dial(context.Context) (io.ReadWriteCloser, error) {
	if errp := d.fail.Load(); errp != nil {
		return nil, *errp
	}
	serverEnd, clientEnd := net.Pipe()
	srv := newFakeServer(serverEnd)
	if d.setup != nil {
		d.setup(srv)
	}
	go srv.serve()
	d.servers <- srv
	return clientEnd, nil
}

func (d *pipeDialer) failWith(err error) {
	d.fail.Store(&err)
}

func (d *pipeDialer) next(t *testing.T) *fakeServer {
	t.Helper()
	select {
	case s := <-d.servers:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no connection was dialed")
		return nil
	}
}

type stubTimer struct{}

func (stubTimer) Stop() bool { return true }

// fakeTimers records scheduled reconnects instead of waiting for them.
type fakeTimers struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (f *fakeTimers) after(d time.Duration, fn func()) timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays = append(f.delays, d)
	f.fns = append(f.fns, fn)
	return stubTimer{}
}

func (f *fakeTimers) scheduled() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.delays))
	copy(out, f.delays)
	return out
}

func (f *fakeTimers) fire(i int) {
	f.mu.Lock()
	fn := f.fns[i]
	f.mu.Unlock()
	fn()
}

func testConfig() ports.TeamSpeakConfig {
	return ports.TeamSpeakConfig{
		Host:              "ts.test",
		Protocol:          "raw",
		QueryPort:         10011,
		ServerPort:        9987,
		Username:          "serveradmin",
		Password:          "secret pass",
		Nickname:          "MusicBot",
		KeepaliveInterval: time.Hour,
		ReconnectDelay:    3 * time.Second,
		CommandTimeout:    2 * time.Second,
	}
}

func newTestClient(t *testing.T, cfg ports.TeamSpeakConfig, dialer *pipeDialer, timers *fakeTimers, bus *eventbus.Bus) *Client {
	t.Helper()
	c := NewClient(cfg,
		WithLogger(logging.Discard()),
		WithDialer(dialer.dial),
		WithEventBus(bus),
		withAfterFunc(timers.after),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var errDialRefused = errors.New("connection refused")
