package application

import (
	"context"
	"sync"

	"tsmodbot/internal/ports"
)

type sentMessage struct {
	Target ports.ReplyTarget
	Text   string
}

type fakeSession struct {
	mu         sync.Mutex
	sent       []sentMessage
	handlers   []func(ports.InboundMessage)
	connected  bool
	connects   int
	closed     bool
	reconnects int
	respondErr error
}

var _ ports.Session = (*fakeSession)(nil)

func (s *fakeSession) Respond(_ context.Context, target ports.ReplyTarget, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.respondErr != nil {
		return s.respondErr
	}
	s.sent = append(s.sent, sentMessage{Target: target, Text: message})
	return nil
}

func (s *fakeSession) SendToChannel(ctx context.Context, channelID, message string) error {
	return s.Respond(ctx, ports.ChannelTarget(channelID), message)
}

func (s *fakeSession) Connect(context.Context) {
	s.mu.Lock()
	s.connects++
	s.connected = true
	s.mu.Unlock()
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) OnTextMessage(h func(ports.InboundMessage)) {
	s.mu.Lock()
	s.handlers = append(s.handlers, h)
	s.mu.Unlock()
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) ReconnectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// deliver calls every registered handler synchronously.
func (s *fakeSession) deliver(msg ports.InboundMessage) {
	s.mu.Lock()
	handlers := make([]func(ports.InboundMessage), len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()
	for _, h := range handlers {
		h(msg)
	}
}

func (s *fakeSession) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.Text)
	}
	return out
}

func (s *fakeSession) last() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentMessage{}
	}
	return s.sent[len(s.sent)-1]
}

func channelMessage(text string) ports.InboundMessage {
	return ports.InboundMessage{
		Text:        text,
		InvokerID:   "7",
		InvokerName: "Alice",
		TargetMode:  ports.TargetChannel,
		ChannelID:   "1",
	}
}
