package teamspeak

import (
	"context"
	"sync"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/ports"
)

// dispatcher hands inbound messages to the registered handlers one at a time, in
// arrival order. Enqueueing never blocks, so the read loop stays free to deliver
// command responses while a handler is busy.
type dispatcher struct {
	logger *logging.Logger

	mu       sync.Mutex
	pending  []ports.InboundMessage
	handlers []func(ports.InboundMessage)

	wake      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newDispatcher(logger *logging.Logger) *dispatcher {
	return &dispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (d *dispatcher) subscribe(h func(ports.InboundMessage)) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	d.mu.Unlock()
}

func (d *dispatcher) enqueue(msg ports.InboundMessage) {
	d.mu.Lock()
	d.pending = append(d.pending, msg)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) start() {
	d.startOnce.Do(func() { go d.run() })
}

// stop ends delivery; messages still pending are discarded.
func (d *dispatcher) stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

func (d *dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}

		for {
			select {
			case <-d.done:
				return
			default:
			}
			msg, handlers, ok := d.next()
			if !ok {
				break
			}
			for _, h := range handlers {
				d.deliver(h, msg)
			}
		}
	}
}

func (d *dispatcher) next() (ports.InboundMessage, []func(ports.InboundMessage), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return ports.InboundMessage{}, nil, false
	}
	msg := d.pending[0]
	d.pending[0] = ports.InboundMessage{}
	d.pending = d.pending[1:]
	handlers := make([]func(ports.InboundMessage), len(d.handlers))
	copy(handlers, d.handlers)
	return msg, handlers, true
}

func (d *dispatcher) deliver(h func(ports.InboundMessage), msg ports.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf(context.Background(), "Text message handler panicked: %v", r)
		}
	}()
	h(msg)
}
