package application

import (
	"context"
	"strings"
	"sync/atomic"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/ports"
)

type messageRouter interface {
	HandleMessage(ctx context.Context, msg ports.InboundMessage)
}

// MessageHandler is the ingress for text messages coming off the session.
type MessageHandler struct {
	router   messageRouter
	logger   *logging.Logger
	received atomic.Int64
}

func NewMessageHandler(router messageRouter, logger *logging.Logger) *MessageHandler {
	return &MessageHandler{
		router: router,
		logger: logger,
	}
}

func (h *MessageHandler) HandleMessage(ctx context.Context, msg ports.InboundMessage) {
	h.received.Add(1)

	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	h.logger.Debugf(ctx, "Message from %s (mode %d): %s", displayName(msg), msg.TargetMode, msg.Text)

	h.router.HandleMessage(ctx, msg)
}

func (h *MessageHandler) Received() int {
	return int(h.received.Load())
}

func displayName(msg ports.InboundMessage) string {
	if msg.InvokerName != "" {
		return msg.InvokerName
	}
	if msg.InvokerID != "" {
		return "clid " + msg.InvokerID
	}
	return "unknown"
}
