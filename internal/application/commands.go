package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
)

const DefaultPrefix = "/"

var tracer = otel.Tracer("tsmodbot/internal/application")

// CommandContext is handed to a handler for a single invocation.
type CommandContext struct {
	Command string
	Args    []string
	Raw     string
	Prefix  string
	Message ports.InboundMessage
	Target  ports.ReplyTarget

	sender ports.MessageSender
}

// Reply sends text back to wherever the command came from.
func (c *CommandContext) Reply(ctx context.Context, text string) error {
	return c.sender.Respond(ctx, c.Target, text)
}

type HandlerFunc func(ctx context.Context, cmd *CommandContext) error

type command struct {
	handler     HandlerFunc
	description string
}

// Router dispatches prefixed text messages to registered command handlers.
type Router struct {
	prefix string
	sender ports.MessageSender
	bus    *eventbus.Bus
	logger *logging.Logger

	mu    sync.RWMutex
	cmds  map[string]command
	order []string
}

func NewRouter(prefix string, sender ports.MessageSender, bus *eventbus.Bus, logger *logging.Logger) *Router {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Router{
		prefix: prefix,
		sender: sender,
		bus:    bus,
		logger: logger,
		cmds:   make(map[string]command),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

// Register binds word to handler. Registering an existing word replaces its handler
// but keeps its place in the help listing.
func (r *Router) Register(word string, handler HandlerFunc, description string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || handler == nil {
		return
	}

	r.mu.Lock()
	if _, exists := r.cmds[word]; !exists {
		r.order = append(r.order, word)
	}
	r.cmds[word] = command{handler: handler, description: description}
	r.mu.Unlock()

	r.logger.Debugf(context.Background(), "Registered command %s%s", r.prefix, word)
}

func (r *Router) Unregister(word string) {
	word = strings.ToLower(strings.TrimSpace(word))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cmds[word]; !exists {
		return
	}
	delete(r.cmds, word)
	for i, w := range r.order {
		if w == word {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Commands lists registered words in registration order.
func (r *Router) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Router) lookup(word string) (command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.cmds[word]
	return cmd, ok
}

// HandleMessage parses msg and runs the matching handler. Messages without the
// prefix are ignored. Handler failures are reported to the sender and never
// propagate.
func (r *Router) HandleMessage(ctx context.Context, msg ports.InboundMessage) {
	word, args, ok := splitCommand(msg.Text, r.prefix)
	if !ok {
		return
	}

	target := ports.ResolveReplyTarget(msg)
	cmd, known := r.lookup(word)
	if !known {
		r.reply(ctx, target, fmt.Sprintf("未知命令：%s", word))
		return
	}

	cc := &CommandContext{
		Command: word,
		Args:    args,
		Raw:     strings.TrimSpace(strings.TrimPrefix(msg.Text, r.prefix)),
		Prefix:  r.prefix,
		Message: msg,
		Target:  target,
		sender:  r.sender,
	}

	ctx, span := tracer.Start(ctx, "command "+word)
	span.SetAttributes(
		attribute.String("command.word", word),
		attribute.Int("command.args", len(args)),
		attribute.String("command.invoker", msg.InvokerName),
	)
	defer span.End()

	if err := r.invoke(ctx, cmd.handler, cc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Errorf(ctx, "Command %s%s failed: %v", r.prefix, word, err)
		r.reply(ctx, target, fmt.Sprintf("命令执行失败：%s", word))
		return
	}

	if r.bus != nil {
		r.bus.Publish(eventbus.CommandDispatched{Command: word, Args: args})
	}
}

func (r *Router) invoke(ctx context.Context, h HandlerFunc, cc *CommandContext) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return h(ctx, cc)
}

func (r *Router) reply(ctx context.Context, target ports.ReplyTarget, text string) {
	if err := r.sender.Respond(ctx, target, text); err != nil {
		r.logger.Warnf(ctx, "Failed to send reply: %v", err)
	}
}

// HelpText lists every command as "<prefix><word> — <description>".
func (r *Router) HelpText() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, 0, len(r.order))
	for _, word := range r.order {
		line := r.prefix + word
		if desc := r.cmds[word].description; desc != "" {
			line += " — " + desc
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func splitCommand(fullMsg, prefix string) (string, []string, bool) {
	if !strings.HasPrefix(fullMsg, prefix) {
		return "", nil, false
	}
	text := strings.TrimSpace(strings.TrimPrefix(fullMsg, prefix))
	if text == "" {
		return "", nil, false
	}
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}
	cmd := strings.ToLower(parts[0])
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return cmd, args, true
}
