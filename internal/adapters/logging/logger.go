package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// lineHandler renders records as "[LEVEL] message key=value ...".
type lineHandler struct {
	level *slog.LevelVar
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
}

func newLineHandler(level Level, out io.Writer) *lineHandler {
	levelVar := &slog.LevelVar{}
	levelVar.Set(toSlogLevel(level))
	return &lineHandler{
		level: levelVar,
		out:   out,
		mu:    &sync.Mutex{},
	}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.ToUpper(r.Level.String()))
	b.WriteString("] ")
	b.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&b, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, a)
		return true
	})
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func writeAttr(b *strings.Builder, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	fmt.Fprintf(b, " %s=%v", a.Key, a.Value.Resolve())
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &lineHandler{level: h.level, out: h.out, mu: h.mu, attrs: merged}
}

func (h *lineHandler) WithGroup(_ string) slog.Handler {
	return h
}

type Logger struct {
	slogger *slog.Logger
	handler *lineHandler
}

func New(level Level) *Logger {
	return NewWithWriter(level, os.Stdout)
}

func NewWithWriter(level Level, out io.Writer) *Logger {
	handler := newLineHandler(level, out)
	return &Logger{
		slogger: slog.New(handler),
		handler: handler,
	}
}

func NewFromString(levelStr string) *Logger {
	return New(ParseLevel(levelStr))
}

// Discard returns a logger that drops everything; used by tests.
func Discard() *Logger {
	return NewWithWriter(LevelError, io.Discard)
}

func (l *Logger) SetLevel(level Level) {
	l.handler.level.Set(toSlogLevel(level))
}

// With returns a logger that appends key=value to every line. The level is shared
// with the parent.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{
		slogger: l.slogger.With(key, value),
		handler: l.handler,
	}
}

func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

func (l *Logger) Debugf(ctx context.Context, format string, args ...any) {
	l.slogger.DebugContext(ctx, fmt.Sprintf(format, args...))
}

// Infof logs an info message.
func (l *Logger) Infof(ctx context.Context, format string, args ...any) {
	l.slogger.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(ctx context.Context, format string, args ...any) {
	l.slogger.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(ctx context.Context, format string, args ...any) {
	l.slogger.ErrorContext(ctx, fmt.Sprintf(format, args...))
}
