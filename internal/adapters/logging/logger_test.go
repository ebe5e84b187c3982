package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
		})
	}
}

func TestLogger_Format(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(LevelDebug, &buf)

	l.Infof(context.Background(), "connected as %s", "MusicBot")
	l.With("component", "teamspeak").Warnf(context.Background(), "keepalive failed")

	assert.Equal(t, "[INFO] connected as MusicBot\n[WARN] keepalive failed component=teamspeak\n", buf.String())
}

func TestLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewWithWriter(LevelWarn, &buf)
	ctx := context.Background()

	l.Debugf(ctx, "hidden")
	l.Infof(ctx, "hidden")
	l.Errorf(ctx, "shown")
	assert.Equal(t, "[ERROR] shown\n", buf.String())

	buf.Reset()
	child := l.With("module", "music")
	l.SetLevel(LevelDebug)
	child.Debugf(ctx, "now visible")
	assert.Equal(t, "[DEBUG] now visible module=music\n", buf.String(), "child shares the parent level")
}
