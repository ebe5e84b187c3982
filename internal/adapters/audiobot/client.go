// Package audiobot controls a TS3AudioBot style playback service over HTTP.
package audiobot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/ports"
)

var ErrUnreachable = errors.New("audiobot: playback service unreachable")

const (
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 1 << 20
	stateStopped   = "stopped"
)

var tracer = otel.Tracer("tsmodbot/internal/adapters/audiobot")

// APIError reports a failed control action.
type APIError struct {
	Action     string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audiobot %s failed: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("audiobot %s failed: status %d", e.Action, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger
}

var _ ports.PlaybackController = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(cfg ports.ServiceConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Play(ctx context.Context, url string) error {
	body, err := sjson.SetBytes([]byte(`{}`), "url", url)
	if err != nil {
		return &APIError{Action: "play", Err: err}
	}
	return c.post(ctx, "play", body)
}

func (c *Client) Stop(ctx context.Context) error {
	return c.post(ctx, "stop", []byte(`{}`))
}

func (c *Client) Pause(ctx context.Context) error {
	return c.post(ctx, "pause", []byte(`{}`))
}

func (c *Client) Resume(ctx context.Context) error {
	return c.post(ctx, "resume", []byte(`{}`))
}

// State reports whether the service is playing. Transport failures and non-2xx
// replies are ErrUnreachable.
func (c *Client) State(ctx context.Context) (ports.PlayerState, error) {
	raw, err := c.do(ctx, http.MethodGet, "state", nil)
	if err != nil {
		c.logger.Warnf(ctx, "Failed to read TS3AudioBot state: %v", err)
		return ports.PlayerState{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	// A 2xx reply means the service is up; a body without the state fields
	// reads as {} and counts as playing.
	var body gjson.Result
	if gjson.ValidBytes(raw) {
		body = gjson.ParseBytes(raw)
	} else if len(bytes.TrimSpace(raw)) > 0 {
		c.logger.Debugf(ctx, "TS3AudioBot state is not JSON: %q", raw)
	}
	state := body.Get("state").String()
	playing := state != stateStopped
	if p := body.Get("playing"); p.Exists() {
		playing = p.Bool()
	}
	return ports.PlayerState{Playing: playing, Raw: state}, nil
}

func (c *Client) post(ctx context.Context, action string, body []byte) error {
	if _, err := c.do(ctx, http.MethodPost, action, body); err != nil {
		c.logger.Errorf(ctx, "TS3AudioBot %s failed: %v", action, err)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		return &APIError{Action: action, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, action string, body []byte) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "audiobot "+action, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("audiobot.action", action),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/"+action, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, &APIError{Action: action, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return raw, nil
}
