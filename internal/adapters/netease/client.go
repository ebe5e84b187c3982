// Package netease talks to a NetEase Cloud Music compatible HTTP API for song
// search, detail lookup and playable URL resolution.
package netease

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/ports"
)

var (
	ErrNotFound    = errors.New("netease: song not found")
	ErrUnavailable = errors.New("netease: song url unavailable")
)

const (
	defaultTimeout = 8 * time.Second
	maxBodyBytes   = 4 << 20
)

var tracer = otel.Tracer("tsmodbot/internal/adapters/netease")

type Client struct {
	baseURL string
	http    *http.Client
	logger  *logging.Logger

	mu   sync.Mutex
	urls map[string]string
}

var _ ports.SongSearcher = (*Client)(nil)

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
		urls:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns matching songs in the order the service ranks them.
func (c *Client) Search(ctx context.Context, keyword string) ([]ports.Song, error) {
	body, err := c.get(ctx, "/search", url.Values{"keywords": {keyword}})
	if err != nil {
		c.logger.Errorf(ctx, "NetEase search %q failed: %v", keyword, err)
		return nil, fmt.Errorf("searching %q: %w", keyword, err)
	}

	var songs []ports.Song
	body.Get("result.songs").ForEach(func(_, s gjson.Result) bool {
		songs = append(songs, parseSong(s))
		return true
	})
	return songs, nil
}

// SongURL resolves a playable URL. Successful lookups are cached for the life of
// the client.
func (c *Client) SongURL(ctx context.Context, id string) (string, error) {
	if u, ok := c.cachedURL(id); ok {
		return u, nil
	}

	body, err := c.get(ctx, "/song/url", url.Values{"id": {id}})
	if err != nil {
		c.logger.Errorf(ctx, "NetEase url lookup for %s failed: %v", id, err)
		return "", fmt.Errorf("resolving url for %s: %w", id, err)
	}

	u := body.Get("data.0.url").String()
	if u == "" {
		return "", fmt.Errorf("song %s: %w", id, ErrUnavailable)
	}

	c.mu.Lock()
	if existing, ok := c.urls[id]; ok {
		u = existing
	} else {
		c.urls[id] = u
	}
	c.mu.Unlock()
	return u, nil
}

func (c *Client) cachedURL(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.urls[id]
	return u, ok
}

func (c *Client) SongDetail(ctx context.Context, id string) (ports.Song, error) {
	body, err := c.get(ctx, "/song/detail", url.Values{"ids": {id}})
	if err != nil {
		c.logger.Errorf(ctx, "NetEase detail for %s failed: %v", id, err)
		return ports.Song{}, fmt.Errorf("song detail %s: %w", id, err)
	}

	s := body.Get("songs.0")
	if !s.Exists() {
		return ports.Song{}, fmt.Errorf("song %s: %w", id, ErrNotFound)
	}
	return parseSong(s), nil
}

func parseSong(s gjson.Result) ports.Song {
	song := ports.Song{
		ID:   s.Get("id").String(),
		Name: s.Get("name").String(),
	}

	artists := s.Get("ar.#.name")
	if !artists.Exists() || len(artists.Array()) == 0 {
		artists = s.Get("artists.#.name")
	}
	for _, a := range artists.Array() {
		song.Artists = append(song.Artists, a.String())
	}

	ms := s.Get("dt")
	if !ms.Exists() {
		ms = s.Get("duration")
	}
	if ms.Exists() {
		song.Duration = time.Duration(ms.Int()) * time.Millisecond
	}
	return song
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	ctx, span := tracer.Start(ctx, "netease "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	endpoint := c.baseURL + path + "?" + query.Encode()
	span.SetAttributes(
		attribute.String("http.request.method", http.MethodGet),
		attribute.String("url.path", path),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return gjson.Result{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return gjson.Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		return gjson.Result{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("reading response: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, errors.New("invalid JSON response")
	}

	body := gjson.ParseBytes(raw)
	if code := body.Get("code"); code.Exists() && code.Int() != http.StatusOK {
		msg := body.Get("message").String()
		if msg == "" {
			msg = body.Get("msg").String()
		}
		return gjson.Result{}, fmt.Errorf("api code %d: %s", code.Int(), msg)
	}
	return body, nil
}
