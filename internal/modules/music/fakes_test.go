package music

import (
	"context"
	"errors"
	"sync"
	"time"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/application"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
)

type sent struct {
	target ports.ReplyTarget
	text   string
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sent
}

func (f *fakeSender) Respond(_ context.Context, target ports.ReplyTarget, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, sent{target: target, text: message})
	return nil
}

func (f *fakeSender) SendToChannel(ctx context.Context, channelID, message string) error {
	return f.Respond(ctx, ports.ChannelTarget(channelID), message)
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.text)
	}
	return out
}

func (f *fakeSender) all() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sent, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	f.msgs = nil
	f.mu.Unlock()
}

var errService = errors.New("service down")

type fakeSearcher struct {
	results   map[string][]ports.Song
	details   map[string]ports.Song
	searchErr error
	urlErr    error

	mu       sync.Mutex
	searched []string
}

func (f *fakeSearcher) Search(_ context.Context, keyword string) ([]ports.Song, error) {
	f.mu.Lock()
	f.searched = append(f.searched, keyword)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[keyword], nil
}

func (f *fakeSearcher) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}

func (f *fakeSearcher) SongDetail(_ context.Context, id string) (ports.Song, error) {
	s, ok := f.details[id]
	if !ok {
		return ports.Song{}, errors.New("not found")
	}
	return s, nil
}

func (f *fakeSearcher) SongURL(_ context.Context, id string) (string, error) {
	if f.urlErr != nil {
		return "", f.urlErr
	}
	return "http://music.test/" + id + ".mp3", nil
}

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	played   []string
	playErr  error
	stopErr  error
	pauseErr error
	state    ports.PlayerState
	stateErr error
}

func (f *fakePlayer) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakePlayer) Play(_ context.Context, url string) error {
	f.record("play")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, url)
	return nil
}

func (f *fakePlayer) Stop(context.Context) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakePlayer) Pause(context.Context) error {
	f.record("pause")
	return f.pauseErr
}

func (f *fakePlayer) Resume(context.Context) error {
	f.record("resume")
	return f.pauseErr
}

func (f *fakePlayer) State(context.Context) (ports.PlayerState, error) {
	f.record("state")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.stateErr
}

func (f *fakePlayer) setState(s ports.PlayerState, err error) {
	f.mu.Lock()
	f.state, f.stateErr = s, err
	f.mu.Unlock()
}

func (f *fakePlayer) setPlayErr(err error) {
	f.mu.Lock()
	f.playErr = err
	f.mu.Unlock()
}

func (f *fakePlayer) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakePlayer) playedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.played))
	copy(out, f.played)
	return out
}

var (
	songSunny = ports.Song{ID: "186016", Name: "晴天", Artists: []string{"周杰伦"}, Duration: 269 * time.Second}
	songRain  = ports.Song{ID: "5257138", Name: "下雨天", Artists: []string{"南拳妈妈"}}
	songDuet  = ports.Song{ID: "42", Name: "Duet"}
)

type harness struct {
	service  *Service
	router   *application.Router
	sender   *fakeSender
	searcher *fakeSearcher
	player   *fakePlayer
	started  []eventbus.TrackStarted
}

func newHarness(announce bool) *harness {
	h := &harness{
		sender: &fakeSender{},
		searcher: &fakeSearcher{
			results: map[string][]ports.Song{
				"晴天":   {songSunny, songRain},
				"下雨天":  {songRain},
				"duet": {songDuet},
			},
			details: map[string]ports.Song{songSunny.ID: songSunny},
		},
		player: &fakePlayer{state: ports.PlayerState{Playing: true, Raw: "playing"}},
	}

	bus := eventbus.New(logging.Discard())
	eventbus.Subscribe(bus, func(e eventbus.TrackStarted) { h.started = append(h.started, e) })

	cfg := ports.MusicConfig{Queue: ports.QueueConfig{Announce: announce}, PollInterval: time.Hour}
	h.service = NewService(h.sender, h.searcher, h.player, bus, cfg, logging.Discard())
	h.router = application.NewRouter("/", h.sender, bus, logging.Discard())
	h.service.RegisterCommands(h.router)
	return h
}

var testMessage = ports.InboundMessage{
	InvokerID:   "7",
	InvokerName: "Alice",
	TargetMode:  ports.TargetChannel,
	ChannelID:   "1",
}

func (h *harness) run(text string) {
	msg := testMessage
	msg.Text = text
	h.router.HandleMessage(context.Background(), msg)
}
