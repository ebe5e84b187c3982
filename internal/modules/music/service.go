// Package music manages a shared playback queue backed by a song search service
// and a remote playback controller.
package music

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tsmodbot/internal/adapters/logging"
	"tsmodbot/internal/domain/queue"
	"tsmodbot/internal/eventbus"
	"tsmodbot/internal/ports"
	"tsmodbot/internal/schedule"
)

const (
	DefaultPollInterval = 5 * time.Second

	msgOffline    = "TS3AudioBot 离线或未响应"
	msgQueueDone  = "队列已播放完毕"
	msgPlayFailed = "播放失败：%s"
)

var errNoResults = errors.New("no results")

// Service owns the queue, the current track and the playing flag. The mutex is
// never held across calls to the search service, the player or the session.
type Service struct {
	sender   ports.MessageSender
	searcher ports.SongSearcher
	player   ports.PlaybackController
	bus      *eventbus.Bus
	logger   *logging.Logger

	announce     bool
	pollInterval time.Duration

	queue   *queue.Queue
	watcher schedule.Recurring

	mu              sync.Mutex
	current         *queue.Track
	playing         bool
	offlineNotified bool
}

func NewService(sender ports.MessageSender, searcher ports.SongSearcher, player ports.PlaybackController, bus *eventbus.Bus, cfg ports.MusicConfig, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Service{
		sender:       sender,
		searcher:     searcher,
		player:       player,
		bus:          bus,
		logger:       logger,
		announce:     cfg.Queue.Announce,
		pollInterval: interval,
		queue:        queue.New(),
	}
}

// StartWatcher begins polling the player so the queue advances when a track ends.
func (s *Service) StartWatcher(ctx context.Context) {
	s.watcher.Start(ctx, s.pollInterval, s.poll)
}

// Shutdown stops polling, stops the player on a best-effort basis and forgets
// all state.
func (s *Service) Shutdown(ctx context.Context) {
	s.watcher.Stop()
	if err := s.player.Stop(ctx); err != nil {
		s.logger.Debugf(ctx, "Ignoring player stop error during shutdown: %v", err)
	}
	s.queue.Clear()
	s.setIdle()
}

func (s *Service) poll(ctx context.Context) {
	if !s.isPlaying() {
		return
	}

	state, err := s.player.State(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if s.markOffline() {
			s.logger.Warnf(ctx, "Playback service unreachable: %v", err)
			s.send(ctx, ports.ServerTarget(), msgOffline)
		}
		return
	}
	s.markOnline()

	if state.Playing {
		return
	}

	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	s.playNext(ctx, nil)
}

// playNext starts the head of the queue. target, when set, receives progress
// replies; the watcher passes nil.
func (s *Service) playNext(ctx context.Context, target *ports.ReplyTarget) {
	next, ok := s.queue.Pop()
	if !ok {
		s.setIdle()
		if err := s.player.Stop(ctx); err != nil {
			s.logger.Debugf(ctx, "Ignoring player stop error on empty queue: %v", err)
		}
		if target != nil {
			s.send(ctx, *target, msgQueueDone)
		}
		return
	}

	if err := s.player.Play(ctx, next.URL); err != nil {
		s.logger.Errorf(ctx, "Failed to play %s: %v", next.Describe(), err)
		s.setIdle()
		if target != nil {
			s.send(ctx, *target, fmt.Sprintf(msgPlayFailed, next.Name))
		}
		return
	}

	s.mu.Lock()
	s.current = &next
	s.playing = true
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(eventbus.TrackStarted{Track: next})
	}
}

// enqueue appends t and starts playback when autoPlay is set and nothing is playing.
func (s *Service) enqueue(ctx context.Context, t queue.Track, autoPlay bool, target ports.ReplyTarget) {
	s.queue.Push(t)
	if s.announce {
		s.send(ctx, target, "已加入队列："+t.Describe())
	}
	if autoPlay && !s.isPlaying() {
		s.playNext(ctx, &target)
	}
}

func (s *Service) searchAndPick(ctx context.Context, keyword string) (queue.Track, error) {
	songs, err := s.searcher.Search(ctx, keyword)
	if err != nil {
		return queue.Track{}, err
	}
	if len(songs) == 0 {
		return queue.Track{}, errNoResults
	}
	return s.resolve(ctx, songs[0])
}

func (s *Service) fetchByID(ctx context.Context, id string) (queue.Track, error) {
	song, err := s.searcher.SongDetail(ctx, id)
	if err != nil {
		return queue.Track{}, err
	}
	return s.resolve(ctx, song)
}

func (s *Service) resolve(ctx context.Context, song ports.Song) (queue.Track, error) {
	u, err := s.searcher.SongURL(ctx, song.ID)
	if err != nil {
		return queue.Track{}, err
	}
	return queue.Track{
		ID:       song.ID,
		Name:     song.Name,
		Artists:  song.Artists,
		URL:      u,
		Duration: song.Duration,
	}, nil
}

func (s *Service) send(ctx context.Context, target ports.ReplyTarget, text string) {
	if err := s.sender.Respond(ctx, target, text); err != nil {
		s.logger.Warnf(ctx, "Failed to send music reply: %v", err)
	}
}

func (s *Service) isPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *Service) setIdle() {
	s.mu.Lock()
	s.current = nil
	s.playing = false
	s.mu.Unlock()
}

// markOffline records the player as unreachable and reports whether this is the
// first failure since it was last reachable.
func (s *Service) markOffline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offlineNotified {
		return false
	}
	s.offlineNotified = true
	return true
}

func (s *Service) markOnline() {
	s.mu.Lock()
	s.offlineNotified = false
	s.mu.Unlock()
}

func (s *Service) Current() (queue.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return queue.Track{}, false
	}
	return *s.current, true
}

func (s *Service) Queue() []queue.Track {
	return s.queue.Snapshot()
}

func (s *Service) PlaybackStatus() ports.PlaybackStatus {
	s.mu.Lock()
	status := ports.PlaybackStatus{Playing: s.playing}
	if s.current != nil {
		status.NowPlaying = s.current.Describe()
	}
	s.mu.Unlock()
	status.QueueLength = s.queue.Len()
	return status
}
