package music

import (
	"context"
	"fmt"
	"strings"

	"tsmodbot/internal/application"
	"tsmodbot/internal/domain/parsing"
	"tsmodbot/internal/domain/queue"
)

type musicCommand struct {
	word        string
	handler     func(s *Service) application.HandlerFunc
	description string
}

var commands = []musicCommand{
	{"play", func(s *Service) application.HandlerFunc { return s.handlePlay }, "搜索并播放歌曲"},
	{"add", func(s *Service) application.HandlerFunc { return s.handleAdd }, "添加到队列"},
	{"del", func(s *Service) application.HandlerFunc { return s.handleDelete }, "删除队列项"},
	{"clear", func(s *Service) application.HandlerFunc { return s.handleClear }, "清空队列"},
	{"list", func(s *Service) application.HandlerFunc { return s.handleList }, "查看队列"},
	{"pause", func(s *Service) application.HandlerFunc { return s.handlePause }, "暂停播放"},
	{"resume", func(s *Service) application.HandlerFunc { return s.handleResume }, "继续播放"},
	{"stop", func(s *Service) application.HandlerFunc { return s.handleStop }, "停止播放"},
	{"skip", func(s *Service) application.HandlerFunc { return s.handleSkip }, "跳过当前"},
	{"now", func(s *Service) application.HandlerFunc { return s.handleNow }, "查看当前播放"},
}

// RegisterCommands binds the music commands on r.
func (s *Service) RegisterCommands(r *application.Router) {
	for _, c := range commands {
		r.Register(c.word, c.handler(s), c.description)
	}
}

// UnregisterCommands removes everything RegisterCommands added.
func (s *Service) UnregisterCommands(r *application.Router) {
	for _, c := range commands {
		r.Unregister(c.word)
	}
}

func (s *Service) reply(ctx context.Context, cmd *application.CommandContext, text string) {
	s.send(ctx, cmd.Target, text)
}

func (s *Service) handlePlay(ctx context.Context, cmd *application.CommandContext) error {
	q, ok := parsing.ParseSongQuery(cmd.Args)
	if !ok {
		s.reply(ctx, cmd, fmt.Sprintf("用法：%[1]splay <关键词> 或 %[1]splay id <歌曲ID>", cmd.Prefix))
		return nil
	}

	var (
		track queue.Track
		err   error
	)
	if q.Kind == parsing.QueryID {
		track, err = s.fetchByID(ctx, q.Value)
	} else {
		track, err = s.searchAndPick(ctx, q.Value)
	}
	if err != nil {
		s.logger.Warnf(ctx, "play %q: %v", q.Value, err)
		s.reply(ctx, cmd, "没有找到可播放的歌曲")
		return nil
	}

	s.enqueue(ctx, track, true, cmd.Target)
	return nil
}

func (s *Service) handleAdd(ctx context.Context, cmd *application.CommandContext) error {
	keyword := strings.TrimSpace(strings.Join(cmd.Args, " "))
	if keyword == "" {
		s.reply(ctx, cmd, fmt.Sprintf("用法：%sadd <关键词>", cmd.Prefix))
		return nil
	}

	track, err := s.searchAndPick(ctx, keyword)
	if err != nil {
		s.logger.Warnf(ctx, "add %q: %v", keyword, err)
		s.reply(ctx, cmd, "没有找到可添加的歌曲")
		return nil
	}

	s.enqueue(ctx, track, !s.isPlaying(), cmd.Target)
	return nil
}

func (s *Service) handleDelete(ctx context.Context, cmd *application.CommandContext) error {
	usage := fmt.Sprintf("用法：%sdel <队列序号>", cmd.Prefix)
	if len(cmd.Args) == 0 {
		s.reply(ctx, cmd, usage)
		return nil
	}
	pos, ok := parsing.ParsePosition(cmd.Args[0])
	if !ok {
		s.reply(ctx, cmd, usage)
		return nil
	}

	removed, err := s.queue.Remove(pos)
	if err != nil {
		s.reply(ctx, cmd, usage)
		return nil
	}
	s.reply(ctx, cmd, "已删除："+removed.Name)
	return nil
}

func (s *Service) handleClear(ctx context.Context, cmd *application.CommandContext) error {
	s.queue.Clear()
	s.reply(ctx, cmd, "已清空队列")
	return nil
}

func (s *Service) handleList(ctx context.Context, cmd *application.CommandContext) error {
	tracks := s.queue.Snapshot()
	if len(tracks) == 0 {
		s.reply(ctx, cmd, "队列为空")
		return nil
	}

	var b strings.Builder
	b.WriteString("队列：")
	for i, t := range tracks {
		fmt.Fprintf(&b, "\n%d. %s", i+1, t.Describe())
	}
	s.reply(ctx, cmd, b.String())
	return nil
}

func (s *Service) handlePause(ctx context.Context, cmd *application.CommandContext) error {
	if err := s.player.Pause(ctx); err != nil {
		s.logger.Errorf(ctx, "Pause failed: %v", err)
		s.reply(ctx, cmd, "暂停失败，请稍后重试")
		return nil
	}
	s.mu.Lock()
	s.playing = false
	s.mu.Unlock()
	s.reply(ctx, cmd, "已暂停播放")
	return nil
}

func (s *Service) handleResume(ctx context.Context, cmd *application.CommandContext) error {
	if err := s.player.Resume(ctx); err != nil {
		s.logger.Errorf(ctx, "Resume failed: %v", err)
		s.reply(ctx, cmd, "恢复播放失败，请稍后重试")
		return nil
	}
	s.mu.Lock()
	s.playing = true
	s.mu.Unlock()
	s.reply(ctx, cmd, "继续播放")
	return nil
}

func (s *Service) handleStop(ctx context.Context, cmd *application.CommandContext) error {
	if err := s.player.Stop(ctx); err != nil {
		s.logger.Errorf(ctx, "Stop failed: %v", err)
		s.reply(ctx, cmd, "停止失败，请稍后重试")
		return nil
	}
	s.queue.Clear()
	s.setIdle()
	s.reply(ctx, cmd, "已停止播放并清空队列")
	return nil
}

func (s *Service) handleSkip(ctx context.Context, cmd *application.CommandContext) error {
	s.reply(ctx, cmd, "切换下一首…")
	target := cmd.Target
	s.playNext(ctx, &target)
	return nil
}

func (s *Service) handleNow(ctx context.Context, cmd *application.CommandContext) error {
	current, ok := s.Current()
	if !ok {
		s.reply(ctx, cmd, "当前未播放歌曲")
		return nil
	}
	s.reply(ctx, cmd, "正在播放："+current.Describe())
	return nil
}
