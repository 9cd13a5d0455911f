package main

import (
	"context"
	"time"

	"llamabot/internal/bot"
	"llamabot/internal/command"
	"llamabot/pkg/types"
)

// service adapts the running bot to httpapi.Service.
type service struct {
	bot     *bot.Bot
	router  *bot.Router
	exec    *command.Executor
	started time.Time
}

func newService(b *bot.Bot, r *bot.Router, e *command.Executor) *service {
	return &service{bot: b, router: r, exec: e, started: time.Now()}
}

func (s *service) Ready() bool { return s.bot.Ready() }

func (s *service) Status() types.StatusResponse {
	now := time.Now()
	return types.StatusResponse{
		UserID:         string(s.bot.UserID()),
		Homeserver:     s.bot.Homeserver(),
		Endpoint:       s.exec.Endpoint(),
		Models:         s.exec.Models().IDs(),
		Ready:          s.bot.Ready(),
		InflightAsks:   s.exec.Inflight(),
		UptimeSeconds:  int64(now.Sub(s.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

func (s *service) HandleCommand(ctx context.Context, text string) (string, bool, error) {
	return s.router.Handle(ctx, text)
}
