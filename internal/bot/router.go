// Package bot connects the command pipeline to Matrix rooms.
package bot

import (
	"context"
	"strings"

	"llamabot/internal/command"
)

// Runner turns trigger-stripped text into a reply. *command.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, raw string) (string, error)
}

// Router recognises trigger messages and runs them. It has no Matrix dependency so
// the same path serves the sync loop and the admin dry-run endpoint.
type Router struct {
	runner  Runner
	trigger string
}

// NewRouter returns a Router for command.Trigger.
func NewRouter(r Runner) *Router { return &Router{runner: r, trigger: command.Trigger} }

// Matches reports whether body is addressed to the bot.
func (r *Router) Matches(body string) bool { return strings.HasPrefix(body, r.trigger) }

// Handle strips the trigger from body and runs the rest. ok is false when body
// does not start with the trigger; no reply should be sent then.
func (r *Router) Handle(ctx context.Context, body string) (reply string, ok bool, err error) {
	rest, found := strings.CutPrefix(body, r.trigger)
	if !found {
		return "", false, nil
	}
	reply, err = r.runner.Run(ctx, strings.TrimSpace(rest))
	if err != nil {
		return "", true, err
	}
	return reply, true, nil
}
