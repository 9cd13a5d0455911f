package command

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"llamabot/internal/registry"
)

// Querier sends a prompt to a model behind endpoint and returns the full reply text.
// *inference.Client satisfies it.
type Querier interface {
	Query(ctx context.Context, endpoint, model, prompt string) (string, error)
}

// Executor runs parsed commands. It holds no mutable state besides counters and is
// safe for concurrent use; concurrent asks are not coordinated.
type Executor struct {
	client   Querier
	models   *registry.Set
	endpoint string
	log      zerolog.Logger
	inflight atomic.Int64
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Executor) { e.log = l } }

// NewExecutor builds an Executor. A nil models set falls back to registry.Default().
func NewExecutor(client Querier, models *registry.Set, endpoint string, opts ...Option) *Executor {
	if models == nil {
		models = registry.Default()
	}
	e := &Executor{client: client, models: models, endpoint: endpoint, log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Endpoint is the inference endpoint asks are sent to.
func (e *Executor) Endpoint() string { return e.endpoint }

// Models is the supported model set.
func (e *Executor) Models() *registry.Set { return e.models }

// Inflight is the number of asks currently waiting on the inference service.
func (e *Executor) Inflight() int64 { return e.inflight.Load() }

// Execute produces the reply for cmd. payload is the unparsed text after the
// command word; empty means absent. For Ask, Help and List the only error is
// *InferenceError; any other cmd is a programming error and is rejected.
func (e *Executor) Execute(ctx context.Context, cmd Command, payload string) (string, error) {
	switch cmd {
	case Help:
		commandsTotal.WithLabelValues(cmd.String(), outcomeReply).Inc()
		return Usage, nil
	case List:
		commandsTotal.WithLabelValues(cmd.String(), outcomeReply).Inc()
		return listReply(e.models.String()), nil
	case Ask:
		return e.ask(ctx, payload)
	default:
		return "", fmt.Errorf("command %d not executable", int(cmd))
	}
}

// Run parses raw and executes it. Unknown command words become a guidance reply.
func (e *Executor) Run(ctx context.Context, raw string) (string, error) {
	cmd, payload, err := Parse(raw)
	if err != nil {
		commandsTotal.WithLabelValues("unknown", outcomeGuidance).Inc()
		return err.Error(), nil
	}
	return e.Execute(ctx, cmd, payload)
}

func (e *Executor) ask(ctx context.Context, payload string) (string, error) {
	model, prompt := splitFirst(payload)
	if model == "" || prompt == "" {
		commandsTotal.WithLabelValues(Ask.String(), outcomeGuidance).Inc()
		return MissingArgsReply, nil
	}
	if !e.models.Contains(model) {
		commandsTotal.WithLabelValues(Ask.String(), outcomeGuidance).Inc()
		return unsupportedModelReply(model), nil
	}
	if e.client == nil {
		commandsTotal.WithLabelValues(Ask.String(), outcomeError).Inc()
		return "", &InferenceError{Model: model, Err: fmt.Errorf("no inference client configured")}
	}

	e.inflight.Add(1)
	inflightAsks.Inc()
	defer func() {
		e.inflight.Add(-1)
		inflightAsks.Dec()
	}()

	e.log.Debug().Str("model", model).Int("prompt_len", len(prompt)).Msg("ask")
	text, err := e.client.Query(ctx, e.endpoint, model, prompt)
	if err != nil {
		commandsTotal.WithLabelValues(Ask.String(), outcomeError).Inc()
		return "", &InferenceError{Model: model, Err: err}
	}
	commandsTotal.WithLabelValues(Ask.String(), outcomeReply).Inc()
	return text, nil
}
