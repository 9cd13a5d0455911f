// Package inference talks to an Ollama-style /api/generate endpoint and folds
// its streamed NDJSON response into a single reply.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"llamabot/pkg/types"
)

// Client issues generate requests. It is safe for concurrent use; it holds no
// per-request state.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each Query, including reading the body. Zero leaves only
// the caller's context and transport defaults in effect.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// NewClient constructs a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}, log: zerolog.Nop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query sends one generate request for (model, prompt) to endpoint and returns the
// aggregated, left-trimmed text. There is no retry.
func (c *Client) Query(ctx context.Context, endpoint, model, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	text, stats, err := c.do(ctx, endpoint, model, prompt)
	requestDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if stats.Dropped > 0 {
		droppedChunksTotal.Add(float64(stats.Dropped))
	}
	if err != nil {
		requestsTotal.WithLabelValues(model, "error").Inc()
		c.log.Error().Err(err).Str("model", model).Dur("dur", time.Since(start)).Msg("inference failed")
		return "", err
	}
	if text == "" {
		emptyCompletionsTotal.WithLabelValues(model).Inc()
		c.log.Warn().Str("model", model).Int("fragments", stats.Fragments).Int("dropped", stats.Dropped).
			Msg("inference returned an empty completion")
	}
	requestsTotal.WithLabelValues(model, "ok").Inc()
	c.log.Debug().Str("model", model).Int("fragments", stats.Fragments).Int("dropped", stats.Dropped).
		Dur("dur", time.Since(start)).Msg("inference done")
	return text, nil
}

func (c *Client) do(ctx context.Context, endpoint, model, prompt string) (string, Stats, error) {
	body, err := json.Marshal(types.GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return "", Stats{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", Stats{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", Stats{}, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", Stats{}, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        errors.New(resp.Status + ": " + string(bytes.TrimSpace(b))),
		}
	}
	text, stats, err := Aggregate(resp.Body)
	if err != nil {
		return "", stats, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return text, stats, nil
}
