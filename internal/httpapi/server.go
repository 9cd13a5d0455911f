// Package httpapi serves the bot's optional admin surface: health, status,
// Prometheus metrics and a dry-run endpoint that answers a command without Matrix.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llamabot/internal/command"
	"llamabot/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
	// HandleCommand runs text through the same path as a room message.
	// ok is false when text does not start with the trigger.
	HandleCommand(ctx context.Context, text string) (reply string, ok bool, err error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("starting"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/command", func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if strings.TrimSpace(req.Text) == "" {
			writeJSONError(w, http.StatusBadRequest, "text is required")
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		reply, ok, err := svc.HandleCommand(ctx, req.Text)
		status := http.StatusOK
		switch {
		case err != nil && r.Context().Err() != nil:
			// client went away; nothing to write
			return
		case err != nil && command.IsInferenceError(err):
			status = http.StatusBadGateway
			writeJSONError(w, status, err.Error())
		case err != nil:
			status = http.StatusInternalServerError
			writeJSONError(w, status, err.Error())
		case !ok:
			status = http.StatusUnprocessableEntity
			writeJSONError(w, status, "text must start with "+command.Trigger)
		default:
			writeJSON(w, status, types.CommandResponse{Reply: reply})
		}
		if lvl >= LevelError && status >= 500 {
			logger().Error().Int("status", status).Dur("dur", time.Since(start)).Str("request_id", middleware.GetReqID(r.Context())).Err(err).Msg("command end")
		} else if lvl >= LevelInfo {
			logger().Info().Int("status", status).Dur("dur", time.Since(start)).Str("request_id", middleware.GetReqID(r.Context())).Msg("command end")
		}
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
