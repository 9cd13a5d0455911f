package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"llamabot/internal/command"
	"llamabot/pkg/types"
)

type mockService struct {
	status types.StatusResponse
	ready  bool
	reply  string
	ok     bool
	err    error
	got    string
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }
func (m *mockService) HandleCommand(ctx context.Context, text string) (string, bool, error) {
	m.got = text
	return m.reply, m.ok, m.err
}

func postCommand(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before ready: %d", w.Code)
	}
	svc.ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ready" {
		t.Fatalf("readyz after ready: %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing security header")
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{UserID: "@llama:example.org", Models: []string{"mistral"}, Ready: true}}
	h := NewMux(svc)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var got types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.UserID != "@llama:example.org" || len(got.Models) != 1 || !got.Ready {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestCommandHandler_Reply(t *testing.T) {
	svc := &mockService{reply: "4", ok: true}
	w := postCommand(t, NewMux(svc), "application/json", `{"text":"!llama ask mistral what is 2+2"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp types.CommandResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Reply != "4" || svc.got != "!llama ask mistral what is 2+2" {
		t.Fatalf("reply=%q got=%q", resp.Reply, svc.got)
	}
}

func TestCommandHandler_Errors(t *testing.T) {
	cases := []struct {
		name   string
		svc    *mockService
		ct     string
		body   string
		status int
	}{
		{"content type", &mockService{ok: true}, "text/plain", `{"text":"!llama help"}`, http.StatusUnsupportedMediaType},
		{"missing content type", &mockService{ok: true}, "", `{"text":"!llama help"}`, http.StatusUnsupportedMediaType},
		{"bad json", &mockService{ok: true}, "application/json", `{"text":`, http.StatusBadRequest},
		{"empty text", &mockService{ok: true}, "application/json", `{"text":"  "}`, http.StatusBadRequest},
		{"no trigger", &mockService{ok: false}, "application/json", `{"text":"hello"}`, http.StatusUnprocessableEntity},
		{"inference", &mockService{ok: true, err: &command.InferenceError{Model: "mistral", Err: errors.New("refused")}}, "application/json", `{"text":"!llama ask mistral hi"}`, http.StatusBadGateway},
		{"other", &mockService{ok: true, err: errors.New("boom")}, "application/json", `{"text":"!llama ask mistral hi"}`, http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := postCommand(t, NewMux(c.svc), c.ct, c.body)
		if w.Code != c.status {
			t.Fatalf("%s: status=%d want %d body=%s", c.name, w.Code, c.status, w.Body.String())
		}
		var e types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil || e.Code != c.status || e.Error == "" {
			t.Fatalf("%s: bad error payload %q", c.name, w.Body.String())
		}
	}
}

func TestCommandHandler_BodyLimit(t *testing.T) {
	SetMaxBodyBytes(16)
	t.Cleanup(func() { SetMaxBodyBytes(0) })
	w := postCommand(t, NewMux(&mockService{ok: true}), "application/json", `{"text":"!llama ask mistral a long prompt"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCORSOptIn(t *testing.T) {
	SetCORSOptions(true, []string{"https://dash.example.org"}, []string{"GET"}, []string{"Content-Type"})
	t.Cleanup(func() { SetCORSOptions(false, nil, nil, nil) })
	h := NewMux(&mockService{})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://dash.example.org")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dash.example.org" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestJoinContextsCancelsOnBase(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(base, context.Background())
	defer cancel()
	cancelBase()
	<-ctx.Done()
	if !errors.Is(context.Cause(ctx), context.Canceled) {
		t.Fatalf("cause=%v", context.Cause(ctx))
	}
}

func TestJoinContextsCancelsOnRequest(t *testing.T) {
	req, cancelReq := context.WithCancel(context.Background())
	ctx, cancel := joinContexts(context.Background(), req)
	defer cancel()
	cancelReq()
	<-ctx.Done()
}
