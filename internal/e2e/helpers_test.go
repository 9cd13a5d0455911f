package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"llamabot/pkg/types"
)

// newFakeOllama streams one NDJSON line per fragment followed by a done line.
// Requests for models outside replies get a 404 like the real service.
func newFakeOllama(t *testing.T, replies map[string][]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req types.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		frags, ok := replies[req.Model]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for _, f := range frags {
			_ = enc.Encode(types.StreamMessage{Model: req.Model, CreatedAt: time.Now().UTC().Format(time.RFC3339Nano), Response: f})
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
		_ = enc.Encode(types.StreamMessage{Model: req.Model, CreatedAt: time.Now().UTC().Format(time.RFC3339Nano), Done: true})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// sentReply is one message the bot published through the fake homeserver.
type sentReply struct {
	RoomID string
	Body   string
}

// fakeHomeserver implements just enough of the client-server API for one bot
// session: login, filter upload, sync and sending messages.
type fakeHomeserver struct {
	t        *testing.T
	mu       sync.Mutex
	syncs    int
	initial  []map[string]any // events delivered in the first (ignored) sync
	live     []map[string]any // events delivered in the second sync
	roomID   string
	sent     chan sentReply
	server   *httptest.Server
	password string
}

func newFakeHomeserver(t *testing.T, roomID, password string) *fakeHomeserver {
	t.Helper()
	hs := &fakeHomeserver{t: t, roomID: roomID, password: password, sent: make(chan sentReply, 16)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /_matrix/client/v3/login", hs.login)
	mux.HandleFunc("POST /_matrix/client/v3/user/{userID}/filter", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"filter_id": "1"})
	})
	mux.HandleFunc("GET /_matrix/client/v3/sync", hs.sync)
	mux.HandleFunc("PUT /_matrix/client/v3/rooms/{roomID}/send/{eventType}/{txnID}", hs.send)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"errcode": "M_UNRECOGNIZED", "error": "unrecognized request " + r.Method + " " + r.URL.Path})
	})
	hs.server = httptest.NewServer(mux)
	t.Cleanup(hs.server.Close)
	return hs
}

func (hs *fakeHomeserver) URL() string { return hs.server.URL }

func (hs *fakeHomeserver) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type       string `json:"type"`
		Password   string `json:"password"`
		Identifier struct {
			User string `json:"user"`
		} `json:"identifier"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Type != "m.login.password" || req.Password != hs.password {
		writeJSON(w, http.StatusForbidden, map[string]any{"errcode": "M_FORBIDDEN", "error": "Invalid password"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      "@" + req.Identifier.User + ":example.org",
		"access_token": "syt_test",
		"device_id":    "LLAMADEV",
	})
}

func (hs *fakeHomeserver) sync(w http.ResponseWriter, r *http.Request) {
	hs.mu.Lock()
	hs.syncs++
	n := hs.syncs
	hs.mu.Unlock()

	var events []map[string]any
	switch n {
	case 1:
		events = hs.initial
	case 2:
		events = hs.live
	default:
		// long-poll with nothing new
		select {
		case <-r.Context().Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
	resp := map[string]any{"next_batch": "s" + itoa(n)}
	if len(events) > 0 {
		resp["rooms"] = map[string]any{
			"join": map[string]any{
				hs.roomID: map[string]any{"timeline": map[string]any{"events": events}},
			},
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (hs *fakeHomeserver) send(w http.ResponseWriter, r *http.Request) {
	var content struct {
		MsgType string `json:"msgtype"`
		Body    string `json:"body"`
	}
	_ = json.NewDecoder(r.Body).Decode(&content)
	if content.MsgType != "m.text" {
		hs.t.Errorf("unexpected msgtype %q", content.MsgType)
	}
	hs.sent <- sentReply{RoomID: r.PathValue("roomID"), Body: content.Body}
	writeJSON(w, http.StatusOK, map[string]any{"event_id": "$reply" + r.PathValue("txnID")})
}

func textMessage(eventID, sender, body string) map[string]any {
	return map[string]any{
		"type":             "m.room.message",
		"event_id":         eventID,
		"sender":           sender,
		"origin_server_ts": time.Now().UnixMilli(),
		"content":          map[string]any{"msgtype": "m.text", "body": body},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
