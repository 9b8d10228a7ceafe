package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dukerupert/gavel/internal/auth"
	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/database"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/websocket"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type recordingHub struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (h *recordingHub) Broadcast(msg websocket.Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.msgs))
	for i, m := range h.msgs {
		out[i] = m.Type
	}
	return out
}

func (h *recordingHub) has(typ string) bool {
	for _, t := range h.types() {
		if t == typ {
			return true
		}
	}
	return false
}

type fakeNotifier struct {
	notices chan court.PenaltyNotice
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{notices: make(chan court.PenaltyNotice, 4)}
}

func (f *fakeNotifier) Penalty(_ context.Context, n court.PenaltyNotice) (int, error) {
	f.notices <- n
	return 1, nil
}

// newRequest builds a JSON request acting as role. An empty role means the
// device has not picked one.
func newRequest(method, target string, body any, role model.Role) *http.Request {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req = req.WithContext(auth.WithRole(req.Context(), role))
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}
