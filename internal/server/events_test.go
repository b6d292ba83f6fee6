package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wesm/flow/internal/server"
)

// serveEvents runs the events handler in the background until the
// test ends.
func serveEvents(t *testing.T, te *testEnv) *flushRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		te.handler.ServeHTTP(w, req)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("events handler did not exit")
		}
	})
	return w
}

func TestEvents_SnapshotOnCommit(t *testing.T) {
	te := setupWithServerOpts(t, []server.Option{
		server.WithHeartbeat(20 * time.Millisecond),
	})
	w := serveEvents(t, te)

	// The first heartbeat means the handler has subscribed.
	waitForSSEEvent(t, w, "heartbeat", 2*time.Second)

	resp := te.post(t, "/api/tasks", `{"title":"ping"}`)
	assertStatus(t, resp, http.StatusCreated)

	waitForSSEEvent(t, w, "snapshot", 2*time.Second)
	if body := w.BodyString(); !strings.Contains(body, `"source":"commit"`) {
		t.Errorf("snapshot event missing source: %s", body)
	}
}

func TestEvents_Heartbeat(t *testing.T) {
	te := setupWithServerOpts(t, []server.Option{
		server.WithHeartbeat(20 * time.Millisecond),
	})
	w := serveEvents(t, te)
	waitForSSEEvent(t, w, "heartbeat", 2*time.Second)
}
