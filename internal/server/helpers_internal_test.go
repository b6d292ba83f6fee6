package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/config"
	"github.com/wesm/flow/internal/feature"
	"github.com/wesm/flow/internal/store"
)

// testServer creates a Server for internal tests with the given
// write timeout, backed by a file store in a temp dir.
func testServer(
	t *testing.T, writeTimeout time.Duration, opts ...Option,
) *Server {
	t.Helper()
	return testServerFeatures(t, writeTimeout, feature.All(), opts...)
}

func testServerFeatures(
	t *testing.T, writeTimeout time.Duration, fs feature.Set,
	opts ...Option,
) *Server {
	t.Helper()
	dir := t.TempDir()
	st, err := store.OpenFile(filepath.Join(dir, store.DataFileName))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Config{
		Host:         "127.0.0.1",
		Port:         0,
		DataDir:      dir,
		Storage:      config.StorageFile,
		WriteTimeout: writeTimeout,
		Features:     fs,
	}
	engine := analytics.New(
		analytics.WithLocation(time.UTC),
		analytics.WithFeatures(fs),
	)
	return New(cfg, st, engine, opts...)
}

// withHandlerDelay sleeps before every timeout-wrapped handler.
func withHandlerDelay(d time.Duration) Option {
	return func(s *Server) { s.handlerDelay = d }
}

// assertTimeoutResponse checks that the response is a 503 with
// a JSON body containing "request timed out" and the correct
// Content-Type header.
func assertTimeoutResponse(
	t *testing.T, resp *http.Response,
) {
	t.Helper()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf(
			"status = %d, want %d",
			resp.StatusCode, http.StatusServiceUnavailable,
		)
	}
	body, _ := io.ReadAll(resp.Body)
	var je jsonError
	if err := json.Unmarshal(body, &je); err != nil {
		t.Fatalf(
			"body is not valid JSON: %v (body=%q)",
			err, string(body),
		)
	}
	if je.Error != "request timed out" {
		t.Errorf(
			"error = %q, want %q",
			je.Error, "request timed out",
		)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf(
			"Content-Type = %q, want %q",
			ct, "application/json",
		)
	}
}

// isTimeoutResponse returns true when the response is a 503
// JSON timeout. Use this for negative assertions where a route
// should NOT produce a timeout.
func isTimeoutResponse(
	t *testing.T, resp *http.Response,
) bool {
	t.Helper()
	if resp.StatusCode != http.StatusServiceUnavailable {
		return false
	}
	body, _ := io.ReadAll(resp.Body)
	var je jsonError
	if json.Unmarshal(body, &je) != nil {
		return false
	}
	return je.Error == "request timed out"
}

// assertRecorderStatus checks that the recorder has the
// expected HTTP status code.
func assertRecorderStatus(
	t *testing.T, w *httptest.ResponseRecorder, code int,
) {
	t.Helper()
	if w.Code != code {
		t.Fatalf(
			"expected status %d, got %d: %s",
			code, w.Code, w.Body.String(),
		)
	}
}
