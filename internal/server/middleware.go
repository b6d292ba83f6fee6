package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// jsonError is the standard JSON error response.
type jsonError struct {
	Error string `json:"error"`
}

// timeoutBody is the 503 body written by http.TimeoutHandler.
var timeoutBody = func() string {
	b, _ := json.Marshal(jsonError{Error: "request timed out"})
	return string(b)
}()

// withTimeout bounds h by the configured write timeout. Timed out
// requests get a JSON 503.
func (s *Server) withTimeout(h http.HandlerFunc) http.Handler {
	if d := s.handlerDelay; d > 0 {
		next := h
		h = func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(d)
			next(w, r)
		}
	}
	th := http.TimeoutHandler(h, s.cfg.WriteTimeout, timeoutBody)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		th.ServeHTTP(&unavailableWriter{ResponseWriter: w}, r)
	})
}

// requires gates a timeout-wrapped handler on one capability.
// Disabled capabilities answer 404 so clients of the core
// variant see the route as absent.
func (s *Server) requires(
	c capability, name string, h http.HandlerFunc,
) http.Handler {
	if !c(s.cfg.Features) {
		msg := name + " is not enabled"
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusNotFound, msg)
		})
	}
	return s.withTimeout(h)
}

// unavailableWriter labels a 503 without a Content-Type as JSON.
// TimeoutHandler writes its body without one.
type unavailableWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *unavailableWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	h := w.Header()
	if code == http.StatusServiceUnavailable && h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *unavailableWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
