package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const (
	sseWriteTimeout = 3 * time.Second
	// sseRetry is the reconnect delay advertised to clients.
	sseRetry = 3 * time.Second
)

// SSEStream writes Server-Sent Events to one client. Every event
// carries an increasing id so a reconnecting client can tell
// whether it missed anything.
type SSEStream struct {
	w    http.ResponseWriter
	f    http.Flusher
	rc   *http.ResponseController
	next int64
}

// NewSSEStream sets the streaming headers, advertises the retry
// delay and flushes. It fails if w cannot flush.
func NewSSEStream(w http.ResponseWriter) (*SSEStream, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	s := &SSEStream{w: w, f: f, rc: http.NewResponseController(w), next: 1}
	if !s.write(fmt.Sprintf("retry: %d\n\n", sseRetry.Milliseconds()), "retry") {
		return nil, fmt.Errorf("writing stream preamble")
	}
	return s, nil
}

// write sends one raw frame under a bounded write deadline so a
// stalled client cannot pin the handler.
func (s *SSEStream) write(frame, what string) bool {
	_ = s.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))
	defer func() { _ = s.rc.SetWriteDeadline(time.Time{}) }()

	if _, err := fmt.Fprint(s.w, frame); err != nil {
		log.Printf("events: write %s: %v", what, err)
		return false
	}
	s.f.Flush()
	return true
}

// Send writes a named event. It returns false when the client is
// gone.
func (s *SSEStream) Send(event, data string) bool {
	frame := fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", s.next, event, data)
	if !s.write(frame, event) {
		return false
	}
	s.next++
	return true
}

// SendJSON writes a named event with v marshaled as its data.
func (s *SSEStream) SendJSON(event string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("events: marshal %s: %v", event, err)
		return false
	}
	return s.Send(event, string(data))
}
