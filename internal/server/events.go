package server

import (
	"net/http"
	"time"
)

// handleEvents streams a "snapshot" event after every committed
// update and every external edit of the data file, plus a
// periodic heartbeat.
func (s *Server) handleEvents(
	w http.ResponseWriter, r *http.Request,
) {
	changes, cancel := s.store.Subscribe()
	defer cancel()

	stream, err := NewSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			"streaming not supported")
		return
	}

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if !stream.SendJSON("snapshot", c) {
				return
			}
		case <-heartbeat.C:
			if !stream.Send("heartbeat",
				time.Now().Format(time.RFC3339)) {
				return
			}
		}
	}
}
