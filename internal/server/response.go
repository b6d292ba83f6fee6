package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/store"
)

// writeJSON writes v as JSON with the given HTTP status code.
// Logs a warning if JSON encoding fails.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: encoding response: %v", err)
	}
}

// writeError writes a JSON error response with the given status
// and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeMessage writes a {"message": msg} acknowledgement.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// handleContextError detects context.Canceled and
// context.DeadlineExceeded errors, returning true so the
// caller stops processing. It does NOT write an HTTP
// response: the withTimeout middleware handles that via
// http.TimeoutHandler (503). Writing here would race with
// the middleware's buffered response.
func handleContextError(_ http.ResponseWriter, err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// writeStoreError maps an error from a store or engine call to
// a response. Context errors write nothing.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case handleContextError(w, err):
	case errors.Is(err, analytics.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "Task not found")
	case errors.Is(err, analytics.ErrHabitNotFound):
		writeError(w, http.StatusNotFound, "Habit not found")
	case errors.Is(err, analytics.ErrFocusNotFound):
		writeError(w, http.StatusNotFound, "Focus item not found")
	case errors.Is(err, analytics.ErrUnknownAction),
		errors.Is(err, analytics.ErrInvalidView),
		errors.Is(err, analytics.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errBadPayload),
		errors.Is(err, model.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrCorrupt):
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError,
			"data file is corrupt; restore it or import a backup")
	default:
		log.Printf("%s: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
