package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
)

func (s *Server) handleStats(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "computing stats", err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Stats(snap))
}

func (s *Server) handleWeeklyReview(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "computing weekly review", err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.WeeklyReview(snap))
}

func (s *Server) handleProductivity(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "computing productivity", err)
		return
	}
	report := s.engine.ProductivityPatterns(snap)
	if report == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "No data yet",
			"patterns": map[string]any{},
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePraise(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "generating praise", err)
		return
	}
	writeMessage(w, http.StatusOK, s.engine.Praise(snap))
}

func (s *Server) handleInsights(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "generating insights", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"insights": s.engine.Insights(snap),
	})
}

func (s *Server) handleSmartSuggestions(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "generating suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": s.engine.SmartSuggestions(snap),
	})
}

// findSuggestion looks id up among the suggestions the current
// snapshot generates.
func (s *Server) findSuggestion(
	snap *model.Snapshot, id string,
) (analytics.Suggestion, bool) {
	for _, sg := range s.engine.SmartSuggestions(snap) {
		if sg.ID == id {
			return sg, true
		}
	}
	return analytics.Suggestion{}, false
}

// handleApplySuggestion performs a suggestion's action. The body
// carries {action, data}; with no action, the suggestion is
// looked up by its {id} and its own payload is applied.
func (s *Server) handleApplySuggestion(
	w http.ResponseWriter, r *http.Request,
) {
	var in struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := decodeBody(r, &in, true); err != nil {
		writeStoreError(w, "applying suggestion", err)
		return
	}

	if in.Action == "" {
		snap, err := s.store.Load(r.Context())
		if err != nil {
			writeStoreError(w, "applying suggestion", err)
			return
		}
		sg, ok := s.findSuggestion(snap, r.PathValue("id"))
		if !ok || sg.Action == "" {
			writeError(w, http.StatusNotFound, "Suggestion not found")
			return
		}
		data, err := json.Marshal(sg.Data)
		if err != nil {
			writeStoreError(w, "applying suggestion", err)
			return
		}
		in.Action, in.Data = sg.Action, data
	}

	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		err := s.engine.Apply(snap, in.Action, in.Data)
		if err != nil && !errors.Is(err, analytics.ErrUnknownAction) {
			return fmt.Errorf("%w: %v", errBadPayload, err)
		}
		return err
	})
	if err != nil {
		writeStoreError(w, "applying suggestion", err)
		return
	}
	writeMessage(w, http.StatusOK, "Suggestion applied")
}

func (s *Server) handleCalendar(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "rendering calendar", err)
		return
	}
	view, err := s.engine.Calendar(
		snap, r.PathValue("view"), r.URL.Query().Get("date"),
	)
	if err != nil {
		writeStoreError(w, "rendering calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleAchievements awards any newly earned badges and returns
// the full list. Nothing is written when no badge is new.
func (s *Server) handleAchievements(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading achievements", err)
		return
	}
	if s.engine.AwardAchievements(snap) > 0 {
		snap, err = s.store.Update(r.Context(), func(cur *model.Snapshot) error {
			s.engine.AwardAchievements(cur)
			return nil
		})
		if err != nil {
			writeStoreError(w, "awarding achievements", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": snap.Achievements,
	})
}
