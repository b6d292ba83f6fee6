package server

import (
	"net/http"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
)

const habitNotFoundMsg = "Habit not found"

// handleListHabits returns every habit with streaks recomputed
// against today, so a streak broken overnight reads as zero
// without a write.
func (s *Server) handleListHabits(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "listing habits", err)
		return
	}
	s.engine.RefreshStreaks(snap)
	writeJSON(w, http.StatusOK, snap.Habits)
}

func (s *Server) handleCreateHabit(
	w http.ResponseWriter, r *http.Request,
) {
	var in analytics.NewHabit
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "creating habit", err)
		return
	}
	var habit model.Habit
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		habit = s.engine.CreateHabit(snap, in)
		return nil
	})
	if err != nil {
		writeStoreError(w, "creating habit", err)
		return
	}
	writeJSON(w, http.StatusCreated, habit)
}

func (s *Server) handleDeleteHabit(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, habitNotFoundMsg)
	if !ok {
		return
	}
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		return analytics.DeleteHabit(snap, id)
	})
	if err != nil {
		writeStoreError(w, "deleting habit", err)
		return
	}
	writeMessage(w, http.StatusOK, "Habit deleted")
}

func (s *Server) handleCompleteHabit(
	w http.ResponseWriter, r *http.Request,
) {
	s.markHabit(w, r, s.engine.CompleteHabit, "completing habit")
}

func (s *Server) handleUncompleteHabit(
	w http.ResponseWriter, r *http.Request,
) {
	s.markHabit(w, r, s.engine.UncompleteHabit, "uncompleting habit")
}

func (s *Server) markHabit(
	w http.ResponseWriter, r *http.Request,
	mark func(*model.Snapshot, int64) (model.Habit, error),
	op string,
) {
	id, ok := pathID(w, r, habitNotFoundMsg)
	if !ok {
		return
	}
	var habit model.Habit
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		habit, err = mark(snap, id)
		return err
	})
	if err != nil {
		writeStoreError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// loadHabit returns the habit named by {id}, writing the error
// response itself.
func (s *Server) loadHabit(
	w http.ResponseWriter, r *http.Request,
) (model.Habit, bool) {
	id, ok := pathID(w, r, habitNotFoundMsg)
	if !ok {
		return model.Habit{}, false
	}
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading habit", err)
		return model.Habit{}, false
	}
	i := snap.HabitIndex(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, habitNotFoundMsg)
		return model.Habit{}, false
	}
	return snap.Habits[i], true
}

func (s *Server) handleHabitInsights(
	w http.ResponseWriter, r *http.Request,
) {
	habit, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.HabitInsights(habit))
}

func (s *Server) handleHabitStrength(
	w http.ResponseWriter, r *http.Request,
) {
	habit, ok := s.loadHabit(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.HabitStrength(habit))
}
