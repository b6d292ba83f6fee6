package server

import (
	"net/http"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
)

func (s *Server) handleGetFocus(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading focus", err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.TodayFocus(snap))
}

func (s *Server) handleSetFocus(
	w http.ResponseWriter, r *http.Request,
) {
	var in struct {
		Items []string `json:"items"`
	}
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "setting focus", err)
		return
	}
	var items []model.FocusItem
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		items = s.engine.SetFocus(snap, in.Items)
		return nil
	})
	if err != nil {
		writeStoreError(w, "setting focus", err)
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

func (s *Server) handleCompleteFocus(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, "Focus item not found")
	if !ok {
		return
	}
	var item model.FocusItem
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		item, err = analytics.CompleteFocus(snap, id)
		return err
	})
	if err != nil {
		writeStoreError(w, "completing focus item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleGetMood(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading mood history", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.MoodHistory)
}

func (s *Server) handleSaveMood(
	w http.ResponseWriter, r *http.Request,
) {
	var in struct {
		Level *int   `json:"level"`
		Note  string `json:"note"`
	}
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "saving mood", err)
		return
	}
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		s.engine.SaveMood(snap, in.Level, in.Note)
		return nil
	})
	if err != nil {
		writeStoreError(w, "saving mood", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Mood saved")
}

func (s *Server) handleMoodPatterns(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading mood patterns", err)
		return
	}
	writeJSON(w, http.StatusOK, analytics.MoodPatterns(snap))
}

func (s *Server) handleGetReflections(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading reflections", err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.RecentReflections(snap))
}

func (s *Server) handleSaveReflection(
	w http.ResponseWriter, r *http.Request,
) {
	var in analytics.NewReflection
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "saving reflection", err)
		return
	}
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		s.engine.SaveReflection(snap, in)
		return nil
	})
	if err != nil {
		writeStoreError(w, "saving reflection", err)
		return
	}
	writeMessage(w, http.StatusCreated, "Reflection saved")
}
