package server

import (
	"net/http"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
)

func (s *Server) handleGetProfile(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading profile", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.UserProfile)
}

func (s *Server) handleUpdateProfile(
	w http.ResponseWriter, r *http.Request,
) {
	var patch map[string]any
	if err := decodeBody(r, &patch, false); err != nil {
		writeStoreError(w, "updating profile", err)
		return
	}
	snap, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		analytics.UpdateProfile(snap, patch)
		return nil
	})
	if err != nil {
		writeStoreError(w, "updating profile", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.UserProfile)
}

func (s *Server) handleGetSettings(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading settings", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Settings)
}

func (s *Server) handleUpdateSettings(
	w http.ResponseWriter, r *http.Request,
) {
	var patch map[string]any
	if err := decodeBody(r, &patch, false); err != nil {
		writeStoreError(w, "updating settings", err)
		return
	}
	snap, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		model.MergeMap(snap.Settings, patch)
		return nil
	})
	if err != nil {
		writeStoreError(w, "updating settings", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Settings)
}

func (s *Server) handleGetOnboarding(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading onboarding", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{
		"complete": snap.OnboardingComplete,
	})
}

func (s *Server) handleCompleteOnboarding(
	w http.ResponseWriter, r *http.Request,
) {
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		s.engine.CompleteOnboarding(snap)
		return nil
	})
	if err != nil {
		writeStoreError(w, "completing onboarding", err)
		return
	}
	writeMessage(w, http.StatusOK, "Onboarding completed")
}
