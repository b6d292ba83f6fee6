package server

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/wesm/flow/internal/model"
)

// exportFilename names a download after today's date.
func (s *Server) exportFilename(ext string) string {
	return fmt.Sprintf("flow-backup-%s.%s", s.engine.TodayString(), ext)
}

func (s *Server) handleExport(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "exporting", err)
		return
	}
	data, err := snap.Encode()
	if err != nil {
		writeStoreError(w, "exporting", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("json")),
	)
	if _, err := w.Write(data); err != nil {
		log.Printf("export: writing response: %v", err)
	}
}

var taskCSVHeader = []string{
	"id", "title", "completed", "priority", "due_date", "due_time",
	"duration", "created_at", "completed_at", "postponed_count", "tags",
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// writeTasksCSV writes one row per task under taskCSVHeader.
func writeTasksCSV(out io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(taskCSVHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		row := []string{
			strconv.FormatInt(t.ID, 10),
			t.Title,
			strconv.FormatBool(t.Completed),
			t.Priority,
			deref(t.DueDate),
			deref(t.DueTime),
			strconv.Itoa(t.Duration),
			t.CreatedAt,
			deref(t.CompletedAt),
			strconv.Itoa(t.PostponedCount),
			strings.Join(t.Tags, ";"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Server) handleExportTasksCSV(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "exporting tasks", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"`, s.exportFilename("csv")),
	)
	if err := writeTasksCSV(w, snap.Tasks); err != nil {
		log.Printf("export tasks: writing response: %v", err)
	}
}

// handleImport replaces the whole document with an exported
// backup. Streaks are recomputed from the imported completions.
func (s *Server) handleImport(
	w http.ResponseWriter, r *http.Request,
) {
	data, err := readBody(r, false)
	if err != nil {
		writeStoreError(w, "importing", err)
		return
	}
	snap, err := model.ParseBackup(data)
	if err != nil {
		writeStoreError(w, "importing", err)
		return
	}
	s.engine.RefreshStreaks(snap)
	if err := s.store.Replace(r.Context(), snap); err != nil {
		writeStoreError(w, "importing", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Data imported",
		"tasks":       len(snap.Tasks),
		"habits":      len(snap.Habits),
		"focus_items": len(snap.FocusItems),
	})
}
