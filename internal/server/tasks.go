package server

import (
	"net/http"
	"strings"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/quickadd"
)

const taskNotFoundMsg = "Task not found"

func (s *Server) handleListTasks(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "listing tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Tasks)
}

func (s *Server) handleCreateTask(
	w http.ResponseWriter, r *http.Request,
) {
	var in analytics.NewTask
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "creating task", err)
		return
	}
	var task model.Task
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		task = s.engine.CreateTask(snap, in)
		return nil
	})
	if err != nil {
		writeStoreError(w, "creating task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return
	}
	body, err := readBody(r, false)
	if err != nil {
		writeStoreError(w, "updating task", err)
		return
	}
	patch, err := taskPatch(body)
	if err != nil {
		writeStoreError(w, "updating task", err)
		return
	}
	var task model.Task
	_, err = s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		task, err = s.engine.UpdateTask(snap, id, patch)
		return err
	})
	if err != nil {
		writeStoreError(w, "updating task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return
	}
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		return analytics.DeleteTask(snap, id)
	})
	if err != nil {
		writeStoreError(w, "deleting task", err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted")
}

func (s *Server) handleReorderTasks(
	w http.ResponseWriter, r *http.Request,
) {
	var in struct {
		TaskIDs []int64 `json:"task_ids"`
	}
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "reordering tasks", err)
		return
	}
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		analytics.ReorderTasks(snap, in.TaskIDs)
		return nil
	})
	if err != nil {
		writeStoreError(w, "reordering tasks", err)
		return
	}
	writeMessage(w, http.StatusOK, "Tasks reordered")
}

// quickInput is the body of the quick-add endpoints.
type quickInput struct {
	Text string `json:"text"`
}

func (s *Server) parseQuick(
	w http.ResponseWriter, r *http.Request,
) (quickadd.Result, bool) {
	var in quickInput
	if err := decodeBody(r, &in, false); err != nil {
		writeStoreError(w, "parsing quick-add", err)
		return quickadd.Result{}, false
	}
	if strings.TrimSpace(in.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return quickadd.Result{}, false
	}
	return quickadd.Parse(in.Text, s.engine.Now()), true
}

func (s *Server) handleParseTask(
	w http.ResponseWriter, r *http.Request,
) {
	res, ok := s.parseQuick(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuickAddTask(
	w http.ResponseWriter, r *http.Request,
) {
	res, ok := s.parseQuick(w, r)
	if !ok {
		return
	}
	in := analytics.NewTask{
		Title:           res.Title,
		DueDate:         res.DueDate,
		DueTime:         res.DueTime,
		Priority:        res.Priority,
		Tags:            res.Tags,
		RepeatFrequency: res.RepeatFrequency,
	}
	var task model.Task
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		task = s.engine.CreateTask(snap, in)
		return nil
	})
	if err != nil {
		writeStoreError(w, "quick-adding task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleSnoozeTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return
	}
	var in struct {
		Days *int `json:"days"`
	}
	if err := decodeBody(r, &in, true); err != nil {
		writeStoreError(w, "snoozing task", err)
		return
	}
	days := 1
	if in.Days != nil {
		days = *in.Days
	}
	var task model.Task
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		task, err = s.engine.Snooze(snap, id, days)
		return err
	})
	if err != nil {
		writeStoreError(w, "snoozing task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRescheduleTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return
	}
	var in struct {
		Date *string `json:"date"`
		Time *string `json:"time"`
	}
	if err := decodeBody(r, &in, true); err != nil {
		writeStoreError(w, "rescheduling task", err)
		return
	}
	var task model.Task
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		task, err = analytics.Reschedule(snap, id, in.Date, in.Time)
		return err
	})
	if err != nil {
		writeStoreError(w, "rescheduling task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// loadTask returns the snapshot and the task named by {id},
// writing the error response itself.
func (s *Server) loadTask(
	w http.ResponseWriter, r *http.Request,
) (*model.Snapshot, model.Task, bool) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return nil, model.Task{}, false
	}
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "loading task", err)
		return nil, model.Task{}, false
	}
	i := snap.TaskIndex(id)
	if i < 0 {
		writeError(w, http.StatusNotFound, taskNotFoundMsg)
		return nil, model.Task{}, false
	}
	return snap, snap.Tasks[i], true
}

func (s *Server) handleRescheduleSuggestions(
	w http.ResponseWriter, r *http.Request,
) {
	snap, _, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": s.engine.RescheduleSuggestions(snap),
	})
}

func (s *Server) handleBreakdownSuggestions(
	w http.ResponseWriter, r *http.Request,
) {
	_, task, ok := s.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": analytics.BreakdownTemplate(task.Title),
	})
}

func (s *Server) handleBreakdownTask(
	w http.ResponseWriter, r *http.Request,
) {
	id, ok := pathID(w, r, taskNotFoundMsg)
	if !ok {
		return
	}
	var in struct {
		Subtasks []string `json:"subtasks"`
	}
	if err := decodeBody(r, &in, true); err != nil {
		writeStoreError(w, "breaking down task", err)
		return
	}
	var task model.Task
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		var err error
		task, err = analytics.Breakdown(snap, id, in.Subtasks)
		return err
	})
	if err != nil {
		writeStoreError(w, "breaking down task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleAgingTasks(
	w http.ResponseWriter, r *http.Request,
) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		writeStoreError(w, "listing aging tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"aging_tasks": s.engine.AgingTasks(snap),
	})
}

func (s *Server) handlePrioritizeTasks(
	w http.ResponseWriter, r *http.Request,
) {
	_, err := s.store.Update(r.Context(), func(snap *model.Snapshot) error {
		s.engine.Prioritize(snap)
		return nil
	})
	if err != nil {
		writeStoreError(w, "prioritizing tasks", err)
		return
	}
	writeMessage(w, http.StatusOK, "Tasks prioritized")
}
