package analytics

import (
	"fmt"
	"slices"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// Opt is a field of a partial update. Set distinguishes an
// explicit value (including null) from an absent key.
type Opt[T any] struct {
	Set   bool
	Value T
}

// Some returns a set Opt holding v.
func Some[T any](v T) Opt[T] {
	return Opt[T]{Set: true, Value: v}
}

// NewTask holds the fields accepted when creating a task.
type NewTask struct {
	Title           string   `json:"title"`
	DueDate         *string  `json:"due_date"`
	DueTime         *string  `json:"due_time"`
	Duration        *int     `json:"duration"`
	Priority        string   `json:"priority"`
	Tags            []string `json:"tags"`
	Description     string   `json:"description"`
	RepeatFrequency string   `json:"repeat_frequency"`
	Subtasks        []string `json:"subtasks"`
}

// TaskPatch is a partial task update. Only set fields change.
type TaskPatch struct {
	Title           Opt[string]
	Completed       Opt[bool]
	DueDate         Opt[*string]
	DueTime         Opt[*string]
	Duration        Opt[int]
	Priority        Opt[string]
	PostponedCount  Opt[int]
	Subtasks        Opt[[]model.Subtask]
	Tags            Opt[[]string]
	Description     Opt[string]
	RepeatFrequency Opt[string]
}

// NewHabit holds the fields accepted when creating a habit.
type NewHabit struct {
	Name           string `json:"name"`
	Icon           string `json:"icon"`
	Frequency      string `json:"frequency"`
	FrequencyCount int    `json:"frequency_count"`
	Category       string `json:"category"`
}

// NewReflection is an end-of-day journal entry.
type NewReflection struct {
	WhatWentWell string `json:"what_went_well"`
	GratefulFor  string `json:"grateful_for"`
	EnergyLevel  *int   `json:"energy_level"`
}

func taskNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
}

func habitNotFound(id int64) error {
	return fmt.Errorf("%w: %d", ErrHabitNotFound, id)
}

// CreateTask appends a new open task built from in.
func (e *Engine) CreateTask(s *model.Snapshot, in NewTask) model.Task {
	t := model.Task{
		ID:              s.NextTaskID(),
		Title:           in.Title,
		DueDate:         nonEmpty(in.DueDate),
		DueTime:         nonEmpty(in.DueTime),
		Duration:        model.DefaultDuration,
		Priority:        in.Priority,
		CreatedAt:       e.Timestamp(),
		Subtasks:        NewSubtasks(in.Subtasks),
		Tags:            in.Tags,
		Description:     in.Description,
		RepeatFrequency: in.RepeatFrequency,
	}
	if in.Duration != nil {
		t.Duration = *in.Duration
	}
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	s.Tasks = append(s.Tasks, t)
	return t
}

func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

// UpdateTask applies p to the task with id. Completing an open
// task stamps completed_at and records a behavior sample;
// reopening clears completed_at.
func (e *Engine) UpdateTask(s *model.Snapshot, id int64, p TaskPatch) (model.Task, error) {
	i := s.TaskIndex(id)
	if i < 0 {
		return model.Task{}, taskNotFound(id)
	}
	t := &s.Tasks[i]
	if p.Completed.Set {
		e.setCompleted(s, t, p.Completed.Value)
	}
	if p.Title.Set {
		t.Title = p.Title.Value
	}
	if p.DueDate.Set {
		t.DueDate = nonEmpty(p.DueDate.Value)
	}
	if p.DueTime.Set {
		t.DueTime = nonEmpty(p.DueTime.Value)
	}
	if p.Duration.Set {
		t.Duration = p.Duration.Value
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.PostponedCount.Set {
		t.PostponedCount = p.PostponedCount.Value
	}
	if p.Subtasks.Set {
		t.Subtasks = p.Subtasks.Value
		if t.Subtasks == nil {
			t.Subtasks = []model.Subtask{}
		}
	}
	if p.Tags.Set {
		t.Tags = p.Tags.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Value
	}
	if p.RepeatFrequency.Set {
		t.RepeatFrequency = p.RepeatFrequency.Value
	}
	return *t, nil
}

func (e *Engine) setCompleted(s *model.Snapshot, t *model.Task, done bool) {
	switch {
	case done && !t.Completed:
		now := e.Now()
		t.CompletedAt = timeutil.Ptr(now)
		if e.features.BehaviorTracking {
			s.BehaviorData.RecordCompletion(now.Hour(), now.Weekday().String())
		}
	case !done && t.Completed:
		t.CompletedAt = nil
	}
	t.Completed = done
}

// DeleteTask removes the task with id.
func DeleteTask(s *model.Snapshot, id int64) error {
	i := s.TaskIndex(id)
	if i < 0 {
		return taskNotFound(id)
	}
	s.Tasks = slices.Delete(s.Tasks, i, i+1)
	return nil
}

// ReorderTasks puts the tasks in the order of ids. Tasks whose
// id is not listed are dropped, as are unknown and repeated ids.
func ReorderTasks(s *model.Snapshot, ids []int64) {
	out := make([]model.Task, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if i := s.TaskIndex(id); i >= 0 {
			out = append(out, s.Tasks[i])
		}
	}
	s.Tasks = out
}

// Snooze moves the task's due date days forward, starting from
// today when it has none.
func (e *Engine) Snooze(s *model.Snapshot, id int64, days int) (model.Task, error) {
	i := s.TaskIndex(id)
	if i < 0 {
		return model.Task{}, taskNotFound(id)
	}
	t := &s.Tasks[i]
	base, ok := timeutil.ParseDate(t.Due())
	if !ok {
		base = e.Today()
	}
	t.DueDate = model.Ptr(timeutil.DateString(timeutil.AddDays(base, days)))
	return *t, nil
}

// Reschedule sets the task's due date and time and counts the
// postponement.
func Reschedule(s *model.Snapshot, id int64, date, clock *string) (model.Task, error) {
	i := s.TaskIndex(id)
	if i < 0 {
		return model.Task{}, taskNotFound(id)
	}
	t := &s.Tasks[i]
	t.DueDate = nonEmpty(date)
	t.DueTime = nonEmpty(clock)
	t.PostponedCount++
	return *t, nil
}

// Breakdown replaces the task's subtasks with steps.
func Breakdown(s *model.Snapshot, id int64, steps []string) (model.Task, error) {
	i := s.TaskIndex(id)
	if i < 0 {
		return model.Task{}, taskNotFound(id)
	}
	s.Tasks[i].Subtasks = NewSubtasks(steps)
	return s.Tasks[i], nil
}

// CreateHabit appends a new habit built from in.
func (e *Engine) CreateHabit(s *model.Snapshot, in NewHabit) model.Habit {
	h := model.Habit{
		ID:             s.NextHabitID(),
		Name:           in.Name,
		Icon:           in.Icon,
		Frequency:      in.Frequency,
		FrequencyCount: in.FrequencyCount,
		Category:       in.Category,
		Completions:    map[string]bool{},
		CreatedAt:      e.Timestamp(),
	}
	if h.Icon == "" {
		h.Icon = model.DefaultHabitIcon
	}
	if h.Frequency == "" {
		h.Frequency = model.FrequencyDaily
	}
	if h.FrequencyCount <= 0 {
		h.FrequencyCount = 1
	}
	s.Habits = append(s.Habits, h)
	return h
}

// DeleteHabit removes the habit with id.
func DeleteHabit(s *model.Snapshot, id int64) error {
	i := s.HabitIndex(id)
	if i < 0 {
		return habitNotFound(id)
	}
	s.Habits = slices.Delete(s.Habits, i, i+1)
	return nil
}

// CompleteHabit marks the habit done today and refreshes its
// streaks. Completing twice is a no-op.
func (e *Engine) CompleteHabit(s *model.Snapshot, id int64) (model.Habit, error) {
	return e.markHabit(s, id, true)
}

// UncompleteHabit clears today's completion and refreshes the
// current streak.
func (e *Engine) UncompleteHabit(s *model.Snapshot, id int64) (model.Habit, error) {
	return e.markHabit(s, id, false)
}

func (e *Engine) markHabit(s *model.Snapshot, id int64, done bool) (model.Habit, error) {
	i := s.HabitIndex(id)
	if i < 0 {
		return model.Habit{}, habitNotFound(id)
	}
	h := &s.Habits[i]
	today := e.TodayString()
	if h.Completions[today] == done {
		return *h, nil
	}
	if done {
		h.Completions[today] = true
	} else {
		delete(h.Completions, today)
	}
	e.RecomputeStreaks(h)
	return *h, nil
}

// TodayFocus returns the focus items dated today.
func (e *Engine) TodayFocus(s *model.Snapshot) []model.FocusItem {
	today := e.TodayString()
	out := []model.FocusItem{}
	for _, f := range s.FocusItems {
		if f.Date == today {
			out = append(out, f)
		}
	}
	return out
}

// SetFocus replaces today's focus items with the first three
// entries of texts and returns the new items.
func (e *Engine) SetFocus(s *model.Snapshot, texts []string) []model.FocusItem {
	if len(texts) > model.MaxFocusItems {
		texts = texts[:model.MaxFocusItems]
	}
	today := e.TodayString()
	s.FocusItems = slices.DeleteFunc(s.FocusItems, func(f model.FocusItem) bool {
		return f.Date == today
	})
	added := make([]model.FocusItem, 0, len(texts))
	for _, text := range texts {
		f := model.FocusItem{ID: s.NextFocusID(), Text: text, Date: today}
		s.FocusItems = append(s.FocusItems, f)
		added = append(added, f)
	}
	return added
}

// CompleteFocus marks the focus item with id done.
func CompleteFocus(s *model.Snapshot, id int64) (model.FocusItem, error) {
	i := s.FocusIndex(id)
	if i < 0 {
		return model.FocusItem{}, fmt.Errorf("%w: %d", ErrFocusNotFound, id)
	}
	s.FocusItems[i].Completed = true
	return s.FocusItems[i], nil
}

// SaveMood records today's mood, replacing any earlier entry.
// A nil level means the default; others are clamped to 1-5.
func (e *Engine) SaveMood(s *model.Snapshot, level *int, note string) model.MoodEntry {
	lv := model.DefaultMoodLevel
	if level != nil {
		lv = ClampMood(*level)
	}
	m := model.MoodEntry{Level: lv, Note: note, Timestamp: e.Timestamp()}
	s.MoodHistory[e.TodayString()] = m
	return m
}

// SaveReflection records today's reflection.
func (e *Engine) SaveReflection(s *model.Snapshot, in NewReflection) model.Reflection {
	r := model.Reflection{
		WhatWentWell: in.WhatWentWell,
		GratefulFor:  in.GratefulFor,
		EnergyLevel:  model.DefaultEnergyLevel,
		Timestamp:    e.Timestamp(),
	}
	if in.EnergyLevel != nil {
		r.EnergyLevel = *in.EnergyLevel
	}
	s.Reflections[e.TodayString()] = r
	return r
}

// RecentReflections returns the reflections of the last seven
// days keyed by date.
func (e *Engine) RecentReflections(s *model.Snapshot) map[string]model.Reflection {
	out := make(map[string]model.Reflection)
	for _, d := range e.lastNDays(7) {
		if r, ok := s.Reflections[d]; ok {
			out[d] = r
		}
	}
	return out
}

// UpdateProfile merges patch into the profile. A non-empty mode
// applies that mode's home layout.
func UpdateProfile(s *model.Snapshot, patch map[string]any) {
	model.MergeMap(s.UserProfile, patch)
	if mode, ok := patch["mode"].(string); ok && mode != "" {
		ApplyMode(s, mode)
	}
}

// CompleteOnboarding sets the onboarding flag. With profiles
// enabled, an empty habit list is seeded from the profile mode.
func (e *Engine) CompleteOnboarding(s *model.Snapshot) {
	s.OnboardingComplete = true
	if !e.features.Profiles {
		return
	}
	mode, _ := s.UserProfile["mode"].(string)
	e.SeedModeHabits(s, mode)
}

// PruneResult counts what Prune removed.
type PruneResult struct {
	Tasks      int `json:"tasks"`
	FocusItems int `json:"focus_items"`
}

// Prune removes completed tasks finished before the date before
// and focus items dated before it.
func Prune(s *model.Snapshot, before string) PruneResult {
	var r PruneResult
	s.Tasks = slices.DeleteFunc(s.Tasks, func(t model.Task) bool {
		if !t.Completed || t.CompletedAt == nil {
			return false
		}
		d := timeutil.DateOf(*t.CompletedAt)
		if d != "" && d < before {
			r.Tasks++
			return true
		}
		return false
	})
	s.FocusItems = slices.DeleteFunc(s.FocusItems, func(f model.FocusItem) bool {
		if f.Date != "" && f.Date < before {
			r.FocusItems++
			return true
		}
		return false
	})
	return r
}
