// Package model defines the Flow snapshot document: the single
// JSON document that holds every task, habit, focus item, mood
// entry, reflection, setting and profile field.
package model

import (
	"encoding/json"
	"fmt"
)

// Priority values for Task.Priority.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Frequency values for Habit.Frequency.
const (
	FrequencyDaily  = "daily"
	FrequencyWeekly = "weekly"
	FrequencyCustom = "custom"
)

// Defaults applied to new entities.
const (
	DefaultDuration    = 30
	DefaultHabitIcon   = "✨"
	DefaultMoodLevel   = 3
	DefaultEnergyLevel = 5
	MaxFocusItems      = 3
	MaxBehaviorSamples = 100
)

// Subtask is a checklist entry under a task.
type Subtask struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Task is a to-do item.
type Task struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Completed       bool      `json:"completed"`
	DueDate         *string   `json:"due_date"`
	DueTime         *string   `json:"due_time"`
	Duration        int       `json:"duration"`
	Priority        string    `json:"priority"`
	AutoPriority    int       `json:"auto_priority"`
	CreatedAt       string    `json:"created_at"`
	CompletedAt     *string   `json:"completed_at"`
	PostponedCount  int       `json:"postponed_count"`
	Subtasks        []Subtask `json:"subtasks"`
	Tags            []string  `json:"tags,omitempty"`
	Description     string    `json:"description,omitempty"`
	RepeatFrequency string    `json:"repeat_frequency,omitempty"`
}

// Due returns the due date or "".
func (t Task) Due() string {
	if t.DueDate == nil {
		return ""
	}
	return *t.DueDate
}

// Habit is a recurring activity tracked by completion date.
// Streak and LongestStreak are derived from Completions.
type Habit struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Icon           string          `json:"icon"`
	Frequency      string          `json:"frequency"`
	FrequencyCount int             `json:"frequency_count"`
	Streak         int             `json:"streak"`
	LongestStreak  int             `json:"longest_streak"`
	Completions    map[string]bool `json:"completions"`
	BestTime       *string         `json:"best_time"`
	Category       string          `json:"category,omitempty"`
	Paused         bool            `json:"paused"`
	Archived       bool            `json:"archived"`
	CreatedAt      string          `json:"created_at"`
}

// FocusItem is one of up to three priorities for a date.
type FocusItem struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}

// MoodEntry is the mood recorded for a date.
type MoodEntry struct {
	Level     int    `json:"level"`
	Note      string `json:"note"`
	Timestamp string `json:"timestamp"`
}

// Reflection is the end-of-day journal entry for a date.
type Reflection struct {
	WhatWentWell string `json:"what_went_well"`
	GratefulFor  string `json:"grateful_for"`
	EnergyLevel  int    `json:"energy_level"`
	Timestamp    string `json:"timestamp"`
}

// BehaviorData holds the completion-time samples used for
// scheduling suggestions.
type BehaviorData struct {
	CompletionHours []int          `json:"completion_hours"`
	CompletionDays  []string       `json:"completion_days"`
	TaskCategories  map[string]any `json:"task_categories"`
}

// Achievement is a badge awarded at most once per ID.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	EarnedAt    string `json:"earned_at"`
}

// Snapshot is the whole persisted document.
type Snapshot struct {
	Version            string                `json:"version"`
	Tasks              []Task                `json:"tasks"`
	Habits             []Habit               `json:"habits"`
	FocusItems         []FocusItem           `json:"focus_items"`
	Stats              map[string]any        `json:"stats"`
	OnboardingComplete bool                  `json:"onboarding_complete"`
	UserProfile        map[string]any        `json:"user_profile"`
	MoodHistory        map[string]MoodEntry  `json:"mood_history"`
	BehaviorData       BehaviorData          `json:"behavior_data"`
	Achievements       []Achievement         `json:"achievements"`
	Settings           map[string]any        `json:"settings"`
	Reflections        map[string]Reflection `json:"reflections"`
}

// DefaultSettings returns the settings a fresh document starts
// with.
func DefaultSettings() map[string]any {
	return map[string]any{
		"theme":                 "auto",
		"theme_color":           "purple",
		"calendar_view":         "day",
		"default_task_duration": float64(DefaultDuration),
		"home_layout":           []any{"focus", "tasks", "habits", "calendar"},
		"show_suggestions":      true,
		"auto_prioritize":       true,
	}
}

// DefaultProfile returns the profile a fresh document starts with.
func DefaultProfile() map[string]any {
	return map[string]any{
		"mode":     "productivity",
		"name":     "",
		"timezone": "UTC",
	}
}

// New returns an empty document at the current layout version.
func New() *Snapshot {
	s := &Snapshot{
		Version:     CurrentVersion,
		Settings:    DefaultSettings(),
		UserProfile: DefaultProfile(),
	}
	s.normalize()
	return s
}

// Decode parses a document and upgrades it to the current layout.
func Decode(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	Migrate(&s)
	return &s, nil
}

// Encode serializes the document with stable indentation.
func (s *Snapshot) Encode() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	data, err := json.Marshal(s)
	if err != nil {
		// Every field is plain JSON data; marshal cannot fail.
		panic(fmt.Sprintf("cloning snapshot: %v", err))
	}
	var c Snapshot
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("cloning snapshot: %v", err))
	}
	c.normalize()
	return &c
}

// normalize replaces nil collections with empty ones so the
// document always serializes with every top-level key present.
func (s *Snapshot) normalize() {
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	for i := range s.Tasks {
		if s.Tasks[i].Subtasks == nil {
			s.Tasks[i].Subtasks = []Subtask{}
		}
	}
	if s.Habits == nil {
		s.Habits = []Habit{}
	}
	for i := range s.Habits {
		if s.Habits[i].Completions == nil {
			s.Habits[i].Completions = map[string]bool{}
		}
	}
	if s.FocusItems == nil {
		s.FocusItems = []FocusItem{}
	}
	if s.Stats == nil {
		s.Stats = map[string]any{}
	}
	if s.UserProfile == nil {
		s.UserProfile = DefaultProfile()
	}
	if s.MoodHistory == nil {
		s.MoodHistory = map[string]MoodEntry{}
	}
	if s.BehaviorData.CompletionHours == nil {
		s.BehaviorData.CompletionHours = []int{}
	}
	if s.BehaviorData.CompletionDays == nil {
		s.BehaviorData.CompletionDays = []string{}
	}
	if s.BehaviorData.TaskCategories == nil {
		s.BehaviorData.TaskCategories = map[string]any{}
	}
	if s.Achievements == nil {
		s.Achievements = []Achievement{}
	}
	if s.Settings == nil {
		s.Settings = map[string]any{}
	}
	if s.Reflections == nil {
		s.Reflections = map[string]Reflection{}
	}
}

// TaskIndex returns the index of the task with id, or -1.
func (s *Snapshot) TaskIndex(id int64) int {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// HabitIndex returns the index of the habit with id, or -1.
func (s *Snapshot) HabitIndex(id int64) int {
	for i := range s.Habits {
		if s.Habits[i].ID == id {
			return i
		}
	}
	return -1
}

// FocusIndex returns the index of the focus item with id, or -1.
func (s *Snapshot) FocusIndex(id int64) int {
	for i := range s.FocusItems {
		if s.FocusItems[i].ID == id {
			return i
		}
	}
	return -1
}

// NextTaskID returns max(task id) + 1.
func (s *Snapshot) NextTaskID() int64 {
	var max int64
	for _, t := range s.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// NextHabitID returns max(habit id) + 1.
func (s *Snapshot) NextHabitID() int64 {
	var max int64
	for _, h := range s.Habits {
		if h.ID > max {
			max = h.ID
		}
	}
	return max + 1
}

// NextFocusID returns max(focus id) + 1.
func (s *Snapshot) NextFocusID() int64 {
	var max int64
	for _, f := range s.FocusItems {
		if f.ID > max {
			max = f.ID
		}
	}
	return max + 1
}

// TrackedHabits returns the habits that are not archived.
func (s *Snapshot) TrackedHabits() []Habit {
	out := make([]Habit, 0, len(s.Habits))
	for _, h := range s.Habits {
		if !h.Archived {
			out = append(out, h)
		}
	}
	return out
}

// RecordCompletion appends a behavior sample, keeping only the
// most recent MaxBehaviorSamples of each kind.
func (b *BehaviorData) RecordCompletion(hour int, weekday string) {
	b.CompletionHours = appendCapped(b.CompletionHours, hour)
	b.CompletionDays = appendCapped(b.CompletionDays, weekday)
}

func appendCapped[T any](s []T, v T) []T {
	s = append(s, v)
	if len(s) > MaxBehaviorSamples {
		s = append([]T(nil), s[len(s)-MaxBehaviorSamples:]...)
	}
	return s
}

// MergeMap copies every key of src into dst.
func MergeMap(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
