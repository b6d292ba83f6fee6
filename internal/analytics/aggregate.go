package analytics

import (
	"fmt"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// perfectHabitShare is the fraction of tracked habits that must
// be completed on a date for it to count as perfect.
const perfectHabitShare = 0.8

// DayCompletion is one cell of the weekly heatmap.
type DayCompletion struct {
	Date   string `json:"date"`
	Tasks  int    `json:"tasks"`
	Habits int    `json:"habits"`
	Total  int    `json:"total"`
}

// Stats is the dashboard summary.
type Stats struct {
	TasksCompletedToday  int             `json:"tasks_completed_today"`
	HabitsCompletedToday int             `json:"habits_completed_today"`
	TotalTasksCompleted  int             `json:"total_tasks_completed"`
	LongestStreak        int             `json:"longest_streak"`
	PerfectDays          int             `json:"perfect_days"`
	WeeklyCompletion     []DayCompletion `json:"weekly_completion"`
}

// WeeklyReview summarizes the trailing week.
type WeeklyReview struct {
	TasksCompleted    int             `json:"tasks_completed"`
	HabitsCompleted   int             `json:"habits_completed"`
	CurrentStreaks    []int           `json:"current_streaks"`
	LongestStreak     int             `json:"longest_streak"`
	PerfectDays       int             `json:"perfect_days"`
	WeeklyCompletion  []DayCompletion `json:"weekly_completion"`
	Insights          []Suggestion    `json:"insights"`
	MotivationMessage string          `json:"motivation_message"`
}

func completedOn(t model.Task, date string) bool {
	return t.CompletedAt != nil && timeutil.DateOf(*t.CompletedAt) == date
}

// habitsDoneOn counts the habits in hs completed on date.
func habitsDoneOn(hs []model.Habit, date string) int {
	n := 0
	for _, h := range hs {
		if h.Completions[date] {
			n++
		}
	}
	return n
}

// IsPerfectDay reports whether at least one task is associated
// with date (due or completed that day), every such task is
// completed, and at least 80% of tracked habits were completed.
func IsPerfectDay(s *model.Snapshot, date string) bool {
	associated := 0
	for _, t := range s.Tasks {
		if t.Due() != date && !completedOn(t, date) {
			continue
		}
		if !t.Completed {
			return false
		}
		associated++
	}
	if associated == 0 {
		return false
	}
	tracked := s.TrackedHabits()
	done := habitsDoneOn(tracked, date)
	return float64(done) >= float64(len(tracked))*perfectHabitShare
}

// PerfectDays counts perfect dates among the dates with any
// recorded activity.
func PerfectDays(s *model.Snapshot) int {
	candidates := make(map[string]struct{})
	for _, t := range s.Tasks {
		if t.CompletedAt != nil {
			if d := timeutil.DateOf(*t.CompletedAt); d != "" {
				candidates[d] = struct{}{}
			}
		}
	}
	for _, h := range s.Habits {
		for d := range h.Completions {
			candidates[d] = struct{}{}
		}
	}

	n := 0
	for d := range candidates {
		if IsPerfectDay(s, d) {
			n++
		}
	}
	return n
}

// WeeklyCompletion returns per-day completion counts for the
// seven days ending today, oldest first.
func (e *Engine) WeeklyCompletion(s *model.Snapshot) []DayCompletion {
	today := e.Today()
	out := make([]DayCompletion, 0, 7)
	for i := 6; i >= 0; i-- {
		date := timeutil.DateString(timeutil.AddDays(today, -i))
		tasks := 0
		for _, t := range s.Tasks {
			if t.Completed && completedOn(t, date) {
				tasks++
			}
		}
		habits := habitsDoneOn(s.Habits, date)
		out = append(out, DayCompletion{
			Date:   date,
			Tasks:  tasks,
			Habits: habits,
			Total:  tasks + habits,
		})
	}
	return out
}

// Stats computes the dashboard summary.
func (e *Engine) Stats(s *model.Snapshot) Stats {
	today := e.TodayString()
	var st Stats
	for _, t := range s.Tasks {
		if !t.Completed {
			continue
		}
		st.TotalTasksCompleted++
		if completedOn(t, today) {
			st.TasksCompletedToday++
		}
	}
	st.HabitsCompletedToday = habitsDoneOn(s.Habits, today)
	for _, h := range s.Habits {
		st.LongestStreak = max(st.LongestStreak, e.Streak(h))
	}
	st.PerfectDays = PerfectDays(s)
	st.WeeklyCompletion = e.WeeklyCompletion(s)
	return st
}

// tasksCompletedSince counts tasks whose completion date is on
// or after since.
func tasksCompletedSince(s *model.Snapshot, since string) int {
	n := 0
	for _, t := range s.Tasks {
		if t.CompletedAt == nil {
			continue
		}
		if d := timeutil.DateOf(*t.CompletedAt); d != "" && d >= since {
			n++
		}
	}
	return n
}

// WeeklyReview builds the end-of-week summary.
func (e *Engine) WeeklyReview(s *model.Snapshot) WeeklyReview {
	since := timeutil.DateString(timeutil.AddDays(e.Today(), -7))
	r := WeeklyReview{
		TasksCompleted:    tasksCompletedSince(s, since),
		CurrentStreaks:    make([]int, 0, len(s.Habits)),
		PerfectDays:       PerfectDays(s),
		WeeklyCompletion:  e.WeeklyCompletion(s),
		Insights:          e.Insights(s),
		MotivationMessage: e.WeeklyMotivation(s),
	}
	last7 := e.lastNDays(7)
	for _, h := range s.Habits {
		r.HabitsCompleted += countDone(h.Completions, last7)
		streak := e.Streak(h)
		r.CurrentStreaks = append(r.CurrentStreaks, streak)
		r.LongestStreak = max(r.LongestStreak, streak)
	}
	return r
}

// countDone counts the dates in ds marked done.
func countDone(c map[string]bool, ds []string) int {
	n := 0
	for _, d := range ds {
		if c[d] {
			n++
		}
	}
	return n
}

// WeeklyMotivation picks the week's headline from the number of
// tasks completed in the trailing window.
func (e *Engine) WeeklyMotivation(s *model.Snapshot) string {
	since := timeutil.DateString(timeutil.AddDays(e.Today(), -7))
	n := tasksCompletedSince(s, since)
	switch {
	case n >= 20:
		return "Incredible week! You're crushing your goals. 💪"
	case n >= 10:
		return "Solid week! You're making real progress. 🌟"
	case n >= 5:
		return "Good start! Keep building momentum. 🚀"
	default:
		return "Every week is a fresh start. You've got this! ✨"
	}
}

// praiseLookback bounds the completion-day streak used by Praise.
const praiseLookback = 30

// Praise returns a one-line message reflecting today's progress
// and the run of days with at least one completed task.
func (e *Engine) Praise(s *model.Snapshot) string {
	streakDays := 0
	for _, d := range e.lastNDays(praiseLookback) {
		found := false
		for _, t := range s.Tasks {
			if completedOn(t, d) {
				found = true
				break
			}
		}
		if !found {
			break
		}
		streakDays++
	}

	today := e.TodayString()
	total, done := 0, 0
	for _, t := range s.Tasks {
		if due := t.Due(); due != "" && due > today {
			continue
		}
		total++
		if t.Completed {
			done++
		}
	}

	switch {
	case total > 0 && done == total:
		switch {
		case streakDays >= 7:
			return fmt.Sprintf("%d days in a row. That's discipline.", streakDays)
		case streakDays >= 3:
			return "You're building real momentum."
		default:
			return "Perfect day! You're on fire! 🔥"
		}
	case done > 0:
		progress := done * 100 / total
		switch {
		case progress >= 75:
			return "Almost there! Finish strong."
		case progress >= 50:
			return "You're halfway there. Keep going!"
		default:
			return "Small steps today = big results tomorrow."
		}
	default:
		return "Every journey starts with a single step."
	}
}
