package analytics

import (
	"sort"
	"time"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// completedDates returns the parsed dates marked true in
// completions, skipping keys that are not calendar dates.
func completedDates(completions map[string]bool) []time.Time {
	dates := make([]time.Time, 0, len(completions))
	for k, done := range completions {
		if !done {
			continue
		}
		d, ok := timeutil.ParseDate(k)
		if !ok {
			continue
		}
		dates = append(dates, d)
	}
	return dates
}

// CurrentStreak counts the unbroken run of completed days ending
// today. Dates are walked newest first; a completion dated after
// the expected day restarts the run at that date.
func CurrentStreak(completions map[string]bool, today time.Time) int {
	dates := completedDates(completions)
	if len(dates) == 0 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].After(dates[j])
	})

	streak := 0
	current := today
	for _, d := range dates {
		expected := timeutil.AddDays(current, -streak)
		switch {
		case d.Equal(expected):
			streak++
		case d.Before(expected):
			return streak
		default:
			streak = 1
			current = d
		}
	}
	return streak
}

// LongestStreak returns the longest run of consecutive completed
// days ever recorded.
func LongestStreak(completions map[string]bool) int {
	dates := completedDates(completions)
	if len(dates) == 0 {
		return 0
	}
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if timeutil.DaysBetween(dates[i-1], dates[i]) == 1 {
			run++
			longest = max(longest, run)
		} else {
			run = 1
		}
	}
	return longest
}

// Streak returns h's current streak as of today.
func (e *Engine) Streak(h model.Habit) int {
	return CurrentStreak(h.Completions, e.Today())
}

// RecomputeStreaks refreshes the derived streak fields of h from
// its completion map. LongestStreak never decreases.
func (e *Engine) RecomputeStreaks(h *model.Habit) {
	h.Streak = e.Streak(*h)
	h.LongestStreak = max(h.LongestStreak, LongestStreak(h.Completions))
}

// RefreshStreaks recomputes every habit in s.
func (e *Engine) RefreshStreaks(s *model.Snapshot) {
	for i := range s.Habits {
		e.RecomputeStreaks(&s.Habits[i])
	}
}
