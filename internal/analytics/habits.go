package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// InsightMessage is a typed line of habit feedback.
type InsightMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HabitReport is the per-habit analysis. When the habit has no
// completions only Message and Insights are set.
type HabitReport struct {
	Message          string           `json:"message,omitempty"`
	TotalCompletions int              `json:"total_completions"`
	CurrentStreak    int              `json:"current_streak"`
	LongestStreak    int              `json:"longest_streak"`
	BestDay          string           `json:"best_day,omitempty"`
	WorstDay         string           `json:"worst_day,omitempty"`
	Recent7Days      int              `json:"recent_7_days"`
	RecentPercentage int              `json:"recent_percentage"`
	WeekdayBreakdown map[string]int   `json:"weekday_breakdown,omitempty"`
	Insights         []InsightMessage `json:"insights"`
}

// HabitInsights analyzes weekday patterns and recent
// consistency for h.
func (e *Engine) HabitInsights(h model.Habit) HabitReport {
	if len(h.Completions) == 0 {
		return HabitReport{Message: "No data yet", Insights: []InsightMessage{}}
	}
	dates := completedDates(h.Completions)
	if len(dates) == 0 {
		return HabitReport{Message: "No completions yet", Insights: []InsightMessage{}}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// weekdays in order of first appearance, for tie-breaking
	var order []string
	counts := make(map[string]int)
	for _, d := range dates {
		wd := timeutil.WeekdayName(d)
		if counts[wd] == 0 {
			order = append(order, wd)
		}
		counts[wd]++
	}
	best, worst := order[0], order[0]
	for _, wd := range order[1:] {
		if counts[wd] > counts[best] {
			best = wd
		}
		if counts[wd] < counts[worst] {
			worst = wd
		}
	}

	recent := countDone(h.Completions, e.lastNDays(7))
	pct := recent * 100 / 7
	streak := e.Streak(h)

	return HabitReport{
		TotalCompletions: len(dates),
		CurrentStreak:    streak,
		LongestStreak:    max(h.LongestStreak, LongestStreak(h.Completions)),
		BestDay:          best,
		WorstDay:         worst,
		Recent7Days:      recent,
		RecentPercentage: pct,
		WeekdayBreakdown: counts,
		Insights:         habitMessages(h.Name, best, pct, streak),
	}
}

func habitMessages(name, bestDay string, pct, streak int) []InsightMessage {
	var out []InsightMessage
	switch {
	case pct >= 85:
		out = append(out, InsightMessage{"success", fmt.Sprintf(
			"Outstanding! You've kept up with '%s' %d%% this week.", name, pct)})
	case pct >= 60:
		out = append(out, InsightMessage{"good", fmt.Sprintf(
			"Good progress on '%s'. Keep pushing!", name)})
	default:
		out = append(out, InsightMessage{"encourage", fmt.Sprintf(
			"Don't give up on '%s'. Every day is a new chance.", name)})
	}
	out = append(out, InsightMessage{"pattern", fmt.Sprintf(
		"You're most consistent on %ss.", bestDay)})
	if streak >= celebrationStreak {
		out = append(out, InsightMessage{"celebration", fmt.Sprintf(
			"🔥 %d day streak! You're building real discipline.", streak)})
	}
	return out
}

// showsOn reports whether h is scheduled on date: daily habits
// every day, weekly habits on Mondays.
func showsOn(h model.Habit, date time.Time) bool {
	switch h.Frequency {
	case model.FrequencyDaily:
		return true
	case model.FrequencyWeekly:
		return date.Weekday() == time.Monday
	default:
		return false
	}
}
