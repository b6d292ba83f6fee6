package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// ProductivityScore is a heuristic 0-100 indicator: base 50, up
// to 25 for the share of completed tasks and up to 25 for twice
// the average habit streak. It is not a calibrated statistic.
func (e *Engine) ProductivityScore(s *model.Snapshot) int {
	score := 50.0
	if n := len(s.Tasks); n > 0 {
		done := 0
		for _, t := range s.Tasks {
			if t.Completed {
				done++
			}
		}
		score += math.Min(float64(done)/float64(n)*25, 25)
	}
	if tracked := s.TrackedHabits(); len(tracked) > 0 {
		total := 0
		for _, h := range tracked {
			total += e.Streak(h)
		}
		avg := float64(total) / float64(len(tracked))
		score += math.Min(avg*2, 25)
	}
	return clamp(int(math.Round(score)), 0, 100)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Strength levels, highest first.
var strengthLevels = []struct {
	min   int
	level string
	color string
}{
	{80, "Master", "#10b981"},
	{60, "Strong", "#3b82f6"},
	{40, "Building", "#f59e0b"},
	{0, "Starting", "#9ca3af"},
}

// Strength is a habit's 0-100 strength indicator.
type Strength struct {
	Score   int    `json:"score"`
	Level   string `json:"level"`
	Color   string `json:"color"`
	Message string `json:"message"`
}

// strengthWindow is the consistency lookback in days.
const strengthWindow = 30

// HabitStrength scores h from 30-day consistency (40 points),
// current streak (30 points) and age (30 points).
func (e *Engine) HabitStrength(h model.Habit) Strength {
	recent := countDone(h.Completions, e.lastNDays(strengthWindow))
	score := float64(recent) / strengthWindow * 40
	score += math.Min(float64(e.Streak(h))*3, 30)
	if created, ok := e.civilOf(h.CreatedAt); ok {
		age := max(timeutil.DaysBetween(created, e.Today()), 0)
		score += math.Min(float64(age)/3, 30)
	}

	total := min(int(math.Round(score)), 100)
	for _, l := range strengthLevels {
		if total >= l.min {
			return Strength{
				Score:   total,
				Level:   l.level,
				Color:   l.color,
				Message: fmt.Sprintf("%s - Keep it up!", l.level),
			}
		}
	}
	// unreachable: the last level has min 0
	return Strength{Score: total}
}

// HourCount is a completion-hour histogram bucket.
type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// HabitConsistency is a habit's 30-day completion percentage.
type HabitConsistency struct {
	Name        string `json:"name"`
	Consistency int    `json:"consistency"`
	Streak      int    `json:"streak"`
}

// ProductivityReport is the productivity analytics response.
type ProductivityReport struct {
	BestHours         []HourCount        `json:"best_hours"`
	CompletionRate    int                `json:"completion_rate"`
	AvgCompletionDays float64            `json:"avg_completion_days"`
	HabitConsistency  []HabitConsistency `json:"habit_consistency"`
	TotalCompleted    int                `json:"total_completed"`
	ProductivityScore int                `json:"productivity_score"`
}

// ProductivityPatterns analyzes completion times and habit
// consistency. It returns nil when no task has been completed.
func (e *Engine) ProductivityPatterns(s *model.Snapshot) *ProductivityReport {
	var completed []model.Task
	for _, t := range s.Tasks {
		if t.Completed && t.CompletedAt != nil {
			completed = append(completed, t)
		}
	}
	if len(completed) == 0 {
		return nil
	}

	var hours []int
	var ages []int
	for _, t := range completed {
		done, ok := timeutil.ParseTimestamp(*t.CompletedAt, e.loc)
		if !ok {
			continue
		}
		hours = append(hours, done.Hour())
		if created, ok := timeutil.ParseTimestamp(t.CreatedAt, e.loc); ok {
			ages = append(ages, int(math.Floor(done.Sub(created).Hours()/24)))
		}
	}

	r := &ProductivityReport{
		BestHours:         topHours(hours, 3),
		CompletionRate:    int(math.Round(float64(len(completed)) / float64(len(s.Tasks)) * 100)),
		HabitConsistency:  []HabitConsistency{},
		TotalCompleted:    len(completed),
		ProductivityScore: e.ProductivityScore(s),
	}
	if len(ages) > 0 {
		sum := 0
		for _, a := range ages {
			sum += a
		}
		r.AvgCompletionDays = math.Round(float64(sum)/float64(len(ages))*10) / 10
	}

	window := e.lastNDays(strengthWindow)
	for _, h := range s.Habits {
		if len(h.Completions) == 0 {
			continue
		}
		pct := float64(countDone(h.Completions, window)) / strengthWindow * 100
		r.HabitConsistency = append(r.HabitConsistency, HabitConsistency{
			Name:        h.Name,
			Consistency: int(math.Round(pct)),
			Streak:      e.Streak(h),
		})
	}
	return r
}

// topHours returns the n most frequent hours, ties in order of
// first appearance.
func topHours(hours []int, n int) []HourCount {
	var order []int
	counts := make(map[int]int)
	for _, h := range hours {
		if counts[h] == 0 {
			order = append(order, h)
		}
		counts[h]++
	}
	out := make([]HourCount, 0, len(order))
	for _, h := range order {
		out = append(out, HourCount{Hour: h, Count: counts[h]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// modeFirst returns the most frequent value, ties broken by the
// value seen first.
func modeFirst(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	top := topHours(values, 1)
	return top[0].Hour, true
}
