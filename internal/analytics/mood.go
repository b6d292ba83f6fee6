package analytics

import (
	"math"
	"sort"

	"github.com/wesm/flow/internal/model"
)

// Mood analysis thresholds.
const (
	minMoodEntries   = 5
	moodPatternLimit = 30
	highMood         = 4
	lowMood          = 2
	moodTaskRatio    = 1.5
)

// MoodPoint pairs a day's mood with its completed-task count.
type MoodPoint struct {
	Date           string `json:"date"`
	Mood           int    `json:"mood"`
	TasksCompleted int    `json:"tasks_completed"`
}

// MoodReport correlates mood with productivity.
type MoodReport struct {
	Patterns    []MoodPoint `json:"patterns"`
	AverageMood *float64    `json:"average_mood,omitempty"`
	Insight     string      `json:"insight"`
}

// MoodPatterns pairs every mood entry with the tasks completed
// that day. With at least five entries it adds the average mood
// and notes when good-mood days are markedly more productive.
func MoodPatterns(s *model.Snapshot) MoodReport {
	dates := make([]string, 0, len(s.MoodHistory))
	for d := range s.MoodHistory {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	points := make([]MoodPoint, 0, len(dates))
	for _, d := range dates {
		n := 0
		for _, t := range s.Tasks {
			if t.Completed && completedOn(t, d) {
				n++
			}
		}
		points = append(points, MoodPoint{
			Date:           d,
			Mood:           s.MoodHistory[d].Level,
			TasksCompleted: n,
		})
	}

	if len(points) < minMoodEntries {
		return MoodReport{Patterns: points, Insight: "Not enough data yet"}
	}

	var sum float64
	var highSum, highN, lowSum, lowN int
	for _, p := range points {
		sum += float64(p.Mood)
		switch {
		case p.Mood >= highMood:
			highSum += p.TasksCompleted
			highN++
		case p.Mood <= lowMood:
			lowSum += p.TasksCompleted
			lowN++
		}
	}
	avg := math.Round(sum/float64(len(points))*10) / 10

	r := MoodReport{AverageMood: &avg}
	if len(points) > moodPatternLimit {
		points = points[len(points)-moodPatternLimit:]
	}
	r.Patterns = points
	if mean(highSum, highN) > mean(lowSum, lowN)*moodTaskRatio {
		r.Insight = "You complete significantly more tasks on days when you feel good. Mood matters!"
	}
	return r
}

func mean(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// ClampMood keeps a mood level within 1-5.
func ClampMood(level int) int {
	return clamp(level, 1, 5)
}
