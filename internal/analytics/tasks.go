package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// RescheduleOption is one proposed new slot for a task.
type RescheduleOption struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// eveningHour is the "this evening" slot; it is offered only
// before that hour.
const eveningHour = 18

// productiveSample is how many recent completions feed the
// "your productive time" slot.
const productiveSample = 10

// RescheduleSuggestions proposes slots for moving a task: the
// next morning, this evening, next Monday and the user's most
// productive hour.
func (e *Engine) RescheduleSuggestions(s *model.Snapshot) []RescheduleOption {
	now := e.Now()
	today := e.Today()
	tomorrow := timeutil.DateString(timeutil.AddDays(today, 1))

	out := []RescheduleOption{{
		Date:   tomorrow,
		Time:   "09:00",
		Label:  "Tomorrow morning",
		Reason: "Fresh start to the day",
	}}
	if now.Hour() < eveningHour {
		out = append(out, RescheduleOption{
			Date:   timeutil.DateString(today),
			Time:   fmt.Sprintf("%02d:00", eveningHour),
			Label:  "This evening",
			Reason: "Complete before day ends",
		})
	}

	untilMonday := (int(time.Monday) - int(today.Weekday()) + 7) % 7
	if untilMonday == 0 {
		untilMonday = 7
	}
	out = append(out, RescheduleOption{
		Date:   timeutil.DateString(timeutil.AddDays(today, untilMonday)),
		Time:   "09:00",
		Label:  "Next Monday",
		Reason: "Start of new week",
	})

	var completed []model.Task
	for _, t := range s.Tasks {
		if t.Completed && t.CompletedAt != nil {
			completed = append(completed, t)
		}
	}
	if len(completed) > productiveSample {
		completed = completed[len(completed)-productiveSample:]
	}
	var hours []int
	for _, t := range completed {
		if h, ok := timeutil.Hour(*t.CompletedAt, e.loc); ok {
			hours = append(hours, h)
		}
	}
	if hour, ok := modeFirst(hours); ok {
		out = append(out, RescheduleOption{
			Date:   tomorrow,
			Time:   fmt.Sprintf("%02d:00", hour),
			Label:  "Your productive time",
			Reason: fmt.Sprintf("You often complete tasks at %d:00", hour),
		})
	}
	return out
}

var breakdownTemplates = []struct {
	keywords []string
	steps    []string
}{
	{[]string{"study", "learn"}, []string{"Review materials", "Take notes", "Practice exercises", "Review and summarize"}},
	{[]string{"write", "report"}, []string{"Create outline", "Draft first section", "Complete draft", "Review and edit"}},
	{[]string{"project"}, []string{"Plan approach", "Gather resources", "Execute main work", "Test and finalize"}},
}

var defaultBreakdown = []string{"Preparation", "Main work", "Review", "Completion"}

// BreakdownTemplate suggests subtasks from keywords in title.
func BreakdownTemplate(title string) []string {
	lower := strings.ToLower(title)
	for _, tpl := range breakdownTemplates {
		for _, kw := range tpl.keywords {
			if strings.Contains(lower, kw) {
				return append([]string(nil), tpl.steps...)
			}
		}
	}
	return append([]string(nil), defaultBreakdown...)
}

// NewSubtasks turns step texts into open subtasks.
func NewSubtasks(steps []string) []model.Subtask {
	out := make([]model.Subtask, len(steps))
	for i, st := range steps {
		out[i] = model.Subtask{Text: st}
	}
	return out
}

// AgingTask is an open task that has lingered.
type AgingTask struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	DaysOld        int    `json:"days_old"`
	CreatedAt      string `json:"created_at"`
	PostponedCount int    `json:"postponed_count"`
}

// agingDays is the age at which an open task counts as aging.
const agingDays = 3

func (e *Engine) ageOf(t model.Task) (int, bool) {
	created, ok := e.civilOf(t.CreatedAt)
	if !ok {
		return 0, false
	}
	return timeutil.DaysBetween(created, e.Today()), true
}

// AgingTasks lists open tasks created at least three days ago.
func (e *Engine) AgingTasks(s *model.Snapshot) []AgingTask {
	out := []AgingTask{}
	for _, t := range s.Tasks {
		if t.Completed {
			continue
		}
		age, ok := e.ageOf(t)
		if !ok || age < agingDays {
			continue
		}
		out = append(out, AgingTask{
			ID:             t.ID,
			Title:          t.Title,
			DaysOld:        age,
			CreatedAt:      t.CreatedAt,
			PostponedCount: t.PostponedCount,
		})
	}
	return out
}

// PriorityScore ranks an open task by age, due date, manual
// priority and how often it was postponed. Never negative.
func (e *Engine) PriorityScore(t model.Task) int {
	score := 0
	if age, ok := e.ageOf(t); ok {
		score += min(max(age, 0)*2, 20)
	}
	if due, ok := timeutil.ParseDate(t.Due()); ok {
		switch until := timeutil.DaysBetween(e.Today(), due); {
		case until < 0:
			score += 30
		case until == 0:
			score += 25
		case until <= 2:
			score += 15
		}
	}
	switch t.Priority {
	case model.PriorityHigh:
		score += 20
	case model.PriorityNormal:
		score += 10
	}
	score -= t.PostponedCount * 5
	return max(score, 0)
}

// Prioritize recomputes auto_priority for open tasks and orders
// all tasks by it, highest first. Equal scores keep their order.
func (e *Engine) Prioritize(s *model.Snapshot) {
	for i := range s.Tasks {
		if s.Tasks[i].Completed {
			continue
		}
		s.Tasks[i].AutoPriority = e.PriorityScore(s.Tasks[i])
	}
	sort.SliceStable(s.Tasks, func(i, j int) bool {
		return s.Tasks[i].AutoPriority > s.Tasks[j].AutoPriority
	})
}
