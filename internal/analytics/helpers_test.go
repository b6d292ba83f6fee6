package analytics

import (
	"time"

	"github.com/wesm/flow/internal/model"
)

// testNow is 10:00 on testToday.
var testNow = testToday.Add(10 * time.Hour)

func testEngine(opts ...Option) *Engine {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC),
	}
	return New(append(base, opts...)...)
}

// at returns a timestamp on the date n days from testToday at
// the given hour.
func at(n, hour int) *string {
	ts := testToday.AddDate(0, 0, n).Add(time.Duration(hour) * time.Hour)
	return model.Ptr(ts.Format(time.RFC3339))
}

func openTask(id int64, due string) model.Task {
	t := model.Task{
		ID:        id,
		Title:     "task",
		Priority:  model.PriorityNormal,
		Duration:  model.DefaultDuration,
		CreatedAt: *at(0, 8),
		Subtasks:  []model.Subtask{},
	}
	if due != "" {
		t.DueDate = model.Ptr(due)
	}
	return t
}

func doneTask(id int64, due string, completedDay, hour int) model.Task {
	t := openTask(id, due)
	t.Completed = true
	t.CompletedAt = at(completedDay, hour)
	return t
}

func habit(id int64, c map[string]bool) model.Habit {
	return model.Habit{
		ID:             id,
		Name:           "habit",
		Icon:           model.DefaultHabitIcon,
		Frequency:      model.FrequencyDaily,
		FrequencyCount: 1,
		Completions:    c,
		CreatedAt:      *at(-60, 8),
	}
}

func snapshot(tasks []model.Task, habits ...model.Habit) *model.Snapshot {
	s := model.New()
	if tasks != nil {
		s.Tasks = tasks
	}
	if habits != nil {
		s.Habits = habits
	}
	return s
}
