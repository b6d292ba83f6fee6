package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flow/internal/model"
)

func TestIsPerfectDay(t *testing.T) {
	today := day(0)
	tests := []struct {
		name string
		s    *model.Snapshot
		want bool
	}{
		{
			name: "no tasks",
			s:    snapshot(nil, habit(1, completions(0))),
			want: false,
		},
		{
			name: "all tasks done no habits",
			s:    snapshot([]model.Task{doneTask(1, today, 0, 9)}),
			want: true,
		},
		{
			name: "one of two tasks done",
			s: snapshot([]model.Task{
				doneTask(1, today, 0, 9),
				openTask(2, today),
			}),
			want: false,
		},
		{
			name: "completed today but due elsewhere counts",
			s: snapshot([]model.Task{
				doneTask(1, day(3), 0, 9),
			}),
			want: true,
		},
		{
			name: "habits below 80 percent",
			s: snapshot(
				[]model.Task{doneTask(1, today, 0, 9)},
				habit(1, completions(0)),
				habit(2, completions(-1)),
			),
			want: false,
		},
		{
			name: "four of five habits",
			s: snapshot(
				[]model.Task{doneTask(1, today, 0, 9)},
				habit(1, completions(0)),
				habit(2, completions(0)),
				habit(3, completions(0)),
				habit(4, completions(0)),
				habit(5, completions()),
			),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPerfectDay(tt.s, today))
		})
	}
}

func TestArchivedHabitsIgnoredForPerfectDay(t *testing.T) {
	archived := habit(2, completions())
	archived.Archived = true
	s := snapshot(
		[]model.Task{doneTask(1, day(0), 0, 9)},
		habit(1, completions(0)),
		archived,
	)
	assert.True(t, IsPerfectDay(s, day(0)))
}

func TestPerfectDaysCountsActivityDates(t *testing.T) {
	s := snapshot([]model.Task{
		doneTask(1, day(-2), -2, 9),
		doneTask(2, day(-1), -1, 9),
		openTask(3, day(-1)),
	})
	// day(-2) is perfect; day(-1) has an open task.
	assert.Equal(t, 1, PerfectDays(s))
}

func TestWeeklyCompletion(t *testing.T) {
	e := testEngine()
	s := snapshot(
		[]model.Task{
			doneTask(1, "", 0, 9),
			doneTask(2, "", 0, 11),
			doneTask(3, "", -6, 9),
			doneTask(4, "", -7, 9),
		},
		habit(1, completions(0, -3)),
	)
	got := e.WeeklyCompletion(s)
	require.Len(t, got, 7)
	assert.Equal(t, day(-6), got[0].Date)
	assert.Equal(t, day(0), got[6].Date)
	assert.Equal(t, DayCompletion{Date: day(0), Tasks: 2, Habits: 1, Total: 3}, got[6])
	assert.Equal(t, 1, got[0].Tasks)
	assert.Equal(t, 1, got[3].Habits)
}

func TestStats(t *testing.T) {
	e := testEngine()
	s := snapshot(
		[]model.Task{
			doneTask(1, day(0), 0, 9),
			doneTask(2, "", -3, 9),
			openTask(3, day(1)),
		},
		habit(1, completions(0, -1, -2)),
		habit(2, completions(-1)),
	)
	// Stored streak fields are stale; live values win.
	s.Habits[1].Streak = 40

	st := e.Stats(s)
	assert.Equal(t, 1, st.TasksCompletedToday)
	assert.Equal(t, 1, st.HabitsCompletedToday)
	assert.Equal(t, 2, st.TotalTasksCompleted)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Len(t, st.WeeklyCompletion, 7)
}

func TestWeeklyMotivation(t *testing.T) {
	e := testEngine()
	tests := []struct {
		n    int
		want string
	}{
		{0, "Every week is a fresh start. You've got this! ✨"},
		{5, "Good start! Keep building momentum. 🚀"},
		{10, "Solid week! You're making real progress. 🌟"},
		{20, "Incredible week! You're crushing your goals. 💪"},
	}
	for _, tt := range tests {
		var tasks []model.Task
		for i := range tt.n {
			tasks = append(tasks, doneTask(int64(i+1), "", -1, 9))
		}
		assert.Equal(t, tt.want, e.WeeklyMotivation(snapshot(tasks)), "n=%d", tt.n)
	}
}

func TestWeeklyReview(t *testing.T) {
	e := testEngine()
	s := snapshot(
		[]model.Task{
			doneTask(1, "", -1, 9),
			doneTask(2, "", -10, 9),
		},
		habit(1, completions(0, -1, -2, -8)),
	)
	r := e.WeeklyReview(s)
	assert.Equal(t, 1, r.TasksCompleted)
	assert.Equal(t, 3, r.HabitsCompleted)
	assert.Equal(t, []int{3}, r.CurrentStreaks)
	assert.Equal(t, 3, r.LongestStreak)
	assert.NotNil(t, r.Insights)
	assert.Equal(t, "Every week is a fresh start. You've got this! ✨", r.MotivationMessage)
}

func TestPraise(t *testing.T) {
	e := testEngine()

	assert.Equal(t, "Every journey starts with a single step.", e.Praise(snapshot(nil)))

	perfect := snapshot([]model.Task{doneTask(1, day(0), 0, 9)})
	assert.Equal(t, "Perfect day! You're on fire! 🔥", e.Praise(perfect))

	var run []model.Task
	for i := range 7 {
		run = append(run, doneTask(int64(i+1), day(-i), -i, 9))
	}
	assert.Equal(t, "7 days in a row. That's discipline.", e.Praise(snapshot(run)))

	half := snapshot([]model.Task{
		doneTask(1, day(0), 0, 9),
		openTask(2, day(0)),
		openTask(3, day(5)),
	})
	assert.Equal(t, "You're halfway there. Keep going!", e.Praise(half))
}
