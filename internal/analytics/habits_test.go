package analytics

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flow/internal/model"
)

func TestHabitInsightsEmpty(t *testing.T) {
	e := testEngine()

	got := e.HabitInsights(habit(1, map[string]bool{}))
	assert.Equal(t, "No data yet", got.Message)
	assert.Empty(t, got.Insights)

	got = e.HabitInsights(habit(1, map[string]bool{day(0): false}))
	assert.Equal(t, "No completions yet", got.Message)
}

func TestHabitInsightsFullWeek(t *testing.T) {
	e := testEngine()
	h := habit(1, completions(0, -1, -2, -3, -4, -5, -6))
	h.Name = "Read"
	got := e.HabitInsights(h)

	assert.Equal(t, 7, got.TotalCompletions)
	assert.Equal(t, 7, got.CurrentStreak)
	assert.Equal(t, 7, got.Recent7Days)
	assert.Equal(t, 100, got.RecentPercentage)
	// Every weekday once; the earliest date's weekday wins.
	assert.Equal(t, "Thursday", got.BestDay)
	assert.Equal(t, "Thursday", got.WorstDay)

	want := []InsightMessage{
		{Type: "success", Message: "Outstanding! You've kept up with 'Read' 100% this week."},
		{Type: "pattern", Message: "You're most consistent on Thursdays."},
		{Type: "celebration", Message: "🔥 7 day streak! You're building real discipline."},
	}
	if diff := cmp.Diff(want, got.Insights); diff != "" {
		t.Errorf("insights mismatch (-want +got):\n%s", diff)
	}
}

func TestHabitInsightsWeekdayPattern(t *testing.T) {
	e := testEngine()
	// Three Mondays, one Tuesday.
	h := habit(1, map[string]bool{
		"2024-05-27": true, "2024-06-03": true, "2024-06-10": true,
		"2024-06-11": true,
	})
	got := e.HabitInsights(h)
	assert.Equal(t, "Monday", got.BestDay)
	assert.Equal(t, "Tuesday", got.WorstDay)
	assert.Equal(t, map[string]int{"Monday": 3, "Tuesday": 1}, got.WeekdayBreakdown)
	assert.Equal(t, 2, got.Recent7Days)
	assert.Equal(t, 28, got.RecentPercentage)
	require.NotEmpty(t, got.Insights)
	assert.Equal(t, "encourage", got.Insights[0].Type)
}

func TestCalendarErrors(t *testing.T) {
	e := testEngine()
	_, err := e.Calendar(snapshot(nil), "year", "")
	assert.True(t, errors.Is(err, ErrInvalidView))

	_, err = e.Calendar(snapshot(nil), ViewDay, "June 12")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestCalendarDay(t *testing.T) {
	e := testEngine()
	weekly := habit(2, completions())
	weekly.Frequency = model.FrequencyWeekly
	custom := habit(3, completions())
	custom.Frequency = model.FrequencyCustom
	archived := habit(4, completions())
	archived.Archived = true

	s := snapshot(
		[]model.Task{openTask(1, day(0)), openTask(2, day(1))},
		habit(1, completions(0)), weekly, custom, archived,
	)
	s.FocusItems = []model.FocusItem{
		{ID: 1, Text: "ship", Date: day(0)},
		{ID: 2, Text: "rest", Date: day(-1)},
	}

	v, err := e.Calendar(s, ViewDay, "")
	require.NoError(t, err)
	dv, ok := v.(DayView)
	require.True(t, ok)
	assert.Equal(t, day(0), dv.Date)
	require.Len(t, dv.Tasks, 1)
	assert.Equal(t, int64(1), dv.Tasks[0].ID)
	assert.Equal(t, []HabitDay{
		{ID: 1, Name: "habit", Icon: model.DefaultHabitIcon, Completed: true, Type: "habit"},
	}, dv.Habits)
	require.Len(t, dv.FocusItems, 1)

	// Weekly habits show on Mondays.
	monday := DayOf(s, testToday.AddDate(0, 0, -2))
	assert.Len(t, monday.Habits, 2)
}

func TestCalendarWeek(t *testing.T) {
	e := testEngine()
	s := snapshot(
		[]model.Task{openTask(1, "2024-06-16"), openTask(2, "2024-06-16")},
		habit(1, map[string]bool{"2024-06-10": true, "2024-06-16": true}),
	)
	v, err := e.Calendar(s, ViewWeek, "2024-06-12")
	require.NoError(t, err)
	wv := v.(WeekView)
	assert.Equal(t, "2024-06-10", wv.WeekStart)
	require.Len(t, wv.Days, 7)
	assert.Equal(t, "Monday", wv.Days[0].DayName)
	assert.Equal(t, 1, wv.Days[0].HabitCount)
	sunday := wv.Days[6]
	assert.Equal(t, "2024-06-16", sunday.Date)
	assert.Equal(t, "Sunday", sunday.DayName)
	assert.Equal(t, 2, sunday.TaskCount)
	assert.Equal(t, 1, sunday.HabitCount)
}

func TestCalendarMonth(t *testing.T) {
	e := testEngine()
	s := snapshot(
		[]model.Task{doneTask(1, "2024-02-29", -1, 9), openTask(2, "2024-02-29")},
		habit(1, map[string]bool{"2024-02-29": true}),
		habit(2, map[string]bool{"2024-02-29": true, "2024-03-01": true}),
	)
	v, err := e.Calendar(s, ViewMonth, "2024-02-10")
	require.NoError(t, err)
	mv := v.(MonthView)
	assert.Equal(t, 2, mv.Month)
	assert.Equal(t, 2024, mv.Year)
	require.Len(t, mv.Days, 29)
	assert.Equal(t, MonthDay{
		Date:             "2024-02-29",
		Day:              29,
		TaskCount:        2,
		CompletedTasks:   1,
		HabitCompletions: 2,
	}, mv.Days[28])
}
