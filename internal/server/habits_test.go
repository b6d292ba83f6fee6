package server_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/model"
)

// dates returns a completion map for the dates n days before
// testToday for each n in ago.
func dates(ago ...int) map[string]bool {
	m := map[string]bool{}
	for _, n := range ago {
		m[testNow.AddDate(0, 0, -n).Format("2006-01-02")] = true
	}
	return m
}

func habit(id int64, name string, completions map[string]bool) model.Habit {
	return model.Habit{
		ID:             id,
		Name:           name,
		Icon:           model.DefaultHabitIcon,
		Frequency:      model.FrequencyDaily,
		FrequencyCount: 1,
		Completions:    completions,
		CreatedAt:      daysAgo(60),
	}
}

func (te *testEnv) seedHabits(t *testing.T, habits ...model.Habit) {
	t.Helper()
	te.seed(t, func(s *model.Snapshot) {
		s.Habits = append(s.Habits, habits...)
	})
}

func TestHabits_Create(t *testing.T) {
	te := setup(t)
	w := te.post(t, "/api/habits", `{"name":"Read"}`)
	assertStatus(t, w, http.StatusCreated)
	got := decode[model.Habit](t, w)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "Read", got.Name)
	assert.Equal(t, model.DefaultHabitIcon, got.Icon)
	assert.Equal(t, model.FrequencyDaily, got.Frequency)
	assert.Equal(t, 1, got.FrequencyCount)
	assert.Empty(t, got.Completions)

	w = te.post(t, "/api/habits", "not json")
	assertStatus(t, w, http.StatusBadRequest)
}

func TestHabits_CompleteUncomplete(t *testing.T) {
	te := setup(t)
	te.seedHabits(t, habit(1, "Run", dates(1, 2)))

	w := te.post(t, "/api/habits/1/complete", "")
	assertStatus(t, w, http.StatusOK)
	got := decode[model.Habit](t, w)
	assert.True(t, got.Completions[testToday])
	assert.Equal(t, 3, got.Streak)
	assert.Equal(t, 3, got.LongestStreak)

	// Completing again changes nothing.
	w = te.post(t, "/api/habits/1/complete", "")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, 3, decode[model.Habit](t, w).Streak)
	assert.Len(t, te.snapshot(t).Habits[0].Completions, 3)

	w = te.post(t, "/api/habits/1/uncomplete", "")
	assertStatus(t, w, http.StatusOK)
	got = decode[model.Habit](t, w)
	assert.False(t, got.Completions[testToday])
	// The current streak ends today, so it drops to zero.
	assert.Equal(t, 0, got.Streak)
	assert.Equal(t, 3, got.LongestStreak)

	w = te.post(t, "/api/habits/7/complete", "")
	assertStatus(t, w, http.StatusNotFound)
	assertErrorResponse(t, w, "Habit not found")
}

func TestHabits_ListRefreshesStreaks(t *testing.T) {
	te := setup(t)
	stale := habit(1, "Stale", dates(5, 6, 7))
	stale.Streak = 3
	te.seedHabits(t, stale)

	w := te.get(t, "/api/habits")
	assertStatus(t, w, http.StatusOK)
	got := decode[[]model.Habit](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Streak)
	assert.Equal(t, 3, got[0].LongestStreak)
}

func TestHabits_Delete(t *testing.T) {
	te := setup(t)
	te.seedHabits(t, habit(1, "a", nil), habit(2, "b", nil))

	w := te.del(t, "/api/habits/2")
	assertStatus(t, w, http.StatusOK)
	assertMessage(t, w, "Habit deleted")
	assert.Len(t, te.snapshot(t).Habits, 1)

	w = te.del(t, "/api/habits/2")
	assertStatus(t, w, http.StatusNotFound)
}

func TestHabits_InsightsAndStrength(t *testing.T) {
	te := setup(t)
	te.seedHabits(t,
		habit(1, "Meditate", dates(0, 1, 2, 3, 4, 5, 6)),
		habit(2, "Empty", nil),
	)

	w := te.get(t, "/api/habits/1/insights")
	assertStatus(t, w, http.StatusOK)
	report := decode[analytics.HabitReport](t, w)
	assert.Equal(t, 7, report.TotalCompletions)
	assert.Equal(t, 7, report.CurrentStreak)
	assert.Equal(t, 7, report.Recent7Days)

	w = te.get(t, "/api/habits/2/insights")
	assertStatus(t, w, http.StatusOK)
	assert.NotEmpty(t, decode[analytics.HabitReport](t, w).Message)

	w = te.get(t, "/api/habits/1/strength")
	assertStatus(t, w, http.StatusOK)
	strength := decode[analytics.Strength](t, w)
	// 7/30*40 = 9.33 + streak 21 + age 20 = 50.
	assert.Equal(t, 50, strength.Score)
	assert.Equal(t, "Building", strength.Level)

	w = te.get(t, "/api/habits/9/strength")
	assertStatus(t, w, http.StatusNotFound)
}
