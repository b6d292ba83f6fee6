package server_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flow/internal/analytics"
	"github.com/wesm/flow/internal/feature"
	"github.com/wesm/flow/internal/model"
)

func TestFocus_SetAndComplete(t *testing.T) {
	te := setup(t)
	te.seed(t, func(s *model.Snapshot) {
		s.FocusItems = append(s.FocusItems,
			model.FocusItem{ID: 1, Text: "old", Date: "2025-03-11"},
			model.FocusItem{ID: 2, Text: "replaced", Date: testToday},
		)
	})

	w := te.post(t, "/api/focus", `{"items":["a","b","c","d"]}`)
	assertStatus(t, w, http.StatusCreated)
	items := decode[[]model.FocusItem](t, w)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Text)
	assert.Equal(t, testToday, items[0].Date)

	w = te.get(t, "/api/focus")
	assertStatus(t, w, http.StatusOK)
	today := decode[[]model.FocusItem](t, w)
	require.Len(t, today, 3)

	// Yesterday's item survives; today's earlier item is gone.
	snap := te.snapshot(t)
	var texts []string
	var ids []int64
	for _, f := range snap.FocusItems {
		texts = append(texts, f.Text)
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"old", "a", "b", "c"}, texts)
	assert.Equal(t, []int64{1, 2, 3, 4}, ids, "ids continue from the survivors")

	w = te.post(t, "/api/focus/1/complete", "")
	assertStatus(t, w, http.StatusOK)
	assert.True(t, decode[model.FocusItem](t, w).Completed)

	w = te.post(t, "/api/focus/99/complete", "")
	assertStatus(t, w, http.StatusNotFound)
	assertErrorResponse(t, w, "Focus item not found")
}

func TestMood_SaveAndPatterns(t *testing.T) {
	te := setup(t)

	w := te.post(t, "/api/mood", `{"level":9,"note":"great"}`)
	assertStatus(t, w, http.StatusCreated)
	assertMessage(t, w, "Mood saved")

	w = te.get(t, "/api/mood")
	assertStatus(t, w, http.StatusOK)
	history := decode[map[string]model.MoodEntry](t, w)
	require.Contains(t, history, testToday)
	assert.Equal(t, 5, history[testToday].Level, "level clamps to 5")
	assert.Equal(t, "great", history[testToday].Note)

	// Saving again replaces today's entry.
	w = te.post(t, "/api/mood", `{"note":"meh"}`)
	assertStatus(t, w, http.StatusCreated)
	history = te.snapshot(t).MoodHistory
	assert.Len(t, history, 1)
	assert.Equal(t, model.DefaultMoodLevel, history[testToday].Level)

	w = te.get(t, "/api/mood/patterns")
	assertStatus(t, w, http.StatusOK)
	report := decode[analytics.MoodReport](t, w)
	require.Len(t, report.Patterns, 1)
	assert.Nil(t, report.AverageMood, "fewer than five entries")
}

func TestReflection_SaveAndList(t *testing.T) {
	te := setup(t)
	te.seed(t, func(s *model.Snapshot) {
		s.Reflections["2025-01-01"] = model.Reflection{WhatWentWell: "ancient"}
	})

	w := te.post(t, "/api/reflection",
		`{"what_went_well":"shipped","grateful_for":"coffee"}`)
	assertStatus(t, w, http.StatusCreated)
	assertMessage(t, w, "Reflection saved")

	w = te.get(t, "/api/reflection")
	assertStatus(t, w, http.StatusOK)
	got := decode[map[string]model.Reflection](t, w)
	require.Len(t, got, 1, "only the last seven days")
	assert.Equal(t, "shipped", got[testToday].WhatWentWell)
	assert.Equal(t, model.DefaultEnergyLevel, got[testToday].EnergyLevel)
}

func TestSettings_Merge(t *testing.T) {
	te := setup(t)

	w := te.get(t, "/api/settings")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "auto", decode[map[string]any](t, w)["theme"])

	w = te.put(t, "/api/settings", `{"theme":"dark","custom":1}`)
	assertStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, float64(1), got["custom"])
	assert.Equal(t, "purple", got["theme_color"], "untouched keys kept")

	w = te.put(t, "/api/settings", `"dark"`)
	assertStatus(t, w, http.StatusBadRequest)
}

func TestProfile_ModeAppliesLayout(t *testing.T) {
	te := setup(t)

	w := te.put(t, "/api/profile", `{"name":"Sam","mode":"student"}`)
	assertStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "Sam", got["name"])
	assert.Equal(t, "student", got["mode"])

	layout := analytics.Mode("student").HomeLayout
	want := make([]any, len(layout))
	for i, v := range layout {
		want[i] = v
	}
	assert.Equal(t, want, te.snapshot(t).Settings["home_layout"])

	w = te.get(t, "/api/profile")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "Sam", decode[map[string]any](t, w)["name"])
}

func TestOnboarding(t *testing.T) {
	te := setup(t)

	w := te.get(t, "/api/onboarding")
	assertStatus(t, w, http.StatusOK)
	assert.False(t, decode[map[string]bool](t, w)["complete"])

	w = te.post(t, "/api/onboarding/complete", "")
	assertStatus(t, w, http.StatusOK)
	assertMessage(t, w, "Onboarding completed")

	w = te.get(t, "/api/onboarding")
	assert.True(t, decode[map[string]bool](t, w)["complete"])
	assert.NotEmpty(t, te.snapshot(t).Habits, "profiles seed starter habits")
}

func TestOnboarding_CoreVariantSeedsNothing(t *testing.T) {
	te := setup(t, withFeatures(feature.Set{}))
	w := te.post(t, "/api/onboarding/complete", "")
	assertStatus(t, w, http.StatusOK)
	assert.Empty(t, te.snapshot(t).Habits)
}
