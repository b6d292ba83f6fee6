package server_test

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/flow/internal/model"
)

func TestExport(t *testing.T) {
	te := setup(t)
	te.seedTasks(t, task(1, "a"), task(2, "b"))
	te.seedHabits(t, habit(1, "Read", dates(0)))

	w := te.get(t, "/api/export")
	assertStatus(t, w, http.StatusOK)
	assert.Equal(t,
		`attachment; filename="flow-backup-2025-03-12.json"`,
		w.Header().Get("Content-Disposition"),
	)

	snap, err := model.ParseBackup(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, taskIDs(snap.Tasks))
	require.Len(t, snap.Habits, 1)
	assert.Equal(t, "Read", snap.Habits[0].Name)
}

func TestExportTasksCSV(t *testing.T) {
	te := setup(t)
	tagged := task(1, "Buy milk, eggs")
	tagged.Tags = []string{"errands", "home"}
	tagged.DueDate = model.Ptr("2025-03-14")
	te.seedTasks(t, tagged)

	w := te.get(t, "/api/export/tasks.csv")
	assertStatus(t, w, http.StatusOK)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "flow-backup-2025-03-12.csv")

	rows, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	want := []string{
		"1", "Buy milk, eggs", "false", "normal", "2025-03-14", "",
		"30", daysAgo(0), "", "0", "errands;home",
	}
	if diff := cmp.Diff(want, rows[1]); diff != "" {
		t.Errorf("csv row mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "id", rows[0][0])
}

func TestImport(t *testing.T) {
	te := setup(t)
	te.seedTasks(t, task(1, "replaced"))

	body := `{
		"tasks": [{"id": 7, "title": "imported"}],
		"habits": [{"id": 3, "name": "Walk", "completions": {
			"2025-03-10": true, "2025-03-11": true, "2025-03-12": true
		}}],
		"focus_items": []
	}`
	w := te.post(t, "/api/import", body)
	assertStatus(t, w, http.StatusOK)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "Data imported", got["message"])
	assert.Equal(t, float64(1), got["tasks"])
	assert.Equal(t, float64(1), got["habits"])
	assert.Equal(t, float64(0), got["focus_items"])

	snap := te.snapshot(t)
	assert.Equal(t, []int64{7}, taskIDs(snap.Tasks))
	require.Len(t, snap.Habits, 1)
	assert.Equal(t, 3, snap.Habits[0].Streak)
	assert.Equal(t, 3, snap.Habits[0].LongestStreak)

	// New ids continue after the imported ones.
	w = te.post(t, "/api/tasks", `{"title":"next"}`)
	assertStatus(t, w, http.StatusCreated)
	assert.Equal(t, int64(8), decode[model.Task](t, w).ID)
}

func TestImportRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed", "{tasks"},
		{"array", `[]`},
		{"duplicate ids", `{"tasks":[{"id":1},{"id":1}]}`},
		{"tasks not array", `{"tasks":{"id":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := setup(t)
			te.seedTasks(t, task(1, "kept"))

			w := te.post(t, "/api/import", tt.body)
			assertStatus(t, w, http.StatusBadRequest)
			assert.Equal(t, []int64{1}, taskIDs(te.snapshot(t).Tasks))
		})
	}
}
