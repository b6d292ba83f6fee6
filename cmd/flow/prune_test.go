package main

import (
	"bytes"
	"context"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/store"
)

func openTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	st, err := store.OpenFile(
		filepath.Join(t.TempDir(), store.DataFileName),
	)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedPruneData(t *testing.T, st store.Store) {
	t.Helper()
	_, err := st.Update(context.Background(), func(s *model.Snapshot) error {
		s.Tasks = []model.Task{
			{ID: 1, Title: "old done", Completed: true,
				CompletedAt: model.Ptr("2024-01-05T09:00:00Z")},
			{ID: 2, Title: "older done", Completed: true,
				CompletedAt: model.Ptr("2023-12-20T09:00:00Z")},
			{ID: 3, Title: "open", DueDate: model.Ptr("2023-01-01")},
			{ID: 4, Title: "recent done", Completed: true,
				CompletedAt: model.Ptr("2024-03-01T09:00:00Z")},
		}
		s.FocusItems = []model.FocusItem{
			{ID: 1, Text: "stale", Date: "2024-01-01"},
			{ID: 2, Text: "today", Date: "2024-03-01"},
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}
}

func newTestPruner(
	t *testing.T, st store.Store, input string,
) (*Pruner, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return &Pruner{
		Store: st,
		Out:   buf,
		In:    strings.NewReader(input),
	}, buf
}

func TestPruneConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     PruneConfig
		wantErr string
	}{
		{"missing before", PruneConfig{}, "--before is required"},
		{"bad date", PruneConfig{Before: "02/01/2024"}, "invalid --before"},
		{"impossible date", PruneConfig{Before: "2024-02-30"}, "invalid --before"},
		{"ok", PruneConfig{Before: "2024-02-01"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes lowercase", "y\n", true},
		{"yes full", "yes\n", true},
		{"YES uppercase", "YES\n", true},
		{"no", "n\n", false},
		{"empty", "\n", false},
		{"other text", "maybe\n", false},
		{"y with spaces", "  y  \n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.NewReader(tt.input)
			out := &bytes.Buffer{}
			got := confirm(in, out, "Delete?")
			if got != tt.want {
				t.Errorf("confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "[y/N]") {
				t.Error("prompt missing [y/N]")
			}
		})
	}
}

func TestWriteSummary(t *testing.T) {
	tasks := []model.Task{
		{ID: 1, CompletedAt: model.Ptr("2024-01-05T09:00:00Z")},
		{ID: 2, CompletedAt: model.Ptr("2023-12-20T09:00:00Z")},
		{ID: 3, CompletedAt: model.Ptr("2024-01-30T09:00:00Z")},
	}

	var buf bytes.Buffer
	writeSummary(&buf, tasks, 2)
	out := buf.String()

	want := `Found 3 completed tasks and 2 focus items

By completion month:
  2023-12    1
  2024-01    2
`
	if out != want {
		t.Errorf("writeSummary() mismatch\nwant:\n%s\ngot:\n%s", want, out)
	}
}

func TestPruner_PruneScenarios(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		cfg        PruneConfig
		wantOutput []string
		wantTasks  []int64
		wantFocus  int
	}{
		{
			name:       "dry run",
			cfg:        PruneConfig{Before: "2024-02-01", DryRun: true},
			wantOutput: []string{"Dry run", "Found 2 completed tasks and 1 focus items"},
			wantTasks:  []int64{1, 2, 3, 4},
			wantFocus:  2,
		},
		{
			name:       "no matches",
			cfg:        PruneConfig{Before: "2020-01-01"},
			wantOutput: []string{"Nothing to prune"},
			wantTasks:  []int64{1, 2, 3, 4},
			wantFocus:  2,
		},
		{
			name:       "declined",
			input:      "n\n",
			cfg:        PruneConfig{Before: "2024-02-01"},
			wantOutput: []string{"Aborted"},
			wantTasks:  []int64{1, 2, 3, 4},
			wantFocus:  2,
		},
		{
			name:       "confirmed",
			input:      "y\n",
			cfg:        PruneConfig{Before: "2024-02-01"},
			wantOutput: []string{"Deleted 2 tasks and 1 focus items"},
			wantTasks:  []int64{3, 4},
			wantFocus:  1,
		},
		{
			name:       "yes flag",
			cfg:        PruneConfig{Before: "2024-02-01", Yes: true},
			wantOutput: []string{"Deleted 2 tasks"},
			wantTasks:  []int64{3, 4},
			wantFocus:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := openTestStore(t)
			seedPruneData(t, st)

			pruner, buf := newTestPruner(t, st, tt.input)
			if err := pruner.Prune(context.Background(), tt.cfg); err != nil {
				t.Fatalf("Prune: %v", err)
			}
			out := buf.String()
			for _, want := range tt.wantOutput {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}

			snap, err := st.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			var ids []int64
			for _, task := range snap.Tasks {
				ids = append(ids, task.ID)
			}
			if !slices.Equal(ids, tt.wantTasks) {
				t.Errorf("tasks = %v, want %v", ids, tt.wantTasks)
			}
			if len(snap.FocusItems) != tt.wantFocus {
				t.Errorf("focus items = %d, want %d",
					len(snap.FocusItems), tt.wantFocus)
			}
		})
	}
}

