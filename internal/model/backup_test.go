package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackup(t *testing.T) {
	s, err := ParseBackup([]byte(`{
		"version": "v2.0.0",
		"tasks": [{"id": 1, "title": "a"}, {"id": 2, "title": "b"}],
		"habits": [{"id": 1, "name": "Read"}],
		"extra": true
	}`))
	require.NoError(t, err)
	assert.Len(t, s.Tasks, 2)
	assert.Equal(t, "Read", s.Habits[0].Name)
	assert.NotNil(t, s.Habits[0].Completions)
	assert.Empty(t, s.FocusItems)
}

func TestParseBackupRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"Malformed", `{"tasks": [`},
		{"NotObject", `[1, 2]`},
		{"TasksNotArray", `{"tasks": {"id": 1}}`},
		{"MissingID", `{"habits": [{"name": "Read"}]}`},
		{"StringID", `{"tasks": [{"id": "1"}]}`},
		{"DuplicateID", `{"focus_items": [{"id": 3}, {"id": 3}]}`},
		{"WrongFieldType", `{"tasks": [{"id": 1, "completed": "yes"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBackup([]byte(tt.data))
			require.Error(t, err)
			if !errors.Is(err, ErrInvalidBackup) {
				t.Errorf("error %v is not ErrInvalidBackup", err)
			}
		})
	}
}

func TestParseBackupLegacyLayout(t *testing.T) {
	s, err := ParseBackup([]byte(`{"tasks": [{"id": 4, "title": "x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, s.Version)
	assert.Equal(t, PriorityNormal, s.Tasks[0].Priority)
	assert.Equal(t, DefaultDuration, s.Tasks[0].Duration)
}
