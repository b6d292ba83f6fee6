package analytics

import "github.com/wesm/flow/internal/model"

// HabitTemplate seeds a habit for a profile mode.
type HabitTemplate struct {
	Name           string
	Icon           string
	Frequency      string
	FrequencyCount int
}

// ModeDefaults are the starter habits and home layout of a
// profile mode.
type ModeDefaults struct {
	Habits     []HabitTemplate
	HomeLayout []string
}

const defaultMode = "productivity"

var modes = map[string]ModeDefaults{
	"student": {
		Habits: []HabitTemplate{
			{"Review notes", "📚", model.FrequencyDaily, 1},
			{"Complete assignments", "✏️", model.FrequencyDaily, 1},
			{"Study session", "🎓", model.FrequencyDaily, 1},
		},
		HomeLayout: []string{"focus", "tasks", "calendar", "habits"},
	},
	"fitness": {
		Habits: []HabitTemplate{
			{"Workout", "🏃", model.FrequencyCustom, 4},
			{"Drink water", "💧", model.FrequencyDaily, 1},
			{"Track meals", "🥗", model.FrequencyDaily, 1},
		},
		HomeLayout: []string{"habits", "tasks", "focus", "calendar"},
	},
	"productivity": {
		Habits: []HabitTemplate{
			{"Plan day", "📝", model.FrequencyDaily, 1},
			{"Deep work", "💼", model.FrequencyCustom, 5},
			{"Review goals", "🎯", model.FrequencyWeekly, 1},
		},
		HomeLayout: []string{"focus", "tasks", "habits", "calendar"},
	},
	"minimalist": {
		Habits: []HabitTemplate{
			{"One priority", "✨", model.FrequencyDaily, 1},
		},
		HomeLayout: []string{"focus", "tasks"},
	},
	"entrepreneur": {
		Habits: []HabitTemplate{
			{"Revenue goals", "💰", model.FrequencyDaily, 1},
			{"Networking", "🤝", model.FrequencyCustom, 3},
			{"Learn", "📚", model.FrequencyDaily, 1},
		},
		HomeLayout: []string{"tasks", "focus", "calendar", "habits"},
	},
}

// Mode returns the defaults for mode, falling back to the
// productivity mode for unknown names.
func Mode(mode string) ModeDefaults {
	if d, ok := modes[mode]; ok {
		return d
	}
	return modes[defaultMode]
}

// ApplyMode sets the home layout for mode.
func ApplyMode(s *model.Snapshot, mode string) {
	layout := Mode(mode).HomeLayout
	vals := make([]any, len(layout))
	for i, v := range layout {
		vals[i] = v
	}
	s.Settings["home_layout"] = vals
}

// SeedModeHabits adds the mode's starter habits when s has no
// habits yet. It returns the number added.
func (e *Engine) SeedModeHabits(s *model.Snapshot, mode string) int {
	if len(s.Habits) > 0 {
		return 0
	}
	for _, tpl := range Mode(mode).Habits {
		s.Habits = append(s.Habits, model.Habit{
			ID:             s.NextHabitID(),
			Name:           tpl.Name,
			Icon:           tpl.Icon,
			Frequency:      tpl.Frequency,
			FrequencyCount: tpl.FrequencyCount,
			Completions:    map[string]bool{},
			CreatedAt:      e.Timestamp(),
		})
	}
	return len(s.Habits)
}
