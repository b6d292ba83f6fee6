package analytics

import (
	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// Achievement rules. Each is awarded once.
var achievementRules = []struct {
	badge model.Achievement
	met   func(e *Engine, s *model.Snapshot) bool
}{
	{
		badge: model.Achievement{
			ID: "consistency_7", Title: "Consistency",
			Description: "7 day streak", Icon: "flame",
		},
		met: func(e *Engine, s *model.Snapshot) bool {
			for _, h := range s.Habits {
				if e.Streak(h) >= 7 {
					return true
				}
			}
			return false
		},
	},
	{
		badge: model.Achievement{
			ID: "early_finisher", Title: "Early Finisher",
			Description: "10 tasks before noon", Icon: "sparkles",
		},
		met: func(e *Engine, s *model.Snapshot) bool {
			n := 0
			for _, t := range s.Tasks {
				if t.CompletedAt == nil {
					continue
				}
				if h, ok := timeutil.Hour(*t.CompletedAt, e.loc); ok && h < 12 {
					n++
				}
			}
			return n >= 10
		},
	},
	{
		badge: model.Achievement{
			ID: "task_master_50", Title: "Task Master",
			Description: "50 tasks completed", Icon: "check",
		},
		met: func(_ *Engine, s *model.Snapshot) bool {
			n := 0
			for _, t := range s.Tasks {
				if t.Completed {
					n++
				}
			}
			return n >= 50
		},
	},
}

// AwardAchievements appends every newly earned badge to s and
// returns how many were added.
func (e *Engine) AwardAchievements(s *model.Snapshot) int {
	have := make(map[string]bool, len(s.Achievements))
	for _, a := range s.Achievements {
		have[a.ID] = true
	}
	added := 0
	for _, r := range achievementRules {
		if have[r.badge.ID] || !r.met(e, s) {
			continue
		}
		a := r.badge
		a.EarnedAt = e.Timestamp()
		s.Achievements = append(s.Achievements, a)
		added++
	}
	return added
}
