package model

import "golang.org/x/mod/semver"

// CurrentVersion is the layout version written by this build.
const CurrentVersion = "v2.0.0"

// baseVersion is assumed for documents that predate versioning.
const baseVersion = "v1.0.0"

// Migrate upgrades s in place to CurrentVersion. It reports
// whether anything changed. Documents newer than this build are
// left untouched apart from filling missing collections.
func Migrate(s *Snapshot) bool {
	v := s.Version
	if !semver.IsValid(v) {
		v = baseVersion
	}
	changed := v != s.Version

	if semver.Compare(v, "v2.0.0") < 0 {
		// v1 documents carried only tasks, habits, focus items,
		// stats and a partial settings map.
		defaults := DefaultSettings()
		for k, val := range defaults {
			if _, ok := s.Settings[k]; !ok {
				if s.Settings == nil {
					s.Settings = map[string]any{}
				}
				s.Settings[k] = val
			}
		}
		for i := range s.Tasks {
			t := &s.Tasks[i]
			if t.Duration == 0 {
				t.Duration = DefaultDuration
			}
			if t.Priority == "" {
				t.Priority = PriorityNormal
			}
		}
		for i := range s.Habits {
			h := &s.Habits[i]
			if h.Icon == "" {
				h.Icon = DefaultHabitIcon
			}
			if h.Frequency == "" {
				h.Frequency = FrequencyDaily
			}
			if h.FrequencyCount == 0 {
				h.FrequencyCount = 1
			}
		}
		v = "v2.0.0"
		changed = true
	}

	if semver.Compare(v, CurrentVersion) < 0 {
		v = CurrentVersion
		changed = true
	}
	s.Version = v
	s.normalize()
	return changed
}
