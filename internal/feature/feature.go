// Package feature describes the optional capabilities a Flow
// deployment runs with.
package feature

import (
	"fmt"
	"sort"
	"strings"
)

// Set is the capability set the analytics engine and the HTTP
// surface are configured with.
type Set struct {
	BehaviorTracking bool `json:"behavior_tracking" toml:"behavior_tracking"`
	Mood             bool `json:"mood" toml:"mood"`
	Profiles         bool `json:"profiles" toml:"profiles"`
	SmartSuggestions bool `json:"smart_suggestions" toml:"smart_suggestions"`
	Achievements     bool `json:"achievements" toml:"achievements"`
	Reflections      bool `json:"reflections" toml:"reflections"`
}

const (
	// VariantCore is the design-focused variant: tasks, habits,
	// focus, calendar, stats and rule-based insights.
	VariantCore = "core"
	// VariantCompanion enables every capability.
	VariantCompanion = "companion"
)

var variants = map[string]Set{
	VariantCore: {},
	VariantCompanion: {
		BehaviorTracking: true,
		Mood:             true,
		Profiles:         true,
		SmartSuggestions: true,
		Achievements:     true,
		Reflections:      true,
	},
}

// All returns a Set with every capability enabled.
func All() Set {
	return variants[VariantCompanion]
}

// Variant returns the capability set for a named variant.
func Variant(name string) (Set, error) {
	s, ok := variants[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Set{}, fmt.Errorf(
			"unknown variant %q (want one of %s)",
			name, strings.Join(Variants(), ", "),
		)
	}
	return s, nil
}

// Variants lists the known variant names.
func Variants() []string {
	names := make([]string, 0, len(variants))
	for name := range variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set toggles a capability by its config key.
func (s *Set) Set(key string, on bool) error {
	switch key {
	case "behavior_tracking":
		s.BehaviorTracking = on
	case "mood":
		s.Mood = on
	case "profiles":
		s.Profiles = on
	case "smart_suggestions":
		s.SmartSuggestions = on
	case "achievements":
		s.Achievements = on
	case "reflections":
		s.Reflections = on
	default:
		return fmt.Errorf("unknown feature %q", key)
	}
	return nil
}
