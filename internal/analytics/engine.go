// Package analytics is the rule-based engine over a Flow
// snapshot: streaks, perfect days, weekly aggregates,
// productivity and habit-strength scores, insights and
// actionable suggestions, calendar views and the smaller
// planning helpers built on them.
//
// Every computation is a pure function of a snapshot and the
// engine clock. Functions that mutate take the snapshot they
// mutate explicitly and never touch shared state.
package analytics

import (
	"errors"
	"time"

	"github.com/wesm/flow/internal/feature"
	"github.com/wesm/flow/internal/timeutil"
)

// Sentinel errors returned by engine operations.
var (
	ErrTaskNotFound  = errors.New("task not found")
	ErrHabitNotFound = errors.New("habit not found")
	ErrFocusNotFound = errors.New("focus item not found")
	ErrUnknownAction = errors.New("unknown suggestion action")
	ErrInvalidView   = errors.New("invalid view type")
	ErrInvalidDate   = errors.New("invalid date")
)

// Engine evaluates rules against a snapshot at a point in time.
type Engine struct {
	now      func() time.Time
	loc      *time.Location
	features feature.Set
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock. Nil is ignored.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the zone "today" is evaluated in. Nil is
// ignored.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithFeatures sets the capability set.
func WithFeatures(f feature.Set) Option {
	return func(e *Engine) { e.features = f }
}

// New creates an Engine using the system clock, the local zone
// and every capability enabled.
func New(opts ...Option) *Engine {
	e := &Engine{
		now:      time.Now,
		loc:      time.Local,
		features: feature.All(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the current instant in the engine's zone.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// Today returns the current civil date.
func (e *Engine) Today() time.Time {
	return timeutil.Civil(e.Now())
}

// TodayString returns the current date as "YYYY-MM-DD".
func (e *Engine) TodayString() string {
	return timeutil.DateString(e.Today())
}

// Location returns the engine's zone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Features returns the capability set.
func (e *Engine) Features() feature.Set {
	return e.features
}

// Timestamp returns the current instant formatted for storage.
func (e *Engine) Timestamp() string {
	return timeutil.Format(e.Now())
}

// civilOf returns the civil date of a stored timestamp.
func (e *Engine) civilOf(ts string) (time.Time, bool) {
	t, ok := timeutil.ParseTimestamp(ts, e.loc)
	if !ok {
		// Date-only values are accepted too.
		return timeutil.ParseDate(timeutil.DateOf(ts))
	}
	return timeutil.Civil(t), true
}

// lastNDays returns the n dates ending today, newest first.
func (e *Engine) lastNDays(n int) []string {
	today := e.Today()
	out := make([]string, n)
	for i := range n {
		out[i] = timeutil.DateString(timeutil.AddDays(today, -i))
	}
	return out
}
