package analytics

import (
	"fmt"
	"time"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// Calendar view names.
const (
	ViewDay   = "day"
	ViewWeek  = "week"
	ViewMonth = "month"
)

// HabitDay is a habit's state on one calendar day.
type HabitDay struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	Completed bool   `json:"completed"`
	Type      string `json:"type"`
}

// DayView lists everything scheduled on one date.
type DayView struct {
	Date       string            `json:"date"`
	Tasks      []model.Task      `json:"tasks"`
	Habits     []HabitDay        `json:"habits"`
	FocusItems []model.FocusItem `json:"focus_items"`
}

// WeekDay is a DayView with per-day counts.
type WeekDay struct {
	DayView
	DayName    string `json:"day_name"`
	TaskCount  int    `json:"task_count"`
	HabitCount int    `json:"habit_count"`
}

// WeekView covers Monday through Sunday.
type WeekView struct {
	WeekStart string    `json:"week_start"`
	Days      []WeekDay `json:"days"`
}

// MonthDay is one cell of the month grid.
type MonthDay struct {
	Date             string `json:"date"`
	Day              int    `json:"day"`
	TaskCount        int    `json:"task_count"`
	CompletedTasks   int    `json:"completed_tasks"`
	HabitCompletions int    `json:"habit_completions"`
}

// MonthView covers one calendar month.
type MonthView struct {
	Month int        `json:"month"`
	Year  int        `json:"year"`
	Days  []MonthDay `json:"days"`
}

// Calendar renders view for date ("" means today).
func (e *Engine) Calendar(s *model.Snapshot, view, date string) (any, error) {
	d := e.Today()
	if date != "" {
		var ok bool
		if d, ok = timeutil.ParseDate(date); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDate, date)
		}
	}
	switch view {
	case ViewDay:
		return DayOf(s, d), nil
	case ViewWeek:
		return WeekOf(s, d), nil
	case ViewMonth:
		return MonthOf(s, d), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidView, view)
	}
}

// DayOf builds the day view for the civil date d.
func DayOf(s *model.Snapshot, d time.Time) DayView {
	date := timeutil.DateString(d)
	v := DayView{
		Date:       date,
		Tasks:      []model.Task{},
		Habits:     []HabitDay{},
		FocusItems: []model.FocusItem{},
	}
	for _, t := range s.Tasks {
		if t.Due() == date {
			v.Tasks = append(v.Tasks, t)
		}
	}
	for _, h := range s.TrackedHabits() {
		if !showsOn(h, d) {
			continue
		}
		v.Habits = append(v.Habits, HabitDay{
			ID:        h.ID,
			Name:      h.Name,
			Icon:      h.Icon,
			Completed: h.Completions[date],
			Type:      "habit",
		})
	}
	for _, f := range s.FocusItems {
		if f.Date == date {
			v.FocusItems = append(v.FocusItems, f)
		}
	}
	return v
}

// WeekOf builds the Monday-based week containing d.
func WeekOf(s *model.Snapshot, d time.Time) WeekView {
	monday := timeutil.MondayOf(d)
	v := WeekView{
		WeekStart: timeutil.DateString(monday),
		Days:      make([]WeekDay, 0, 7),
	}
	for i := range 7 {
		day := timeutil.AddDays(monday, i)
		dv := DayOf(s, day)
		done := 0
		for _, h := range dv.Habits {
			if h.Completed {
				done++
			}
		}
		v.Days = append(v.Days, WeekDay{
			DayView:    dv,
			DayName:    timeutil.WeekdayName(day),
			TaskCount:  len(dv.Tasks),
			HabitCount: done,
		})
	}
	return v
}

// MonthOf builds the month containing d.
func MonthOf(s *model.Snapshot, d time.Time) MonthView {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	v := MonthView{Month: int(first.Month()), Year: first.Year()}
	for day := first; day.Before(next); day = timeutil.AddDays(day, 1) {
		date := timeutil.DateString(day)
		cell := MonthDay{Date: date, Day: day.Day()}
		for _, t := range s.Tasks {
			if t.Due() != date {
				continue
			}
			cell.TaskCount++
			if t.Completed {
				cell.CompletedTasks++
			}
		}
		cell.HabitCompletions = habitsDoneOn(s.Habits, date)
		v.Days = append(v.Days, cell)
	}
	return v
}
