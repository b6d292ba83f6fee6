package analytics

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// Suggestion types.
const (
	TypeCelebration     = "celebration"
	TypeSuggestion      = "suggestion"
	TypeScheduling      = "scheduling"
	TypeHabitAdjustment = "habit_adjustment"
	TypeWorkload        = "workload"
)

// Suggestion actions understood by Apply.
const (
	ActionSchedule        = "schedule_to_productive_time"
	ActionAdjustFrequency = "adjust_habit_frequency"
	ActionRebalance       = "rebalance_workload"
	ActionBreakdown       = "breakdown_task"
)

// Thresholds for the rule cascade.
const (
	celebrationStreak   = 7
	overdueDays         = 3
	minHourSamples      = 5
	scheduleBatch       = 3
	weeklyHabitMinimum  = 3
	workloadWindow      = 7
	workloadMinTasks    = 5
	workloadOverloadMul = 2
)

// suggestionNamespace seeds the deterministic suggestion IDs.
var suggestionNamespace = uuid.MustParse("6f1c7c0e-3a0b-4d1e-9c55-2b8f4d8e7a10")

// Suggestion is a generated, non-persisted recommendation. When
// Action is set, Data is the payload Apply expects for it.
type Suggestion struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Message  string `json:"message"`
	TaskID   *int64 `json:"task_id,omitempty"`
	Action   string `json:"action,omitempty"`
	Data     any    `json:"data,omitempty"`
}

// SchedulePayload moves untimed tasks to the productive hour.
type SchedulePayload struct {
	Hour    int     `json:"hour"`
	TaskIDs []int64 `json:"task_ids"`
}

// FrequencyPayload changes a habit's target frequency.
type FrequencyPayload struct {
	HabitID      int64  `json:"habit_id"`
	NewFrequency string `json:"new_frequency"`
	Count        int    `json:"count"`
}

// Move reassigns one task's due date.
type Move struct {
	TaskID int64  `json:"task_id"`
	Date   string `json:"date"`
}

// RebalancePayload spreads an overloaded day across the week.
type RebalancePayload struct {
	Date      string `json:"date"`
	TaskCount int    `json:"task_count"`
	Moves     []Move `json:"moves"`
}

// BreakdownPayload attaches subtasks to a stalled task.
type BreakdownPayload struct {
	TaskID   int64    `json:"task_id"`
	Subtasks []string `json:"subtasks"`
}

func newSuggestion(typ, priority, msg, action string, data any) Suggestion {
	key, _ := json.Marshal(data)
	name := typ + "|" + action + "|" + msg + "|" + string(key)
	return Suggestion{
		ID:       uuid.NewSHA1(suggestionNamespace, []byte(name)).String(),
		Type:     typ,
		Priority: priority,
		Message:  msg,
		Action:   action,
		Data:     data,
	}
}

// Insights runs the pattern rules: streak celebrations and
// stalled overdue tasks.
func (e *Engine) Insights(s *model.Snapshot) []Suggestion {
	out := []Suggestion{}
	out = append(out, e.celebrations(s)...)
	out = append(out, e.overdue(s)...)
	return out
}

// SmartSuggestions runs the full rule cascade. Every matching
// rule contributes; later rules never replace earlier output.
func (e *Engine) SmartSuggestions(s *model.Snapshot) []Suggestion {
	out := e.Insights(s)
	if !e.features.SmartSuggestions {
		return out
	}
	if e.features.BehaviorTracking {
		if sg, ok := e.scheduling(s); ok {
			out = append(out, sg)
		}
	}
	out = append(out, e.habitAdjustments(s)...)
	if sg, ok := e.workload(s); ok {
		out = append(out, sg)
	}
	return out
}

func (e *Engine) celebrations(s *model.Snapshot) []Suggestion {
	var out []Suggestion
	for _, h := range s.TrackedHabits() {
		streak := e.Streak(h)
		if streak < celebrationStreak {
			continue
		}
		msg := fmt.Sprintf("Amazing! %d day streak on '%s'", streak, h.Name)
		out = append(out, newSuggestion(TypeCelebration, "low", msg, "", nil))
	}
	return out
}

func (e *Engine) overdue(s *model.Snapshot) []Suggestion {
	today := e.Today()
	var out []Suggestion
	for _, t := range s.Tasks {
		if t.Completed {
			continue
		}
		due, ok := timeutil.ParseDate(t.Due())
		if !ok {
			continue
		}
		days := timeutil.DaysBetween(due, today)
		if days < overdueDays {
			continue
		}
		msg := fmt.Sprintf(
			"'%s' has been pending for %d days. Break it into smaller steps?",
			t.Title, days,
		)
		sg := newSuggestion(TypeSuggestion, "medium", msg, ActionBreakdown,
			BreakdownPayload{TaskID: t.ID, Subtasks: BreakdownTemplate(t.Title)})
		sg.TaskID = model.Ptr(t.ID)
		out = append(out, sg)
	}
	return out
}

func untimed(t model.Task) bool {
	return t.DueTime == nil || *t.DueTime == ""
}

func (e *Engine) scheduling(s *model.Snapshot) (Suggestion, bool) {
	hours := s.BehaviorData.CompletionHours
	if len(hours) < minHourSamples {
		return Suggestion{}, false
	}
	hour, _ := modeFirst(hours)

	var ids []int64
	for _, t := range s.Tasks {
		if !t.Completed && untimed(t) {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return Suggestion{}, false
	}
	if len(ids) > scheduleBatch {
		ids = ids[:scheduleBatch]
	}
	msg := fmt.Sprintf(
		"You usually finish tasks around %d:00. Want me to schedule your pending tasks then?",
		hour,
	)
	return newSuggestion(TypeScheduling, "high", msg, ActionSchedule,
		SchedulePayload{Hour: hour, TaskIDs: ids}), true
}

func (e *Engine) habitAdjustments(s *model.Snapshot) []Suggestion {
	last7 := e.lastNDays(7)
	var out []Suggestion
	for _, h := range s.TrackedHabits() {
		if h.Frequency != model.FrequencyDaily || len(h.Completions) == 0 {
			continue
		}
		n := countDone(h.Completions, last7)
		if n >= weeklyHabitMinimum {
			continue
		}
		msg := fmt.Sprintf(
			"You've completed '%s' only %d times this week. Make it 3×/week instead?",
			h.Name, n,
		)
		out = append(out, newSuggestion(TypeHabitAdjustment, "medium", msg,
			ActionAdjustFrequency, FrequencyPayload{
				HabitID:      h.ID,
				NewFrequency: model.FrequencyCustom,
				Count:        weeklyHabitMinimum,
			}))
	}
	return out
}

// Workload is the pending-task count per day over the next week.
type Workload struct {
	Dates  []string
	Counts []int
}

// UpcomingWorkload counts pending tasks due on each of the seven
// days starting today.
func (e *Engine) UpcomingWorkload(s *model.Snapshot) Workload {
	today := e.Today()
	w := Workload{
		Dates:  make([]string, workloadWindow),
		Counts: make([]int, workloadWindow),
	}
	index := make(map[string]int, workloadWindow)
	for i := range workloadWindow {
		d := timeutil.DateString(timeutil.AddDays(today, i))
		w.Dates[i] = d
		index[d] = i
	}
	for _, t := range s.Tasks {
		if t.Completed {
			continue
		}
		if i, ok := index[t.Due()]; ok {
			w.Counts[i]++
		}
	}
	return w
}

// Overloaded returns the index of the busiest day when it holds
// more than twice the average and at least five tasks.
func (w Workload) Overloaded() (int, bool) {
	busiest, sum := 0, 0
	for i, c := range w.Counts {
		sum += c
		if c > w.Counts[busiest] {
			busiest = i
		}
	}
	avg := float64(sum) / float64(len(w.Counts))
	top := w.Counts[busiest]
	if float64(top) > avg*workloadOverloadMul && top >= workloadMinTasks {
		return busiest, true
	}
	return 0, false
}

func (e *Engine) workload(s *model.Snapshot) (Suggestion, bool) {
	w := e.UpcomingWorkload(s)
	over, ok := w.Overloaded()
	if !ok {
		return Suggestion{}, false
	}
	date := w.Dates[over]
	d, _ := timeutil.ParseDate(date)
	msg := fmt.Sprintf(
		"Your %s looks crowded with %d tasks. Consider spreading them across the week.",
		timeutil.WeekdayName(d), w.Counts[over],
	)
	return newSuggestion(TypeWorkload, "high", msg, ActionRebalance,
		RebalancePayload{
			Date:      date,
			TaskCount: w.Counts[over],
			Moves:     planMoves(s, w, over),
		}), true
}

// planMoves shifts the overloaded day's last pending tasks onto
// the least-loaded days until it holds no more than the rounded
// up average.
func planMoves(s *model.Snapshot, w Workload, over int) []Move {
	sum := 0
	for _, c := range w.Counts {
		sum += c
	}
	target := max(int(math.Ceil(float64(sum)/float64(len(w.Counts)))), 1)

	var pending []int64
	for _, t := range s.Tasks {
		if !t.Completed && t.Due() == w.Dates[over] {
			pending = append(pending, t.ID)
		}
	}

	counts := append([]int(nil), w.Counts...)
	moves := []Move{}
	for counts[over] > target && len(pending) > 0 {
		dest := -1
		for i, c := range counts {
			if i == over {
				continue
			}
			if dest < 0 || c < counts[dest] {
				dest = i
			}
		}
		id := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		moves = append(moves, Move{TaskID: id, Date: w.Dates[dest]})
		counts[over]--
		counts[dest]++
	}
	return moves
}

// Apply performs the state change a suggestion payload
// describes. Applying the same payload twice leaves the same
// state. Unknown task or habit IDs are skipped.
func (e *Engine) Apply(s *model.Snapshot, action string, data json.RawMessage) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	switch action {
	case ActionSchedule:
		var p SchedulePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", action, err)
		}
		clock := fmt.Sprintf("%02d:00", p.Hour)
		for _, id := range p.TaskIDs {
			i := s.TaskIndex(id)
			if i < 0 {
				continue
			}
			t := &s.Tasks[i]
			t.DueTime = model.Ptr(clock)
			if t.Due() == "" {
				t.DueDate = model.Ptr(e.TodayString())
			}
		}
	case ActionAdjustFrequency:
		p := FrequencyPayload{NewFrequency: model.FrequencyCustom, Count: weeklyHabitMinimum}
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", action, err)
		}
		if i := s.HabitIndex(p.HabitID); i >= 0 {
			s.Habits[i].Frequency = p.NewFrequency
			s.Habits[i].FrequencyCount = p.Count
		}
	case ActionRebalance:
		var p RebalancePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", action, err)
		}
		for _, m := range p.Moves {
			i := s.TaskIndex(m.TaskID)
			if i < 0 || s.Tasks[i].Completed || !timeutil.IsValidDate(m.Date) {
				continue
			}
			s.Tasks[i].DueDate = model.Ptr(m.Date)
		}
	case ActionBreakdown:
		var p BreakdownPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("decoding %s payload: %w", action, err)
		}
		i := s.TaskIndex(p.TaskID)
		if i < 0 || len(s.Tasks[i].Subtasks) > 0 {
			return nil
		}
		steps := p.Subtasks
		if len(steps) == 0 {
			steps = BreakdownTemplate(s.Tasks[i].Title)
		}
		s.Tasks[i].Subtasks = NewSubtasks(steps)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}
