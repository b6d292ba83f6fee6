// Package quickadd turns a one-line task description such as
// `"Submit report" friday at 3pm #work urgent` into task fields.
//
// Input is tokenized shell-style, so double-quoted phrases are
// kept as one literal title fragment and never interpreted.
// Apostrophes and hashtags are ordinary word characters.
package quickadd

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/wesm/flow/internal/model"
	"github.com/wesm/flow/internal/timeutil"
)

// Result is the parsed form of a quick-add line.
type Result struct {
	Title           string   `json:"title"`
	DueDate         *string  `json:"due_date"`
	DueTime         *string  `json:"due_time"`
	RepeatFrequency string   `json:"repeat_frequency,omitempty"`
	Priority        string   `json:"priority"`
	Tags            []string `json:"tags"`
}

var (
	numericDate = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2}|\d{4}))?$`)
	clockTime   = regexp.MustCompile(`^(\d{1,2}):(\d{2})(am|pm)?$`)
	meridiem    = regexp.MustCompile(`^(\d{1,2})(am|pm)$`)
	hashtag     = regexp.MustCompile(`^#(\w+)$`)
	bareNumber  = regexp.MustCompile(`^\d{1,2}$`)
	yearNumber  = regexp.MustCompile(`^\d{4}$`)
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

var months = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// recurrence maps one- and two-word phrases to a repeat
// frequency.
var recurrence = map[string]string{
	"daily": "daily", "every day": "daily",
	"weekly": "weekly", "every week": "weekly",
	"monthly": "monthly", "every month": "monthly",
	"yearly": "yearly", "every year": "yearly",
	"weekdays": "weekdays", "every weekday": "weekdays",
	"weekends": "weekends", "every weekend": "weekends",
}

var priorities = map[string]string{
	"urgent": model.PriorityHigh, "important": model.PriorityHigh,
	"high priority": model.PriorityHigh,
	"optional": model.PriorityLow, "low priority": model.PriorityLow,
}

// categories are tagged when any keyword appears in the title.
// They are checked in order and leave the title unchanged.
var categories = []struct {
	tag      string
	keywords []string
}{
	{"work", []string{"work", "job", "office", "meeting", "project"}},
	{"study", []string{"study", "homework", "assignment", "exam", "test", "class"}},
	{"personal", []string{"personal", "family", "friend", "home"}},
	{"health", []string{"gym", "exercise", "workout", "doctor", "health"}},
	{"errands", []string{"buy", "purchase", "shop", "grocery", "errand"}},
}

// shellEscaper keeps the characters shlex would treat as quotes,
// comments or escapes literal.
var shellEscaper = strings.NewReplacer(`\`, `\\`, `#`, `\#`, `'`, `\'`)

// connectors are dropped when they directly precede a parsed
// date or time.
var connectors = []string{"on", "at", "by", "due"}

type parser struct {
	today time.Time
	toks  []string
	lower []string
	used  []bool
	res   Result
}

// Parse interprets input relative to now. Unrecognized words
// form the title; when nothing is left the whole input is used.
func Parse(input string, now time.Time) Result {
	toks, err := shlex.Split(shellEscaper.Replace(input))
	if err != nil {
		// Unbalanced quotes: fall back to plain words.
		toks = strings.Fields(input)
	}
	p := &parser{
		today: timeutil.Civil(now),
		toks:  toks,
		lower: make([]string, len(toks)),
		used:  make([]bool, len(toks)),
		res:   Result{Priority: model.PriorityNormal, Tags: []string{}},
	}
	for i, t := range toks {
		p.lower[i] = strings.ToLower(strings.TrimRight(t, ",."))
	}

	p.scan()
	p.res.Title = p.title()
	if p.res.Title == "" {
		p.res.Title = strings.TrimSpace(input)
	}
	p.categorize()
	return p.res
}

// literal reports whether token i was quoted in the input.
func (p *parser) literal(i int) bool {
	return strings.ContainsAny(p.toks[i], " \t")
}

func (p *parser) word(i int) string {
	if i < 0 || i >= len(p.toks) || p.used[i] || p.literal(i) {
		return ""
	}
	return p.lower[i]
}

func (p *parser) consume(from, n int) {
	for i := from; i < from+n; i++ {
		p.used[i] = true
	}
}

// consumeWhen is consume that also takes a preceding connector
// word.
func (p *parser) consumeWhen(from, n int) {
	p.consume(from, n)
	if c := p.word(from - 1); slices.Contains(connectors, c) {
		p.used[from-1] = true
	}
}

func (p *parser) scan() {
	for i := 0; i < len(p.toks); i++ {
		w := p.word(i)
		if w == "" {
			continue
		}
		pair := w + " " + p.word(i+1)

		if m := hashtag.FindStringSubmatch(strings.TrimRight(p.toks[i], ",.")); m != nil {
			p.addTag(m[1])
			p.used[i] = true
			continue
		}
		if pr, ok := priorities[pair]; ok {
			p.res.Priority = pr
			p.consume(i, 2)
			continue
		}
		if pr, ok := priorities[w]; ok {
			p.res.Priority = pr
			p.consume(i, 1)
			continue
		}
		if f, ok := recurrence[pair]; ok && p.res.RepeatFrequency == "" {
			p.res.RepeatFrequency = f
			p.consume(i, 2)
			continue
		}
		if f, ok := recurrence[w]; ok && p.res.RepeatFrequency == "" {
			p.res.RepeatFrequency = f
			p.consume(i, 1)
			continue
		}
		if p.res.DueTime == nil {
			if n, hhmm, ok := p.timeAt(i); ok {
				p.res.DueTime = model.Ptr(hhmm)
				p.consumeWhen(i, n)
				continue
			}
		}
		if p.res.DueDate == nil {
			if n, d, ok := p.dateAt(i); ok {
				p.res.DueDate = model.Ptr(timeutil.DateString(d))
				p.consumeWhen(i, n)
				continue
			}
		}
	}
}

// timeAt recognizes "15:30", "3:30pm", "3pm" and "3 pm".
func (p *parser) timeAt(i int) (int, string, bool) {
	w := p.word(i)
	if m := clockTime.FindStringSubmatch(w); m != nil {
		h, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return clock(1, h, minute, m[3])
	}
	if m := meridiem.FindStringSubmatch(w); m != nil {
		h, _ := strconv.Atoi(m[1])
		return clock(1, h, 0, m[2])
	}
	if bareNumber.MatchString(w) {
		if next := p.word(i + 1); next == "am" || next == "pm" {
			h, _ := strconv.Atoi(w)
			return clock(2, h, 0, next)
		}
	}
	return 0, "", false
}

func clock(n, h, minute int, period string) (int, string, bool) {
	if period != "" && (h < 1 || h > 12) {
		return 0, "", false
	}
	switch {
	case period == "pm" && h != 12:
		h += 12
	case period == "am" && h == 12:
		h = 0
	}
	if h > 23 || minute > 59 {
		return 0, "", false
	}
	return n, fmt.Sprintf("%02d:%02d", h, minute), true
}

// dateAt recognizes relative days, weekday names, "12/25",
// "12-25-2025" and "December 25[, 2025]".
func (p *parser) dateAt(i int) (int, time.Time, bool) {
	w := p.word(i)
	switch w {
	case "today":
		return 1, p.today, true
	case "tomorrow":
		return 1, timeutil.AddDays(p.today, 1), true
	case "next":
		next := p.word(i + 1)
		switch next {
		case "week":
			return 2, timeutil.AddDays(p.today, 7), true
		case "month":
			return 2, p.today.AddDate(0, 1, 0), true
		}
		if wd, ok := weekdays[next]; ok {
			return 2, timeutil.AddDays(p.today, daysUntil(p.today, wd)+7), true
		}
	}
	if wd, ok := weekdays[w]; ok {
		return 1, timeutil.AddDays(p.today, daysUntil(p.today, wd)), true
	}
	if m := numericDate.FindStringSubmatch(w); m != nil {
		mo, _ := strconv.Atoi(m[1])
		d, _ := strconv.Atoi(m[2])
		year := p.today.Year()
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
		}
		if t, ok := civil(year, time.Month(mo), d); ok {
			return 1, t, true
		}
	}
	if mo, ok := months[w]; ok {
		dw := p.word(i + 1)
		if !bareNumber.MatchString(dw) {
			return 0, time.Time{}, false
		}
		d, _ := strconv.Atoi(dw)
		n, year := 2, p.today.Year()
		if yw := p.word(i + 2); yearNumber.MatchString(yw) {
			year, _ = strconv.Atoi(yw)
			n = 3
		}
		if t, ok := civil(year, mo, d); ok {
			return n, t, true
		}
	}
	return 0, time.Time{}, false
}

// daysUntil returns the days from today to the next wd, never 0.
func daysUntil(today time.Time, wd time.Weekday) int {
	n := int(wd) - int(today.Weekday())
	if n <= 0 {
		n += 7
	}
	return n
}

// civil builds a date, rejecting values time.Date would
// normalize (such as February 30).
func civil(year int, mo time.Month, d int) (time.Time, bool) {
	t := time.Date(year, mo, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func (p *parser) title() string {
	var words []string
	for i, t := range p.toks {
		if !p.used[i] {
			words = append(words, strings.Trim(t, ","))
		}
	}
	return strings.Join(strings.Fields(strings.Join(words, " ")), " ")
}

func (p *parser) addTag(tag string) {
	if !slices.Contains(p.res.Tags, tag) {
		p.res.Tags = append(p.res.Tags, tag)
	}
}

func (p *parser) categorize() {
	words := strings.Fields(strings.ToLower(p.res.Title))
	for _, c := range categories {
		for _, kw := range c.keywords {
			if slices.ContainsFunc(words, func(w string) bool {
				return strings.HasPrefix(w, kw)
			}) {
				p.addTag(c.tag)
				break
			}
		}
	}
}
