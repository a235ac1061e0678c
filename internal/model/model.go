package model

import (
	"fmt"
	"sort"
	"time"
)

// Type identifies which store an entry belongs to. It is fixed at creation.
type Type string

const (
	TypeTask     Type = "task"
	TypeReminder Type = "reminder"
	TypeNote     Type = "note"
)

// Types lists every entry type in merge order.
var Types = []Type{TypeReminder, TypeTask, TypeNote}

// ParseType validates s as an entry type.
func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeTask, TypeReminder, TypeNote:
		return t, nil
	default:
		return "", fmt.Errorf("unknown entry type %q", s)
	}
}

type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Frequency is a reminder's repeat cadence. Values outside the known set are
// kept as-is so that the evaluator can fall back to single-occurrence
// semantics instead of losing the entry.
type Frequency string

const (
	FreqNone    Frequency = "none"
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Rule is the recurrence attached to a reminder.
type Rule struct {
	Freq Frequency
	// Days restricts weekly recurrence. Empty means "the anchor's weekday".
	Days []time.Weekday
	// Until is the inclusive last calendar day, time-of-day ignored.
	Until *time.Time
}

// NewRule builds a rule, returning nil for an empty or "none" frequency.
// Days are de-duplicated and sorted.
func NewRule(freq Frequency, days []time.Weekday, until *time.Time) *Rule {
	if freq == "" || freq == FreqNone {
		return nil
	}
	r := &Rule{Freq: freq, Until: until}
	if freq == FreqWeekly && len(days) > 0 {
		seen := make(map[time.Weekday]bool, len(days))
		for _, d := range days {
			if d < time.Sunday || d > time.Saturday || seen[d] {
				continue
			}
			seen[d] = true
			r.Days = append(r.Days, d)
		}
		sort.Slice(r.Days, func(i, j int) bool { return r.Days[i] < r.Days[j] })
	}
	return r
}

// Entry is a task, reminder or note.
//
// Rule is the recurrence variant: nil for one-off entries, set only for
// reminders that repeat. Tasks and notes never carry a rule.
type Entry struct {
	ID      string
	OwnerID string
	Type    Type

	Title       string
	Description string

	// Date is the single occurrence for tasks and notes, and the anchor for
	// reminders. A zero Date means the stored value could not be parsed.
	Date time.Time

	Completed *bool
	Priority  Priority
	Tags      []string

	// Time is a display-only "HH:MM" for reminders; Date's time-of-day is
	// what scheduling uses.
	Time string

	Rule *Rule

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTask returns a one-off task.
func NewTask(owner, title string, date time.Time) Entry {
	done := false
	return Entry{OwnerID: owner, Type: TypeTask, Title: title, Date: date, Completed: &done}
}

// NewNote returns a one-off note.
func NewNote(owner, title string, date time.Time) Entry {
	return Entry{OwnerID: owner, Type: TypeNote, Title: title, Date: date}
}

// NewReminder returns a reminder anchored at date. A nil rule makes it
// one-off.
func NewReminder(owner, title string, date time.Time, rule *Rule) Entry {
	return Entry{
		OwnerID: owner,
		Type:    TypeReminder,
		Title:   title,
		Date:    date,
		Time:    date.Format("15:04"),
		Rule:    rule,
	}
}

// Recurring reports whether e is a reminder with an active rule.
func (e Entry) Recurring() bool {
	return e.Type == TypeReminder && e.Rule != nil && e.Rule.Freq != FreqNone
}

// Malformed reports whether e's date failed to parse.
func (e Entry) Malformed() bool {
	return e.Date.IsZero()
}

// Key is the (type, id) merge key.
func (e Entry) Key() string {
	return string(e.Type) + ":" + e.ID
}

// Done reports whether a task is completed.
func (e Entry) Done() bool {
	return e.Type == TypeTask && e.Completed != nil && *e.Completed
}

// Validate checks the fields a store needs before persisting.
func (e Entry) Validate() error {
	if _, err := ParseType(string(e.Type)); err != nil {
		return err
	}
	if e.OwnerID == "" {
		return fmt.Errorf("entry owner is empty")
	}
	if e.Title == "" {
		return fmt.Errorf("entry title is empty")
	}
	if e.Date.IsZero() {
		return fmt.Errorf("entry date is empty")
	}
	switch e.Priority {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("unknown priority %q", e.Priority)
	}
	if e.Rule != nil && e.Type != TypeReminder {
		return fmt.Errorf("%s entries cannot repeat", e.Type)
	}
	return nil
}

// DayOf truncates t to midnight of its calendar day, keeping its location.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar days, ignoring time-of-day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayBefore reports whether a's calendar day is strictly before b's.
func DayBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

// PeriodKind is the visible range type.
type PeriodKind string

const (
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
)

// ParsePeriodKind validates s, defaulting an empty string to month.
func ParsePeriodKind(s string) (PeriodKind, error) {
	switch k := PeriodKind(s); k {
	case PeriodWeek, PeriodMonth:
		return k, nil
	case "":
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown period kind %q", s)
	}
}

// Period is a visible range: the week or month containing Anchor.
type Period struct {
	Kind   PeriodKind
	Anchor time.Time
}

// CalendarCell is one rendered day of a grid.
type CalendarCell struct {
	Date            time.Time `json:"date"`
	InCurrentPeriod bool      `json:"in_current_period"`
	IsToday         bool      `json:"is_today"`
	IsSelected      bool      `json:"is_selected"`
	// Types holds up to three distinct entry types in encounter order.
	Types      []Type `json:"types"`
	HasEntries bool   `json:"has_entries"`
}

// Occurrence is one concrete instance of an entry after recurrence
// expansion.
type Occurrence struct {
	EntryID string `json:"entry_id"`
	Type    Type   `json:"type"`
	Title   string `json:"title"`

	// InstanceKey identifies one occurrence of a recurring entry, derived
	// from its start.
	InstanceKey string `json:"instance_key"`

	Start time.Time `json:"start"`
}
