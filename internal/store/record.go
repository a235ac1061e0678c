package store

import (
	"errors"
	"strconv"
	"strings"
	"time"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// DateLayout is how dates are persisted and serialized: naive local time,
// no zone.
const DateLayout = "2006-01-02T15:04:05"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Record is the persisted and wire shape of an entry. Field names follow
// the storage columns (repeat_type, repeat_days, repeat_until); conversion
// to and from model.Entry happens only here.
type Record struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"owner_id"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Date        string   `json:"date"`
	Completed   *bool    `json:"completed,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	Tags        []string `json:"tags"`
	Time        string   `json:"time,omitempty"`
	RepeatType  string   `json:"repeat_type,omitempty"`
	RepeatDays  []int    `json:"repeat_days,omitempty"`
	RepeatUntil string   `json:"repeat_until,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// FromEntry converts e to its record form.
func FromEntry(e model.Entry) Record {
	r := Record{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Type:        string(e.Type),
		Title:       e.Title,
		Description: e.Description,
		Date:        formatDate(e.Date),
		Priority:    string(e.Priority),
		Tags:        append([]string{}, e.Tags...),
		Time:        e.Time,
		RepeatType:  string(model.FreqNone),
		CreatedAt:   formatDate(e.CreatedAt),
		UpdatedAt:   formatDate(e.UpdatedAt),
	}
	if e.Type == model.TypeTask && e.Completed != nil {
		done := *e.Completed
		r.Completed = &done
	}
	if e.Type == model.TypeReminder && e.Rule != nil {
		r.RepeatType = string(e.Rule.Freq)
		for _, d := range e.Rule.Days {
			r.RepeatDays = append(r.RepeatDays, int(d))
		}
		if e.Rule.Until != nil {
			r.RepeatUntil = formatDate(*e.Rule.Until)
		}
	}
	return r
}

// Entry converts r to a model.Entry. An unparsable date yields a zero Date
// so the calendar skips the entry; an unparsable repeat_until is dropped.
// Both are logged rather than returned: one bad row must not fail a list.
func (r Record) Entry() model.Entry {
	e := model.Entry{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Type:        model.Type(r.Type),
		Title:       r.Title,
		Description: r.Description,
		Priority:    model.Priority(r.Priority),
		Tags:        append([]string{}, r.Tags...),
	}

	date, err := ParseDate(r.Date)
	if err != nil {
		appLog.Error("entry has malformed date", err, "type", r.Type, "id", r.ID, "date", r.Date)
	}
	e.Date = date
	e.CreatedAt, _ = ParseDate(r.CreatedAt)
	e.UpdatedAt, _ = ParseDate(r.UpdatedAt)

	switch e.Type {
	case model.TypeTask:
		done := r.Completed != nil && *r.Completed
		e.Completed = &done
	case model.TypeReminder:
		e.Time = r.Time
		e.Rule = r.rule()
	}
	return e
}

func (r Record) rule() *model.Rule {
	freq := model.Frequency(strings.ToLower(strings.TrimSpace(r.RepeatType)))

	days := make([]time.Weekday, 0, len(r.RepeatDays))
	for _, d := range r.RepeatDays {
		days = append(days, time.Weekday(d))
	}

	var until *time.Time
	if r.RepeatUntil != "" {
		u, err := ParseDate(r.RepeatUntil)
		if err != nil {
			appLog.Error("entry has malformed repeat_until; ignoring bound", err, "id", r.ID, "repeat_until", r.RepeatUntil)
		} else {
			until = &u
		}
	}
	return model.NewRule(freq, days, until)
}

// ParseDate parses a naive local date or date-time. Zoned RFC 3339 values
// keep their wall clock and drop the zone.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func encodeDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, d := range days {
		parts = append(parts, strconv.Itoa(d))
	}
	return strings.Join(parts, ",")
}

func decodeDays(s string) []int {
	if s == "" {
		return nil
	}
	out := make([]int, 0, 7)
	for _, part := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || d < 0 || d > 6 {
			continue
		}
		out = append(out, d)
	}
	return out
}
