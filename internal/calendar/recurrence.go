// Package calendar decides which entries are active on a given day and
// builds the week/month grids shown to the user.
package calendar

import (
	"fmt"
	"time"

	"dayplan/internal/model"
)

// OccursOn reports whether reminder e is active on date's calendar day.
//
// Rules, in order:
//   - no rule: only the anchor day matches
//   - days before the anchor never match
//   - days after Rule.Until never match (compared by calendar day)
//   - daily matches every remaining day
//   - weekly matches Rule.Days, or the anchor's weekday when Days is empty
//   - monthly matches the anchor's day-of-month; months without that day
//     have no occurrence
//   - any other frequency matches only the anchor day
//
// OccursOn panics if e is not a reminder.
func OccursOn(e model.Entry, date time.Time) bool {
	if e.Type != model.TypeReminder {
		panic(fmt.Sprintf("calendar: OccursOn called on %s entry %q", e.Type, e.ID))
	}

	r := e.Rule
	if r == nil || r.Freq == model.FreqNone || r.Freq == "" {
		return model.SameDay(date, e.Date)
	}
	if model.DayBefore(date, e.Date) {
		return false
	}
	if r.Until != nil && model.DayBefore(*r.Until, date) {
		return false
	}

	switch r.Freq {
	case model.FreqDaily:
		return true
	case model.FreqWeekly:
		if len(r.Days) > 0 {
			return hasWeekday(r.Days, date.Weekday())
		}
		return date.Weekday() == e.Date.Weekday()
	case model.FreqMonthly:
		return date.Day() == e.Date.Day()
	default:
		return model.SameDay(date, e.Date)
	}
}

func hasWeekday(days []time.Weekday, wd time.Weekday) bool {
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}
