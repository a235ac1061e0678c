package calendar

import (
	"time"

	"dayplan/internal/model"
)

// EntriesOnDay returns the entries of all that are active on date's calendar
// day, in input order. Recurring reminders go through OccursOn; every other
// entry matches only its own day. Entries whose date failed to parse are
// skipped silently; the store logs them once when decoding.
func EntriesOnDay(all []model.Entry, date time.Time) []model.Entry {
	out := make([]model.Entry, 0)
	for _, e := range all {
		if e.Malformed() {
			continue
		}
		if e.Recurring() {
			if OccursOn(e, date) {
				out = append(out, e)
			}
			continue
		}
		if model.SameDay(e.Date, date) {
			out = append(out, e)
		}
	}
	return out
}
