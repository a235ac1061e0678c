package calendar

import (
	"time"

	"dayplan/internal/model"
)

// maxCellTypes is how many type markers a cell shows.
const maxCellTypes = 3

// Range returns the first and last day (both at midnight) rendered for p.
//
// A week range is the seven days of the week containing the anchor. A month
// range always covers whole weeks: from the start of the week holding the
// 1st to the end of the week holding the last day of the month.
func Range(p model.Period, weekStart time.Weekday) (start, end time.Time) {
	anchor := model.DayOf(p.Anchor)

	if p.Kind == model.PeriodWeek {
		start = startOfWeek(anchor, weekStart)
		return start, start.AddDate(0, 0, 6)
	}

	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	last := first.AddDate(0, 1, -1)
	return startOfWeek(first, weekStart), startOfWeek(last, weekStart).AddDate(0, 0, 6)
}

// BuildGrid returns one cell per day of p's range. It is deterministic and
// keeps no state between calls.
func BuildGrid(p model.Period, all []model.Entry, selected, today time.Time, weekStart time.Weekday) []model.CalendarCell {
	start, end := Range(p, weekStart)

	cells := make([]model.CalendarCell, 0, 42)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := EntriesOnDay(all, d)
		cells = append(cells, model.CalendarCell{
			Date:            d,
			InCurrentPeriod: inPeriod(p, d),
			IsToday:         model.SameDay(d, today),
			IsSelected:      model.SameDay(d, selected),
			Types:           distinctTypes(day, maxCellTypes),
			HasEntries:      len(day) > 0,
		})
	}
	return cells
}

func startOfWeek(d time.Time, weekStart time.Weekday) time.Time {
	offset := (int(d.Weekday()) - int(weekStart) + 7) % 7
	return model.DayOf(d).AddDate(0, 0, -offset)
}

func inPeriod(p model.Period, d time.Time) bool {
	if p.Kind == model.PeriodWeek {
		return true
	}
	return d.Year() == p.Anchor.Year() && d.Month() == p.Anchor.Month()
}

// distinctTypes returns the first n distinct types of entries in encounter
// order.
func distinctTypes(entries []model.Entry, n int) []model.Type {
	out := make([]model.Type, 0, n)
	for _, e := range entries {
		if len(out) == n {
			break
		}
		seen := false
		for _, t := range out {
			if t == e.Type {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, e.Type)
		}
	}
	return out
}
