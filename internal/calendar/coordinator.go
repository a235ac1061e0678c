package calendar

import (
	"time"

	"dayplan/internal/model"
)

// View is everything the presentation layer needs after a navigation step.
type View struct {
	Today      time.Time
	Selected   time.Time
	Period     model.Period
	RangeStart time.Time
	RangeEnd   time.Time
	Cells      []model.CalendarCell
	Day        []model.Entry
}

// Coordinator holds the selected date and visible period and recomputes the
// grid and day list on every operation. It keeps no derived state, so each
// call must be handed the current entry snapshot. Not safe for concurrent
// use.
type Coordinator struct {
	selected  time.Time
	period    model.Period
	weekStart time.Weekday
	now       func() time.Time
}

// NewCoordinator starts on today with the given period kind. A nil now uses
// time.Now.
func NewCoordinator(kind model.PeriodKind, weekStart time.Weekday, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	today := model.DayOf(now())
	return &Coordinator{
		selected:  today,
		period:    model.Period{Kind: kind, Anchor: today},
		weekStart: weekStart,
		now:       now,
	}
}

// Restore positions the coordinator on an explicit selection and anchor, as
// when a request carries its navigation state.
func (c *Coordinator) Restore(selected, anchor time.Time) {
	if !selected.IsZero() {
		c.selected = model.DayOf(selected)
	}
	if !anchor.IsZero() {
		c.period.Anchor = model.DayOf(anchor)
	}
}

// Selected returns the selected day.
func (c *Coordinator) Selected() time.Time { return c.selected }

// Period returns the visible period.
func (c *Coordinator) Period() model.Period { return c.period }

// SelectDate selects d. Picking a day outside the visible range (a padding
// day of the month grid, say) moves the period to it.
func (c *Coordinator) SelectDate(d time.Time, all []model.Entry) View {
	c.selected = model.DayOf(d)
	start, end := Range(c.period, c.weekStart)
	if c.selected.Before(start) || c.selected.After(end) || !inPeriod(c.period, c.selected) {
		c.period.Anchor = c.selected
	}
	return c.Render(all)
}

// GoToToday selects today and shows the period containing it.
func (c *Coordinator) GoToToday(all []model.Entry) View {
	today := model.DayOf(c.now())
	c.selected = today
	c.period.Anchor = today
	return c.Render(all)
}

// StepPeriod moves the visible period by delta weeks or months. Month steps
// go from the 1st so that Jan 31 + 1 lands in February.
func (c *Coordinator) StepPeriod(delta int, all []model.Entry) View {
	a := c.period.Anchor
	if c.period.Kind == model.PeriodWeek {
		c.period.Anchor = a.AddDate(0, 0, 7*delta)
	} else {
		first := time.Date(a.Year(), a.Month(), 1, 0, 0, 0, 0, a.Location())
		c.period.Anchor = first.AddDate(0, delta, 0)
	}
	return c.Render(all)
}

// SetPeriodKind switches between week and month. Switching to week shows the
// week containing the selected date.
func (c *Coordinator) SetPeriodKind(kind model.PeriodKind, all []model.Entry) View {
	c.period.Kind = kind
	if kind == model.PeriodWeek {
		c.period.Anchor = c.selected
	}
	return c.Render(all)
}

// Render computes the view for the current state.
func (c *Coordinator) Render(all []model.Entry) View {
	today := model.DayOf(c.now())
	start, end := Range(c.period, c.weekStart)
	return View{
		Today:      today,
		Selected:   c.selected,
		Period:     c.period,
		RangeStart: start,
		RangeEnd:   end,
		Cells:      BuildGrid(c.period, all, c.selected, today, c.weekStart),
		Day:        EntriesOnDay(all, c.selected),
	}
}
