// Package ics converts entries to and from iCalendar.
package ics

import (
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"dayplan/internal/calendar"
	"dayplan/internal/model"
)

const (
	productID = "-//dayplan//dayplan//EN"

	// Floating (zone-less) local date-time, matching the naive dates of
	// entries.
	floatingLayout = "20060102T150405"

	propType ical.ComponentProperty = "X-DAYPLAN-TYPE"
	propTime ical.ComponentProperty = "X-DAYPLAN-TIME"
)

// ExportOptions tunes Export.
type ExportOptions struct {
	// Name is written as X-WR-CALNAME when non-empty.
	Name string
	// Now stamps DTSTAMP; zero means time.Now.
	Now time.Time
}

// Export renders entries as a VCALENDAR with one VEVENT each. Recurring
// reminders carry an RRULE; malformed entries are skipped.
func Export(entries []model.Entry, opts ExportOptions) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	for _, e := range entries {
		if e.Malformed() || e.ID == "" {
			continue
		}
		ev := cal.AddEvent(e.ID)
		ev.SetDtStampTime(opts.Now)
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		ev.SetProperty(ical.ComponentPropertyDtStart, e.Date.Format(floatingLayout))
		ev.SetProperty(propType, string(e.Type))

		if len(e.Tags) > 0 {
			ev.SetProperty(ical.ComponentPropertyCategories, strings.Join(e.Tags, ","))
		}
		if p := priorityValue(e.Priority); p != 0 {
			ev.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(p))
		}
		if e.Done() {
			ev.SetProperty(ical.ComponentPropertyStatus, "COMPLETED")
		}
		if e.Type == model.TypeReminder && e.Time != "" {
			ev.SetProperty(propTime, e.Time)
		}
		if rr := calendar.RRule(e); rr != "" {
			ev.SetProperty(ical.ComponentPropertyRrule, rr)
		}
	}

	return cal.Serialize()
}

// RFC 5545 priorities: 1 is highest, 9 lowest, 0 undefined.
func priorityValue(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 1
	case model.PriorityMedium:
		return 5
	case model.PriorityLow:
		return 9
	}
	return 0
}

func priorityFromValue(v string) model.Priority {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return model.PriorityNone
	}
	switch {
	case n <= 4:
		return model.PriorityHigh
	case n == 5:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
