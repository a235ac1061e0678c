package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

// ParseEntries converts every VEVENT in body into an entry owned by owner.
//
//   - UID becomes the entry ID so re-importing updates instead of
//     duplicating.
//   - X-DAYPLAN-TYPE selects the entry type; without it, events with an
//     RRULE become reminders and the rest notes.
//   - RRULE FREQ/BYDAY/UNTIL map onto the reminder rule. Other frequencies
//     are kept verbatim and therefore occur only on their anchor day.
//   - RECURRENCE-ID overrides are skipped and EXDATEs ignored: single
//     occurrence exceptions are not modelled.
//
// A VEVENT that cannot be converted is logged and skipped.
func ParseEntries(owner string, body []byte) ([]model.Entry, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	entries := make([]model.Entry, 0)
	for _, ve := range cal.Events() {
		e, perr := parseVEvent(owner, ve)
		if perr != nil {
			appLog.Error("ics vevent skipped", perr, "owner", owner)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseVEvent(owner string, ve *ical.VEvent) (model.Entry, error) {
	e := model.Entry{OwnerID: owner}

	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return e, errors.New("missing UID")
	}
	e.ID = uid

	if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
		return e, errors.New("recurrence override not supported")
	}

	e.Title = unescapeText(propValue(ve, ical.ComponentPropertySummary))
	if e.Title == "" {
		e.Title = "(untitled)"
	}
	e.Description = unescapeText(propValue(ve, ical.ComponentPropertyDescription))

	start := propValue(ve, ical.ComponentPropertyDtStart)
	date, err := parseICSTime(start)
	if err != nil {
		return e, err
	}
	e.Date = date

	rawRule := propValue(ve, ical.ComponentPropertyRrule)

	switch t := model.Type(strings.ToLower(propValue(ve, propType))); t {
	case model.TypeTask, model.TypeReminder, model.TypeNote:
		e.Type = t
	default:
		if rawRule != "" {
			e.Type = model.TypeReminder
		} else {
			e.Type = model.TypeNote
		}
	}

	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		for _, c := range strings.Split(cats, ",") {
			if c = strings.TrimSpace(unescapeText(c)); c != "" {
				e.Tags = append(e.Tags, c)
			}
		}
	}
	e.Priority = priorityFromValue(propValue(ve, ical.ComponentPropertyPriority))

	switch e.Type {
	case model.TypeTask:
		done := strings.EqualFold(propValue(ve, ical.ComponentPropertyStatus), "COMPLETED")
		e.Completed = &done
	case model.TypeReminder:
		e.Time = propValue(ve, propTime)
		if e.Time == "" {
			e.Time = e.Date.Format("15:04")
		}
		if rawRule != "" {
			e.Rule = parseRule(rawRule)
		}
	}

	return e, nil
}

// parseRule maps an RRULE value onto a reminder rule.
func parseRule(raw string) *model.Rule {
	freq := model.FreqNone
	for _, part := range strings.Split(raw, ";") {
		k, v, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "FREQ") {
			freq = model.Frequency(strings.ToLower(strings.TrimSpace(v)))
		}
	}
	if freq == model.FreqNone {
		return nil
	}

	opt, err := rrule.StrToROption(raw)
	if err != nil {
		appLog.Error("ics rrule parse failed; keeping frequency only", err, "rrule", raw)
		return model.NewRule(freq, nil, nil)
	}

	var days []time.Weekday
	for _, wd := range opt.Byweekday {
		// rrule-go numbers weekdays from Monday = 0.
		days = append(days, time.Weekday((wd.Day()+1)%7))
	}

	var until *time.Time
	if !opt.Until.IsZero() {
		u := time.Date(opt.Until.Year(), opt.Until.Month(), opt.Until.Day(), 0, 0, 0, 0, time.Local)
		until = &u
	}
	return model.NewRule(freq, days, until)
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	prop := ve.GetProperty(p)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(prop.Value)
}

// parseICSTime parses DATE, floating DATE-TIME and UTC DATE-TIME values into
// a naive local time. UTC values keep their wall clock.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty DTSTART")
	}

	if strings.HasSuffix(v, "Z") {
		t, err := time.Parse("20060102T150405Z", v)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local), nil
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation(floatingLayout, v, time.Local)
	}
	return time.ParseInLocation("20060102", v, time.Local)
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}
