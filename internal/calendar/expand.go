package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "dayplan/internal/log"
	"dayplan/internal/model"
)

const defaultMaxOccurrencesPerEntry = 5000

// ExpandConfig controls occurrence expansion.
type ExpandConfig struct {
	// From / To are the first and last calendar day of the window, both
	// inclusive. Time-of-day is ignored.
	From time.Time
	To   time.Time

	// MaxOccurrencesPerEntry caps runaway daily rules over long windows. If
	// zero, defaultMaxOccurrencesPerEntry is used.
	MaxOccurrencesPerEntry int
}

// ExpandResult holds the occurrences of every entry ordered by start (ties
// keep input order) and the keys of entries that hit the cap.
type ExpandResult struct {
	Occurrences []model.Occurrence
	Truncated   []string
}

// Expand lists concrete occurrences of entries within cfg's window.
// Malformed entries are skipped.
func Expand(entries []model.Entry, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if model.DayBefore(cfg.To, cfg.From) {
		return result, errors.New("expand: To is before From")
	}
	if cfg.MaxOccurrencesPerEntry <= 0 {
		cfg.MaxOccurrencesPerEntry = defaultMaxOccurrencesPerEntry
	}

	result.Occurrences = make([]model.Occurrence, 0)
	for _, e := range entries {
		if e.Malformed() {
			continue
		}
		times, hitCap := Occurrences(e, cfg.From, cfg.To, cfg.MaxOccurrencesPerEntry)
		for _, t := range times {
			result.Occurrences = append(result.Occurrences, model.Occurrence{
				EntryID:     e.ID,
				Type:        e.Type,
				Title:       e.Title,
				InstanceKey: t.Format("20060102T150405"),
				Start:       t,
			})
		}
		if hitCap {
			result.Truncated = append(result.Truncated, e.Key())
			appLog.Error("expand: truncated occurrences due to cap",
				errors.New("max occurrences reached"),
				"entry", e.Key(),
				"cap", cfg.MaxOccurrencesPerEntry,
			)
		}
	}
	sort.SliceStable(result.Occurrences, func(i, j int) bool {
		return result.Occurrences[i].Start.Before(result.Occurrences[j].Start)
	})
	return result, nil
}

// Occurrences returns the start instants of e between the calendar days
// from and to (inclusive), each at the anchor's time-of-day, and whether limit
// was hit. One-off entries and unknown frequencies yield at most the anchor.
func Occurrences(e model.Entry, from, to time.Time, limit int) ([]time.Time, bool) {
	loc := e.Date.Location()
	windowStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	windowEnd := endOfDay(to, loc)

	if !e.Recurring() || !supported(e.Rule.Freq) {
		if !e.Date.Before(windowStart) && !e.Date.After(windowEnd) {
			return []time.Time{e.Date}, false
		}
		return nil, false
	}

	r, err := rrule.NewRRule(ruleOption(e))
	if err != nil {
		appLog.Error("expand: failed to build rule", err, "entry", e.Key())
		return nil, false
	}

	times := r.Between(windowStart, windowEnd, true)
	if limit > 0 && len(times) > limit {
		return times[:limit], true
	}
	return times, false
}

// RRule renders e's rule as an RFC 5545 RRULE value with a floating UNTIL.
// It returns "" for one-off entries and for frequencies RRULE cannot
// express the same way.
func RRule(e model.Entry) string {
	if !e.Recurring() || !supported(e.Rule.Freq) {
		return ""
	}
	r := e.Rule

	parts := []string{"FREQ=" + strings.ToUpper(string(r.Freq))}
	switch r.Freq {
	case model.FreqWeekly:
		days := r.Days
		if len(days) == 0 {
			days = []time.Weekday{e.Date.Weekday()}
		}
		codes := make([]string, 0, len(days))
		for _, d := range days {
			codes = append(codes, weekdayCodes[d])
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	case model.FreqMonthly:
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", e.Date.Day()))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+endOfDay(*r.Until, e.Date.Location()).Format("20060102T150405"))
	}
	return strings.Join(parts, ";")
}

var weekdayCodes = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

func supported(f model.Frequency) bool {
	return f == model.FreqDaily || f == model.FreqWeekly || f == model.FreqMonthly
}

func ruleOption(e model.Entry) rrule.ROption {
	r := e.Rule
	opt := rrule.ROption{Dtstart: e.Date}

	switch r.Freq {
	case model.FreqDaily:
		opt.Freq = rrule.DAILY
	case model.FreqWeekly:
		opt.Freq = rrule.WEEKLY
		days := r.Days
		if len(days) == 0 {
			days = []time.Weekday{e.Date.Weekday()}
		}
		for _, d := range days {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case model.FreqMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{e.Date.Day()}
	}

	if r.Until != nil {
		opt.Until = endOfDay(*r.Until, e.Date.Location())
	}
	return opt
}

func endOfDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, loc)
}
