package calendar

import (
	"fmt"
	"sort"

	"dayplan/internal/model"
)

// Tab is a day-list filter.
type Tab string

const (
	TabAll      Tab = "all"
	TabTask     Tab = "task"
	TabReminder Tab = "reminder"
	TabNote     Tab = "note"
	TabDone     Tab = "done"
	TabOpen     Tab = "open"
)

// ParseTab validates s, defaulting an empty string to TabAll.
func ParseTab(s string) (Tab, error) {
	switch t := Tab(s); t {
	case TabAll, TabTask, TabReminder, TabNote, TabDone, TabOpen:
		return t, nil
	case "":
		return TabAll, nil
	default:
		return "", fmt.Errorf("unknown tab %q", s)
	}
}

// Filter keeps the entries matching tab, preserving order. TabDone and
// TabOpen select completed and open tasks.
func Filter(entries []model.Entry, tab Tab) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if matches(e, tab) {
			out = append(out, e)
		}
	}
	return out
}

func matches(e model.Entry, tab Tab) bool {
	switch tab {
	case TabAll:
		return true
	case TabTask, TabReminder, TabNote:
		return string(e.Type) == string(tab)
	case TabDone:
		return e.Done()
	case TabOpen:
		return e.Type == model.TypeTask && !e.Done()
	}
	return false
}

// SortByTimeOfDay orders a copy of entries by the clock time of Date,
// keeping merge order for ties. Recurring reminders sort by their anchor's
// time, which is the time of every occurrence.
func SortByTimeOfDay(entries []model.Entry) []model.Entry {
	out := append([]model.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		return minuteOfDay(out[i]) < minuteOfDay(out[j])
	})
	return out
}

func minuteOfDay(e model.Entry) int {
	return e.Date.Hour()*60 + e.Date.Minute()
}
