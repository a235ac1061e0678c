package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRule(t *testing.T) {
	assert.Nil(t, NewRule(FreqNone, nil, nil))
	assert.Nil(t, NewRule("", nil, nil))

	r := NewRule(FreqWeekly, []time.Weekday{time.Friday, time.Monday, time.Friday, 9}, nil)
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, r.Days)

	r = NewRule(FreqDaily, []time.Weekday{time.Monday}, nil)
	assert.Empty(t, r.Days, "days only apply to weekly rules")
}

func TestEntryValidate(t *testing.T) {
	at := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)

	assert.NoError(t, NewTask("u1", "pay rent", at).Validate())
	assert.NoError(t, NewReminder("u1", "standup", at, NewRule(FreqDaily, nil, nil)).Validate())

	task := NewTask("u1", "t", at)
	task.Rule = NewRule(FreqDaily, nil, nil)
	assert.Error(t, task.Validate())

	assert.Error(t, NewNote("", "n", at).Validate())
	assert.Error(t, NewNote("u1", "", at).Validate())
	assert.Error(t, NewNote("u1", "n", time.Time{}).Validate())

	bad := NewNote("u1", "n", at)
	bad.Priority = "urgent"
	assert.Error(t, bad.Validate())
}

func TestEntryPredicates(t *testing.T) {
	at := time.Date(2025, 4, 15, 9, 0, 0, 0, time.UTC)

	r := NewReminder("u1", "r", at, nil)
	assert.False(t, r.Recurring())
	assert.Equal(t, "09:00", r.Time)

	r.Rule = NewRule(FreqMonthly, nil, nil)
	assert.True(t, r.Recurring())

	task := NewTask("u1", "t", at)
	assert.False(t, task.Done())
	done := true
	task.Completed = &done
	assert.True(t, task.Done())

	assert.True(t, NewNote("u1", "n", time.Time{}).Malformed())
	assert.Equal(t, "note:abc", Entry{ID: "abc", Type: TypeNote}.Key())
}

func TestDayComparisons(t *testing.T) {
	a := time.Date(2025, 4, 15, 23, 59, 0, 0, time.UTC)
	b := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	c := time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)

	assert.True(t, SameDay(a, b))
	assert.False(t, DayBefore(b, a))
	assert.True(t, DayBefore(a, c))
	assert.True(t, DayBefore(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), b))
	assert.Equal(t, b, DayOf(a))
}

func TestParsers(t *testing.T) {
	_, err := ParseType("event")
	assert.Error(t, err)

	typ, err := ParseType("note")
	assert.NoError(t, err)
	assert.Equal(t, TypeNote, typ)

	k, err := ParsePeriodKind("")
	assert.NoError(t, err)
	assert.Equal(t, PeriodMonth, k)

	_, err = ParsePeriodKind("year")
	assert.Error(t, err)
}
