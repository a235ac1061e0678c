package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan/internal/model"
)

func TestOccurrencesAgreeWithOccursOn(t *testing.T) {
	until := day(2026, 2, 10)
	cases := map[string]model.Entry{
		"one-off":          reminder(at(2025, 4, 15, 9, 0), nil),
		"daily":            reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqDaily, nil, nil)),
		"daily until":      reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqDaily, nil, &until)),
		"weekly anchor":    reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqWeekly, nil, nil)),
		"weekly mwf":       reminder(at(2025, 4, 16, 7, 30), model.NewRule(model.FreqWeekly, []time.Weekday{1, 3, 5}, &until)),
		"weekly off-day":   reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqWeekly, []time.Weekday{time.Sunday}, nil)),
		"monthly 15th":     reminder(at(2025, 1, 15, 12, 0), model.NewRule(model.FreqMonthly, nil, nil)),
		"monthly 31st":     reminder(at(2025, 1, 31, 12, 0), model.NewRule(model.FreqMonthly, nil, &until)),
		"unknown freq":     reminder(at(2025, 4, 15, 9, 0), &model.Rule{Freq: "hourly"}),
		"midnight anchor":  reminder(at(2025, 4, 15, 0, 0), model.NewRule(model.FreqDaily, nil, &until)),
		"late-night daily": reminder(at(2025, 4, 15, 23, 59), model.NewRule(model.FreqDaily, nil, nil)),
	}

	from, to := day(2025, 1, 1), day(2026, 12, 31)
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			times, truncated := Occurrences(e, from, to, 0)
			require.False(t, truncated)

			got := make(map[string]bool, len(times))
			for _, tm := range times {
				assert.Equal(t, e.Date.Hour(), tm.Hour(), "occurrences keep the anchor time-of-day")
				assert.Equal(t, e.Date.Minute(), tm.Minute())
				got[tm.Format("2006-01-02")] = true
			}

			eachDay(from, to, func(d time.Time) {
				key := d.Format("2006-01-02")
				assert.Equal(t, OccursOn(e, d), got[key], key)
			})
		})
	}
}

func TestOccurrencesRespectsWindow(t *testing.T) {
	e := reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqDaily, nil, nil))

	times, _ := Occurrences(e, day(2025, 5, 1), day(2025, 5, 3), 0)
	require.Len(t, times, 3)
	assert.Equal(t, at(2025, 5, 1, 9, 0), times[0])
	assert.Equal(t, at(2025, 5, 3, 9, 0), times[2])

	task := model.NewTask("u1", "t", at(2025, 4, 15, 9, 0))
	times, _ = Occurrences(task, day(2025, 5, 1), day(2025, 5, 3), 0)
	assert.Empty(t, times)
}

func TestExpandCapsRunawayRules(t *testing.T) {
	e := reminder(at(2025, 1, 1, 9, 0), model.NewRule(model.FreqDaily, nil, nil))

	res, err := Expand([]model.Entry{e}, ExpandConfig{
		From:                   day(2025, 1, 1),
		To:                     day(2025, 12, 31),
		MaxOccurrencesPerEntry: 10,
	})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 10)
	assert.Equal(t, []string{"reminder:r1"}, res.Truncated)
	assert.Equal(t, "20250101T090000", res.Occurrences[0].InstanceKey)
}

func TestExpandSkipsMalformedAndRejectsInvertedWindow(t *testing.T) {
	bad := model.NewNote("u1", "broken", time.Time{})
	good := model.NewNote("u1", "ok", at(2025, 4, 15, 9, 0))
	good.ID = "n1"

	res, err := Expand([]model.Entry{bad, good}, ExpandConfig{From: day(2025, 4, 1), To: day(2025, 4, 30)})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, "n1", res.Occurrences[0].EntryID)
	assert.Equal(t, model.TypeNote, res.Occurrences[0].Type)

	_, err = Expand(nil, ExpandConfig{From: day(2025, 4, 30), To: day(2025, 4, 1)})
	assert.Error(t, err)
}

func TestExpandOrdersByStart(t *testing.T) {
	daily := reminder(at(2025, 4, 14, 18, 0), model.NewRule(model.FreqDaily, nil, nil))
	note := model.NewNote("u1", "trip", at(2025, 4, 15, 7, 0))
	note.ID = "n1"

	res, err := Expand([]model.Entry{daily, note}, ExpandConfig{From: day(2025, 4, 14), To: day(2025, 4, 15)})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)
	assert.Equal(t, at(2025, 4, 14, 18, 0), res.Occurrences[0].Start)
	assert.Equal(t, "n1", res.Occurrences[1].EntryID)
	assert.Equal(t, at(2025, 4, 15, 18, 0), res.Occurrences[2].Start)
}

func TestRRule(t *testing.T) {
	until := day(2025, 5, 6)
	tests := []struct {
		name string
		e    model.Entry
		want string
	}{
		{"one-off", reminder(at(2025, 4, 15, 9, 0), nil), ""},
		{"daily", reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqDaily, nil, nil)), "FREQ=DAILY"},
		{"weekly days", reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqWeekly, []time.Weekday{5, 2, 2}, &until)), "FREQ=WEEKLY;BYDAY=TU,FR;UNTIL=20250506T235959"},
		{"weekly anchor", reminder(at(2025, 4, 15, 9, 0), model.NewRule(model.FreqWeekly, nil, nil)), "FREQ=WEEKLY;BYDAY=TU"},
		{"monthly", reminder(at(2025, 1, 31, 9, 0), model.NewRule(model.FreqMonthly, nil, nil)), "FREQ=MONTHLY;BYMONTHDAY=31"},
		{"unknown", reminder(at(2025, 4, 15, 9, 0), &model.Rule{Freq: "yearly"}), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RRule(tt.e))
		})
	}
}
