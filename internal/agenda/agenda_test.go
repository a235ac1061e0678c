package agenda

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"dayplan/internal/model"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func TestWriteWeekAgenda(t *testing.T) {
	standup := model.NewReminder("u1", "Standup", at(2025, 4, 1, 9, 0),
		model.NewRule(model.FreqWeekly, []time.Weekday{time.Tuesday, time.Thursday}, nil))
	standup.ID = "r1"
	task := model.NewTask("u1", "Ship release", at(2025, 4, 15, 8, 0))
	task.ID = "t1"
	task.Tags = []string{"work", "q2"}
	note := model.NewNote("u1", "Bad row", time.Time{})
	note.ID = "n1"

	p := model.Period{Kind: model.PeriodWeek, Anchor: at(2025, 4, 15, 0, 0)}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p, []model.Entry{standup, task, note}, time.Monday))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Weekday", "Type", "Time", "Title", "Status", "Priority", "Tags", "Repeats"}, rows[0])
	// 7 days, two of which have two rows (Tue: task + standup, Thu: standup).
	require.Len(t, rows, 1+7+1)

	assert.Equal(t, []string{"2025-04-14", "Monday"}, rows[1])

	tue := rows[2:4]
	assert.Equal(t, "Ship release", tue[0][4], "earlier time first")
	assert.Equal(t, "open", tue[0][5])
	assert.Equal(t, "work, q2", tue[0][7])
	assert.Equal(t, "Standup", tue[1][4])
	assert.Equal(t, "09:00", tue[1][3])
	assert.Equal(t, "weekly", tue[1][8])

	assert.Equal(t, "2025-04-17", rows[5][0])
	assert.Equal(t, "Standup", rows[5][4])
	assert.Equal(t, "2025-04-20", rows[8][0])
}
