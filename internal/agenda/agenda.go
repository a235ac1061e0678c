// Package agenda writes a period's entries as an xlsx spreadsheet, one row
// per entry per visible day.
package agenda

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"dayplan/internal/calendar"
	"dayplan/internal/model"
)

const sheetName = "Agenda"

type column struct {
	header string
	width  float64
}

var columns = []column{
	{"Date", 12},
	{"Weekday", 11},
	{"Type", 10},
	{"Time", 8},
	{"Title", 40},
	{"Status", 10},
	{"Priority", 10},
	{"Tags", 24},
	{"Repeats", 12},
}

// Write renders every day in the visible range of p with the entries active
// on it. Days without entries get a single row carrying only the date.
func Write(w io.Writer, p model.Period, all []model.Entry, weekStart time.Weekday) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = excelize.Cell{StyleID: bold, Value: col.header}
		if err := sw.SetColWidth(i+1, i+1, col.width); err != nil {
			return err
		}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := 2
	start, end := calendar.Range(p, weekStart)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, values := range dayRows(d, all) {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := sw.SetRow(cell, values); err != nil {
				return err
			}
			row++
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush agenda: %w", err)
	}
	return f.Write(w)
}

func dayRows(d time.Time, all []model.Entry) [][]interface{} {
	date := d.Format("2006-01-02")
	weekday := d.Weekday().String()

	entries := calendar.SortByTimeOfDay(calendar.EntriesOnDay(all, d))
	if len(entries) == 0 {
		return [][]interface{}{{date, weekday}}
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{
			date,
			weekday,
			string(e.Type),
			e.Date.Format("15:04"),
			e.Title,
			status(e),
			string(e.Priority),
			strings.Join(e.Tags, ", "),
			repeats(e),
		})
	}
	return rows
}

func status(e model.Entry) string {
	if e.Type != model.TypeTask {
		return ""
	}
	if e.Done() {
		return "done"
	}
	return "open"
}

func repeats(e model.Entry) string {
	if !e.Recurring() {
		return ""
	}
	return string(e.Rule.Freq)
}
