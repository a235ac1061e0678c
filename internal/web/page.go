package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"dayplan/internal/calendar"
	"dayplan/internal/model"
)

//go:embed templates/calendar.html
var templateFS embed.FS

var calendarTmpl = template.Must(template.ParseFS(templateFS, "templates/calendar.html"))

type pageCell struct {
	model.CalendarCell
	Day  int
	Link string
}

type pageEntry struct {
	Type  model.Type
	Title string
	Time  string
	Done  bool
}

type calendarPage struct {
	Owner    string
	Title    string
	Kind     model.PeriodKind
	Weekdays []string
	Weeks    [][]pageCell
	Selected string
	Day      []pageEntry

	PrevLink  string
	NextLink  string
	TodayLink string
	WeekLink  string
	MonthLink string
}

// GET /calendar?owner=&kind=&anchor=&selected=&pick=&step=&today=1
//
// Navigation state travels in the query string: each request restores a
// coordinator from anchor/selected, then applies today or pick (a clicked
// cell), then step. A bare selected never moves the period. The root element carries data-ready="true" once rendered,
// which the capture command waits for.
func (s *Server) handleCalendarPage(c echo.Context) error {
	nav, err := s.parseNavigation(c)
	if err != nil {
		return err
	}
	step, err := parseStep(c.QueryParam("step"))
	if err != nil {
		return err
	}

	owner := s.owner(c)
	all := s.entries(c.Request().Context(), owner)

	var pick time.Time
	if v := c.QueryParam("pick"); v != "" {
		if pick, err = parseDay(v, time.Time{}); err != nil {
			return err
		}
	}

	co := s.coordinator(nav)
	switch {
	case c.QueryParam("today") == "1":
		co.GoToToday(all)
	case !pick.IsZero():
		co.SelectDate(pick, all)
	}
	if step != 0 {
		co.StepPeriod(step, all)
	}
	v := co.Render(all)

	var buf bytes.Buffer
	if err := calendarTmpl.Execute(&buf, s.buildPage(owner, v)); err != nil {
		return err
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (s *Server) buildPage(owner string, v calendar.View) calendarPage {
	const layout = "2006-01-02"

	link := func(kind model.PeriodKind, anchor, selected time.Time, extra url.Values) string {
		q := url.Values{}
		q.Set("owner", owner)
		q.Set("kind", string(kind))
		q.Set("anchor", anchor.Format(layout))
		q.Set("selected", selected.Format(layout))
		for k, vs := range extra {
			q[k] = vs
		}
		return "/calendar?" + q.Encode()
	}

	p := calendarPage{
		Owner:    owner,
		Kind:     v.Period.Kind,
		Selected: v.Selected.Format("Monday, January 2"),
	}
	if v.Period.Kind == model.PeriodWeek {
		p.Title = v.RangeStart.Format("Jan 2") + " – " + v.RangeEnd.Format("Jan 2, 2006")
	} else {
		p.Title = v.Period.Anchor.Format("January 2006")
	}

	weekStart := s.cfg.FirstWeekday()
	for i := 0; i < 7; i++ {
		p.Weekdays = append(p.Weekdays, time.Weekday((int(weekStart)+i)%7).String()[:3])
	}

	var week []pageCell
	for _, cell := range v.Cells {
		week = append(week, pageCell{
			CalendarCell: cell,
			Day:          cell.Date.Day(),
			Link:         link(v.Period.Kind, v.Period.Anchor, v.Selected, url.Values{"pick": {cell.Date.Format(layout)}}),
		})
		if len(week) == 7 {
			p.Weeks = append(p.Weeks, week)
			week = nil
		}
	}

	for _, e := range calendar.SortByTimeOfDay(v.Day) {
		pe := pageEntry{Type: e.Type, Title: e.Title, Done: e.Done()}
		if e.Type == model.TypeReminder || e.Type == model.TypeTask {
			pe.Time = e.Date.Format("15:04")
		}
		p.Day = append(p.Day, pe)
	}

	anchor, sel := v.Period.Anchor, v.Selected
	p.PrevLink = link(v.Period.Kind, anchor, sel, url.Values{"step": {"-1"}})
	p.NextLink = link(v.Period.Kind, anchor, sel, url.Values{"step": {"1"}})
	p.TodayLink = link(v.Period.Kind, anchor, sel, url.Values{"today": {"1"}})
	p.WeekLink = link(model.PeriodWeek, sel, sel, nil)
	p.MonthLink = link(model.PeriodMonth, sel, sel, nil)
	return p
}
