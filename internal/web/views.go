package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"dayplan/internal/calendar"
	"dayplan/internal/model"
	"dayplan/internal/store"
)

// maxOccurrenceWindow bounds /api/occurrences requests.
const maxOccurrenceWindow = 2 * 366 * 24 * time.Hour

type dayResponse struct {
	Date    string         `json:"date"`
	Tab     calendar.Tab   `json:"tab"`
	Entries []store.Record `json:"entries"`
}

// GET /api/day?owner=&date=YYYY-MM-DD&tab=&sort=time
//
// Entries keep merge order (reminders, tasks, notes) unless sort=time.
func (s *Server) handleDay(c echo.Context) error {
	date, err := parseDay(c.QueryParam("date"), s.now())
	if err != nil {
		return err
	}
	tab, err := calendar.ParseTab(c.QueryParam("tab"))
	if err != nil {
		return badRequest(err.Error())
	}

	all := s.entries(c.Request().Context(), s.owner(c))
	day := calendar.Filter(calendar.EntriesOnDay(all, date), tab)
	if c.QueryParam("sort") == "time" {
		day = calendar.SortByTimeOfDay(day)
	}

	return c.JSON(http.StatusOK, dayResponse{
		Date:    date.Format("2006-01-02"),
		Tab:     tab,
		Entries: records(day),
	})
}

type gridResponse struct {
	Kind       model.PeriodKind     `json:"kind"`
	Anchor     string               `json:"anchor"`
	Selected   string               `json:"selected"`
	Today      string               `json:"today"`
	RangeStart string               `json:"range_start"`
	RangeEnd   string               `json:"range_end"`
	Cells      []model.CalendarCell `json:"cells"`
	Day        []store.Record       `json:"day"`
}

// navigation is the coordinator state carried in query parameters.
type navigation struct {
	kind     model.PeriodKind
	anchor   time.Time
	selected time.Time
}

func (s *Server) parseNavigation(c echo.Context) (navigation, error) {
	var nav navigation
	kind, err := model.ParsePeriodKind(c.QueryParam("kind"))
	if err != nil {
		return nav, badRequest(err.Error())
	}
	nav.kind = kind

	today := s.now()
	if nav.selected, err = parseDay(c.QueryParam("selected"), today); err != nil {
		return nav, err
	}
	if nav.anchor, err = parseDay(c.QueryParam("anchor"), nav.selected); err != nil {
		return nav, err
	}
	return nav, nil
}

func (s *Server) coordinator(nav navigation) *calendar.Coordinator {
	co := calendar.NewCoordinator(nav.kind, s.cfg.FirstWeekday(), s.now)
	co.Restore(nav.selected, nav.anchor)
	return co
}

// GET /api/grid?owner=&kind=week|month&anchor=&selected=
func (s *Server) handleGrid(c echo.Context) error {
	nav, err := s.parseNavigation(c)
	if err != nil {
		return err
	}
	all := s.entries(c.Request().Context(), s.owner(c))
	v := s.coordinator(nav).Render(all)

	return c.JSON(http.StatusOK, gridResponse{
		Kind:       v.Period.Kind,
		Anchor:     v.Period.Anchor.Format("2006-01-02"),
		Selected:   v.Selected.Format("2006-01-02"),
		Today:      v.Today.Format("2006-01-02"),
		RangeStart: v.RangeStart.Format("2006-01-02"),
		RangeEnd:   v.RangeEnd.Format("2006-01-02"),
		Cells:      v.Cells,
		Day:        records(v.Day),
	})
}

type occurrencesResponse struct {
	From        string             `json:"from"`
	To          string             `json:"to"`
	Occurrences []model.Occurrence `json:"occurrences"`
	Truncated   []string           `json:"truncated,omitempty"`
}

// GET /api/occurrences?owner=&from=&to=
//
// from defaults to today and to to 30 days after from.
func (s *Server) handleOccurrences(c echo.Context) error {
	from, err := parseDay(c.QueryParam("from"), s.now())
	if err != nil {
		return err
	}
	to, err := parseDay(c.QueryParam("to"), from.AddDate(0, 0, 30))
	if err != nil {
		return err
	}
	if to.Sub(from) > maxOccurrenceWindow {
		return badRequest("window too large")
	}

	all := s.entries(c.Request().Context(), s.owner(c))
	res, err := calendar.Expand(all, calendar.ExpandConfig{From: from, To: to})
	if err != nil {
		return badRequest(err.Error())
	}

	return c.JSON(http.StatusOK, occurrencesResponse{
		From:        from.Format("2006-01-02"),
		To:          to.Format("2006-01-02"),
		Occurrences: res.Occurrences,
		Truncated:   res.Truncated,
	})
}

func parseStep(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest("invalid step " + v)
	}
	return n, nil
}
