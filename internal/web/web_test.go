package web

import (
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dayplan/internal/config"
	"dayplan/internal/model"
	"dayplan/internal/store"
)

type testServer struct {
	*Server
	db *store.Store
}

func newTestServer(t *testing.T, mutate func(*config.Config)) testServer {
	t.Helper()

	st, err := store.Open("sqlite3", filepath.Join(t.TempDir(), "dayplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultConfig()
	cfg.Owner = "u1"
	if mutate != nil {
		mutate(cfg)
	}

	s := NewServer(cfg, st, store.NewCache(st))
	s.now = func() time.Time { return time.Date(2025, 4, 16, 10, 0, 0, 0, time.Local) }
	return testServer{Server: s, db: st}
}

func (ts testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts testServer) seed(t *testing.T, entries ...model.Entry) []model.Entry {
	t.Helper()
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		require.NoError(t, ts.db.Create(context.Background(), &e))
		out = append(out, e)
	}
	return out
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func standup() model.Entry {
	until := at(2025, 5, 6, 0, 0)
	return model.NewReminder("u1", "Standup", at(2025, 4, 15, 9, 0),
		model.NewRule(model.FreqWeekly, []time.Weekday{time.Tuesday}, &until))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	})

	t.Run("health stays open", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "").Code)
	})

	t.Run("api requires credentials", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/entries", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		// echo v4.6 writes the scheme in lower case.
		assert.Contains(t, strings.ToLower(rec.Header().Get(echo.HeaderWWWAuthenticate)), `basic realm="dayplan"`)
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
		req.SetBasicAuth("me", "secret")
		rec := httptest.NewRecorder()
		ts.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/entries", nil)
		req.SetBasicAuth("me", "nope")
		rec := httptest.NewRecorder()
		ts.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestEntryCRUDInvalidatesCache(t *testing.T) {
	ts := newTestServer(t, nil)

	// Warm the cache with an empty day.
	day := decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-15", ""))
	assert.Empty(t, day.Entries)

	rec := ts.do(t, http.MethodPost, "/api/entries",
		`{"type":"reminder","title":"Standup","date":"2025-04-15T09:00:00","repeat_type":"weekly","repeat_days":[2],"repeat_until":"2025-05-06"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[store.Record](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.OwnerID)
	assert.Equal(t, "weekly", created.RepeatType)
	assert.Equal(t, []int{2}, created.RepeatDays)

	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-22", ""))
	require.Len(t, day.Entries, 1, "create must invalidate the cached snapshot")
	assert.Equal(t, "Standup", day.Entries[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/entries/reminder/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/entries/reminder/"+created.ID,
		`{"title":"Standup","date":"2025-04-15T09:00:00","repeat_type":"weekly","repeat_days":[4]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-22", ""))
	assert.Empty(t, day.Entries, "moved to Thursdays")
	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-24", ""))
	assert.Len(t, day.Entries, 1)

	rec = ts.do(t, http.MethodDelete, "/api/entries/reminder/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-24", ""))
	assert.Empty(t, day.Entries)
}

func TestEntryErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"missing entry", http.MethodGet, "/api/entries/task/nope", "", http.StatusNotFound},
		{"unknown type in path", http.MethodGet, "/api/entries/event/x", "", http.StatusBadRequest},
		{"unknown type in list", http.MethodGet, "/api/entries?type=event", "", http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/entries", `{"title":`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/entries", `{"type":"note","title":"x","date":"someday"}`, http.StatusBadRequest},
		{"missing title", http.MethodPost, "/api/entries", `{"type":"note","date":"2025-04-15"}`, http.StatusBadRequest},
		{"bad until", http.MethodPost, "/api/entries", `{"type":"reminder","title":"x","date":"2025-04-15","repeat_type":"daily","repeat_until":"soon"}`, http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/entries/note/nope", `{"title":"x","date":"2025-04-15"}`, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/entries/note/nope", "", http.StatusNotFound},
		{"bad day", http.MethodGet, "/api/day?date=04/15/2025", "", http.StatusBadRequest},
		{"bad tab", http.MethodGet, "/api/day?tab=later", "", http.StatusBadRequest},
		{"bad kind", http.MethodGet, "/api/grid?kind=year", "", http.StatusBadRequest},
		{"inverted window", http.MethodGet, "/api/occurrences?from=2025-05-01&to=2025-04-01", "", http.StatusBadRequest},
		{"huge window", http.MethodGet, "/api/occurrences?from=2025-01-01&to=2030-01-01", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}
}

func TestDayMergeOrderAndTabs(t *testing.T) {
	ts := newTestServer(t, nil)
	task := model.NewTask("u1", "Pay rent", at(2025, 4, 15, 8, 0))
	ts.seed(t,
		model.NewNote("u1", "Ideas", at(2025, 4, 15, 7, 0)),
		task,
		standup(),
		model.NewNote("u2", "Not mine", at(2025, 4, 15, 7, 0)),
	)

	titles := func(d dayResponse) []string {
		var out []string
		for _, r := range d.Entries {
			out = append(out, r.Title)
		}
		return out
	}

	day := decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-15", ""))
	assert.Equal(t, []string{"Standup", "Pay rent", "Ideas"}, titles(day))

	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-15&sort=time", ""))
	assert.Equal(t, []string{"Ideas", "Pay rent", "Standup"}, titles(day))

	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-15&tab=open", ""))
	assert.Equal(t, []string{"Pay rent"}, titles(day))

	day = decode[dayResponse](t, ts.do(t, http.MethodGet, "/api/day?date=2025-04-15&owner=u2", ""))
	assert.Equal(t, []string{"Not mine"}, titles(day))
}

func TestGrid(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, standup(), model.NewTask("u1", "Taxes", at(2025, 4, 30, 17, 0)))

	grid := decode[gridResponse](t, ts.do(t, http.MethodGet, "/api/grid?kind=month&anchor=2025-04-01&selected=2025-04-22", ""))
	assert.Equal(t, model.PeriodMonth, grid.Kind)
	assert.Equal(t, "2025-03-31", grid.RangeStart)
	assert.Equal(t, "2025-05-04", grid.RangeEnd)
	assert.Equal(t, "2025-04-16", grid.Today)
	require.Len(t, grid.Cells, 35)

	marked := map[string][]model.Type{}
	for _, c := range grid.Cells {
		if c.HasEntries {
			marked[c.Date.Format("2006-01-02")] = c.Types
		}
	}
	assert.Equal(t, map[string][]model.Type{
		"2025-04-15": {model.TypeReminder},
		"2025-04-22": {model.TypeReminder},
		"2025-04-29": {model.TypeReminder},
		"2025-04-30": {model.TypeTask},
	}, marked)
	require.Len(t, grid.Day, 1)
	assert.Equal(t, "Standup", grid.Day[0].Title)

	week := decode[gridResponse](t, ts.do(t, http.MethodGet, "/api/grid?kind=week&selected=2025-04-22", ""))
	assert.Equal(t, "2025-04-21", week.RangeStart)
	assert.Len(t, week.Cells, 7)
}

func TestOccurrences(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, standup())

	resp := decode[occurrencesResponse](t, ts.do(t, http.MethodGet, "/api/occurrences?from=2025-04-01&to=2025-05-31", ""))
	var days []string
	for _, o := range resp.Occurrences {
		days = append(days, o.Start.Format("2006-01-02 15:04"))
	}
	assert.Equal(t, []string{"2025-04-15 09:00", "2025-04-22 09:00", "2025-04-29 09:00", "2025-05-06 09:00"}, days)
}

var nextLink = regexp.MustCompile(`<a href="([^"]+)">Next`)

func TestCalendarPage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.seed(t, standup())

	rec := ts.do(t, http.MethodGet, "/calendar?kind=month&anchor=2025-04-01&selected=2025-04-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "April 2025")
	assert.Contains(t, body, "Tuesday, April 15")
	assert.Contains(t, body, "Standup")

	t.Run("step moves the month", func(t *testing.T) {
		body := ts.do(t, http.MethodGet, "/calendar?kind=month&anchor=2025-04-01&step=1", "").Body.String()
		assert.Contains(t, body, "May 2025")
	})

	t.Run("picking a padding day moves the month", func(t *testing.T) {
		body := ts.do(t, http.MethodGet, "/calendar?kind=month&anchor=2025-04-01&selected=2025-04-15&pick=2025-05-02", "").Body.String()
		assert.Contains(t, body, "<h1>May 2025</h1>")
		assert.Contains(t, body, "Friday, May 2")
	})

	t.Run("selection outside the period keeps the anchor", func(t *testing.T) {
		body := ts.do(t, http.MethodGet, "/calendar?kind=month&anchor=2025-06-01&selected=2025-04-16", "").Body.String()
		assert.Contains(t, body, "<h1>June 2025</h1>")
		assert.Contains(t, body, "Wednesday, April 16")
	})

	t.Run("next link keeps stepping", func(t *testing.T) {
		target := "/calendar?kind=month&anchor=2025-04-01&selected=2025-04-16"
		for _, want := range []string{"May 2025", "June 2025", "July 2025"} {
			body := ts.do(t, http.MethodGet, target, "").Body.String()
			m := nextLink.FindStringSubmatch(body)
			require.Len(t, m, 2, body)
			target = html.UnescapeString(m[1])

			body = ts.do(t, http.MethodGet, target, "").Body.String()
			assert.Contains(t, body, "<h1>"+want+"</h1>")
			assert.Contains(t, body, "Wednesday, April 16", "selection survives stepping")
		}
	})

	t.Run("today", func(t *testing.T) {
		body := ts.do(t, http.MethodGet, "/calendar?kind=month&anchor=2024-01-01&today=1", "").Body.String()
		assert.Contains(t, body, "April 2025")
		assert.Contains(t, body, "Wednesday, April 16")
	})

	t.Run("bad step", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/calendar?step=x", "").Code)
	})
}

func TestExports(t *testing.T) {
	ts := newTestServer(t, nil)
	seeded := ts.seed(t, standup())

	rec := ts.do(t, http.MethodGet, "/api/calendar.ics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/calendar")
	assert.Contains(t, rec.Body.String(), "UID:"+seeded[0].ID)
	assert.Contains(t, rec.Body.String(), "RRULE:FREQ=WEEKLY;BYDAY=TU")

	rec = ts.do(t, http.MethodGet, "/api/agenda.xlsx?kind=week&anchor=2025-04-15", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "agenda-week-2025-04-15.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}
