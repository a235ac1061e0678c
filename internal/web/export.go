package web

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"dayplan/internal/agenda"
	"dayplan/internal/ics"
	"dayplan/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/calendar.ics?owner=
func (s *Server) handleICS(c echo.Context) error {
	owner := s.owner(c)
	all := s.entries(c.Request().Context(), owner)

	body := ics.Export(all, ics.ExportOptions{Name: "dayplan " + owner, Now: s.now()})
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s.ics"`, owner))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// GET /api/agenda.xlsx?owner=&kind=&anchor=
func (s *Server) handleAgenda(c echo.Context) error {
	kind, err := model.ParsePeriodKind(c.QueryParam("kind"))
	if err != nil {
		return badRequest(err.Error())
	}
	anchor, err := parseDay(c.QueryParam("anchor"), s.now())
	if err != nil {
		return err
	}

	owner := s.owner(c)
	all := s.entries(c.Request().Context(), owner)

	var buf bytes.Buffer
	p := model.Period{Kind: kind, Anchor: anchor}
	if err := agenda.Write(&buf, p, all, s.cfg.FirstWeekday()); err != nil {
		return fmt.Errorf("write agenda: %w", err)
	}

	name := fmt.Sprintf("agenda-%s-%s.xlsx", kind, anchor.Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
