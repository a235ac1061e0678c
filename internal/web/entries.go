package web

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"dayplan/internal/model"
	"dayplan/internal/store"
)

func records(entries []model.Entry) []store.Record {
	out := make([]store.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, store.FromEntry(e))
	}
	return out
}

// GET /api/entries?owner=&type=
//
// Without ?type= the merged list (reminders, tasks, notes) is returned.
func (s *Server) handleListEntries(c echo.Context) error {
	ctx := c.Request().Context()
	owner := s.owner(c)

	if raw := c.QueryParam("type"); raw != "" {
		t, err := model.ParseType(raw)
		if err != nil {
			return badRequest(err.Error())
		}
		entries, err := s.cache.Load(ctx, owner, t)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, records(entries))
	}
	return c.JSON(http.StatusOK, records(s.entries(ctx, owner)))
}

func pathType(c echo.Context) (model.Type, error) {
	t, err := model.ParseType(c.Param("type"))
	if err != nil {
		return "", badRequest(err.Error())
	}
	return t, nil
}

// GET /api/entries/:type/:id
func (s *Server) handleGetEntry(c echo.Context) error {
	t, err := pathType(c)
	if err != nil {
		return err
	}
	e, err := s.store.Get(c.Request().Context(), t, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, store.FromEntry(e))
}

// bindEntry decodes a Record body into a validated entry.
func (s *Server) bindEntry(c echo.Context) (model.Entry, error) {
	var rec store.Record
	if err := c.Bind(&rec); err != nil {
		return model.Entry{}, badRequest("invalid JSON body")
	}
	if rec.OwnerID == "" {
		rec.OwnerID = s.owner(c)
	}
	return validateRecord(rec)
}

// validateRecord rejects what Record.Entry would otherwise only log: bad
// dates and unknown types.
func validateRecord(rec store.Record) (model.Entry, error) {
	if _, err := model.ParseType(rec.Type); err != nil {
		return model.Entry{}, badRequest(err.Error())
	}
	if _, err := store.ParseDate(rec.Date); err != nil {
		return model.Entry{}, badRequest("invalid date " + rec.Date)
	}
	if rec.RepeatUntil != "" {
		if _, err := store.ParseDate(rec.RepeatUntil); err != nil {
			return model.Entry{}, badRequest("invalid repeat_until " + rec.RepeatUntil)
		}
	}

	e := rec.Entry()
	if err := e.Validate(); err != nil {
		return model.Entry{}, badRequest(err.Error())
	}
	return e, nil
}

// POST /api/entries
func (s *Server) handleCreateEntry(c echo.Context) error {
	e, err := s.bindEntry(c)
	if err != nil {
		return err
	}
	if err := s.store.Create(c.Request().Context(), &e); err != nil {
		return err
	}
	s.cache.Invalidate(e.OwnerID, e.Type)
	return c.JSON(http.StatusCreated, store.FromEntry(e))
}

// PUT /api/entries/:type/:id
//
// The path decides type and id; the body's are ignored.
func (s *Server) handleUpdateEntry(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := pathType(c)
	if err != nil {
		return err
	}
	existing, err := s.store.Get(ctx, t, c.Param("id"))
	if err != nil {
		return err
	}

	var rec store.Record
	if err := c.Bind(&rec); err != nil {
		return badRequest("invalid JSON body")
	}
	rec.Type = string(t)
	rec.ID = existing.ID
	if rec.OwnerID == "" {
		rec.OwnerID = existing.OwnerID
	}
	e, err := validateRecord(rec)
	if err != nil {
		return err
	}
	e.CreatedAt = existing.CreatedAt

	if err := s.store.Update(ctx, &e); err != nil {
		return err
	}
	s.cache.Invalidate(existing.OwnerID, t)
	s.cache.Invalidate(e.OwnerID, t)
	return c.JSON(http.StatusOK, store.FromEntry(e))
}

// DELETE /api/entries/:type/:id
func (s *Server) handleDeleteEntry(c echo.Context) error {
	ctx := c.Request().Context()
	t, err := pathType(c)
	if err != nil {
		return err
	}
	existing, err := s.store.Get(ctx, t, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, t, existing.ID); err != nil {
		return err
	}
	s.cache.Invalidate(existing.OwnerID, t)
	return c.NoContent(http.StatusNoContent)
}
