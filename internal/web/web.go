// Package web serves the entry API and the /calendar page.
package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"dayplan/internal/calendar"
	"dayplan/internal/config"
	appLog "dayplan/internal/log"
	"dayplan/internal/model"
	"dayplan/internal/store"
)

// EntryStore is the persistence the API needs.
type EntryStore interface {
	store.Lister
	Get(ctx context.Context, t model.Type, id string) (model.Entry, error)
	Create(ctx context.Context, e *model.Entry) error
	Update(ctx context.Context, e *model.Entry) error
	Delete(ctx context.Context, t model.Type, id string) error
}

// Server provides the HTTP API and the calendar page.
type Server struct {
	cfg   *config.Config
	store EntryStore
	cache *store.Cache
	echo  *echo.Echo

	now func() time.Time
}

// NewServer constructs a new Server. Reads go through cache; every mutation
// invalidates the affected snapshot.
func NewServer(cfg *config.Config, st EntryStore, cache *store.Cache) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		cache: cache,
		echo:  echo.New(),
		now:   time.Now,
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = s.handleError

	s.echo.Use(middleware.Recover())
	s.echo.Use(s.requestLogger)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+cfg.Listen)
		s.echo.Use(s.basicAuthMiddleware())
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// StartServer serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, st EntryStore, cache *store.Cache) error {
	s := NewServer(cfg, st, cache)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/calendar", s.handleCalendarPage)

	api := s.echo.Group("/api")
	api.GET("/entries", s.handleListEntries)
	api.POST("/entries", s.handleCreateEntry)
	api.GET("/entries/:type/:id", s.handleGetEntry)
	api.PUT("/entries/:type/:id", s.handleUpdateEntry)
	api.DELETE("/entries/:type/:id", s.handleDeleteEntry)

	api.GET("/day", s.handleDay)
	api.GET("/grid", s.handleGrid)
	api.GET("/occurrences", s.handleOccurrences)
	api.GET("/calendar.ics", s.handleICS)
	api.GET("/agenda.xlsx", s.handleAgenda)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware() echo.MiddlewareFunc {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "dayplan",
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		Validator: func(u, p string, _ echo.Context) (bool, error) {
			return secureCompare(u, username) && secureCompare(p, password), nil
		},
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		appLog.Debug("http request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start).String(),
		)
		return nil
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleError renders every error as {"error": "..."}. store.ErrNotFound
// maps to 404; anything that is not an *echo.HTTPError is a 500.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
		msg = "entry not found"
	default:
		appLog.Error("request failed", err, "path", c.Request().URL.Path)
	}

	if code == http.StatusUnauthorized {
		// BasicAuth sets WWW-Authenticate; keep the body plain.
		_ = c.String(code, http.StatusText(code))
		return
	}
	if err := c.JSON(code, errorResponse{Error: msg}); err != nil {
		appLog.Error("failed to write error response", err)
	}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// owner resolves ?owner=, falling back to the configured default owner.
func (s *Server) owner(c echo.Context) string {
	if o := c.QueryParam("owner"); o != "" {
		return o
	}
	return s.cfg.Owner
}

// entries returns owner's merged snapshot. Sources that fail to load are
// logged by the cache and contribute nothing.
func (s *Server) entries(ctx context.Context, owner string) []model.Entry {
	sources, _ := s.cache.Sources(ctx, owner)
	return calendar.Merge(sources)
}

// parseDay parses a YYYY-MM-DD (or any store date layout) query value. An
// empty value yields def.
func parseDay(v string, def time.Time) (time.Time, error) {
	if v == "" {
		return model.DayOf(def), nil
	}
	t, err := store.ParseDate(v)
	if err != nil {
		return time.Time{}, badRequest("invalid date " + v)
	}
	return model.DayOf(t), nil
}
