package dashboard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/SuOnTheRun/intel-hub/internal/adapters/repository/snapshot"
	"github.com/SuOnTheRun/intel-hub/internal/domain"
	"github.com/SuOnTheRun/intel-hub/internal/services/export"
	"github.com/SuOnTheRun/intel-hub/internal/services/ingest"
	"github.com/SuOnTheRun/intel-hub/internal/services/methodology"
	"github.com/SuOnTheRun/intel-hub/pkg/tracing"
)

const defaultAlertLimit = 50

type Server struct {
	e          *echo.Echo
	ingest     ingest.Service
	repo       snapshot.Repository
	export     export.Service
	adminToken string
}

func (s *Server) ListenAndServe(port int) error {
	err := s.e.Start(fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) Test(req *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	return rec.Result()
}

func NewServer(
	ingestService ingest.Service,
	repo snapshot.Repository,
	exportService export.Service,
	tracer tracing.Tracer,
	adminToken string,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadHeaderTimeout = 5 * time.Second

	s := &Server{
		e:          e,
		ingest:     ingestService,
		repo:       repo,
		export:     exportService,
		adminToken: adminToken,
	}

	e.HTTPErrorHandler = customHTTPErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(echo.WrapMiddleware(tracing.NewTracingMiddleware(tracer)))
	e.Use(embedHeaders)

	e.GET("/", s.embedPage)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api")
	api.GET("/snapshot", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap)
	}))
	api.GET("/news", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, filterArticles(snap.Articles, c.QueryParam("category"), intQuery(c, "limit", 0)))
	}))
	api.GET("/gov", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, limitNotices(snap.GovNotices, intQuery(c, "limit", 0)))
	}))
	api.GET("/heatmap", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Heat)
	}))
	api.GET("/heatmap/history/:category", func(c echo.Context) error {
		rows, err := s.repo.HeatHistory(c.Request().Context(), c.Param("category"), intQuery(c, "limit", 96))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, rows)
	})
	api.GET("/tension", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Tension)
	}))
	api.GET("/narratives", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Narratives)
	}))
	api.GET("/entities", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Entities)
	}))
	api.GET("/markets", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"categories": snap.Markets,
			"quotes":     snap.Quotes,
		})
	}))
	api.GET("/trends", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Trends)
	}))
	api.GET("/mobility", s.withSnapshot(func(c echo.Context, snap *domain.Snapshot) error {
		return c.JSON(http.StatusOK, snap.Mobility)
	}))

	api.GET("/alerts", func(c echo.Context) error {
		alerts, err := s.repo.RecentAlerts(c.Request().Context(), intQuery(c, "limit", defaultAlertLimit))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, filterAlerts(alerts, c.QueryParam("kind"), intQuery(c, "min_severity", 0)))
	})

	api.GET("/methodology", func(c echo.Context) error {
		return c.JSON(http.StatusOK, methodology.All())
	})
	api.GET("/methodology/:key", func(c echo.Context) error {
		note, ok := methodology.Get(c.Param("key"))
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "unknown methodology key")
		}
		return c.JSON(http.StatusOK, note)
	})

	api.GET("/export/brief", func(c echo.Context) error {
		ctx := c.Request().Context()
		snap, err := s.ingest.Latest(ctx)
		if err != nil {
			return err
		}
		alerts, err := s.repo.RecentAlerts(ctx, defaultAlertLimit)
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "text/plain; charset=utf-8", s.export.Brief(ctx, snap, alerts))
	})
	api.GET("/export/:table", func(c echo.Context) error {
		table := strings.TrimSuffix(c.Param("table"), ".csv")
		ctx := c.Request().Context()
		snap, err := s.ingest.Latest(ctx)
		if err != nil {
			return err
		}
		var alerts []domain.Alert
		if table == "alerts" {
			if alerts, err = s.repo.RecentAlerts(ctx, maxExportAlerts); err != nil {
				return err
			}
		}
		data, err := s.export.ExportCSV(ctx, snap, alerts, table)
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s.csv", table))
		return c.Blob(http.StatusOK, "text/csv", data)
	})

	api.POST("/refresh", s.requireAdmin(func(c echo.Context) error {
		snap, err := s.ingest.Refresh(c.Request().Context(), true)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"id":      snap.ID,
			"takenAt": snap.TakenAt,
		})
	}))

	return s
}

const maxExportAlerts = 500

// withSnapshot loads the latest snapshot for read-only handlers.
func (s *Server) withSnapshot(h func(echo.Context, *domain.Snapshot) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap, err := s.ingest.Latest(c.Request().Context())
		if err != nil {
			return err
		}
		return h(c, snap)
	}
}

// requireAdmin guards mutating endpoints with a bearer token. An empty
// configured token disables the endpoint outright.
func (s *Server) requireAdmin(h echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.adminToken == "" {
			return echo.NewHTTPError(http.StatusForbidden, "admin endpoints disabled")
		}

		authHeader := c.Request().Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.adminToken)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		return h(c)
	}
}

// embedHeaders makes the dashboard frame- and cross-origin-friendly so
// it can be iframed into other sites.
func embedHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Content-Security-Policy", "frame-ancestors *")
		return next(c)
	}
}

func customHTTPErrorHandler(rootError error, c echo.Context) {
	err := findHTTPError(c, rootError)

	if err == nil {
		err = rootError
	}

	c.Echo().DefaultHTTPErrorHandler(err, c)
}

func findHTTPError(ctx echo.Context, err error) error {
	if err == nil {
		return nil
	}

	var e *echo.HTTPError
	if errors.As(err, &e) {
		return e
	}

	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return ctx.JSON(http.StatusServiceUnavailable, ErrorMessageResp{
			Message: "no snapshot yet, first refresh still running",
		})
	}

	if errors.Is(err, export.ErrUnknownTable) {
		return ctx.JSON(http.StatusNotFound, ErrorMessageResp{
			Message: "unknown export table",
		})
	}

	return findHTTPError(ctx, errors.Unwrap(err))
}

type ErrorMessageResp struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func filterArticles(articles []domain.Article, category string, limit int) []domain.Article {
	out := articles
	if category != "" {
		out = make([]domain.Article, 0, len(articles))
		for _, a := range articles {
			if strings.EqualFold(a.Category, category) {
				out = append(out, a)
			}
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []domain.Article{}
	}
	return out
}

func limitNotices(notices []domain.GovNotice, limit int) []domain.GovNotice {
	if limit > 0 && len(notices) > limit {
		return notices[:limit]
	}
	if notices == nil {
		return []domain.GovNotice{}
	}
	return notices
}

func filterAlerts(alerts []domain.Alert, kind string, minSeverity int) []domain.Alert {
	out := make([]domain.Alert, 0, len(alerts))
	for _, a := range alerts {
		if kind != "" && a.Kind != kind {
			continue
		}
		if a.Severity < minSeverity {
			continue
		}
		out = append(out, a)
	}
	return out
}

func intQuery(c echo.Context, name string, def int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
