package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/seethefuture888888-creator/kangbo/internal/domain/models"
	domrepo "github.com/seethefuture888888-creator/kangbo/internal/domain/repository"
	svcmetrics "github.com/seethefuture888888-creator/kangbo/internal/service/metrics"
	"github.com/seethefuture888888-creator/kangbo/internal/usecase"
	xhttp "github.com/seethefuture888888-creator/kangbo/pkg/http"
	xlogger "github.com/seethefuture888888-creator/kangbo/pkg/logger"
)

// Runner regenerates the snapshot. Concurrent callers share one run.
type Runner interface {
	Run(ctx context.Context) (*models.Snapshot, error)
}

// DashboardEchoHandler serves the latest snapshot and its live stream.
type DashboardEchoHandler struct {
	logger *xlogger.Logger
	store  domrepo.SnapshotStore
	runner Runner
	hub    *StreamHub
}

func NewDashboardEchoHandler(logger *xlogger.Logger, store domrepo.SnapshotStore, runner Runner, hub *StreamHub) *DashboardEchoHandler {
	svcmetrics.Register()
	return &DashboardEchoHandler{logger: logger, store: store, runner: runner, hub: hub}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/dashboard", h.Dashboard)
	g.GET("/dashboard/live", h.Live)
	g.GET("/signals", h.Signals)
	if h.hub != nil {
		g.GET("/dashboard/stream", h.hub.Serve)
	}
	e.GET("/data/dashboard.json", h.File)
}

func observe(endpoint string, start time.Time) {
	svcmetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":                  true,
		"dashboard_json_path": h.store.Path(),
	})
}

func (h *DashboardEchoHandler) Dashboard(c echo.Context) error {
	defer observe("dashboard", time.Now())
	raw, err := h.store.Read(c.Request().Context())
	if err != nil {
		return h.snapshotError(c, "dashboard", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	return c.JSONBlob(http.StatusOK, raw)
}

// Live regenerates synchronously and returns the fresh snapshot.
func (h *DashboardEchoHandler) Live(c echo.Context) error {
	defer observe("live", time.Now())
	snap, err := h.runner.Run(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrRunInProgress):
			svcmetrics.APIErrors.WithLabelValues("live", "conflict").Inc()
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("a run is already in progress on another instance").WithError(err))
		case errors.Is(err, context.Canceled):
			svcmetrics.APIErrors.WithLabelValues("live", "canceled").Inc()
			return nil
		default:
			svcmetrics.APIErrors.WithLabelValues("live", "generate").Inc()
			h.logger.Error("live regeneration failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("Generate failed: %v", err).WithError(err))
		}
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSONBlob(http.StatusOK, snap.Raw)
}

func (h *DashboardEchoHandler) File(c echo.Context) error {
	defer observe("file", time.Now())
	path := h.store.Path()
	if _, err := os.Stat(path); err != nil {
		svcmetrics.APIErrors.WithLabelValues("file", "not_found").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("dashboard.json not found at "+path))
	}
	return c.File(path)
}

// Signals returns asset signals of the latest snapshot, optionally filtered by asset id or light.
func (h *DashboardEchoHandler) Signals(c echo.Context) error {
	defer observe("signals", time.Now())
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		svcmetrics.APIErrors.WithLabelValues("signals", "validation").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.store.Load(c.Request().Context())
	if err != nil {
		return h.snapshotError(c, "signals", err)
	}

	out := make([]models.AssetSignal, 0, len(p.AssetSignals))
	for _, s := range p.AssetSignals {
		if req.Asset != "" && !strings.EqualFold(s.AssetID, req.Asset) {
			continue
		}
		if req.Light != "" && !hasLight(s, models.Light(req.Light)) {
			continue
		}
		out = append(out, s)
		if len(out) == req.Limit {
			break
		}
	}
	if req.Asset != "" && len(out) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no signal for asset "+req.Asset))
	}
	return xhttp.SuccessResponse(c, out)
}

func hasLight(s models.AssetSignal, l models.Light) bool {
	return s.TrendLight == l || s.RiskLight == l || s.CatalystLight == l
}

func (h *DashboardEchoHandler) snapshotError(c echo.Context, endpoint string, err error) error {
	switch {
	case errors.Is(err, domrepo.ErrSnapshotNotFound):
		svcmetrics.APIErrors.WithLabelValues(endpoint, "not_found").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))
	case errors.Is(err, domrepo.ErrSnapshotInvalid):
		svcmetrics.APIErrors.WithLabelValues(endpoint, "invalid").Inc()
		h.logger.Warn("snapshot invalid", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithError(err))
	default:
		svcmetrics.APIErrors.WithLabelValues(endpoint, "read").Inc()
		h.logger.Error("snapshot read failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("snapshot read failed").WithError(err))
	}
}
