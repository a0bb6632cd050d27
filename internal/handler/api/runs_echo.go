package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	"RateCast/internal/usecase"
	xhttp "RateCast/pkg/http"
	xlogger "RateCast/pkg/logger"
)

// RunsEchoHandler exposes run execution, retrieval and narrative explanation.
type RunsEchoHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.RunOrchestrator
	explain *usecase.ExplainUseCase
}

func NewRunsEchoHandler(logger *xlogger.Logger, orch *usecase.RunOrchestrator, explain *usecase.ExplainUseCase) *RunsEchoHandler {
	return &RunsEchoHandler{logger: logger, orch: orch, explain: explain}
}

func (h *RunsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/runs")
	g.POST("", h.Run)
	g.GET("/latest", h.Latest)
	g.GET("/:id", h.Get)
	g.POST("/:id/explain", h.Explain)
}

func (h *RunsEchoHandler) Run(c echo.Context) error {
	run, err := h.orch.Run(c.Request().Context())
	if err != nil {
		return h.fail(c, "run", err)
	}
	return xhttp.CreatedResponse(c, run)
}

func (h *RunsEchoHandler) Latest(c echo.Context) error {
	run, err := h.orch.Latest(c.Request().Context())
	if err != nil {
		return h.fail(c, "latest", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, run)
}

func (h *RunsEchoHandler) Get(c echo.Context) error {
	id := c.Param("id")
	run, err := h.orch.Get(c.Request().Context(), id)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("run %s not found", id).WithError(err))
	}
	if err != nil {
		return h.fail(c, "get", err)
	}
	return xhttp.SuccessResponse(c, run)
}

func (h *RunsEchoHandler) Explain(c echo.Context) error {
	req := &models.ExplainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	id := c.Param("id")
	res, err := h.explain.Explain(c.Request().Context(), id, req.Question)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("run %s not found", id).WithError(err))
	}
	if err != nil {
		return h.fail(c, "explain", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *RunsEchoHandler) fail(c echo.Context, op string, err error) error {
	ae := toAppError(err)
	if ae.Status >= 500 || ae.Status == http.StatusUnprocessableEntity {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, ae)
}

// HealthChecker is satisfied by the observation stores.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthEchoHandler serves /healthz.
type HealthEchoHandler struct {
	store HealthChecker
}

func NewHealthEchoHandler(store HealthChecker) *HealthEchoHandler {
	return &HealthEchoHandler{store: store}
}

func (h *HealthEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

func (h *HealthEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Health(ctx); err != nil {
		return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError("store unhealthy").WithError(err))
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}
