package api

import (
	"github.com/labstack/echo/v4"

	"RateCast/internal/domain/models"
	"RateCast/internal/service/ratelimit"
	"RateCast/internal/usecase"
	xhttp "RateCast/pkg/http"
	xlogger "RateCast/pkg/logger"
)

// ObservationsEchoHandler exposes the append-only ingestion endpoints.
type ObservationsEchoHandler struct {
	logger  *xlogger.Logger
	ingest  *usecase.IngestUseCase
	limiter *ratelimit.Limiter
}

func NewObservationsEchoHandler(logger *xlogger.Logger, ingest *usecase.IngestUseCase, limiter *ratelimit.Limiter) *ObservationsEchoHandler {
	return &ObservationsEchoHandler{logger: logger, ingest: ingest, limiter: limiter}
}

func (h *ObservationsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/observations")
	if h.limiter != nil {
		g.Use(h.limiter.Middleware())
	}
	g.POST("/inflation", h.Inflation)
	g.POST("/barometer", h.Barometer)
	g.POST("/official-forecast", h.OfficialForecast)
	g.POST("/rate-curve", h.RateCurve)
	g.POST("/currency-index", h.CurrencyIndex)
	g.POST("/policy-rate", h.PolicyRate)
}

func (h *ObservationsEchoHandler) Inflation(c echo.Context) error {
	req := &models.InflationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestInflation(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

func (h *ObservationsEchoHandler) Barometer(c echo.Context) error {
	req := &models.BarometerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestBarometer(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

func (h *ObservationsEchoHandler) OfficialForecast(c echo.Context) error {
	req := &models.OfficialForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestOfficialForecast(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

func (h *ObservationsEchoHandler) RateCurve(c echo.Context) error {
	req := &models.RateCurveRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestRateCurve(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

func (h *ObservationsEchoHandler) CurrencyIndex(c echo.Context) error {
	req := &models.CurrencyIndexRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestCurrencyIndex(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

func (h *ObservationsEchoHandler) PolicyRate(c echo.Context) error {
	req := &models.PolicyRateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.ingest.IngestPolicyRate(c.Request().Context(), *req)
	return h.respond(c, res, err)
}

// respond writes 201 for a new row and 200 for a duplicate.
func (h *ObservationsEchoHandler) respond(c echo.Context, res *models.IngestResult, err error) error {
	if err != nil {
		ae := toAppError(err)
		if ae.Status >= 500 {
			h.logger.Error("ingest failed", xlogger.String("path", c.Path()), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, ae)
	}
	if res.Outcome == models.OutcomeCreated {
		return xhttp.CreatedResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}
