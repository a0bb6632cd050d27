package api

import (
	"errors"
	"net/http"

	domrepo "RateCast/internal/domain/repository"
	"RateCast/internal/services/forecast"
	"RateCast/internal/usecase"
	xhttp "RateCast/pkg/http"
)

// toAppError maps domain and use case errors onto HTTP statuses.
func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var ae *xhttp.AppError
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		ae = xhttp.BadRequestError(err.Error())
	case errors.Is(err, forecast.ErrInvalidCurveShape):
		ae = xhttp.UnprocessableError("ERR_INVALID_CURVE_SHAPE", err.Error())
	case errors.Is(err, forecast.ErrInvalidVariance):
		ae = xhttp.UnprocessableError("ERR_INVALID_VARIANCE", err.Error())
	case errors.Is(err, forecast.ErrInvalidConfig):
		ae = xhttp.UnprocessableError("ERR_INVALID_CONFIG", err.Error())
	case errors.Is(err, domrepo.ErrStoreUnavailable):
		ae = xhttp.ServiceUnavailableError("observation store unavailable")
	case errors.Is(err, usecase.ErrNarratorUnavailable):
		ae = xhttp.ServiceUnavailableError("narrator not configured")
	case errors.Is(err, usecase.ErrNoRunYet):
		ae = xhttp.NotFoundError("no run persisted yet")
	case errors.Is(err, domrepo.ErrNotFound):
		ae = xhttp.NotFoundError("not found")
	default:
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			ae = xhttp.NewAppError("ERR_NARRATOR", "", "narrator request failed", http.StatusBadGateway)
		} else {
			ae = xhttp.InternalError("internal error")
		}
	}

	var re *usecase.RunError
	if errors.As(err, &re) {
		ae.WithParam("run_id", re.RunID).WithParam("stage", string(re.Stage))
	}
	return ae.WithError(err)
}
