package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	"RateCast/internal/services/forecast"
	applogger "RateCast/pkg/logger"
	"RateCast/pkg/util"
)

// ErrInvalidRequest marks ingestion payloads that cannot be normalised into an observation.
var ErrInvalidRequest = errors.New("invalid request")

// IngestUseCase normalises ingestion requests and appends them to the observation store.
type IngestUseCase struct {
	store   domrepo.ObservationStore
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewIngestUseCase(store domrepo.ObservationStore, events domrepo.EventPublisher, metrics domrepo.Metrics) *IngestUseCase {
	return &IngestUseCase{store: store, events: events, metrics: metrics, l: applogger.Nop()}
}

func (uc *IngestUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

func (uc *IngestUseCase) IngestInflation(ctx context.Context, req models.InflationRequest) (*models.IngestResult, error) {
	asOf, err := util.ParseMonth(req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("%w: as_of: %v", ErrInvalidRequest, err)
	}
	if req.YoYPct == nil {
		return nil, fmt.Errorf("%w: yoy_pct is required", ErrInvalidRequest)
	}
	return uc.ingest(ctx, &models.InflationObservation{
		Provider:        req.Provider,
		AsOf:            asOf,
		YoYPct:          *req.YoYPct,
		MoMPct:          req.MoMPct,
		SourceReference: req.SourceReference,
		Revision:        req.Revision,
	})
}

func (uc *IngestUseCase) IngestBarometer(ctx context.Context, req models.BarometerRequest) (*models.IngestResult, error) {
	asOf, err := util.ParseDate(req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("%w: as_of: %v", ErrInvalidRequest, err)
	}
	if req.Value == nil || *req.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidRequest)
	}
	return uc.ingest(ctx, &models.BarometerObservation{
		Provider:        req.Provider,
		AsOf:            asOf,
		Value:           *req.Value,
		SourceReference: req.SourceReference,
		Revision:        req.Revision,
	})
}

func (uc *IngestUseCase) IngestOfficialForecast(ctx context.Context, req models.OfficialForecastRequest) (*models.IngestResult, error) {
	meeting, err := util.ParseDate(req.MeetingDate)
	if err != nil {
		return nil, fmt.Errorf("%w: meeting_date: %v", ErrInvalidRequest, err)
	}
	if len(req.ForecastByYear) == 0 {
		return nil, fmt.Errorf("%w: forecast_by_year is empty", ErrInvalidRequest)
	}
	of := &models.OfficialForecast{
		MeetingDate:       meeting,
		SourceReference:   req.SourceReference,
		DocumentReference: req.DocumentReference,
		Revision:          req.Revision,
	}
	for y, v := range req.ForecastByYear {
		year, err := strconv.Atoi(y)
		if err != nil || year < 1900 || year > 2200 {
			return nil, fmt.Errorf("%w: forecast year %q", ErrInvalidRequest, y)
		}
		of.Forecast = append(of.Forecast, models.YearForecast{Year: year, InflationPct: v})
	}
	of.SortForecast()
	return uc.ingest(ctx, of)
}

// IngestRateCurve sorts points by tenor and rejects shapes the curve reader cannot interpolate.
func (uc *IngestUseCase) IngestRateCurve(ctx context.Context, req models.RateCurveRequest) (*models.IngestResult, error) {
	asOf, err := util.ParseDate(req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("%w: as_of: %v", ErrInvalidRequest, err)
	}
	snap := &models.RateCurveSnapshot{
		AsOf:            asOf,
		SourceReference: req.SourceReference,
		Revision:        req.Revision,
	}
	for _, p := range req.Points {
		if p.RatePct == nil {
			return nil, fmt.Errorf("%w: rate_pct is required for tenor %d", ErrInvalidRequest, p.TenorMonths)
		}
		snap.Points = append(snap.Points, models.CurvePoint{TenorMonths: p.TenorMonths, RatePct: *p.RatePct})
	}
	snap.SortPoints()
	if err := forecast.ValidateCurve(snap.Points); err != nil {
		return nil, err
	}
	return uc.ingest(ctx, snap)
}

func (uc *IngestUseCase) IngestCurrencyIndex(ctx context.Context, req models.CurrencyIndexRequest) (*models.IngestResult, error) {
	asOf, err := util.ParseDate(req.AsOf)
	if err != nil {
		return nil, fmt.Errorf("%w: as_of: %v", ErrInvalidRequest, err)
	}
	if req.IndexValue == nil || *req.IndexValue <= 0 {
		return nil, fmt.Errorf("%w: index_value must be positive", ErrInvalidRequest)
	}
	return uc.ingest(ctx, &models.CurrencyIndexObservation{
		Provider:        req.Provider,
		AsOf:            asOf,
		IndexValue:      *req.IndexValue,
		SourceReference: req.SourceReference,
		Revision:        req.Revision,
	})
}

func (uc *IngestUseCase) IngestPolicyRate(ctx context.Context, req models.PolicyRateRequest) (*models.IngestResult, error) {
	eff, err := util.ParseDate(req.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("%w: effective_date: %v", ErrInvalidRequest, err)
	}
	if req.RatePct == nil {
		return nil, fmt.Errorf("%w: rate_pct is required", ErrInvalidRequest)
	}
	return uc.ingest(ctx, &models.PolicyRateState{
		EffectiveDate:   eff,
		RatePct:         *req.RatePct,
		SourceReference: req.SourceReference,
		Revision:        req.Revision,
	})
}

func (uc *IngestUseCase) ingest(ctx context.Context, obs models.Observation) (*models.IngestResult, error) {
	kind := string(obs.Kind())
	start := time.Now()
	outcome, err := uc.store.Ingest(ctx, obs)
	uc.metrics.RecordLatency("ingest_seconds", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("ingest_" + kind)
		return nil, fmt.Errorf("ingest %s: %w", kind, err)
	}
	uc.metrics.RecordIngest(kind, string(outcome))

	if outcome == models.OutcomeCreated {
		if err := uc.events.PublishObservation(ctx, obs.Kind(), obs.NaturalKey()); err != nil {
			uc.metrics.RecordError("publish_observation")
			uc.l.Warn("publish observation event failed",
				applogger.String("kind", kind),
				applogger.String("natural_key", obs.NaturalKey()),
				applogger.Error(err))
		}
	}

	uc.l.Debug("observation ingested",
		applogger.String("kind", kind),
		applogger.String("natural_key", obs.NaturalKey()),
		applogger.String("outcome", string(outcome)))
	return &models.IngestResult{Kind: obs.Kind(), NaturalKey: obs.NaturalKey(), Outcome: outcome}, nil
}
