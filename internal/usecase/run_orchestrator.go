package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	"RateCast/internal/services/forecast"
	applogger "RateCast/pkg/logger"
)

// ErrNoRunYet is returned by Latest before the first run has been persisted.
var ErrNoRunYet = errors.New("no run persisted yet")

// RunError reports why a run ended in the failed state. Failed runs are never persisted.
type RunError struct {
	RunID string
	Stage models.RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed while %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// SnapshotHook runs after inputs are collected and before the engine computes.
type SnapshotHook func(ctx context.Context, snap *models.InputSnapshot)

type OrchestratorOption func(*RunOrchestrator)

func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *RunOrchestrator) { o.now = now }
}

func WithSnapshotHook(h SnapshotHook) OrchestratorOption {
	return func(o *RunOrchestrator) { o.hook = h }
}

func WithRunCache(c domrepo.RunCache) OrchestratorOption {
	return func(o *RunOrchestrator) { o.cache = c }
}

// RunOrchestrator drives one model run: Collecting -> Computing -> Persisted, or Failed.
type RunOrchestrator struct {
	obs     domrepo.ObservationStore
	runs    domrepo.RunStore
	cache   domrepo.RunCache
	events  domrepo.EventPublisher
	metrics domrepo.Metrics
	cfg     forecast.Config
	now     func() time.Time
	hook    SnapshotHook
	l       *applogger.Logger
}

func NewRunOrchestrator(
	obs domrepo.ObservationStore,
	runs domrepo.RunStore,
	events domrepo.EventPublisher,
	metrics domrepo.Metrics,
	cfg forecast.Config,
	opts ...OrchestratorOption,
) *RunOrchestrator {
	o := &RunOrchestrator{
		obs:     obs,
		runs:    runs,
		events:  events,
		metrics: metrics,
		cfg:     cfg,
		now:     time.Now,
		l:       applogger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *RunOrchestrator) SetLogger(l *applogger.Logger) { o.l = l }

// Run executes a single run and returns the persisted ModelRun or a *RunError.
func (o *RunOrchestrator) Run(ctx context.Context) (*models.ModelRun, error) {
	start := o.now().UTC()
	run := &models.ModelRun{
		RunID:        uuid.NewString(),
		CreatedAt:    start,
		ModelVersion: o.cfg.ModelVersion,
		State:        models.RunCollecting,
	}
	l := o.l.With(applogger.String("run_id", run.RunID))

	snap, err := o.collect(ctx, start)
	if err != nil {
		return nil, o.fail(l, run, err)
	}
	run.Inputs = *snap
	if o.hook != nil {
		o.hook(ctx, &run.Inputs)
	}

	run.State = models.RunComputing
	if err := forecast.Evaluate(run, o.cfg); err != nil {
		return nil, o.fail(l, run, err)
	}

	run.State = models.RunPersisted
	if err := o.runs.SaveRun(ctx, run); err != nil {
		run.State = models.RunComputing
		return nil, o.fail(l, run, fmt.Errorf("save run: %w", err))
	}
	o.record(run, time.Since(start))

	if o.cache != nil {
		if err := o.cache.SetLatest(ctx, run); err != nil {
			o.metrics.RecordError("run_cache_set")
			l.Warn("refresh latest run cache failed", applogger.Error(err))
		}
	}
	if err := o.events.PublishRun(ctx, run); err != nil {
		o.metrics.RecordError("publish_run")
		l.Warn("publish run event failed", applogger.Error(err))
	}

	l.Info("run persisted",
		applogger.Float64("fused_rate_pct", run.FusedRatePct),
		applogger.Float64("fused_variance", run.FusedVariance),
		applogger.String("decision", string(run.Decision)),
		applogger.Any("probabilities", run.Probabilities),
		applogger.Bool("degraded_input", run.Flags.DegradedInput),
		applogger.Strings("notes", run.Notes),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return run, nil
}

func (o *RunOrchestrator) fail(l *applogger.Logger, run *models.ModelRun, err error) error {
	stage := run.State
	run.State = models.RunFailed
	o.metrics.RecordRun(string(models.RunFailed))
	o.metrics.RecordError("run_" + string(stage))
	l.Error("run failed", applogger.String("stage", string(stage)), applogger.Error(err))
	return &RunError{RunID: run.RunID, Stage: stage, Err: err}
}

func (o *RunOrchestrator) record(run *models.ModelRun, elapsed time.Duration) {
	o.metrics.RecordRun(string(models.RunPersisted))
	o.metrics.RecordLatency("run_seconds", elapsed.Seconds())
	o.metrics.RecordFusedRate(run.FusedRatePct)
	o.metrics.RecordProbability(string(models.DecisionCut), run.Probabilities.Cut)
	o.metrics.RecordProbability(string(models.DecisionHold), run.Probabilities.Hold)
	o.metrics.RecordProbability(string(models.DecisionHike), run.Probabilities.Hike)

	f := run.Flags
	for name, set := range map[string]bool{
		"low_confidence":          f.LowConfidence,
		"degraded_input":          f.DegradedInput,
		"market_data_unavailable": f.MarketDataUnavailable,
		"extrapolated":            f.Extrapolated,
		"policy_rate_from_config": f.PolicyRateFromConfig,
	} {
		if set {
			o.metrics.RecordDegradation(name)
		}
	}
}

// collect reads every input with the same ingestion cutoff so that rows landing mid-run are not mixed in.
func (o *RunOrchestrator) collect(ctx context.Context, cutoff time.Time) (*models.InputSnapshot, error) {
	snap := &models.InputSnapshot{Cutoff: cutoff}

	infl, err := o.obs.History(ctx, models.KindInflation, o.cfg.HistoryMonths,
		domrepo.Query{Provider: o.cfg.InflationProvider, Cutoff: cutoff})
	if err != nil {
		return nil, fmt.Errorf("read inflation history: %w", err)
	}
	for _, row := range infl {
		if v, ok := row.(*models.InflationObservation); ok {
			snap.Inflation = append(snap.Inflation, *v)
		}
	}

	cur, err := o.obs.History(ctx, models.KindCurrencyIndex, o.cfg.Rule.CurrencyLookbackDays+1,
		domrepo.Query{Provider: o.cfg.CurrencyProvider, Cutoff: cutoff})
	if err != nil {
		return nil, fmt.Errorf("read currency index history: %w", err)
	}
	for _, row := range cur {
		if v, ok := row.(*models.CurrencyIndexObservation); ok {
			snap.CurrencyIndex = append(snap.CurrencyIndex, *v)
		}
	}

	row, err := o.latest(ctx, models.KindBarometer, o.cfg.BarometerProvider, cutoff)
	if err != nil {
		return nil, err
	}
	if v, ok := row.(*models.BarometerObservation); ok {
		snap.Barometer = v
	}

	if row, err = o.latest(ctx, models.KindOfficialForecast, "", cutoff); err != nil {
		return nil, err
	}
	if v, ok := row.(*models.OfficialForecast); ok {
		snap.OfficialForecast = v
	}

	if row, err = o.latest(ctx, models.KindRateCurve, "", cutoff); err != nil {
		return nil, err
	}
	if v, ok := row.(*models.RateCurveSnapshot); ok {
		snap.RateCurve = v
	}

	if row, err = o.latest(ctx, models.KindPolicyRate, "", cutoff); err != nil {
		return nil, err
	}
	if v, ok := row.(*models.PolicyRateState); ok {
		snap.PolicyRate = v
	}
	return snap, nil
}

// latest returns nil without error when the kind has no rows.
func (o *RunOrchestrator) latest(ctx context.Context, kind models.ObservationKind, provider string, cutoff time.Time) (models.Observation, error) {
	row, err := o.obs.Latest(ctx, kind, domrepo.Query{Provider: provider, Cutoff: cutoff})
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest %s: %w", kind, err)
	}
	return row, nil
}

// Latest returns the most recent persisted run, preferring the cache.
func (o *RunOrchestrator) Latest(ctx context.Context) (*models.ModelRun, error) {
	if o.cache != nil {
		run, ok, err := o.cache.GetLatest(ctx)
		if err != nil {
			o.metrics.RecordError("run_cache_get")
			o.l.Warn("read latest run cache failed", applogger.Error(err))
		} else if ok {
			return run, nil
		}
	}

	run, err := o.runs.LatestRun(ctx)
	if errors.Is(err, domrepo.ErrNotFound) {
		return nil, ErrNoRunYet
	}
	if err != nil {
		return nil, fmt.Errorf("read latest run: %w", err)
	}
	if o.cache != nil {
		if err := o.cache.SetLatest(ctx, run); err != nil {
			o.l.Warn("refresh latest run cache failed", applogger.Error(err))
		}
	}
	return run, nil
}

// Get returns a persisted run by id.
func (o *RunOrchestrator) Get(ctx context.Context, runID string) (*models.ModelRun, error) {
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	return run, nil
}
