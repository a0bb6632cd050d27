package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	"RateCast/internal/repository"
	svccache "RateCast/internal/service/cache"
	"RateCast/internal/services/forecast"
	pkgcache "RateCast/pkg/cache"
	pkgkafka "RateCast/pkg/kafka"
	"RateCast/pkg/metrics"
)

func ptr(v float64) *float64 { return &v }

type recordingPublisher struct {
	mu   sync.Mutex
	obs  []string
	runs []string
}

func (p *recordingPublisher) PublishObservation(_ context.Context, kind models.ObservationKind, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.obs = append(p.obs, string(kind)+"|"+key)
	return nil
}

func (p *recordingPublisher) PublishRun(_ context.Context, run *models.ModelRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run.RunID)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// unavailableStore fails every read.
type unavailableStore struct{ *repository.MemoryStore }

func (unavailableStore) History(context.Context, models.ObservationKind, int, domrepo.Query) ([]models.Observation, error) {
	return nil, domrepo.ErrStoreUnavailable
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var (
	t0 = time.Date(2024, 10, 1, 8, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
)

func engineConfig() forecast.Config {
	return forecast.Config{
		ModelVersion:  "test",
		HistoryMonths: 24,
		Nowcast: forecast.NowcastConfig{
			InflationTarget:      2.0,
			NeutralBarometer:     100,
			BarometerSensitivity: 0.05,
			BarometerWeight:      0.5,
			MomentumDamping:      0.5,
			OfficialWeightH6:     0.4,
			OfficialWeightH12:    0.75,
		},
		Rule: forecast.RuleConfig{
			NeutralRate:          1.0,
			InflationCoefficient: 0.5,
			OutputGapScale:       0.5,
			OutputGapCoefficient: 0.5,
			CurrencyCoefficient:  0.05,
			CurrencyLookbackDays: 1095,
			Variance:             0.25,
		},
		Curve:    forecast.CurveConfig{HorizonMonths: 3, VarianceFloor: 0.0025, SlopeScale: 0.1},
		Decision: forecast.DecisionConfig{StepPct: 0.25},
	}
}

type fixture struct {
	clock  *fixedClock
	store  *repository.MemoryStore
	pub    *recordingPublisher
	ingest *IngestUseCase
}

func newFixture() *fixture {
	clock := &fixedClock{t: t0}
	store := repository.NewMemoryStore(repository.WithClock(clock.now))
	pub := &recordingPublisher{}
	return &fixture{
		clock:  clock,
		store:  store,
		pub:    pub,
		ingest: NewIngestUseCase(store, pub, metrics.Nop{}),
	}
}

func (f *fixture) orchestrator(cfg forecast.Config, opts ...OrchestratorOption) *RunOrchestrator {
	opts = append([]OrchestratorOption{WithOrchestratorClock(func() time.Time { return t1 })}, opts...)
	return NewRunOrchestrator(f.store, f.store, f.pub, metrics.Nop{}, cfg, opts...)
}

// seed ingests the reference scenario: inflation 0.7, barometer 101.2, curve 0.50/0.55/0.65, policy 0.50.
// Kinds listed in skip are left out.
func (f *fixture) seed(t *testing.T, skip ...models.ObservationKind) {
	t.Helper()
	ctx := context.Background()
	kinds := []models.ObservationKind{
		models.KindInflation, models.KindBarometer, models.KindOfficialForecast, models.KindRateCurve, models.KindPolicyRate,
	}
	steps := []func() error{
		func() error {
			_, err := f.ingest.IngestInflation(ctx, models.InflationRequest{
				Provider: "stat", AsOf: "2024-09", YoYPct: ptr(0.7), SourceReference: "cpi-2024-09"})
			return err
		},
		func() error {
			_, err := f.ingest.IngestBarometer(ctx, models.BarometerRequest{
				Provider: "kof", AsOf: "2024-09-30", Value: ptr(101.2), SourceReference: "kof-2024-09"})
			return err
		},
		func() error {
			_, err := f.ingest.IngestOfficialForecast(ctx, models.OfficialForecastRequest{
				MeetingDate:     "2024-09-26",
				ForecastByYear:  map[string]float64{"2024": 0.7, "2025": 1.0},
				SourceReference: "mpa-2024-09"})
			return err
		},
		func() error {
			_, err := f.ingest.IngestRateCurve(ctx, models.RateCurveRequest{
				AsOf: "2024-09-30",
				Points: []models.CurvePointRequest{
					{TenorMonths: 12, RatePct: ptr(0.65)},
					{TenorMonths: 3, RatePct: ptr(0.50)},
					{TenorMonths: 6, RatePct: ptr(0.55)},
				},
				SourceReference: "saron-2024-09-30"})
			return err
		},
		func() error {
			_, err := f.ingest.IngestPolicyRate(ctx, models.PolicyRateRequest{EffectiveDate: "2024-09-26", RatePct: ptr(0.5)})
			return err
		},
	}
	for i, step := range steps {
		if containsKind(skip, kinds[i]) {
			continue
		}
		if err := step(); err != nil {
			t.Fatalf("seed step %d: %v", i, err)
		}
	}
}

func containsKind(kinds []models.ObservationKind, k models.ObservationKind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

func TestIngestIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	req := models.InflationRequest{Provider: "stat", AsOf: "2024-09", YoYPct: ptr(0.7), SourceReference: "r"}

	first, err := f.ingest.IngestInflation(ctx, req)
	if err != nil || first.Outcome != models.OutcomeCreated {
		t.Fatalf("first: %+v %v", first, err)
	}
	second, err := f.ingest.IngestInflation(ctx, req)
	if err != nil || second.Outcome != models.OutcomeDuplicate {
		t.Fatalf("second: %+v %v", second, err)
	}
	if first.NaturalKey != "stat|2024-09" || second.NaturalKey != first.NaturalKey {
		t.Fatalf("natural keys %q %q", first.NaturalKey, second.NaturalKey)
	}
	if len(f.pub.obs) != 1 {
		t.Fatalf("expected one event for the created row, got %v", f.pub.obs)
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.ingest.IngestRateCurve(ctx, models.RateCurveRequest{
		AsOf:   "2024-09-30",
		Points: []models.CurvePointRequest{{TenorMonths: 3, RatePct: ptr(0.5)}, {TenorMonths: 3, RatePct: ptr(0.6)}},
	})
	if !errors.Is(err, forecast.ErrInvalidCurveShape) {
		t.Fatalf("duplicate tenors: expected ErrInvalidCurveShape, got %v", err)
	}

	_, err = f.ingest.IngestBarometer(ctx, models.BarometerRequest{Provider: "kof", AsOf: "30/09/2024", Value: ptr(100)})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad date: expected ErrInvalidRequest, got %v", err)
	}

	_, err = f.ingest.IngestOfficialForecast(ctx, models.OfficialForecastRequest{
		MeetingDate: "2024-09-26", ForecastByYear: map[string]float64{"next": 1.0}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad year: expected ErrInvalidRequest, got %v", err)
	}
}

func TestRunEndToEndHoldModal(t *testing.T) {
	f := newFixture()
	f.seed(t)
	cache := svccache.NewRunCache(pkgcache.NewMemoryCache(), time.Hour)
	orch := f.orchestrator(engineConfig(), WithRunCache(cache))
	ctx := context.Background()

	run, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.State != models.RunPersisted || run.Decision != models.DecisionHold {
		t.Fatalf("state=%s decision=%s", run.State, run.Decision)
	}
	if run.Flags.DegradedInput || run.Flags.MarketDataUnavailable {
		t.Fatalf("unexpected flags %+v", run.Flags)
	}
	p := run.Probabilities
	if !(p.Hold > p.Cut && p.Hold > p.Hike) {
		t.Fatalf("hold not modal: %+v", p)
	}
	if run.Inputs.RateCurve == nil || run.Inputs.RateCurve.Points[0].TenorMonths != 3 {
		t.Fatalf("curve not sorted in snapshot: %+v", run.Inputs.RateCurve)
	}
	if len(f.pub.runs) != 1 || f.pub.runs[0] != run.RunID {
		t.Fatalf("run events = %v", f.pub.runs)
	}

	latest, err := orch.Latest(ctx)
	if err != nil || latest.RunID != run.RunID {
		t.Fatalf("Latest: %+v %v", latest, err)
	}
	got, err := orch.Get(ctx, run.RunID)
	if err != nil || got.FusedRatePct != run.FusedRatePct {
		t.Fatalf("Get: %+v %v", got, err)
	}
}

func TestRunDegradesWithoutInputs(t *testing.T) {
	f := newFixture()
	cfg := engineConfig()
	cfg.FallbackPolicyPct = ptr(0.5)

	run, err := f.orchestrator(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	fl := run.Flags
	if !fl.LowConfidence || !fl.DegradedInput || !fl.MarketDataUnavailable || !fl.PolicyRateFromConfig {
		t.Fatalf("expected degradation flags, got %+v", fl)
	}
	if run.FusedRatePct != run.RuleImpliedRatePct {
		t.Fatalf("fused %v != rule %v", run.FusedRatePct, run.RuleImpliedRatePct)
	}
	if len(run.Notes) == 0 {
		t.Fatalf("expected notes")
	}
}

func TestRunWithoutBarometerDegrades(t *testing.T) {
	f := newFixture()
	f.seed(t, models.KindBarometer)

	run, err := f.orchestrator(engineConfig()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if run.State != models.RunPersisted {
		t.Fatalf("state = %s", run.State)
	}
	if !run.Flags.DegradedInput || run.Flags.MarketDataUnavailable {
		t.Fatalf("unexpected flags %+v", run.Flags)
	}
	if run.OutputGap != 0 {
		t.Fatalf("output gap = %v, want 0", run.OutputGap)
	}
	if run.Inputs.Barometer != nil {
		t.Fatalf("unexpected barometer in snapshot")
	}
}

func TestLatestPrefersMostRecentlyCreatedRun(t *testing.T) {
	f := newFixture()
	f.seed(t)
	cache := svccache.NewRunCache(pkgcache.NewMemoryCache(), time.Hour)
	ctx := context.Background()

	// The run created later finishes first.
	later := NewRunOrchestrator(f.store, f.store, f.pub, metrics.Nop{}, engineConfig(),
		WithOrchestratorClock(func() time.Time { return t2 }), WithRunCache(cache))
	earlier := NewRunOrchestrator(f.store, f.store, f.pub, metrics.Nop{}, engineConfig(),
		WithOrchestratorClock(func() time.Time { return t1 }), WithRunCache(cache))

	newest, err := later.Run(ctx)
	if err != nil {
		t.Fatalf("later run: %v", err)
	}
	if _, err := earlier.Run(ctx); err != nil {
		t.Fatalf("earlier run: %v", err)
	}

	stored, err := f.store.LatestRun(ctx)
	if err != nil || stored.RunID != newest.RunID {
		t.Fatalf("store latest = %+v %v, want %s", stored, err, newest.RunID)
	}
	for _, orch := range []*RunOrchestrator{later, earlier} {
		got, err := orch.Latest(ctx)
		if err != nil {
			t.Fatalf("Latest: %v", err)
		}
		if got.RunID != newest.RunID {
			t.Fatalf("Latest = %s created %v, want %s", got.RunID, got.CreatedAt, newest.RunID)
		}
	}
}

func TestRunSnapshotIgnoresRowsAfterCutoff(t *testing.T) {
	f := newFixture()
	f.seed(t)
	ctx := context.Background()

	hook := func(ctx context.Context, snap *models.InputSnapshot) {
		f.clock.set(t2)
		if _, err := f.ingest.IngestInflation(ctx, models.InflationRequest{
			Provider: "stat", AsOf: "2024-10", YoYPct: ptr(3.0), SourceReference: "late"}); err != nil {
			t.Errorf("ingest in hook: %v", err)
		}
		if _, err := f.ingest.IngestPolicyRate(ctx, models.PolicyRateRequest{
			EffectiveDate: "2024-10-01", RatePct: ptr(1.5)}); err != nil {
			t.Errorf("ingest in hook: %v", err)
		}
	}
	orch := f.orchestrator(engineConfig(), WithSnapshotHook(hook))
	run, err := orch.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(run.Inputs.Inflation) != 1 || run.CurrentPolicyRatePct != 0.5 {
		t.Fatalf("run saw late rows: inflation=%d policy=%v", len(run.Inputs.Inflation), run.CurrentPolicyRatePct)
	}
	if !run.Inputs.Cutoff.Equal(t1) {
		t.Fatalf("cutoff = %v", run.Inputs.Cutoff)
	}

	// A second run with the same cutoff still excludes rows ingested at t2.
	again, err := f.orchestrator(engineConfig()).Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(again.Inputs.Inflation) != 1 || again.FusedRatePct != run.FusedRatePct {
		t.Fatalf("second run differs: %d rows, fused %v vs %v",
			len(again.Inputs.Inflation), again.FusedRatePct, run.FusedRatePct)
	}
}

func TestFailedRunIsNotPersisted(t *testing.T) {
	f := newFixture()
	orch := f.orchestrator(engineConfig())
	ctx := context.Background()

	_, err := orch.Run(ctx)
	var re *RunError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if re.Stage != models.RunComputing || !errors.Is(err, forecast.ErrInvalidConfig) {
		t.Fatalf("unexpected failure %+v", re)
	}
	if _, err := orch.Latest(ctx); !errors.Is(err, ErrNoRunYet) {
		t.Fatalf("expected ErrNoRunYet, got %v", err)
	}
	if len(f.pub.runs) != 0 {
		t.Fatalf("failed run was published")
	}
}

func TestRunStoreUnavailable(t *testing.T) {
	f := newFixture()
	bad := unavailableStore{f.store}
	orch := NewRunOrchestrator(bad, f.store, f.pub, metrics.Nop{}, engineConfig())

	_, err := orch.Run(context.Background())
	var re *RunError
	if !errors.As(err, &re) || re.Stage != models.RunCollecting {
		t.Fatalf("expected collecting failure, got %v", err)
	}
	if !errors.Is(err, domrepo.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable in chain, got %v", err)
	}
}

func TestRunTriggerHandler(t *testing.T) {
	f := newFixture()
	f.seed(t)
	h := NewRunTriggerHandler("triggers", f.orchestrator(engineConfig()))
	ctx := context.Background()

	var perm *pkgkafka.PermanentError
	if err := h.Handle(ctx, []byte("{not json")); !errors.As(err, &perm) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if err := h.Handle(ctx, []byte(`{"source":"cron","requested_at":"2024-10-01T08:00:00Z"}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(f.pub.runs) != 1 {
		t.Fatalf("expected one persisted run, got %d", len(f.pub.runs))
	}
}

type stubNarrator struct{ question string }

func (s *stubNarrator) Narrate(_ context.Context, run *models.ModelRun, q string) (string, error) {
	s.question = q
	return "decision is " + string(run.Decision), nil
}

func TestExplain(t *testing.T) {
	f := newFixture()
	f.seed(t)
	ctx := context.Background()
	run, err := f.orchestrator(engineConfig()).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := NewExplainUseCase(f.store, nil, metrics.Nop{}).Explain(ctx, run.RunID, ""); !errors.Is(err, ErrNarratorUnavailable) {
		t.Fatalf("expected ErrNarratorUnavailable, got %v", err)
	}

	n := &stubNarrator{}
	uc := NewExplainUseCase(f.store, n, metrics.Nop{})
	res, err := uc.Explain(ctx, run.RunID, "")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if res.Text != "decision is hold" || n.question != defaultQuestion {
		t.Fatalf("unexpected result %+v (question %q)", res, n.question)
	}
	if _, err := uc.Explain(ctx, "missing", "why"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
