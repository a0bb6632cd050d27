package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
)

func monthEnd(y int, m time.Month) time.Time {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
}

func TestMemoryStoreIngestIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	o := &models.InflationObservation{Provider: "stat", AsOf: monthEnd(2024, 9), YoYPct: 0.8, SourceReference: "r1"}

	got, err := s.Ingest(ctx, o)
	if err != nil || got != models.OutcomeCreated {
		t.Fatalf("first ingest: %v %v", got, err)
	}
	again := *o
	again.YoYPct = 9.9
	got, err = s.Ingest(ctx, &again)
	if err != nil || got != models.OutcomeDuplicate {
		t.Fatalf("second ingest: %v %v", got, err)
	}

	rows, err := s.History(ctx, models.KindInflation, 10, domrepo.Query{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 1 || rows[0].(*models.InflationObservation).YoYPct != 0.8 {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestMemoryStoreConcurrentDuplicateIngest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := &models.BarometerObservation{Provider: "kof", AsOf: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), Value: 101}
			out, err := s.Ingest(ctx, o)
			if err != nil {
				t.Errorf("ingest: %v", err)
				return
			}
			if out == models.OutcomeCreated {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one created, got %d", created)
	}
}

func TestMemoryStoreHighestRevisionWins(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := models.InflationObservation{Provider: "stat", AsOf: monthEnd(2024, 9), YoYPct: 0.8}
	corrected := base
	corrected.YoYPct = 0.9
	corrected.Revision = 1

	for _, o := range []models.InflationObservation{corrected, base} {
		o := o
		if _, err := s.Ingest(ctx, &o); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	latest, err := s.Latest(ctx, models.KindInflation, domrepo.Query{Provider: "stat"})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if v := latest.(*models.InflationObservation); v.YoYPct != 0.9 || v.Revision != 1 {
		t.Fatalf("expected corrected row, got %+v", v)
	}
}

func TestMemoryStoreHistoryOrderAndLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for m := time.January; m <= time.June; m++ {
		o := &models.InflationObservation{Provider: "stat", AsOf: monthEnd(2024, m), YoYPct: float64(m)}
		if _, err := s.Ingest(ctx, o); err != nil {
			t.Fatalf("ingest: %v", err)
		}
	}
	rows, err := s.History(ctx, models.KindInflation, 3, domrepo.Query{Before: monthEnd(2024, time.May)})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	for i, want := range []float64{3, 4, 5} {
		if got := rows[i].(*models.InflationObservation).YoYPct; got != want {
			t.Fatalf("row %d: %v want %v", i, got, want)
		}
	}
}

func TestMemoryStoreCutoffHidesLaterRows(t *testing.T) {
	clock := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	first := &models.RateCurveSnapshot{AsOf: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), Points: []models.CurvePoint{{TenorMonths: 3, RatePct: 1}, {TenorMonths: 6, RatePct: 1.1}}}
	if _, err := s.Ingest(ctx, first); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	cutoff := clock
	clock = clock.Add(time.Minute)
	second := &models.RateCurveSnapshot{AsOf: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC), Points: first.Points}
	if _, err := s.Ingest(ctx, second); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	got, err := s.Latest(ctx, models.KindRateCurve, domrepo.Query{Cutoff: cutoff})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if !got.Period().Equal(first.AsOf) {
		t.Fatalf("cutoff leaked later row: %v", got.Period())
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	curve := &models.RateCurveSnapshot{AsOf: time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC), Points: []models.CurvePoint{{TenorMonths: 3, RatePct: 1}, {TenorMonths: 6, RatePct: 1.1}}}
	if _, err := s.Ingest(ctx, curve); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	curve.Points[0].RatePct = 42

	got, err := s.Latest(ctx, models.KindRateCurve, domrepo.Query{})
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got.(*models.RateCurveSnapshot).Points[0].RatePct != 1 {
		t.Fatalf("stored row was mutated through caller slice")
	}
}

func TestMemoryStoreRuns(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.LatestRun(ctx); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	t0 := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b"} {
		run := &models.ModelRun{RunID: id, CreatedAt: t0.Add(time.Duration(i) * time.Second), State: models.RunPersisted}
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.SaveRun(ctx, &models.ModelRun{RunID: "a"}); err == nil {
		t.Fatalf("expected error on duplicate run id")
	}
	latest, err := s.LatestRun(ctx)
	if err != nil || latest.RunID != "b" {
		t.Fatalf("latest: %v %v", latest, err)
	}
	got, err := s.GetRun(ctx, "a")
	if err != nil || got.RunID != "a" {
		t.Fatalf("get: %v %v", got, err)
	}
	if _, err := s.GetRun(ctx, "zzz"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreRunsAreImmutable(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	rate := 0.5
	run := &models.ModelRun{
		RunID:     "r1",
		CreatedAt: time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
		Inputs: models.InputSnapshot{
			Inflation: []models.InflationObservation{{Provider: "stat", AsOf: monthEnd(2024, 9), YoYPct: 0.7}},
			RateCurve: &models.RateCurveSnapshot{Points: []models.CurvePoint{{TenorMonths: 3, RatePct: 0.5}, {TenorMonths: 6, RatePct: 0.6}}},
		},
		MarketImpliedRatePct: &rate,
		Notes:                []string{"original"},
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's run after save must not reach the store.
	run.Inputs.Inflation[0].YoYPct = 9
	rate = 9

	got, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Notes[0] = "changed"
	got.Inputs.RateCurve.Points[0].RatePct = 9
	*got.MarketImpliedRatePct = 9

	again, err := s.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if again.Inputs.Inflation[0].YoYPct != 0.7 || *again.MarketImpliedRatePct != 0.5 {
		t.Fatalf("stored run changed through caller pointer: %+v", again)
	}
	if again.Notes[0] != "original" || again.Inputs.RateCurve.Points[0].RatePct != 0.5 {
		t.Fatalf("stored run changed through returned pointer: %+v", again)
	}
}
