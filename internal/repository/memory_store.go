package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	applogger "RateCast/pkg/logger"
)

// MemoryStore implements ObservationStore and RunStore in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	obs  map[models.ObservationKind]map[string]models.Observation
	runs []*models.ModelRun
	byID map[string]*models.ModelRun
	now  func() time.Time
	l    *applogger.Logger
}

// MemoryOption configures MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the ingestion timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		obs:  make(map[models.ObservationKind]map[string]models.Observation),
		byID: make(map[string]*models.ModelRun),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger injects a structured logger.
func (s *MemoryStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *MemoryStore) Ingest(ctx context.Context, o models.Observation) (models.IngestOutcome, error) {
	if o == nil {
		return "", fmt.Errorf("ingest: nil observation")
	}
	key := o.NaturalKey()

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.obs[o.Kind()]
	if !ok {
		rows = make(map[string]models.Observation)
		s.obs[o.Kind()] = rows
	}
	if _, dup := rows[key]; dup {
		return models.OutcomeDuplicate, nil
	}
	c := cloneObservation(o)
	if c.Ingested().IsZero() {
		c.SetIngested(s.now().UTC())
	}
	rows[key] = c
	if s.l != nil {
		s.l.Debug("memory store ingest",
			applogger.String("kind", string(o.Kind())),
			applogger.String("natural_key", key),
		)
	}
	return models.OutcomeCreated, nil
}

func (s *MemoryStore) Latest(ctx context.Context, kind models.ObservationKind, q domrepo.Query) (models.Observation, error) {
	rows := s.selectRows(kind, q)
	if len(rows) == 0 {
		return nil, domrepo.ErrNotFound
	}
	return rows[len(rows)-1], nil
}

func (s *MemoryStore) History(ctx context.Context, kind models.ObservationKind, n int, q domrepo.Query) ([]models.Observation, error) {
	rows := s.selectRows(kind, q)
	if n > 0 && len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows, nil
}

// selectRows returns one row per period (highest revision, then latest ingestion), ascending by period.
func (s *MemoryStore) selectRows(kind models.ObservationKind, q domrepo.Query) []models.Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[time.Time]models.Observation)
	for _, o := range s.obs[kind] {
		if q.Provider != "" && o.Source() != "" && o.Source() != q.Provider {
			continue
		}
		if !q.Before.IsZero() && o.Period().After(q.Before) {
			continue
		}
		if !q.Cutoff.IsZero() && o.Ingested().After(q.Cutoff) {
			continue
		}
		p := o.Period().UTC()
		cur, ok := best[p]
		if !ok || o.Rev() > cur.Rev() || (o.Rev() == cur.Rev() && o.Ingested().After(cur.Ingested())) {
			best[p] = o
		}
	}

	out := make([]models.Observation, 0, len(best))
	for _, o := range best {
		out = append(out, cloneObservation(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period().Before(out[j].Period()) })
	return out
}

func (s *MemoryStore) SaveRun(ctx context.Context, run *models.ModelRun) error {
	if run == nil || run.RunID == "" {
		return fmt.Errorf("save run: missing run id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[run.RunID]; ok {
		return fmt.Errorf("save run %s: already exists", run.RunID)
	}
	cp := cloneRun(run)
	s.runs = append(s.runs, cp)
	s.byID[run.RunID] = cp
	return nil
}

func (s *MemoryStore) LatestRun(ctx context.Context) (*models.ModelRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ModelRun
	for _, r := range s.runs {
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, domrepo.ErrNotFound
	}
	return cloneRun(latest), nil
}

func (s *MemoryStore) GetRun(ctx context.Context, runID string) (*models.ModelRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[runID]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return cloneRun(r), nil
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// cloneRun deep-copies a run so the stored record cannot be changed through a returned pointer.
func cloneRun(r *models.ModelRun) *models.ModelRun {
	c := *r
	in := r.Inputs
	if in.Inflation != nil {
		c.Inputs.Inflation = make([]models.InflationObservation, len(in.Inflation))
		for i := range in.Inflation {
			c.Inputs.Inflation[i] = *cloneObservation(&in.Inflation[i]).(*models.InflationObservation)
		}
	}
	if in.Barometer != nil {
		c.Inputs.Barometer = cloneObservation(in.Barometer).(*models.BarometerObservation)
	}
	if in.OfficialForecast != nil {
		c.Inputs.OfficialForecast = cloneObservation(in.OfficialForecast).(*models.OfficialForecast)
	}
	if in.RateCurve != nil {
		c.Inputs.RateCurve = cloneObservation(in.RateCurve).(*models.RateCurveSnapshot)
	}
	c.Inputs.CurrencyIndex = append([]models.CurrencyIndexObservation(nil), in.CurrencyIndex...)
	if in.PolicyRate != nil {
		c.Inputs.PolicyRate = cloneObservation(in.PolicyRate).(*models.PolicyRateState)
	}
	c.MarketImpliedRatePct = cloneFloat(r.MarketImpliedRatePct)
	c.MarketImpliedVariance = cloneFloat(r.MarketImpliedVariance)
	c.Notes = append([]string(nil), r.Notes...)
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// cloneObservation copies a row so callers never share slices with the store.
func cloneObservation(o models.Observation) models.Observation {
	switch v := o.(type) {
	case *models.InflationObservation:
		c := *v
		if v.MoMPct != nil {
			m := *v.MoMPct
			c.MoMPct = &m
		}
		return &c
	case *models.BarometerObservation:
		c := *v
		return &c
	case *models.OfficialForecast:
		c := *v
		c.Forecast = append([]models.YearForecast(nil), v.Forecast...)
		return &c
	case *models.RateCurveSnapshot:
		c := *v
		c.Points = append([]models.CurvePoint(nil), v.Points...)
		return &c
	case *models.CurrencyIndexObservation:
		c := *v
		return &c
	case *models.PolicyRateState:
		c := *v
		return &c
	default:
		return o
	}
}
