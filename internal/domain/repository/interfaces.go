package repository

import (
	"context"
	"errors"
	"time"

	"RateCast/internal/domain/models"
)

var (
	// ErrNotFound is returned when no row matches a read.
	ErrNotFound = errors.New("repository: not found")
	// ErrStoreUnavailable wraps connectivity and driver failures of a backing store.
	ErrStoreUnavailable = errors.New("repository: store unavailable")
)

// Query narrows observation reads.
type Query struct {
	// Provider filters kinds that carry a provider. Empty matches any.
	Provider string
	// Before keeps periods at or before this date. Zero is unbounded.
	Before time.Time
	// Cutoff keeps rows ingested at or before this instant. Zero is unbounded.
	Cutoff time.Time
}

// ObservationStore is the append-only observation contract.
// Reads return the highest revision per period and never observe partial writes.
type ObservationStore interface {
	Ingest(ctx context.Context, obs models.Observation) (models.IngestOutcome, error)
	Latest(ctx context.Context, kind models.ObservationKind, q Query) (models.Observation, error)
	History(ctx context.Context, kind models.ObservationKind, n int, q Query) ([]models.Observation, error)
	Health(ctx context.Context) error
	Close() error
}

// RunStore persists immutable model runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *models.ModelRun) error
	LatestRun(ctx context.Context) (*models.ModelRun, error)
	GetRun(ctx context.Context, runID string) (*models.ModelRun, error)
}

// EventPublisher emits domain events to downstream consumers.
type EventPublisher interface {
	PublishObservation(ctx context.Context, kind models.ObservationKind, naturalKey string) error
	PublishRun(ctx context.Context, run *models.ModelRun) error
	Close() error
}

// RunCache holds the most recent persisted run.
type RunCache interface {
	GetLatest(ctx context.Context) (*models.ModelRun, bool, error)
	SetLatest(ctx context.Context, run *models.ModelRun) error
}

type Metrics interface {
	RecordIngest(kind string, outcome string)
	RecordRun(state string)
	RecordDegradation(flag string)
	RecordError(kind string)
	RecordFusedRate(rate float64)
	RecordProbability(decision string, p float64)
	RecordLatency(op string, seconds float64)
}
