package repository

import (
	"context"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	pkgkafka "RateCast/pkg/kafka"
)

const (
	EventObservationCreated = "observation.created"
	EventRunPersisted       = "run.persisted"
)

// ObservationEvent announces a newly stored observation.
type ObservationEvent struct {
	Type       string                 `json:"type"`
	Kind       models.ObservationKind `json:"kind"`
	NaturalKey string                 `json:"natural_key"`
	At         time.Time              `json:"at"`
}

// RunEvent summarises a persisted run for downstream consumers.
type RunEvent struct {
	Type          string               `json:"type"`
	RunID         string               `json:"run_id"`
	CreatedAt     time.Time            `json:"created_at"`
	ModelVersion  string               `json:"model_version"`
	FusedRatePct  float64              `json:"fused_rate_pct"`
	FusedVariance float64              `json:"fused_variance"`
	Probabilities models.Probabilities `json:"probabilities"`
	Decision      models.Decision      `json:"decision"`
	Flags         models.RunFlags      `json:"flags"`
}

// KafkaPublisher implements EventPublisher on a single events topic.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) domrepo.EventPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishObservation(ctx context.Context, kind models.ObservationKind, naturalKey string) error {
	ev := ObservationEvent{Type: EventObservationCreated, Kind: kind, NaturalKey: naturalKey, At: time.Now().UTC()}
	return p.producer.Publish(ctx, p.topic, []byte(string(kind)+"|"+naturalKey), ev,
		map[string]string{"event_type": EventObservationCreated})
}

func (p *KafkaPublisher) PublishRun(ctx context.Context, run *models.ModelRun) error {
	return p.producer.Publish(ctx, p.topic, []byte(run.RunID), NewRunEvent(run),
		map[string]string{"event_type": EventRunPersisted})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func NewRunEvent(run *models.ModelRun) RunEvent {
	return RunEvent{
		Type:          EventRunPersisted,
		RunID:         run.RunID,
		CreatedAt:     run.CreatedAt,
		ModelVersion:  run.ModelVersion,
		FusedRatePct:  run.FusedRatePct,
		FusedVariance: run.FusedVariance,
		Probabilities: run.Probabilities,
		Decision:      run.Decision,
		Flags:         run.Flags,
	}
}

// NoopPublisher is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishObservation(context.Context, models.ObservationKind, string) error {
	return nil
}
func (NoopPublisher) PublishRun(context.Context, *models.ModelRun) error { return nil }
func (NoopPublisher) Close() error                                       { return nil }
