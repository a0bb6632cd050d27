package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RateCast/internal/services/forecast"
	pkgkafka "RateCast/pkg/kafka"
	applogger "RateCast/pkg/logger"
	"RateCast/pkg/util"
)

// RunTrigger is the payload on the trigger topic.
type RunTrigger struct {
	Source      string `json:"source"`
	RequestedAt string `json:"requested_at"`
}

// RunTriggerHandler starts a run for every message on the trigger topic.
type RunTriggerHandler struct {
	topic string
	orch  *RunOrchestrator
	l     *applogger.Logger
}

func NewRunTriggerHandler(topic string, orch *RunOrchestrator) *RunTriggerHandler {
	return &RunTriggerHandler{topic: topic, orch: orch, l: applogger.Nop()}
}

func (h *RunTriggerHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *RunTriggerHandler) Topic() string { return h.topic }

// Handle returns a PermanentError for payloads and run failures that a retry cannot fix.
// Store outages are returned as-is so the consumer retries them.
func (h *RunTriggerHandler) Handle(ctx context.Context, b []byte) error {
	var t RunTrigger
	if len(b) > 0 {
		if err := json.Unmarshal(b, &t); err != nil {
			return &pkgkafka.PermanentError{Err: fmt.Errorf("decode run trigger: %w", err)}
		}
	}
	if t.RequestedAt != "" {
		if _, ok := util.ParseTime(t.RequestedAt); !ok {
			return &pkgkafka.PermanentError{Err: fmt.Errorf("run trigger: invalid requested_at %q", t.RequestedAt)}
		}
	}

	run, err := h.orch.Run(ctx)
	if err != nil {
		if errors.Is(err, forecast.ErrInvalidVariance) ||
			errors.Is(err, forecast.ErrInvalidCurveShape) ||
			errors.Is(err, forecast.ErrInvalidConfig) {
			return &pkgkafka.PermanentError{Err: err}
		}
		return err
	}
	h.l.Info("triggered run persisted",
		applogger.String("source", t.Source),
		applogger.String("run_id", run.RunID),
		applogger.String("decision", string(run.Decision)))
	return nil
}
