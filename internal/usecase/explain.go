package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RateCast/internal/domain/models"
	domrepo "RateCast/internal/domain/repository"
	domsvc "RateCast/internal/domain/service"
	applogger "RateCast/pkg/logger"
)

// ErrNarratorUnavailable is returned when no narrator is configured.
var ErrNarratorUnavailable = errors.New("narrator not configured")

const defaultQuestion = "Why is this the most likely decision?"

// ExplainUseCase asks the external narrator to describe a persisted run. The narrator never
// influences numbers; it only receives the run.
type ExplainUseCase struct {
	runs     domrepo.RunStore
	narrator domsvc.Narrator
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

// NewExplainUseCase accepts a nil narrator; Explain then returns ErrNarratorUnavailable.
func NewExplainUseCase(runs domrepo.RunStore, narrator domsvc.Narrator, metrics domrepo.Metrics) *ExplainUseCase {
	return &ExplainUseCase{runs: runs, narrator: narrator, metrics: metrics, l: applogger.Nop()}
}

func (uc *ExplainUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

func (uc *ExplainUseCase) Explain(ctx context.Context, runID, question string) (*models.ExplainResult, error) {
	if uc.narrator == nil {
		return nil, ErrNarratorUnavailable
	}
	if question == "" {
		question = defaultQuestion
	}
	run, err := uc.runs.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}

	start := time.Now()
	text, err := uc.narrator.Narrate(ctx, run, question)
	uc.metrics.RecordLatency("narrate_seconds", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("narrate")
		uc.l.Error("narrator call failed", applogger.String("run_id", runID), applogger.Error(err))
		return nil, fmt.Errorf("narrate run %s: %w", runID, err)
	}
	return &models.ExplainResult{RunID: runID, Question: question, Text: text}, nil
}
