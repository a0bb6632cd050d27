package service

import (
	"context"

	"RateCast/internal/domain/models"
)

// Narrator turns a run's numeric output into text. Implemented by an external generation service.
type Narrator interface {
	Narrate(ctx context.Context, run *models.ModelRun, question string) (string, error)
}
