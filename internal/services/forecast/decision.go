package forecast

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"RateCast/internal/domain/models"
)

// DecisionProbabilities integrates Gaussian(fused, fusedVar) over the cut, hold and hike bands
// centred on the current policy rate. The hold band is [current-step/2, current+step/2).
func DecisionProbabilities(fused, fusedVar, current float64, cfg DecisionConfig) (models.Probabilities, error) {
	if err := checkVariance("fused variance", fusedVar); err != nil {
		return models.Probabilities{}, err
	}
	if cfg.StepPct <= 0 || !finite(cfg.StepPct) {
		return models.Probabilities{}, fmt.Errorf("%w: decision step %v", ErrInvalidConfig, cfg.StepPct)
	}
	if !finite(current) {
		return models.Probabilities{}, fmt.Errorf("%w: current policy rate %v", ErrInvalidConfig, current)
	}
	if !finite(fused) {
		return models.Probabilities{}, fmt.Errorf("%w: fused rate %v", ErrInvalidConfig, fused)
	}

	lo, hi := bandEdges(current, cfg.StepPct)
	sd := math.Sqrt(fusedVar)

	cut := normCDF((lo - fused) / sd)
	hike := normCDF((fused - hi) / sd)
	hold := 1 - cut - hike
	if hold < 0 {
		hold = 0
	}
	return models.Probabilities{Cut: cut, Hold: hold, Hike: hike}, nil
}

// bandEdges computes current -/+ step/2 in decimal so quarter-point grids land exactly.
func bandEdges(current, step float64) (float64, float64) {
	c := decimal.NewFromFloat(current)
	half := decimal.NewFromFloat(step).Div(decimal.NewFromInt(2))
	return c.Sub(half).InexactFloat64(), c.Add(half).InexactFloat64()
}

func normCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}
