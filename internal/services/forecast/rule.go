package forecast

import (
	"sort"
	"time"

	"RateCast/internal/domain/models"
)

// RuleInput is what the structural rule reads. Currency history may be empty.
type RuleInput struct {
	Nowcast   models.Nowcast
	Barometer *models.BarometerObservation
	Currency  []models.CurrencyIndexObservation
}

// RuleResult is the model-implied policy rate and its configured variance.
type RuleResult struct {
	RatePct              float64
	Variance             float64
	OutputGap            float64
	CurrencyDeviationPct float64
	DegradedInput        bool
	Notes                []string
}

// RuleRate evaluates
//
//	neutral + a*(h12 - target) + b*gap - c*currency_deviation
//
// A missing barometer drops the gap term and marks the input degraded; a missing currency index drops
// the currency term.
// Target and neutral barometer level are shared with the nowcaster.
func RuleRate(in RuleInput, cfg RuleConfig, nc NowcastConfig) (RuleResult, error) {
	if err := checkVariance("rule.variance", cfg.Variance); err != nil {
		return RuleResult{}, err
	}
	res := RuleResult{Variance: cfg.Variance}

	if in.Barometer != nil {
		res.OutputGap = cfg.OutputGapScale * (in.Barometer.Value - nc.NeutralBarometer)
	} else {
		res.DegradedInput = true
		res.Notes = append(res.Notes, "no barometer; output gap treated as 0")
	}

	if dev, ok := CurrencyDeviation(in.Currency, cfg.CurrencyLookbackDays); ok {
		res.CurrencyDeviationPct = dev
	} else {
		res.Notes = append(res.Notes, "no currency index; currency term treated as 0")
	}

	res.RatePct = cfg.NeutralRate +
		cfg.InflationCoefficient*(in.Nowcast.H12-nc.InflationTarget) +
		cfg.OutputGapCoefficient*res.OutputGap -
		cfg.CurrencyCoefficient*res.CurrencyDeviationPct
	return res, nil
}

// CurrencyDeviation is the percent deviation of the latest index reading from the average of the
// readings within lookbackDays before it (latest included).
func CurrencyDeviation(history []models.CurrencyIndexObservation, lookbackDays int) (float64, bool) {
	if len(history) == 0 {
		return 0, false
	}
	obs := make([]models.CurrencyIndexObservation, len(history))
	copy(obs, history)
	sort.Slice(obs, func(i, j int) bool { return obs[i].AsOf.Before(obs[j].AsOf) })

	latest := obs[len(obs)-1]
	from := latest.AsOf.Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	var sum float64
	var n int
	for _, o := range obs {
		if o.AsOf.Before(from) {
			continue
		}
		sum += o.IndexValue
		n++
	}
	avg := sum / float64(n)
	if avg == 0 {
		return 0, false
	}
	return (latest.IndexValue - avg) / avg * 100, true
}
