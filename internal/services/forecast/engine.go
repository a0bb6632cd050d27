package forecast

import (
	"fmt"

	"RateCast/internal/domain/models"
)

// Evaluate runs nowcaster, rule, curve reader, fusion and decision mapper over run.Inputs and fills the
// computed fields of run. Degraded inputs become flags and notes. Only configuration and data-integrity
// problems are returned as errors; run is left partially filled in that case and must not be persisted.
func Evaluate(run *models.ModelRun, cfg Config) error {
	in := &run.Inputs

	nc := Nowcast(NowcastInput{
		History:   in.Inflation,
		Barometer: in.Barometer,
		Official:  in.OfficialForecast,
	}, cfg.Nowcast)
	run.Nowcast = nc.Nowcast
	run.Flags.LowConfidence = nc.LowConfidence
	run.Flags.DegradedInput = nc.DegradedInput
	run.Notes = append(run.Notes, nc.Notes...)

	rule, err := RuleRate(RuleInput{
		Nowcast:   nc.Nowcast,
		Barometer: in.Barometer,
		Currency:  in.CurrencyIndex,
	}, cfg.Rule, cfg.Nowcast)
	if err != nil {
		return err
	}
	run.OutputGap = rule.OutputGap
	run.CurrencyDeviationPct = rule.CurrencyDeviationPct
	run.RuleImpliedRatePct = rule.RatePct
	run.RuleImpliedVariance = rule.Variance
	run.Flags.DegradedInput = run.Flags.DegradedInput || rule.DegradedInput
	run.Notes = append(run.Notes, rule.Notes...)

	var fused Fused
	run.MarketHorizonMonths = cfg.Curve.HorizonMonths
	if in.RateCurve == nil {
		run.Flags.MarketDataUnavailable = true
		run.Flags.DegradedInput = true
		run.Notes = append(run.Notes, "no rate curve; fused estimate equals rule estimate")
		fused, err = PriorOnly(rule.RatePct, rule.Variance)
	} else {
		var reading CurveReading
		reading, err = ReadCurve(in.RateCurve, cfg.Curve)
		if err != nil {
			return err
		}
		run.MarketImpliedRatePct = &reading.RatePct
		run.MarketImpliedVariance = &reading.Variance
		run.Flags.Extrapolated = reading.Extrapolated
		fused, err = Fuse(rule.RatePct, rule.Variance, reading.RatePct, reading.Variance)
	}
	if err != nil {
		return err
	}
	run.KalmanGain = fused.Gain
	run.FusedRatePct = fused.RatePct
	run.FusedVariance = fused.Variance

	current, fromConfig, err := currentPolicyRate(in.PolicyRate, cfg.FallbackPolicyPct)
	if err != nil {
		return err
	}
	run.CurrentPolicyRatePct = current
	run.Flags.PolicyRateFromConfig = fromConfig
	run.DecisionStepPct = cfg.Decision.StepPct

	probs, err := DecisionProbabilities(fused.RatePct, fused.Variance, current, cfg.Decision)
	if err != nil {
		return err
	}
	run.Probabilities = probs
	run.Decision = probs.Modal()
	return nil
}

func currentPolicyRate(state *models.PolicyRateState, fallback *float64) (float64, bool, error) {
	if state != nil {
		return state.RatePct, false, nil
	}
	if fallback != nil {
		return *fallback, true, nil
	}
	return 0, false, fmt.Errorf("%w: no policy rate ingested and fallback_policy_rate_pct unset", ErrInvalidConfig)
}
