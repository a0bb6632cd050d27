package forecast

import "fmt"

// NowcastConfig parameterises the inflation nowcaster.
type NowcastConfig struct {
	InflationTarget      float64 `yaml:"inflation_target" default:"2.0"`
	NeutralBarometer     float64 `yaml:"neutral_barometer" default:"100"`
	BarometerSensitivity float64 `yaml:"barometer_sensitivity" default:"0.05"`
	BarometerWeight      float64 `yaml:"barometer_weight" default:"0.5" validate:"gte=0,lte=1"`
	MomentumDamping      float64 `yaml:"momentum_damping" default:"0.5" validate:"gte=0,lte=1"`
	OfficialWeightH6     float64 `yaml:"official_weight_h6" default:"0.4" validate:"gte=0,lte=1"`
	OfficialWeightH12    float64 `yaml:"official_weight_h12" default:"0.75" validate:"gte=0,lte=1"`
}

// RuleConfig parameterises the structural rate rule. Coefficients are configured, not learned.
type RuleConfig struct {
	NeutralRate          float64 `yaml:"neutral_rate" default:"1.0"`
	InflationCoefficient float64 `yaml:"inflation_coefficient" default:"0.5"`
	OutputGapScale       float64 `yaml:"output_gap_scale" default:"0.5"`
	OutputGapCoefficient float64 `yaml:"output_gap_coefficient" default:"0.5"`
	CurrencyCoefficient  float64 `yaml:"currency_coefficient" default:"0.05"`
	CurrencyLookbackDays int     `yaml:"currency_lookback_days" default:"1095" validate:"gt=0"`
	Variance             float64 `yaml:"variance" default:"0.25"`
}

// CurveConfig parameterises the market curve reader.
type CurveConfig struct {
	HorizonMonths float64 `yaml:"horizon_months" default:"3" validate:"gt=0"`
	VarianceFloor float64 `yaml:"variance_floor" default:"0.0025"`
	SlopeScale    float64 `yaml:"slope_scale" default:"0.1" validate:"gte=0"`
}

// DecisionConfig parameterises the decision probability mapper.
type DecisionConfig struct {
	StepPct float64 `yaml:"step_pct" default:"0.25"`
}

// Config groups every engine parameter handed to the components at call time.
type Config struct {
	ModelVersion      string         `yaml:"model_version" default:"policy-kalman-v1"`
	HistoryMonths     int            `yaml:"history_months" default:"24" validate:"gte=12,lte=24"`
	InflationProvider string         `yaml:"inflation_provider"`
	BarometerProvider string         `yaml:"barometer_provider"`
	CurrencyProvider  string         `yaml:"currency_provider"`
	FallbackPolicyPct *float64       `yaml:"fallback_policy_rate_pct"`
	Nowcast           NowcastConfig  `yaml:"nowcast"`
	Rule              RuleConfig     `yaml:"rule"`
	Curve             CurveConfig    `yaml:"curve"`
	Decision          DecisionConfig `yaml:"decision"`
}

// Validate checks cross-field constraints the struct tags cannot express.
// Variance problems are reported as ErrInvalidVariance.
func (c Config) Validate() error {
	for name, v := range c.coefficients() {
		if !finite(v) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Nowcast.OfficialWeightH6 > c.Nowcast.OfficialWeightH12 {
		return fmt.Errorf("nowcast.official_weight_h6 (%.3f) must not exceed official_weight_h12 (%.3f)",
			c.Nowcast.OfficialWeightH6, c.Nowcast.OfficialWeightH12)
	}
	if err := checkVariance("rule.variance", c.Rule.Variance); err != nil {
		return err
	}
	if err := checkVariance("curve.variance_floor", c.Curve.VarianceFloor); err != nil {
		return err
	}
	if c.Decision.StepPct <= 0 {
		return fmt.Errorf("%w: decision.step_pct must be positive, got %v", ErrInvalidConfig, c.Decision.StepPct)
	}
	return nil
}

func (c Config) coefficients() map[string]float64 {
	m := map[string]float64{
		"nowcast.inflation_target":      c.Nowcast.InflationTarget,
		"nowcast.neutral_barometer":     c.Nowcast.NeutralBarometer,
		"nowcast.barometer_sensitivity": c.Nowcast.BarometerSensitivity,
		"nowcast.barometer_weight":      c.Nowcast.BarometerWeight,
		"nowcast.momentum_damping":      c.Nowcast.MomentumDamping,
		"nowcast.official_weight_h6":    c.Nowcast.OfficialWeightH6,
		"nowcast.official_weight_h12":   c.Nowcast.OfficialWeightH12,
		"rule.neutral_rate":             c.Rule.NeutralRate,
		"rule.inflation_coefficient":    c.Rule.InflationCoefficient,
		"rule.output_gap_scale":         c.Rule.OutputGapScale,
		"rule.output_gap_coefficient":   c.Rule.OutputGapCoefficient,
		"rule.currency_coefficient":     c.Rule.CurrencyCoefficient,
		"curve.horizon_months":          c.Curve.HorizonMonths,
		"curve.slope_scale":             c.Curve.SlopeScale,
		"decision.step_pct":             c.Decision.StepPct,
	}
	if c.FallbackPolicyPct != nil {
		m["fallback_policy_rate_pct"] = *c.FallbackPolicyPct
	}
	return m
}
