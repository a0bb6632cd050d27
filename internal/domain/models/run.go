package models

import "time"

// RunState is a step of the orchestrator state machine.
type RunState string

const (
	RunCollecting RunState = "collecting"
	RunComputing  RunState = "computing"
	RunPersisted  RunState = "persisted"
	RunFailed     RunState = "failed"
)

// Decision is one of the three policy outcomes.
type Decision string

const (
	DecisionCut  Decision = "cut"
	DecisionHold Decision = "hold"
	DecisionHike Decision = "hike"
)

// Nowcast holds inflation point nowcasts in percent.
type Nowcast struct {
	H3  float64 `json:"h3"`
	H6  float64 `json:"h6"`
	H12 float64 `json:"h12"`
}

// Probabilities is the discrete decision distribution; the three fields sum to 1.
type Probabilities struct {
	Cut  float64 `json:"cut"`
	Hold float64 `json:"hold"`
	Hike float64 `json:"hike"`
}

// Modal returns the most likely decision. Ties resolve toward hold.
func (p Probabilities) Modal() Decision {
	switch {
	case p.Hold >= p.Cut && p.Hold >= p.Hike:
		return DecisionHold
	case p.Cut > p.Hike:
		return DecisionCut
	default:
		return DecisionHike
	}
}

// RunFlags records degradations absorbed during a run.
type RunFlags struct {
	LowConfidence         bool `json:"low_confidence"`
	DegradedInput         bool `json:"degraded_input"`
	MarketDataUnavailable bool `json:"market_data_unavailable"`
	Extrapolated          bool `json:"extrapolated"`
	PolicyRateFromConfig  bool `json:"policy_rate_from_config"`
}

// InputSnapshot copies every observation row a run consumed.
type InputSnapshot struct {
	Cutoff           time.Time                  `json:"cutoff"`
	Inflation        []InflationObservation     `json:"inflation"`
	Barometer        *BarometerObservation      `json:"barometer,omitempty"`
	OfficialForecast *OfficialForecast          `json:"official_forecast,omitempty"`
	RateCurve        *RateCurveSnapshot         `json:"rate_curve,omitempty"`
	CurrencyIndex    []CurrencyIndexObservation `json:"currency_index,omitempty"`
	PolicyRate       *PolicyRateState           `json:"policy_rate,omitempty"`
}

// ModelRun is the immutable result of one orchestrated run.
type ModelRun struct {
	RunID        string        `json:"run_id"`
	CreatedAt    time.Time     `json:"created_at"`
	ModelVersion string        `json:"model_version"`
	State        RunState      `json:"state"`
	Inputs       InputSnapshot `json:"inputs_snapshot"`

	Nowcast              Nowcast `json:"nowcast"`
	OutputGap            float64 `json:"output_gap"`
	CurrencyDeviationPct float64 `json:"currency_deviation_pct"`
	RuleImpliedRatePct   float64 `json:"rule_implied_rate_pct"`
	RuleImpliedVariance  float64 `json:"rule_implied_variance"`

	MarketImpliedRatePct  *float64 `json:"market_implied_rate_pct,omitempty"`
	MarketImpliedVariance *float64 `json:"market_implied_variance,omitempty"`
	MarketHorizonMonths   float64  `json:"market_horizon_months"`

	KalmanGain    float64 `json:"kalman_gain"`
	FusedRatePct  float64 `json:"fused_rate_pct"`
	FusedVariance float64 `json:"fused_variance"`

	CurrentPolicyRatePct float64       `json:"current_policy_rate_pct"`
	DecisionStepPct      float64       `json:"decision_step_pct"`
	Probabilities        Probabilities `json:"probabilities"`
	Decision             Decision      `json:"decision"`

	Flags RunFlags `json:"flags"`
	Notes []string `json:"notes,omitempty"`
}
