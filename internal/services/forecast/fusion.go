package forecast

// Fused is the posterior of the one-step Kalman update.
type Fused struct {
	RatePct  float64
	Variance float64
	Gain     float64
}

// Fuse treats the rule rate as the prior and the market rate as a noisy measurement of the same
// latent fair rate. The posterior variance never exceeds either input variance.
func Fuse(ruleRate, ruleVar, marketRate, marketVar float64) (Fused, error) {
	if err := checkVariance("rule variance", ruleVar); err != nil {
		return Fused{}, err
	}
	if err := checkVariance("market variance", marketVar); err != nil {
		return Fused{}, err
	}
	k := ruleVar / (ruleVar + marketVar)
	return Fused{
		RatePct:  ruleRate + k*(marketRate-ruleRate),
		Variance: (1 - k) * ruleVar,
		Gain:     k,
	}, nil
}

// PriorOnly is the fusion result when no market measurement exists.
func PriorOnly(ruleRate, ruleVar float64) (Fused, error) {
	if err := checkVariance("rule variance", ruleVar); err != nil {
		return Fused{}, err
	}
	return Fused{RatePct: ruleRate, Variance: ruleVar}, nil
}
