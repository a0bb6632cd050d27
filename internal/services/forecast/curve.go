package forecast

import (
	"fmt"
	"math"

	"RateCast/internal/domain/models"
)

// CurveReading is the market-implied rate at the policy horizon.
type CurveReading struct {
	RatePct       float64
	Variance      float64
	HorizonMonths float64
	Extrapolated  bool
}

// ValidateCurve enforces at least two points with strictly increasing positive tenors.
func ValidateCurve(points []models.CurvePoint) error {
	if len(points) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidCurveShape, len(points))
	}
	for i, p := range points {
		if p.TenorMonths <= 0 {
			return fmt.Errorf("%w: tenor %d is not positive", ErrInvalidCurveShape, p.TenorMonths)
		}
		if math.IsNaN(p.RatePct) || math.IsInf(p.RatePct, 0) {
			return fmt.Errorf("%w: rate at tenor %d is not finite", ErrInvalidCurveShape, p.TenorMonths)
		}
		if i > 0 && p.TenorMonths <= points[i-1].TenorMonths {
			return fmt.Errorf("%w: tenors not increasing at %d", ErrInvalidCurveShape, p.TenorMonths)
		}
	}
	return nil
}

// ReadCurve linearly interpolates the curve at cfg.HorizonMonths. Outside the tenor range it clamps
// to the nearest endpoint and reports Extrapolated. The variance grows with the local slope of the
// segment used, on top of a configured floor.
func ReadCurve(curve *models.RateCurveSnapshot, cfg CurveConfig) (CurveReading, error) {
	if curve == nil {
		return CurveReading{}, fmt.Errorf("%w: no curve", ErrInvalidCurveShape)
	}
	pts := curve.Points
	if err := ValidateCurve(pts); err != nil {
		return CurveReading{}, err
	}
	if err := checkVariance("curve.variance_floor", cfg.VarianceFloor); err != nil {
		return CurveReading{}, err
	}

	h := cfg.HorizonMonths
	out := CurveReading{HorizonMonths: h}
	n := len(pts)

	var lo, hi models.CurvePoint
	switch {
	case h < float64(pts[0].TenorMonths):
		lo, hi = pts[0], pts[1]
		out.RatePct = pts[0].RatePct
		out.Extrapolated = true
	case h > float64(pts[n-1].TenorMonths):
		lo, hi = pts[n-2], pts[n-1]
		out.RatePct = pts[n-1].RatePct
		out.Extrapolated = true
	default:
		i := 0
		for i < n-2 && h >= float64(pts[i+1].TenorMonths) {
			i++
		}
		lo, hi = pts[i], pts[i+1]
		switch h {
		case float64(lo.TenorMonths):
			out.RatePct = lo.RatePct
		case float64(hi.TenorMonths):
			out.RatePct = hi.RatePct
		default:
			w := (h - float64(lo.TenorMonths)) / float64(hi.TenorMonths-lo.TenorMonths)
			out.RatePct = lo.RatePct + w*(hi.RatePct-lo.RatePct)
		}
	}

	slope := math.Abs(hi.RatePct-lo.RatePct) / float64(hi.TenorMonths-lo.TenorMonths)
	out.Variance = cfg.VarianceFloor + cfg.SlopeScale*slope
	return out, nil
}
