package forecast

import (
	"time"

	"RateCast/internal/domain/models"
)

// NowcastInput is everything the nowcaster reads. History must be ascending by period.
type NowcastInput struct {
	History   []models.InflationObservation
	Barometer *models.BarometerObservation
	Official  *models.OfficialForecast
}

// NowcastResult carries the point nowcasts and any degradation.
type NowcastResult struct {
	Nowcast       models.Nowcast
	AsOf          time.Time
	LowConfidence bool
	DegradedInput bool
	Notes         []string
}

// Nowcast blends the latest inflation print, its trailing momentum and the barometer into h3, then
// mean-reverts h6 and h12 toward the official forecast (or the target) for the matching year.
func Nowcast(in NowcastInput, cfg NowcastConfig) NowcastResult {
	var res NowcastResult
	if len(in.History) == 0 {
		t := cfg.InflationTarget
		res.Nowcast = models.Nowcast{H3: t, H6: t, H12: t}
		res.LowConfidence = true
		res.DegradedInput = true
		res.Notes = append(res.Notes, "no inflation history; nowcast held at target")
		return res
	}

	last := in.History[len(in.History)-1]
	res.AsOf = last.AsOf
	if len(in.History) < 2 {
		y := last.YoYPct
		res.Nowcast = models.Nowcast{H3: y, H6: y, H12: y}
		res.LowConfidence = true
		res.Notes = append(res.Notes, "single inflation print; nowcast held flat")
		return res
	}

	extrapolated := last.YoYPct + cfg.MomentumDamping*momentumDelta(in.History)

	adjustment := 0.0
	if in.Barometer != nil {
		adjustment = cfg.BarometerSensitivity * (in.Barometer.Value - cfg.NeutralBarometer)
	} else {
		res.Notes = append(res.Notes, "no barometer; nowcast uses inflation momentum only")
	}
	h3 := (1-cfg.BarometerWeight)*extrapolated + cfg.BarometerWeight*(extrapolated+adjustment)

	anchor6 := anchorFor(in.Official, addMonths(last.AsOf, 6).Year(), cfg.InflationTarget)
	anchor12 := anchorFor(in.Official, addMonths(last.AsOf, 12).Year(), cfg.InflationTarget)

	res.Nowcast = models.Nowcast{
		H3:  h3,
		H6:  h3 + cfg.OfficialWeightH6*(anchor6-h3),
		H12: h3 + cfg.OfficialWeightH12*(anchor12-h3),
	}
	return res
}

// momentumDelta estimates how much the year-over-year rate moves over the next three months.
// With month-over-month prints, three of the twelve months in the window get replaced by months
// running at the recent annualised pace. Without them, the recent monthly drift of yoy is extended.
func momentumDelta(history []models.InflationObservation) float64 {
	last := history[len(history)-1]

	var sum float64
	var n int
	for i := len(history) - 1; i >= 0 && n < 3; i-- {
		if history[i].MoMPct == nil {
			break
		}
		sum += *history[i].MoMPct
		n++
	}
	if n > 0 {
		pace := 12 * sum / float64(n)
		return (3.0 / 12.0) * (pace - last.YoYPct)
	}

	k := 3
	if len(history)-1 < k {
		k = len(history) - 1
	}
	first := history[len(history)-1-k]
	months := monthsBetween(first.AsOf, last.AsOf)
	if months <= 0 {
		return 0
	}
	return 3 * (last.YoYPct - first.YoYPct) / float64(months)
}

func anchorFor(official *models.OfficialForecast, year int, target float64) float64 {
	if v, ok := official.ForYear(year); ok {
		return v
	}
	return target
}

func addMonths(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
