package models

import (
	"fmt"
	"sort"
	"time"
)

// ObservationKind names one append-only observation table.
type ObservationKind string

const (
	KindInflation        ObservationKind = "inflation"
	KindBarometer        ObservationKind = "barometer"
	KindOfficialForecast ObservationKind = "official_forecast"
	KindRateCurve        ObservationKind = "rate_curve"
	KindCurrencyIndex    ObservationKind = "currency_index"
	KindPolicyRate       ObservationKind = "policy_rate"
)

// AllKinds lists every observation kind in ingestion order.
func AllKinds() []ObservationKind {
	return []ObservationKind{
		KindInflation,
		KindBarometer,
		KindOfficialForecast,
		KindRateCurve,
		KindCurrencyIndex,
		KindPolicyRate,
	}
}

// IngestOutcome is the status of an ingestion. A duplicate is not an error.
type IngestOutcome string

const (
	OutcomeCreated   IngestOutcome = "created"
	OutcomeDuplicate IngestOutcome = "duplicate"
)

// Observation is implemented by every ingestable row.
// Rows are immutable once stored; corrections carry a higher Revision for the same period.
type Observation interface {
	Kind() ObservationKind
	NaturalKey() string
	Period() time.Time
	Source() string
	Rev() int
	Ingested() time.Time
	SetIngested(t time.Time)
}

// InflationObservation is one official consumer-price release.
type InflationObservation struct {
	Provider        string    `json:"provider"`
	AsOf            time.Time `json:"as_of"`
	YoYPct          float64   `json:"year_over_year_pct"`
	MoMPct          *float64  `json:"month_over_month_pct,omitempty"`
	SourceReference string    `json:"source_reference"`
	Revision        int       `json:"revision"`
	IngestedAt      time.Time `json:"ingested_at"`
}

func (o *InflationObservation) Kind() ObservationKind   { return KindInflation }
func (o *InflationObservation) Period() time.Time       { return o.AsOf }
func (o *InflationObservation) Source() string          { return o.Provider }
func (o *InflationObservation) Rev() int                { return o.Revision }
func (o *InflationObservation) Ingested() time.Time     { return o.IngestedAt }
func (o *InflationObservation) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *InflationObservation) NaturalKey() string {
	return revisionKey(o.Provider+"|"+o.AsOf.Format("2006-01"), o.Revision)
}

// BarometerObservation is a single leading-indicator reading oscillating around 100.
type BarometerObservation struct {
	Provider        string    `json:"provider"`
	AsOf            time.Time `json:"as_of"`
	Value           float64   `json:"value"`
	SourceReference string    `json:"source_reference"`
	Revision        int       `json:"revision"`
	IngestedAt      time.Time `json:"ingested_at"`
}

func (o *BarometerObservation) Kind() ObservationKind   { return KindBarometer }
func (o *BarometerObservation) Period() time.Time       { return o.AsOf }
func (o *BarometerObservation) Source() string          { return o.Provider }
func (o *BarometerObservation) Rev() int                { return o.Revision }
func (o *BarometerObservation) Ingested() time.Time     { return o.IngestedAt }
func (o *BarometerObservation) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *BarometerObservation) NaturalKey() string {
	return revisionKey(o.Provider+"|"+o.AsOf.Format(time.DateOnly), o.Revision)
}

// YearForecast is one calendar-year entry of an official forecast.
type YearForecast struct {
	Year         int     `json:"year"`
	InflationPct float64 `json:"inflation_pct"`
}

// OfficialForecast is one quarterly policy-assessment publication.
type OfficialForecast struct {
	MeetingDate       time.Time      `json:"meeting_date"`
	Forecast          []YearForecast `json:"forecast"`
	SourceReference   string         `json:"source_reference"`
	DocumentReference string         `json:"document_reference,omitempty"`
	Revision          int            `json:"revision"`
	IngestedAt        time.Time      `json:"ingested_at"`
}

func (o *OfficialForecast) Kind() ObservationKind   { return KindOfficialForecast }
func (o *OfficialForecast) Period() time.Time       { return o.MeetingDate }
func (o *OfficialForecast) Source() string          { return "" }
func (o *OfficialForecast) Rev() int                { return o.Revision }
func (o *OfficialForecast) Ingested() time.Time     { return o.IngestedAt }
func (o *OfficialForecast) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *OfficialForecast) NaturalKey() string {
	return revisionKey(o.MeetingDate.Format(time.DateOnly), o.Revision)
}

// ForYear returns the forecast value for a calendar year.
func (o *OfficialForecast) ForYear(year int) (float64, bool) {
	if o == nil {
		return 0, false
	}
	for _, f := range o.Forecast {
		if f.Year == year {
			return f.InflationPct, true
		}
	}
	return 0, false
}

// SortForecast orders the year entries ascending.
func (o *OfficialForecast) SortForecast() {
	sort.Slice(o.Forecast, func(i, j int) bool { return o.Forecast[i].Year < o.Forecast[j].Year })
}

// CurvePoint is one market quote at a tenor.
type CurvePoint struct {
	TenorMonths int     `json:"tenor_months"`
	RatePct     float64 `json:"rate_pct"`
}

// RateCurveSnapshot is a market-implied short-rate curve at a date.
type RateCurveSnapshot struct {
	AsOf            time.Time    `json:"as_of"`
	Points          []CurvePoint `json:"points"`
	SourceReference string       `json:"source_reference"`
	Revision        int          `json:"revision"`
	IngestedAt      time.Time    `json:"ingested_at"`
}

func (o *RateCurveSnapshot) Kind() ObservationKind   { return KindRateCurve }
func (o *RateCurveSnapshot) Period() time.Time       { return o.AsOf }
func (o *RateCurveSnapshot) Source() string          { return "" }
func (o *RateCurveSnapshot) Rev() int                { return o.Revision }
func (o *RateCurveSnapshot) Ingested() time.Time     { return o.IngestedAt }
func (o *RateCurveSnapshot) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *RateCurveSnapshot) NaturalKey() string {
	return revisionKey(o.AsOf.Format(time.DateOnly), o.Revision)
}

// SortPoints orders the curve by tenor.
func (o *RateCurveSnapshot) SortPoints() {
	sort.Slice(o.Points, func(i, j int) bool { return o.Points[i].TenorMonths < o.Points[j].TenorMonths })
}

// CurrencyIndexObservation is a trade-weighted exchange-rate index reading.
type CurrencyIndexObservation struct {
	Provider        string    `json:"provider"`
	AsOf            time.Time `json:"as_of"`
	IndexValue      float64   `json:"index_value"`
	SourceReference string    `json:"source_reference"`
	Revision        int       `json:"revision"`
	IngestedAt      time.Time `json:"ingested_at"`
}

func (o *CurrencyIndexObservation) Kind() ObservationKind   { return KindCurrencyIndex }
func (o *CurrencyIndexObservation) Period() time.Time       { return o.AsOf }
func (o *CurrencyIndexObservation) Source() string          { return o.Provider }
func (o *CurrencyIndexObservation) Rev() int                { return o.Revision }
func (o *CurrencyIndexObservation) Ingested() time.Time     { return o.IngestedAt }
func (o *CurrencyIndexObservation) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *CurrencyIndexObservation) NaturalKey() string {
	return revisionKey(o.Provider+"|"+o.AsOf.Format(time.DateOnly), o.Revision)
}

// PolicyRateState is an announced policy rate. Bands of the decision mapper are centred on it.
type PolicyRateState struct {
	EffectiveDate   time.Time `json:"effective_date"`
	RatePct         float64   `json:"rate_pct"`
	SourceReference string    `json:"source_reference,omitempty"`
	Revision        int       `json:"revision"`
	IngestedAt      time.Time `json:"ingested_at"`
}

func (o *PolicyRateState) Kind() ObservationKind   { return KindPolicyRate }
func (o *PolicyRateState) Period() time.Time       { return o.EffectiveDate }
func (o *PolicyRateState) Source() string          { return "" }
func (o *PolicyRateState) Rev() int                { return o.Revision }
func (o *PolicyRateState) Ingested() time.Time     { return o.IngestedAt }
func (o *PolicyRateState) SetIngested(t time.Time) { o.IngestedAt = t }
func (o *PolicyRateState) NaturalKey() string {
	return revisionKey(o.EffectiveDate.Format(time.DateOnly), o.Revision)
}

func revisionKey(base string, revision int) string {
	if revision <= 0 {
		return base
	}
	return fmt.Sprintf("%s#r%d", base, revision)
}
