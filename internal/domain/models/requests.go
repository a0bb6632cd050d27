package models

// Requests for ingestion and run HTTP endpoints. Dates are YYYY-MM-DD (inflation also accepts YYYY-MM).

type InflationRequest struct {
	Provider        string   `json:"provider" validate:"required"`
	AsOf            string   `json:"as_of" validate:"required"`
	YoYPct          *float64 `json:"yoy_pct" validate:"required"`
	MoMPct          *float64 `json:"mm_pct"`
	SourceReference string   `json:"source_reference" validate:"required"`
	Revision        int      `json:"revision" validate:"gte=0,lte=99"`
}

type BarometerRequest struct {
	Provider        string   `json:"provider" validate:"required"`
	AsOf            string   `json:"as_of" validate:"required"`
	Value           *float64 `json:"value" validate:"required,gt=0"`
	SourceReference string   `json:"source_reference" validate:"required"`
	Revision        int      `json:"revision" validate:"gte=0,lte=99"`
}

type OfficialForecastRequest struct {
	MeetingDate       string             `json:"meeting_date" validate:"required"`
	ForecastByYear    map[string]float64 `json:"forecast_by_year" validate:"required,min=1,max=5"`
	SourceReference   string             `json:"source_reference" validate:"required"`
	DocumentReference string             `json:"document_reference"`
	Revision          int                `json:"revision" validate:"gte=0,lte=99"`
}

type CurvePointRequest struct {
	TenorMonths int      `json:"tenor_months" validate:"gt=0,lte=600"`
	RatePct     *float64 `json:"rate_pct" validate:"required"`
}

type RateCurveRequest struct {
	AsOf            string              `json:"as_of" validate:"required"`
	Points          []CurvePointRequest `json:"points" validate:"required,min=2,dive"`
	SourceReference string              `json:"source_reference" validate:"required"`
	Revision        int                 `json:"revision" validate:"gte=0,lte=99"`
}

type CurrencyIndexRequest struct {
	Provider        string   `json:"provider" validate:"required"`
	AsOf            string   `json:"as_of" validate:"required"`
	IndexValue      *float64 `json:"index_value" validate:"required,gt=0"`
	SourceReference string   `json:"source_reference" validate:"required"`
	Revision        int      `json:"revision" validate:"gte=0,lte=99"`
}

type PolicyRateRequest struct {
	EffectiveDate   string   `json:"effective_date" validate:"required"`
	RatePct         *float64 `json:"rate_pct" validate:"required"`
	SourceReference string   `json:"source_reference"`
	Revision        int      `json:"revision" validate:"gte=0,lte=99"`
}

type ExplainRequest struct {
	Question string `json:"question" default:"Why is this the most likely decision?" validate:"max=2000"`
}

// IngestResult is returned for every ingestion call.
type IngestResult struct {
	Kind       ObservationKind `json:"kind"`
	NaturalKey string          `json:"natural_key"`
	Outcome    IngestOutcome   `json:"outcome"`
}

// ExplainResult carries narrative text produced by the external narrator.
type ExplainResult struct {
	RunID    string `json:"run_id"`
	Question string `json:"question"`
	Text     string `json:"text"`
}
