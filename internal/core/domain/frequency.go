package domain

import "time"

// FrequencyLabel is the recurrence-interval classification of a report
// series: "annual", "biennial", ..., "every-N-years", "irregular",
// "one-time", or "multiple-per-year".
type FrequencyLabel string

const (
	FrequencyOneTime         FrequencyLabel = "one-time"
	FrequencyAnnual          FrequencyLabel = "annual"
	FrequencyBiennial        FrequencyLabel = "biennial"
	FrequencyTriennial       FrequencyLabel = "triennial"
	FrequencyQuadrennial     FrequencyLabel = "quadrennial"
	FrequencyQuinquennial    FrequencyLabel = "quinquennial"
	FrequencyIrregular       FrequencyLabel = "irregular"
	FrequencyMultiplePerYear FrequencyLabel = "multiple-per-year"
)

// FrequencyEstimate is one fully recomputed estimate per
// (proper_title, normalized_body) series.
type FrequencyEstimate struct {
	ProperTitle         string
	NormalizedBody      string
	CalculatedFrequency FrequencyLabel
	GapHistory          []int
	YearCount           int
	UpdatedAt           time.Time
}
