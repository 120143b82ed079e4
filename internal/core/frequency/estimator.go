package frequency

import (
	"fmt"
	"sort"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// Thresholds are the empirically tuned constants of the multiple-per-year
// detector. They are configuration, not derived values.
type Thresholds struct {
	// MinObservations is the minimum multiset size before the detector runs.
	MinObservations int
	// MinUniqueYears is the minimum distinct-year count before the detector
	// runs.
	MinUniqueYears int
	// AvgHigh triggers the label on observations-per-year alone.
	AvgHigh float64
	// AvgLow triggers the label together with MultiYearFrac.
	AvgLow float64
	// MultiYearFrac is the minimum fraction of distinct years holding more
	// than one observation.
	MultiYearFrac float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		MinObservations: 3,
		MinUniqueYears:  2,
		AvgHigh:         2.0,
		AvgLow:          1.5,
		MultiYearFrac:   0.4,
	}
}

// Estimator classifies the recurrence interval of a report series from the
// multiset of its publication years. Pure computation, safe for concurrent
// use.
type Estimator struct {
	thresholds Thresholds
}

func NewEstimator(thresholds Thresholds) *Estimator {
	return &Estimator{thresholds: thresholds}
}

// Estimate labels one series. The input multiset must not be deduplicated by
// the caller: repeated years are the signal the multiple-per-year detector
// runs on. The returned gap history is the raw year-to-year gap list over
// distinct years in descending order, kept unfiltered for audit.
func (e *Estimator) Estimate(years []int) (domain.FrequencyLabel, []int) {
	if len(years) < 2 {
		return domain.FrequencyOneTime, nil
	}

	counts := make(map[int]int, len(years))
	for _, y := range years {
		counts[y]++
	}

	distinct := make([]int, 0, len(counts))
	for y := range counts {
		distinct = append(distinct, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(distinct)))

	gaps := make([]int, 0, len(distinct)-1)
	for i := 0; i+1 < len(distinct); i++ {
		gaps = append(gaps, distinct[i]-distinct[i+1])
	}

	if e.multiplePerYear(len(years), counts) {
		return domain.FrequencyMultiplePerYear, gaps
	}
	if len(distinct) < 2 {
		return domain.FrequencyOneTime, nil
	}

	modal, ok := weightedModalGap(gaps)
	if !ok {
		return domain.FrequencyOneTime, gaps
	}
	return labelForGap(modal), gaps
}

// EstimateSeries runs the estimator over every series and returns one fully
// recomputed row per series.
func (e *Estimator) EstimateSeries(series []domain.SeriesYears) []domain.FrequencyEstimate {
	out := make([]domain.FrequencyEstimate, 0, len(series))
	for _, s := range series {
		label, gaps := e.Estimate(s.Years)
		out = append(out, domain.FrequencyEstimate{
			ProperTitle:         s.ProperTitle,
			NormalizedBody:      s.NormalizedBody,
			CalculatedFrequency: label,
			GapHistory:          gaps,
			YearCount:           len(s.Years),
		})
	}
	return out
}

func (e *Estimator) multiplePerYear(total int, counts map[int]int) bool {
	unique := len(counts)
	if total < e.thresholds.MinObservations || unique < e.thresholds.MinUniqueYears {
		return false
	}
	avg := float64(total) / float64(unique)
	multiYears := 0
	for _, n := range counts {
		if n > 1 {
			multiYears++
		}
	}
	multiFrac := float64(multiYears) / float64(unique)
	return avg >= e.thresholds.AvgHigh ||
		(avg >= e.thresholds.AvgLow && multiFrac >= e.thresholds.MultiYearFrac)
}

// weightedModalGap takes the most frequent gap over a recency-weighted
// multiset: the most recent gap counts three times, the next twice, the rest
// once. Ties break toward the smaller gap so the label is deterministic.
// Non-positive gaps are data-quality noise and carry no weight.
func weightedModalGap(gaps []int) (int, bool) {
	weighted := make(map[int]int)
	for i, gap := range gaps {
		if gap <= 0 {
			continue
		}
		weight := 3 - i
		if weight < 1 {
			weight = 1
		}
		weighted[gap] += weight
	}
	if len(weighted) == 0 {
		return 0, false
	}

	modal, bestWeight := 0, -1
	for gap, weight := range weighted {
		if weight > bestWeight || (weight == bestWeight && gap < modal) {
			modal, bestWeight = gap, weight
		}
	}
	return modal, true
}

func labelForGap(gap int) domain.FrequencyLabel {
	switch {
	case gap == 1:
		return domain.FrequencyAnnual
	case gap == 2:
		return domain.FrequencyBiennial
	case gap == 3:
		return domain.FrequencyTriennial
	case gap == 4:
		return domain.FrequencyQuadrennial
	case gap == 5:
		return domain.FrequencyQuinquennial
	case gap <= 10:
		return domain.FrequencyLabel(fmt.Sprintf("every-%d-years", gap))
	default:
		return domain.FrequencyIrregular
	}
}
