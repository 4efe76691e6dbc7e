package analysis

import (
	"math"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

// InvalidMetric records one raw value dropped during sanitization.
type InvalidMetric struct {
	InstitutionID int64
	Indicator     string
	Err           *errors.AppError
}

// SanitizeMetrics copies each record's indicator values, dropping any value
// outside its sanity domain to absent. Dropped values are reported for
// counting; they never abort the run. Metric keys not in the registry are
// ignored.
func SanitizeMetrics(records []types.Institution) (map[int64]map[string]float64, []InvalidMetric) {
	clean := make(map[int64]map[string]float64, len(records))
	var invalid []InvalidMetric

	for _, rec := range records {
		m := make(map[string]float64, len(rec.Metrics))
		for _, ind := range Indicators {
			v, ok := rec.Metrics[ind.Key]
			if !ok {
				continue
			}
			if math.IsNaN(v) || math.IsInf(v, 0) || v < ind.SaneMin || v > ind.SaneMax {
				invalid = append(invalid, InvalidMetric{
					InstitutionID: rec.ID,
					Indicator:     ind.Key,
					Err:           errors.NewInvalidMetricError(ind.Key, v, ind.SaneMin, ind.SaneMax),
				})
				continue
			}
			m[ind.Key] = v
		}
		clean[rec.ID] = m
	}

	return clean, invalid
}

// NormalizeColumn rescales the present values of one column onto 0..100
// with min-max scaling. Absent institutions stay absent. If every present
// value is identical the column carries no discriminative information and
// all present values map to 100.
func NormalizeColumn(values map[int64]float64, higherBetter bool) map[int64]float64 {
	out := make(map[int64]float64, len(values))
	if len(values) == 0 {
		return out
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		for id := range values {
			out[id] = 100
		}
		return out
	}

	span := hi - lo
	for id, v := range values {
		if higherBetter {
			out[id] = 100 * (v - lo) / span
		} else {
			out[id] = 100 * (hi - v) / span
		}
	}
	return out
}

// Normalize applies NormalizeColumn to every registered indicator across
// the dataset. Presence is preserved exactly: an institution appears in a
// normalized column iff it had a (sane) raw value there.
func Normalize(clean map[int64]map[string]float64) map[int64]NormalizedMetrics {
	normalized := make(map[int64]NormalizedMetrics, len(clean))
	for id := range clean {
		normalized[id] = make(NormalizedMetrics)
	}

	for _, ind := range Indicators {
		col := make(map[int64]float64)
		for id, m := range clean {
			if v, ok := m[ind.Key]; ok {
				col[id] = v
			}
		}
		for id, v := range NormalizeColumn(col, ind.HigherBetter) {
			normalized[id][ind.Key] = v
		}
	}

	return normalized
}
