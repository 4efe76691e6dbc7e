package analysis

// Indicator describes one raw quality metric: where it comes from, which
// category it feeds, its intra-category weight, its direction, and the
// sanity domain raw values must fall in.
type Indicator struct {
	Key          string
	Field        string // upstream Scorecard field name
	Category     string
	Weight       float64
	HigherBetter bool
	SaneMin      float64
	SaneMax      float64
}

// Indicators is the fixed registry of the nine quality indicators, in
// stable reporting order. Admission rate, part-time share and Pell rate
// are lower-is-better; the normalizer handles the inversion.
var Indicators = []Indicator{
	{Key: "sat_avg", Field: "latest.admissions.sat_scores.average.overall", Category: CategorySelectivity, Weight: 0.4, HigherBetter: true, SaneMin: 400, SaneMax: 1600},
	{Key: "act_midpoint", Field: "latest.admissions.act_scores.midpoint.cumulative", Category: CategorySelectivity, Weight: 0.4, HigherBetter: true, SaneMin: 1, SaneMax: 36},
	{Key: "admission_rate", Field: "latest.admissions.admission_rate.overall", Category: CategorySelectivity, Weight: 0.2, HigherBetter: false, SaneMin: 0, SaneMax: 1},
	{Key: "completion_rate", Field: "latest.completion.completion_rate_4yr_100nt", Category: CategoryOutcomes, Weight: 0.4, HigherBetter: true, SaneMin: 0, SaneMax: 1},
	{Key: "median_earnings", Field: "latest.earnings.10_yrs_after_entry.median", Category: CategoryOutcomes, Weight: 0.4, HigherBetter: true, SaneMin: 0, SaneMax: 500000},
	{Key: "retention_rate", Field: "latest.student.retention_rate.four_year.full_time", Category: CategoryOutcomes, Weight: 0.2, HigherBetter: true, SaneMin: 0, SaneMax: 1},
	{Key: "part_time_share", Field: "latest.student.part_time_share", Category: CategoryStudentQuality, Weight: 0.5, HigherBetter: false, SaneMin: 0, SaneMax: 1},
	{Key: "pell_grant_rate", Field: "latest.aid.pell_grant_rate", Category: CategoryStudentQuality, Weight: 0.5, HigherBetter: false, SaneMin: 0, SaneMax: 1},
	{Key: "repayment_rate", Field: "latest.repayment.1_yr_repayment.overall", Category: CategoryFinancial, Weight: 1.0, HigherBetter: true, SaneMin: 0, SaneMax: 1},
}

// IndicatorCount is the number of registered indicators.
var IndicatorCount = len(Indicators)

var indicatorsByKey = func() map[string]Indicator {
	m := make(map[string]Indicator, len(Indicators))
	for _, ind := range Indicators {
		m[ind.Key] = ind
	}
	return m
}()

// IndicatorByKey returns the registry entry for key.
func IndicatorByKey(key string) (Indicator, bool) {
	ind, ok := indicatorsByKey[key]
	return ind, ok
}

// IndicatorKeys returns all indicator keys in registry order.
func IndicatorKeys() []string {
	keys := make([]string, len(Indicators))
	for i, ind := range Indicators {
		keys[i] = ind.Key
	}
	return keys
}

// IndicatorFields returns all upstream field names in registry order.
func IndicatorFields() []string {
	fields := make([]string, len(Indicators))
	for i, ind := range Indicators {
		fields[i] = ind.Field
	}
	return fields
}

// CategoryIndicators returns the registry entries feeding one category.
func CategoryIndicators(category string) []Indicator {
	var out []Indicator
	for _, ind := range Indicators {
		if ind.Category == category {
			out = append(out, ind)
		}
	}
	return out
}
