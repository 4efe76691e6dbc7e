package analysis

import "time"

// Quality categories. Weights across them live in Options.
const (
	CategorySelectivity    = "selectivity"
	CategoryOutcomes       = "outcomes"
	CategoryStudentQuality = "student_quality"
	CategoryFinancial      = "financial"
)

// Categories lists the four quality categories in reporting order.
var Categories = []string{
	CategorySelectivity,
	CategoryOutcomes,
	CategoryStudentQuality,
	CategoryFinancial,
}

// NormalizedMetrics maps indicator key to a 0..100 value. A missing key
// means the raw value was absent (or dropped as invalid); absence is never
// imputed.
type NormalizedMetrics map[string]float64

// QualityProfile holds one institution's category sub-scores and overall
// score. SubScores contains only defined categories; a category with no
// present indicators is simply missing, not zero.
type QualityProfile struct {
	InstitutionID     int64              `json:"institution_id"`
	SubScores         map[string]float64 `json:"sub_scores"`
	Overall           float64            `json:"overall_score"`
	IndicatorsPresent int                `json:"indicators_present"`
}

// RankedInstitution is one entry of the quality ranking. Ranks run 1..N
// with no gaps and no duplicates; ties are broken deterministically.
type RankedInstitution struct {
	InstitutionID int64   `json:"institution_id"`
	Overall       float64 `json:"overall_score"`
	Rank          int     `json:"rank"`
}

// SweetSpotThresholds are derived once per dataset and immutable after.
type SweetSpotThresholds struct {
	QualityCutoffRank int     `json:"quality_cutoff_rank"`
	PriceCutoff       float64 `json:"price_cutoff"`
	RankedCount       int     `json:"ranked_count"`
}

// ValueProfile scores an institution on the quality/price blend,
// independent of the sweet-spot flag.
type ValueProfile struct {
	InstitutionID      int64   `json:"institution_id"`
	QualityPercentile  float64 `json:"quality_percentile"`
	PriceAffordability float64 `json:"price_affordability"`
	ValueScore         float64 `json:"value_score"`
	ValueRank          int     `json:"value_rank"`
}

// Row is one line of the final output table, ordered by quality rank.
type Row struct {
	ID                 int64              `json:"id"`
	Name               string             `json:"name"`
	State              string             `json:"state"`
	City               string             `json:"city"`
	Enrollment         int                `json:"enrollment"`
	Price              float64            `json:"price"`
	Overall            float64            `json:"overall_score"`
	Rank               int                `json:"rank"`
	SweetSpot          bool               `json:"sweet_spot"`
	ValueScore         float64            `json:"value_score"`
	ValueRank          int                `json:"value_rank"`
	QualityPercentile  float64            `json:"quality_percentile"`
	PriceAffordability float64            `json:"price_affordability"`
	SubScores          map[string]float64 `json:"sub_scores"`
	IndicatorsPresent  int                `json:"indicators_present"`
}

// Stats summarizes one numeric column of the output table.
type Stats struct {
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
}

// Summary is the secondary reporting output: distribution of score and
// price, rank/price correlation, indicator availability and the state
// breakdown of the sweet-spot set.
type Summary struct {
	InstitutionCount      int            `json:"institution_count"`
	Score                 Stats          `json:"score"`
	Price                 Stats          `json:"price"`
	RankPricePearson      float64        `json:"rank_price_pearson"`
	RankPriceSpearman     float64        `json:"rank_price_spearman"`
	IndicatorAvailability map[string]int `json:"indicator_availability"`
	SweetSpotCount        int            `json:"sweet_spot_count"`
	SweetSpotStates       map[string]int `json:"sweet_spot_states"`
}

// ErrorSummary counts per-row errors recovered during a run. Per-row
// errors never abort the pipeline; they are reported here.
type ErrorSummary struct {
	InvalidMetrics     int            `json:"invalid_metrics"`
	InvalidByIndicator map[string]int `json:"invalid_by_indicator"`
	InsufficientData   int            `json:"insufficient_data"`
}

// Result is the immutable outcome of one pipeline run.
type Result struct {
	RunID           string              `json:"run_id"`
	GeneratedAt     time.Time           `json:"generated_at"`
	RecordsReceived int                 `json:"records_received"`
	Rows            []Row               `json:"rows"`
	Thresholds      SweetSpotThresholds `json:"thresholds"`
	Summary         Summary             `json:"summary"`
	Errors          ErrorSummary        `json:"errors"`
}

// SweetSpotRows returns the flagged subset ordered by rank ascending.
func (r *Result) SweetSpotRows() []Row {
	out := make([]Row, 0, r.Summary.SweetSpotCount)
	for _, row := range r.Rows {
		if row.SweetSpot {
			out = append(out, row)
		}
	}
	return out
}

// ByValueRank returns a copy of the rows ordered by value rank ascending.
func (r *Result) ByValueRank() []Row {
	out := append([]Row(nil), r.Rows...)
	sortRowsBy(out, func(a, b Row) bool { return a.ValueRank < b.ValueRank })
	return out
}

// RowByID looks up a single ranked institution.
func (r *Result) RowByID(id int64) (Row, bool) {
	for _, row := range r.Rows {
		if row.ID == id {
			return row, true
		}
	}
	return Row{}, false
}
