package analysis

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/metrics"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

// Options carries every tunable of a pipeline run. The zero value is not
// usable; start from DefaultOptions and override.
type Options struct {
	// CategoryWeights blends the four category sub-scores into the overall
	// score. Weights of undefined categories are renormalized away, never
	// zero-filled.
	CategoryWeights map[string]float64

	// IndicatorWeights overrides registry intra-category weights by key.
	IndicatorWeights map[string]float64

	// MinIndicators is the minimum number of present indicators an
	// institution needs to be scored at all.
	MinIndicators int

	// TieBreak orders equal overall scores: TieBreakID or TieBreakName.
	TieBreak string

	// QualityPercentile is the top fraction of ranks eligible for the
	// sweet spot; PricePercentile is the price cutoff percentile.
	QualityPercentile float64
	PricePercentile   float64

	// ValueQualityWeight and ValuePriceWeight blend the value score.
	ValueQualityWeight float64
	ValuePriceWeight   float64
}

// DefaultOptions returns the published defaults: selectivity 30%,
// outcomes 40%, student quality 20%, financial health 10%; at least 5 of
// the 9 indicators; top quartile by rank under median price; value blend
// 70/30 quality/affordability.
func DefaultOptions() Options {
	return Options{
		CategoryWeights: map[string]float64{
			CategorySelectivity:    0.30,
			CategoryOutcomes:       0.40,
			CategoryStudentQuality: 0.20,
			CategoryFinancial:      0.10,
		},
		IndicatorWeights:   map[string]float64{},
		MinIndicators:      5,
		TieBreak:           TieBreakID,
		QualityPercentile:  0.25,
		PricePercentile:    0.50,
		ValueQualityWeight: 0.7,
		ValuePriceWeight:   0.3,
	}
}

// Pipeline turns one in-memory batch of institution records into a ranked,
// flagged, value-scored Result. A Pipeline is stateless between runs and
// safe for concurrent use.
type Pipeline struct {
	opts Options
	log  *slog.Logger
}

// NewPipeline creates a pipeline with the given options.
func NewPipeline(opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{opts: opts, log: log}
}

// Run executes the full analysis: sanitize raw metrics, min-max normalize
// each indicator column, score, rank, derive sweet-spot thresholds, flag,
// and compute value scores. Identical input yields an identical Result
// (modulo RunID and GeneratedAt).
//
// Per-row problems (invalid values, institutions below the indicator
// minimum) are counted and logged, never fatal. The only hard failure is
// an empty ranking, reported as an empty-dataset error.
func (p *Pipeline) Run(records []types.Institution) (*Result, error) {
	start := time.Now()
	received := len(records)

	unique := p.dedupe(records)

	byID := make(map[int64]types.Institution, len(unique))
	for _, rec := range unique {
		byID[rec.ID] = rec
	}

	clean, invalid := SanitizeMetrics(unique)
	invalidByIndicator := make(map[string]int)
	for _, iv := range invalid {
		invalidByIndicator[iv.Indicator]++
		metrics.RecordInvalidMetricValue(iv.Indicator)
		p.log.Debug("dropped out-of-domain indicator value",
			"institution_id", iv.InstitutionID,
			"indicator", iv.Indicator,
			"error", iv.Err.Error(),
		)
	}

	normalized := Normalize(clean)

	profiles := make([]QualityProfile, 0, len(unique))
	names := make(map[int64]string, len(unique))
	prices := make(map[int64]float64, len(unique))
	var insufficient int
	for _, rec := range unique {
		names[rec.ID] = rec.Name
		profile, err := ScoreInstitution(rec.ID, normalized[rec.ID], p.opts)
		if err != nil {
			insufficient++
			metrics.RecordRecordDropped("insufficient_data")
			p.log.Info("institution excluded from ranking",
				"institution_id", rec.ID,
				"name", rec.Name,
				"indicators_present", len(normalized[rec.ID]),
				"indicators_required", p.opts.MinIndicators,
			)
			continue
		}
		profiles = append(profiles, profile)
		prices[rec.ID] = rec.Price
	}

	if len(profiles) == 0 {
		return nil, errors.NewEmptyDatasetError(received, received)
	}

	ranked := Rank(profiles, p.opts.TieBreak, names)
	thresholds := DeriveThresholds(ranked, prices, p.opts)

	flagged := FlagSweetSpots(ranked, prices, thresholds)
	sweet := make(map[int64]bool, len(flagged))
	for _, id := range flagged {
		sweet[id] = true
	}

	values := ComputeValue(ranked, prices, p.opts, names)
	valueByID := make(map[int64]ValueProfile, len(values))
	for _, v := range values {
		valueByID[v.InstitutionID] = v
	}

	profileByID := make(map[int64]QualityProfile, len(profiles))
	for _, profile := range profiles {
		profileByID[profile.InstitutionID] = profile
	}

	rows := make([]Row, 0, len(ranked))
	for _, r := range ranked {
		rec := byID[r.InstitutionID]
		profile := profileByID[r.InstitutionID]
		value := valueByID[r.InstitutionID]
		rows = append(rows, Row{
			ID:                 r.InstitutionID,
			Name:               rec.Name,
			State:              rec.State,
			City:               rec.City,
			Enrollment:         rec.Enrollment,
			Price:              rec.Price,
			Overall:            r.Overall,
			Rank:               r.Rank,
			SweetSpot:          sweet[r.InstitutionID],
			ValueScore:         value.ValueScore,
			ValueRank:          value.ValueRank,
			QualityPercentile:  value.QualityPercentile,
			PriceAffordability: value.PriceAffordability,
			SubScores:          profile.SubScores,
			IndicatorsPresent:  profile.IndicatorsPresent,
		})
	}

	result := &Result{
		RunID:           uuid.New().String(),
		GeneratedAt:     time.Now().UTC(),
		RecordsReceived: received,
		Rows:            rows,
		Thresholds:      thresholds,
		Summary:         buildSummary(rows, clean),
		Errors: ErrorSummary{
			InvalidMetrics:     len(invalid),
			InvalidByIndicator: invalidByIndicator,
			InsufficientData:   insufficient,
		},
	}

	elapsed := time.Since(start)
	metrics.RecordPipelineRun(elapsed.Seconds())
	metrics.UpdateInstitutionsRanked(len(rows))
	metrics.UpdateSweetSpotCount(len(flagged))

	p.log.Info("analysis run complete",
		"run_id", result.RunID,
		"records_received", received,
		"institutions_ranked", len(rows),
		"sweet_spots", len(flagged),
		"invalid_metrics", len(invalid),
		"insufficient_data", insufficient,
		"duration_ms", elapsed.Milliseconds(),
	)

	return result, nil
}

// dedupe keeps the first record per institution ID.
func (p *Pipeline) dedupe(records []types.Institution) []types.Institution {
	unique := make([]types.Institution, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for _, rec := range records {
		if seen[rec.ID] {
			metrics.RecordRecordDropped("duplicate_id")
			p.log.Warn("duplicate institution id, keeping first occurrence",
				"institution_id", rec.ID,
				"name", rec.Name,
			)
			continue
		}
		seen[rec.ID] = true
		unique = append(unique, rec)
	}
	return unique
}

// buildSummary computes the secondary reporting output over the ranked
// rows: score and price distributions, rank/price correlation, indicator
// availability, and the sweet-spot state breakdown.
func buildSummary(rows []Row, clean map[int64]map[string]float64) Summary {
	scores := make([]float64, len(rows))
	priceCol := make([]float64, len(rows))
	rankCol := make([]float64, len(rows))
	for i, row := range rows {
		scores[i] = row.Overall
		priceCol[i] = row.Price
		rankCol[i] = float64(row.Rank)
	}

	availability := make(map[string]int, len(Indicators))
	for _, ind := range Indicators {
		availability[ind.Key] = 0
	}
	for _, row := range rows {
		for key := range clean[row.ID] {
			availability[key]++
		}
	}

	states := make(map[string]int)
	var sweetCount int
	for _, row := range rows {
		if !row.SweetSpot {
			continue
		}
		sweetCount++
		if row.State != "" {
			states[row.State]++
		}
	}

	return Summary{
		InstitutionCount:      len(rows),
		Score:                 summarize(scores),
		Price:                 summarize(priceCol),
		RankPricePearson:      pearson(rankCol, priceCol),
		RankPriceSpearman:     spearman(rankCol, priceCol),
		IndicatorAvailability: availability,
		SweetSpotCount:        sweetCount,
		SweetSpotStates:       states,
	}
}
