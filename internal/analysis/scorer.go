package analysis

import "github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"

// indicatorWeight returns the intra-category weight for ind, honoring
// configured overrides.
func indicatorWeight(ind Indicator, overrides map[string]float64) float64 {
	if w, ok := overrides[ind.Key]; ok {
		return w
	}
	return ind.Weight
}

// ScoreInstitution computes the category sub-scores and overall score for
// one institution from its normalized metrics.
//
// A sub-score is the weighted mean of the category's present indicators,
// renormalized over the weights of those present. A category with nothing
// present stays undefined and its weight is excluded from the overall
// score, never treated as zero. Institutions with fewer than
// opts.MinIndicators present are rejected with an insufficient-data error;
// the caller drops them and counts the rejection.
//
// Summation follows registry/category order so identical input produces
// bit-identical scores across runs.
func ScoreInstitution(id int64, metrics NormalizedMetrics, opts Options) (QualityProfile, error) {
	present := len(metrics)
	if present < opts.MinIndicators {
		return QualityProfile{}, errors.NewInsufficientDataError(id, present, opts.MinIndicators)
	}

	subs := make(map[string]float64, len(Categories))
	for _, cat := range Categories {
		var weighted, mass float64
		for _, ind := range CategoryIndicators(cat) {
			v, ok := metrics[ind.Key]
			if !ok {
				continue
			}
			w := indicatorWeight(ind, opts.IndicatorWeights)
			weighted += w * v
			mass += w
		}
		if mass > 0 {
			subs[cat] = clip(weighted/mass, 0, 100)
		}
	}

	var weighted, mass float64
	for _, cat := range Categories {
		sub, ok := subs[cat]
		if !ok {
			continue
		}
		w := opts.CategoryWeights[cat]
		weighted += w * sub
		mass += w
	}
	if mass <= 0 {
		// Every defined category carries zero configured weight; there is
		// nothing to score this institution on.
		return QualityProfile{}, errors.NewInsufficientDataError(id, present, opts.MinIndicators)
	}

	return QualityProfile{
		InstitutionID:     id,
		SubScores:         subs,
		Overall:           clip(weighted/mass, 0, 100),
		IndicatorsPresent: present,
	}, nil
}
