package analysis

import "math"

// DeriveThresholds computes the dataset-wide sweet-spot cutoffs once per
// run. Both are pure functions of the current data, never hard-coded
// amounts, so they self-adjust as the dataset changes between runs:
//
//	quality cutoff rank = ceil(Q * N), clamped to >= 1
//	price cutoff        = the P-quantile of price across ranked institutions
//
// with Q and P from Options (defaults 0.25 and 0.50, i.e. top quartile by
// rank and at most median price).
func DeriveThresholds(ranked []RankedInstitution, prices map[int64]float64, opts Options) SweetSpotThresholds {
	n := len(ranked)

	cutoffRank := int(math.Ceil(opts.QualityPercentile * float64(n)))
	if cutoffRank < 1 {
		cutoffRank = 1
	}

	priceCol := make([]float64, 0, n)
	for _, ri := range ranked {
		priceCol = append(priceCol, prices[ri.InstitutionID])
	}

	return SweetSpotThresholds{
		QualityCutoffRank: cutoffRank,
		PriceCutoff:       percentile(priceCol, opts.PricePercentile),
		RankedCount:       n,
	}
}

// FlagSweetSpots returns the institutions meeting both cutoffs, ordered by
// rank ascending. An institution is a sweet spot iff its rank is at most
// the quality cutoff rank and its price is at most the price cutoff.
func FlagSweetSpots(ranked []RankedInstitution, prices map[int64]float64, th SweetSpotThresholds) []int64 {
	var flagged []int64
	for _, ri := range ranked {
		if ri.Rank > th.QualityCutoffRank {
			continue
		}
		if prices[ri.InstitutionID] > th.PriceCutoff {
			continue
		}
		flagged = append(flagged, ri.InstitutionID)
	}
	return flagged
}
