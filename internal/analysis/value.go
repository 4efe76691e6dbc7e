package analysis

import "sort"

// ComputeValue blends quality-rank position with price affordability into
// a continuous value score for every ranked institution, independent of
// the sweet-spot flag, and produces the best-value ranking (value score
// descending, same tie-break rule as the quality ranking).
//
// The quality percentile maps the best rank to 100 and the worst to 0; a
// single-institution dataset scores 100. Price affordability is the
// lower-is-better min-max transform of price across the ranked set. The
// blend weights come from Options (defaults 0.7 quality / 0.3 price) and
// are renormalized over their sum so the score stays in 0..100.
func ComputeValue(ranked []RankedInstitution, prices map[int64]float64, opts Options, names map[int64]string) []ValueProfile {
	n := len(ranked)
	if n == 0 {
		return nil
	}

	priceCol := make(map[int64]float64, n)
	for _, ri := range ranked {
		priceCol[ri.InstitutionID] = prices[ri.InstitutionID]
	}
	affordability := NormalizeColumn(priceCol, false)

	wq, wp := opts.ValueQualityWeight, opts.ValuePriceWeight
	wsum := wq + wp

	profiles := make([]ValueProfile, n)
	for i, ri := range ranked {
		qp := 100.0
		if n > 1 {
			qp = 100 * float64(n-ri.Rank) / float64(n-1)
		}
		pa := affordability[ri.InstitutionID]
		profiles[i] = ValueProfile{
			InstitutionID:      ri.InstitutionID,
			QualityPercentile:  qp,
			PriceAffordability: pa,
			ValueScore:         (wq*qp + wp*pa) / wsum,
		}
	}

	sort.SliceStable(profiles, func(a, b int) bool {
		pa, pb := profiles[a], profiles[b]
		if pa.ValueScore != pb.ValueScore {
			return pa.ValueScore > pb.ValueScore
		}
		if opts.TieBreak == TieBreakName && names != nil {
			na, nb := names[pa.InstitutionID], names[pb.InstitutionID]
			if na != nb {
				return na < nb
			}
		}
		return pa.InstitutionID < pb.InstitutionID
	})
	for i := range profiles {
		profiles[i].ValueRank = i + 1
	}

	return profiles
}
