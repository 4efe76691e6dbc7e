package analysis

import "sort"

// Tie-break keys. The ranking itself is always score-descending; the key
// only decides between numerically equal scores.
const (
	TieBreakID   = "id"
	TieBreakName = "name"
)

// Rank orders quality profiles by overall score descending and assigns
// ranks 1..N with no gaps. Equal scores receive distinct ranks ordered by
// the tie-break key: ascending institution id by default, or name when
// configured (equal names fall back to id). Identical input yields an
// identical ranking; there is no randomness anywhere in the pipeline.
func Rank(profiles []QualityProfile, tieBreak string, names map[int64]string) []RankedInstitution {
	sorted := append([]QualityProfile(nil), profiles...)
	sort.SliceStable(sorted, func(a, b int) bool {
		pa, pb := sorted[a], sorted[b]
		if pa.Overall != pb.Overall {
			return pa.Overall > pb.Overall
		}
		if tieBreak == TieBreakName && names != nil {
			na, nb := names[pa.InstitutionID], names[pb.InstitutionID]
			if na != nb {
				return na < nb
			}
		}
		return pa.InstitutionID < pb.InstitutionID
	})

	ranked := make([]RankedInstitution, len(sorted))
	for i, p := range sorted {
		ranked[i] = RankedInstitution{
			InstitutionID: p.InstitutionID,
			Overall:       p.Overall,
			Rank:          i + 1,
		}
	}
	return ranked
}

// sortRowsBy stably sorts rows in place.
func sortRowsBy(rows []Row, less func(a, b Row) bool) {
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}
