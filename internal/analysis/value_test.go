package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeValueSingleInstitution(t *testing.T) {
	ranked := []RankedInstitution{{InstitutionID: 1, Overall: 42, Rank: 1}}
	prices := map[int64]float64{1: 25000}

	values := ComputeValue(ranked, prices, DefaultOptions(), nil)

	require.Len(t, values, 1)
	assert.InDelta(t, 100, values[0].QualityPercentile, 1e-12)
	assert.InDelta(t, 100, values[0].PriceAffordability, 1e-12)
	assert.InDelta(t, 100, values[0].ValueScore, 1e-12)
	assert.Equal(t, 1, values[0].ValueRank)
}

func TestComputeValuePercentilesAndBlend(t *testing.T) {
	ranked := []RankedInstitution{
		{InstitutionID: 1, Overall: 90, Rank: 1},
		{InstitutionID: 2, Overall: 70, Rank: 2},
		{InstitutionID: 3, Overall: 50, Rank: 3},
	}
	prices := map[int64]float64{1: 10000, 2: 20000, 3: 30000}

	values := ComputeValue(ranked, prices, DefaultOptions(), nil)
	require.Len(t, values, 3)

	byID := make(map[int64]ValueProfile, 3)
	for _, v := range values {
		byID[v.InstitutionID] = v
	}

	// Quality percentile: best rank 100, worst 0, linear between.
	assert.InDelta(t, 100, byID[1].QualityPercentile, 1e-9)
	assert.InDelta(t, 50, byID[2].QualityPercentile, 1e-9)
	assert.InDelta(t, 0, byID[3].QualityPercentile, 1e-9)

	// Affordability: cheapest 100, priciest 0.
	assert.InDelta(t, 100, byID[1].PriceAffordability, 1e-9)
	assert.InDelta(t, 50, byID[2].PriceAffordability, 1e-9)
	assert.InDelta(t, 0, byID[3].PriceAffordability, 1e-9)

	// Default blend 0.7/0.3.
	assert.InDelta(t, 100, byID[1].ValueScore, 1e-9)
	assert.InDelta(t, 50, byID[2].ValueScore, 1e-9)
	assert.InDelta(t, 0, byID[3].ValueScore, 1e-9)

	assert.Equal(t, 1, byID[1].ValueRank)
	assert.Equal(t, 2, byID[2].ValueRank)
	assert.Equal(t, 3, byID[3].ValueRank)
}

func TestComputeValueBlendRenormalizesOverWeightSum(t *testing.T) {
	ranked := []RankedInstitution{
		{InstitutionID: 1, Overall: 90, Rank: 1},
		{InstitutionID: 2, Overall: 50, Rank: 2},
	}
	prices := map[int64]float64{1: 10000, 2: 20000}

	opts := DefaultOptions()
	opts.ValueQualityWeight = 2
	opts.ValuePriceWeight = 2

	values := ComputeValue(ranked, prices, opts, nil)
	byID := make(map[int64]ValueProfile, 2)
	for _, v := range values {
		byID[v.InstitutionID] = v
	}

	// (2*100 + 2*100) / 4 = 100 and (2*0 + 2*0) / 4 = 0: weights only
	// matter relative to each other.
	assert.InDelta(t, 100, byID[1].ValueScore, 1e-9)
	assert.InDelta(t, 0, byID[2].ValueScore, 1e-9)
}

func TestComputeValueDivergesFromQualityRanking(t *testing.T) {
	// An expensive top school can lose the value ranking to a cheaper
	// mid-tier school once affordability carries enough weight.
	ranked := []RankedInstitution{
		{InstitutionID: 1, Overall: 95, Rank: 1},
		{InstitutionID: 2, Overall: 90, Rank: 2},
		{InstitutionID: 3, Overall: 50, Rank: 3},
	}
	prices := map[int64]float64{1: 60000, 2: 20000, 3: 25000}

	opts := DefaultOptions()
	opts.ValueQualityWeight = 0.3
	opts.ValuePriceWeight = 0.7

	values := ComputeValue(ranked, prices, opts, nil)
	require.Len(t, values, 3)

	// Value order: 2 (50 qual pct, 100 afford -> 85), 3 (0, 87.5 -> 61.25),
	// 1 (100, 0 -> 30). Quality rank 1 ends up last on value.
	assert.Equal(t, int64(2), values[0].InstitutionID)
	assert.Equal(t, int64(3), values[1].InstitutionID)
	assert.Equal(t, int64(1), values[2].InstitutionID)

	assert.InDelta(t, 85, values[0].ValueScore, 1e-9)
	assert.InDelta(t, 61.25, values[1].ValueScore, 1e-9)
	assert.InDelta(t, 30, values[2].ValueScore, 1e-9)

	assert.Equal(t, 1, values[0].ValueRank)
	assert.Equal(t, 3, values[2].ValueRank)
}

func TestComputeValueTieBreak(t *testing.T) {
	// Dense ranks make equal quality percentiles impossible, so force a
	// value tie through a degenerate price column and a zero quality
	// weight.
	ranked := []RankedInstitution{
		{InstitutionID: 9, Overall: 80, Rank: 1},
		{InstitutionID: 4, Overall: 80, Rank: 2},
	}
	prices := map[int64]float64{9: 15000, 4: 15000}

	opts := DefaultOptions()
	opts.ValueQualityWeight = 0
	opts.ValuePriceWeight = 1

	values := ComputeValue(ranked, prices, opts, nil)

	// Both score 100 on affordability alone; ascending id breaks the tie.
	require.Len(t, values, 2)
	assert.Equal(t, int64(4), values[0].InstitutionID)
	assert.Equal(t, 1, values[0].ValueRank)
	assert.Equal(t, int64(9), values[1].InstitutionID)
	assert.Equal(t, 2, values[1].ValueRank)
}

func TestComputeValueEmpty(t *testing.T) {
	assert.Nil(t, ComputeValue(nil, nil, DefaultOptions(), nil))
}
