package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

func TestSanitizeMetrics(t *testing.T) {
	tests := []struct {
		name         string
		records      []types.Institution
		wantClean    map[int64]map[string]float64
		wantDropped  int
		wantDroppedK []string
	}{
		{
			name: "keeps in-domain values",
			records: []types.Institution{
				{ID: 1, Metrics: map[string]float64{
					"sat_avg":        1200,
					"admission_rate": 0.5,
				}},
			},
			wantClean: map[int64]map[string]float64{
				1: {"sat_avg": 1200, "admission_rate": 0.5},
			},
		},
		{
			name: "drops values outside the sanity domain",
			records: []types.Institution{
				{ID: 1, Metrics: map[string]float64{
					"sat_avg":         2000, // above 1600
					"admission_rate":  1.5,  // above 1
					"completion_rate": 0.8,
				}},
			},
			wantClean: map[int64]map[string]float64{
				1: {"completion_rate": 0.8},
			},
			wantDropped:  2,
			wantDroppedK: []string{"sat_avg", "admission_rate"},
		},
		{
			name: "drops NaN and infinities",
			records: []types.Institution{
				{ID: 7, Metrics: map[string]float64{
					"median_earnings": math.NaN(),
					"retention_rate":  math.Inf(1),
					"repayment_rate":  0.9,
				}},
			},
			wantClean: map[int64]map[string]float64{
				7: {"repayment_rate": 0.9},
			},
			wantDropped:  2,
			wantDroppedK: []string{"median_earnings", "retention_rate"},
		},
		{
			name: "ignores keys not in the registry",
			records: []types.Institution{
				{ID: 3, Metrics: map[string]float64{
					"sat_avg":       1000,
					"mystery_field": 42,
				}},
			},
			wantClean: map[int64]map[string]float64{
				3: {"sat_avg": 1000},
			},
		},
		{
			name:    "institution with no metrics stays present and empty",
			records: []types.Institution{{ID: 9, Metrics: map[string]float64{}}},
			wantClean: map[int64]map[string]float64{
				9: {},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, invalid := SanitizeMetrics(tt.records)
			assert.Equal(t, tt.wantClean, clean)
			assert.Len(t, invalid, tt.wantDropped)

			gotKeys := make(map[string]bool)
			for _, iv := range invalid {
				gotKeys[iv.Indicator] = true
				require.NotNil(t, iv.Err)
				assert.True(t, apperrors.IsInvalidMetric(iv.Err))
			}
			for _, k := range tt.wantDroppedK {
				assert.True(t, gotKeys[k], "expected a drop for %s", k)
			}
		})
	}
}

func TestNormalizeColumn(t *testing.T) {
	tests := []struct {
		name         string
		values       map[int64]float64
		higherBetter bool
		want         map[int64]float64
	}{
		{
			name:         "higher is better maps min to 0 and max to 100",
			values:       map[int64]float64{1: 10, 2: 20, 3: 30},
			higherBetter: true,
			want:         map[int64]float64{1: 0, 2: 50, 3: 100},
		},
		{
			name:         "lower is better inverts the scale",
			values:       map[int64]float64{1: 10, 2: 20, 3: 30},
			higherBetter: false,
			want:         map[int64]float64{1: 100, 2: 50, 3: 0},
		},
		{
			name:         "degenerate column maps every present value to 100",
			values:       map[int64]float64{1: 5, 2: 5, 3: 5},
			higherBetter: true,
			want:         map[int64]float64{1: 100, 2: 100, 3: 100},
		},
		{
			name:         "degenerate column under lower-is-better also maps to 100",
			values:       map[int64]float64{1: 5, 2: 5},
			higherBetter: false,
			want:         map[int64]float64{1: 100, 2: 100},
		},
		{
			name:         "single value is degenerate",
			values:       map[int64]float64{42: 0.37},
			higherBetter: true,
			want:         map[int64]float64{42: 100},
		},
		{
			name:         "empty column yields empty output",
			values:       map[int64]float64{},
			higherBetter: true,
			want:         map[int64]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeColumn(tt.values, tt.higherBetter)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.InDelta(t, want, got[id], 1e-12, "id %d", id)
			}
		})
	}
}

func TestNormalizePreservesAbsence(t *testing.T) {
	clean := map[int64]map[string]float64{
		1: {"sat_avg": 1600, "completion_rate": 0.9},
		2: {"sat_avg": 800},
		3: {"completion_rate": 0.5},
	}

	normalized := Normalize(clean)

	require.Len(t, normalized, 3)

	// Column scaling over present values only.
	assert.InDelta(t, 100, normalized[1]["sat_avg"], 1e-12)
	assert.InDelta(t, 0, normalized[2]["sat_avg"], 1e-12)
	assert.InDelta(t, 100, normalized[1]["completion_rate"], 1e-12)
	assert.InDelta(t, 0, normalized[3]["completion_rate"], 1e-12)

	// Absent stays absent: never imputed.
	_, hasCompletion := normalized[2]["completion_rate"]
	assert.False(t, hasCompletion)
	_, hasSAT := normalized[3]["sat_avg"]
	assert.False(t, hasSAT)
	assert.Len(t, normalized[1], 2)
	assert.Len(t, normalized[2], 1)
	assert.Len(t, normalized[3], 1)
}

func TestNormalizeDirectionFromRegistry(t *testing.T) {
	// admission_rate is lower-is-better: the most selective school wins.
	clean := map[int64]map[string]float64{
		1: {"admission_rate": 0.1},
		2: {"admission_rate": 0.9},
	}

	normalized := Normalize(clean)

	assert.InDelta(t, 100, normalized[1]["admission_rate"], 1e-12)
	assert.InDelta(t, 0, normalized[2]["admission_rate"], 1e-12)
}
