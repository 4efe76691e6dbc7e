package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineErrorConstructors(t *testing.T) {
	tests := []struct {
		name           string
		err            *AppError
		expectCategory ErrorCategory
		expectStatus   int
		expectPrefix   string
	}{
		{
			name:           "invalid metric",
			err:            NewInvalidMetricError("admission_rate", 1.4, 0, 1),
			expectCategory: CategoryInvalidMetric,
			expectStatus:   http.StatusUnprocessableEntity,
			expectPrefix:   "[INVALID_METRIC]",
		},
		{
			name:           "insufficient data",
			err:            NewInsufficientDataError(166027, 4, 5),
			expectCategory: CategoryInsufficientData,
			expectStatus:   http.StatusUnprocessableEntity,
			expectPrefix:   "[INSUFFICIENT_DATA]",
		},
		{
			name:           "empty dataset",
			err:            NewEmptyDatasetError(12, 12),
			expectCategory: CategoryEmptyDataset,
			expectStatus:   http.StatusServiceUnavailable,
			expectPrefix:   "[EMPTY_DATASET]",
		},
		{
			name:           "external api",
			err:            NewExternalAPIError("College Scorecard", errors.New("boom")),
			expectCategory: CategoryExternalAPI,
			expectStatus:   http.StatusBadGateway,
			expectPrefix:   "[EXTERNAL_API_ERROR]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectCategory, tt.err.Category)
			assert.Equal(t, tt.expectStatus, tt.err.HTTPStatus)
			assert.Contains(t, tt.err.Error(), tt.expectPrefix)
		})
	}
}

func TestCategoryPredicates(t *testing.T) {
	invalid := NewInvalidMetricError("sat_avg", 2000, 400, 1600)
	insufficient := NewInsufficientDataError(1, 2, 5)
	empty := NewEmptyDatasetError(0, 0)

	assert.True(t, IsInvalidMetric(invalid))
	assert.False(t, IsInvalidMetric(insufficient))
	assert.True(t, IsInsufficientData(insufficient))
	assert.True(t, IsEmptyDataset(empty))
	assert.False(t, IsEmptyDataset(insufficient))

	// Predicates must see through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("pipeline run failed: %w", empty)
	assert.True(t, IsEmptyDataset(wrapped))
	assert.Equal(t, CategoryEmptyDataset, CategoryOf(wrapped))

	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("plain")))
	assert.False(t, IsInvalidMetric(nil))
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		name           string
		input          error
		expectCategory ErrorCategory
	}{
		{
			name:           "passes through app errors",
			input:          NewInsufficientDataError(7, 3, 5),
			expectCategory: CategoryInsufficientData,
		},
		{
			name:           "classifies connection refused",
			input:          errors.New("dial tcp: connection refused"),
			expectCategory: CategoryNetwork,
		},
		{
			name:           "classifies timeouts",
			input:          errors.New("context deadline exceeded"),
			expectCategory: CategoryTimeout,
		},
		{
			name:           "defaults to internal",
			input:          errors.New("something odd"),
			expectCategory: CategoryInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.input)
			assert.Equal(t, tt.expectCategory, appErr.Category)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(NewNetworkError("down", nil)))
	assert.True(t, IsRetryableError(NewRateLimitError("60")))
	assert.False(t, IsRetryableError(NewValidationError("bad input")))
	assert.False(t, IsRetryableError(NewInsufficientDataError(1, 1, 5)))
}
