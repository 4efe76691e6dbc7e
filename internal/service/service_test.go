package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	apperrors "github.com/ZanzyTHEbar/uni-value-o-meter/internal/errors"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

func testRecords() []types.Institution {
	full := func(id int64, name string, price float64, sat float64) types.Institution {
		return types.Institution{
			ID: id, Name: name, State: "CA", Price: price, Currency: "USD",
			Metrics: map[string]float64{
				"sat_avg":         sat,
				"act_midpoint":    25,
				"admission_rate":  0.5,
				"completion_rate": 0.7,
				"median_earnings": 50000,
			},
		}
	}
	return []types.Institution{
		full(1, "Alpha University", 20000, 1500),
		full(2, "Beta College", 30000, 1200),
	}
}

func newTestService(source Source) *Service {
	pipeline := analysis.NewPipeline(analysis.DefaultOptions(), slog.Default())
	return NewService(source, pipeline, slog.Default())
}

func TestServiceRefreshPublishesResult(t *testing.T) {
	svc := newTestService(SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
		return testRecords(), nil
	}))

	assert.False(t, svc.Ready())
	_, err := svc.Current()
	assert.ErrorIs(t, err, ErrNotReady)

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Rows, 2)

	assert.True(t, svc.Ready())
	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, result.RunID, current.RunID)

	generated, ok := svc.LastGenerated()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), generated, time.Minute)
}

func TestServiceFetchErrorKeepsPublishedResult(t *testing.T) {
	var fail bool
	svc := newTestService(SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
		if fail {
			return nil, errors.New("upstream down")
		}
		return testRecords(), nil
	}))

	first, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = svc.Refresh(context.Background())
	require.Error(t, err)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, first.RunID, current.RunID)
}

func TestServiceEmptyDatasetErrorPropagates(t *testing.T) {
	svc := newTestService(SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
		return nil, nil
	}))

	_, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsEmptyDataset(err))
	assert.False(t, svc.Ready())
}

func TestServiceSingleFlightRefresh(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})

	var calls atomic.Int32
	svc := newTestService(SourceFunc(func(ctx context.Context) ([]types.Institution, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return testRecords(), nil
	}))

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = svc.Refresh(context.Background())
	}()

	<-started
	assert.True(t, svc.Refreshing())

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, svc.Refreshing())

	// The guard resets: a later refresh works again.
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
}
