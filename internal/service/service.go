// Package service owns the current analysis result: it pulls records from
// the configured source, runs the pipeline, and swaps the published result
// atomically.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/uni-value-o-meter/internal/types"
)

// ErrRefreshInProgress is returned when a refresh is requested while
// another one is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ErrNotReady is returned by accessors before the first successful run.
var ErrNotReady = errors.New("no analysis result available yet")

// Source supplies raw institution records for a refresh.
type Source interface {
	FetchInstitutions(ctx context.Context) ([]types.Institution, error)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func(ctx context.Context) ([]types.Institution, error)

// FetchInstitutions implements Source.
func (f SourceFunc) FetchInstitutions(ctx context.Context) ([]types.Institution, error) {
	return f(ctx)
}

// Service holds the latest Result. Reads are lock-cheap and always see a
// complete result; a failed refresh never clobbers the published one.
type Service struct {
	source   Source
	pipeline *analysis.Pipeline
	log      *slog.Logger

	mu         sync.RWMutex
	current    *analysis.Result
	refreshing atomic.Bool
}

// NewService creates a service over the given source and pipeline.
func NewService(source Source, pipeline *analysis.Pipeline, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		source:   source,
		pipeline: pipeline,
		log:      log,
	}
}

// Refresh fetches records, reruns the pipeline, and publishes the new
// result. Only one refresh runs at a time; concurrent callers get
// ErrRefreshInProgress immediately rather than queueing.
func (s *Service) Refresh(ctx context.Context) (*analysis.Result, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.refreshing.Store(false)

	start := time.Now()
	s.log.Info("refresh started")

	records, err := s.source.FetchInstitutions(ctx)
	if err != nil {
		s.log.Error("refresh failed fetching records", "error", err)
		return nil, err
	}

	result, err := s.pipeline.Run(records)
	if err != nil {
		s.log.Error("refresh failed running analysis", "error", err)
		return nil, err
	}

	s.mu.Lock()
	s.current = result
	s.mu.Unlock()

	s.log.Info("refresh complete",
		"run_id", result.RunID,
		"institutions", len(result.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// Current returns the published result, or ErrNotReady before the first
// successful refresh.
func (s *Service) Current() (*analysis.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNotReady
	}
	return s.current, nil
}

// Ready reports whether a result has been published.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Refreshing reports whether a refresh is currently running.
func (s *Service) Refreshing() bool {
	return s.refreshing.Load()
}

// LastGenerated returns when the published result was computed.
func (s *Service) LastGenerated() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return time.Time{}, false
	}
	return s.current.GeneratedAt, true
}
