// Package report is the API-facing service: monitoring snapshots, cached
// report reads, bulk refresh triggering and year-over-year comparisons.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/adlens/adlens/internal/cachehealth"
	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/refresh"
	"github.com/adlens/adlens/internal/store"
	"github.com/adlens/adlens/internal/yoy"
)

// ErrRefreshInFlight is returned when a bulk refresh is requested while
// another one is still running. Overlapping runs over the same keys are not
// safe, so they are serialized here at the caller boundary.
var ErrRefreshInFlight = errors.New("a refresh run is already in flight")

// TableObserver receives table summaries as they are evaluated. Implemented
// by the Prometheus gauges; nil disables observation.
type TableObserver interface {
	ObserveTable(models.CacheTableSummary)
}

type Service struct {
	st         store.Store
	classifier *cachehealth.Classifier
	evaluator  *cachehealth.Evaluator
	orch       *refresh.Orchestrator
	observer   TableObserver
	log        *slog.Logger
	now        func() time.Time

	refreshing atomic.Bool
}

func NewService(
	st store.Store,
	classifier *cachehealth.Classifier,
	evaluator *cachehealth.Evaluator,
	orch *refresh.Orchestrator,
	observer TableObserver,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		st:         st,
		classifier: classifier,
		evaluator:  evaluator,
		orch:       orch,
		observer:   observer,
		log:        log,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// MonitoringSnapshot evaluates every cache table and the system rollup.
// Read-only and side-effect-free apart from gauge updates; safe to poll.
func (s *Service) MonitoringSnapshot() (models.MonitoringSnapshot, error) {
	snap := models.MonitoringSnapshot{GeneratedAt: s.now()}
	for _, platform := range models.Platforms {
		entries, err := s.st.Entries(platform)
		if err != nil {
			return models.MonitoringSnapshot{}, fmt.Errorf("reading %s entries: %w", platform, err)
		}
		summary := s.evaluator.EvaluateTable(platform, entries)
		if s.observer != nil {
			s.observer.ObserveTable(summary)
		}
		snap.PerTable = append(snap.PerTable, summary)
	}
	snap.System = cachehealth.Summarize(snap.PerTable)
	return snap, nil
}

// RefreshAll runs a bulk refresh over the given keys, or over every known
// key when none are given. Only one run may be in flight at a time.
func (s *Service) RefreshAll(ctx context.Context, keys []models.CacheKey) (models.RefreshSummary, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return models.RefreshSummary{}, ErrRefreshInFlight
	}
	defer s.refreshing.Store(false)

	if len(keys) == 0 {
		var err error
		keys, err = s.st.Keys()
		if err != nil {
			return models.RefreshSummary{}, fmt.Errorf("listing cache keys: %w", err)
		}
	}
	return s.orch.RefreshAll(ctx, keys), nil
}

// StaleKeys lists the refresh candidates: every key whose entry has aged
// past the staleness threshold.
func (s *Service) StaleKeys() ([]models.CacheKey, error) {
	var out []models.CacheKey
	for _, platform := range models.Platforms {
		entries, err := s.st.Entries(platform)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if s.classifier.Stale(e) {
				out = append(out, e.Key)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// ReportResult is a cached report read. Source is Unavailable when no entry
// exists; the service never substitutes fabricated numbers.
type ReportResult struct {
	Key     models.CacheKey           `json:"key"`
	Source  models.DataSource         `json:"source"`
	Status  *models.CacheEntryStatus  `json:"status,omitempty"`
	Payload *models.AggregatedMetrics `json:"payload,omitempty"`
}

func (s *Service) Report(key models.CacheKey) (ReportResult, error) {
	entry, ok, err := s.st.Get(key)
	if err != nil {
		return ReportResult{}, err
	}
	if !ok {
		return ReportResult{Key: key, Source: models.SourceUnavailable}, nil
	}
	status := s.classifier.Classify(entry)
	return ReportResult{
		Key:     key,
		Source:  models.SourceCached,
		Status:  &status,
		Payload: &entry.Payload,
	}, nil
}

// CompareYoY compares a cached period against the stored snapshot for the
// same calendar period one year earlier. Metrics without a baseline carry
// the no-history marker; a missing current entry is an error because there
// is nothing to compare.
func (s *Service) CompareYoY(key models.CacheKey) ([]models.YoYDelta, error) {
	period, err := models.ParsePeriod(key.PeriodID)
	if err != nil {
		return nil, err
	}
	current, ok, err := s.st.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no cached report for %s", key)
	}

	prevPeriod := period.PrevYear()
	if err := yoy.CheckAligned(period, prevPeriod); err != nil {
		return nil, err
	}
	prevKey := models.CacheKey{ClientID: key.ClientID, PeriodID: prevPeriod.String(), Platform: key.Platform}
	prev, ok, err := s.st.Get(prevKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return yoy.Compare(current.Payload, nil), nil
	}
	return yoy.Compare(current.Payload, &prev.Payload), nil
}
