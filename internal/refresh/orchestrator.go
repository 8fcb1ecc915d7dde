// Package refresh orchestrates bulk cache refreshes: fetch, normalize,
// aggregate and write back, one job per cache key, with bounded concurrency
// so the rate-limited upstream APIs are not flooded.
package refresh

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/adlens/adlens/internal/aggregate"
	"github.com/adlens/adlens/internal/ingest"
	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/normalize"
	"github.com/adlens/adlens/internal/store"
)

// Instrumentation receives per-job observations. Implemented by the
// Prometheus collectors; nil disables recording.
type Instrumentation interface {
	RecordJob(platform models.Platform, outcome models.JobOutcome)
	RecordFetchDuration(platform models.Platform, d time.Duration)
}

type Orchestrator struct {
	fetcher    ingest.Fetcher
	store      store.Store
	normalizer *normalize.Normalizer
	aggregator *aggregate.Aggregator
	flights    *FlightGroup
	workers    int
	inst       Instrumentation
	log        *slog.Logger

	// now is injected for deterministic tests.
	now func() time.Time
}

func NewOrchestrator(
	fetcher ingest.Fetcher,
	st store.Store,
	normalizer *normalize.Normalizer,
	aggregator *aggregate.Aggregator,
	flights *FlightGroup,
	workers int,
	inst Instrumentation,
	log *slog.Logger,
) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if flights == nil {
		flights = NewFlightGroup()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		fetcher:    fetcher,
		store:      st,
		normalizer: normalizer,
		aggregator: aggregator,
		flights:    flights,
		workers:    workers,
		inst:       inst,
		log:        log,
		now:        time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// RefreshAll refreshes every given key with bounded concurrency. It always
// waits for all jobs to reach a terminal state and reports every key exactly
// once. On cancellation in-flight jobs are allowed to complete, jobs not yet
// started are reported as failed, and no new fetches begin.
func (o *Orchestrator) RefreshAll(ctx context.Context, keys []models.CacheKey) models.RefreshSummary {
	start := o.now()
	runID := ulid.Make().String()
	o.log.Info("refresh run starting",
		slog.String("run_id", runID),
		slog.Int("keys", len(keys)),
		slog.Int("workers", o.workers))

	jobs := make(chan models.CacheKey)
	results := make(chan models.RefreshJobResult, len(keys))

	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(keys) {
		workers = len(keys)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				if ctx.Err() != nil {
					results <- models.RefreshJobResult{
						Key:     key,
						Outcome: models.OutcomeFailure,
						Error:   "run canceled before job start",
					}
					continue
				}
				results <- o.runJob(ctx, key)
			}
		}()
	}

	for _, key := range keys {
		jobs <- key
	}
	close(jobs)
	wg.Wait()
	close(results)

	summary := models.RefreshSummary{RunID: runID, Total: len(keys)}
	for r := range results {
		if r.Outcome == models.OutcomeSuccess {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.Results = append(summary.Results, r)
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Key.String() < summary.Results[j].Key.String()
	})
	summary.Duration = o.now().Sub(start)

	o.log.Info("refresh run complete",
		slog.String("run_id", runID),
		slog.Int("successful", summary.Successful),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))
	return summary
}

// RefreshOne fetches, normalizes, aggregates and stores one key. Used by the
// on-demand report path; shares the flight group with bulk runs.
func (o *Orchestrator) RefreshOne(ctx context.Context, key models.CacheKey) (models.CacheEntry, error) {
	agg, err := o.fetchAndAggregate(ctx, key)
	if err != nil {
		return models.CacheEntry{}, err
	}
	ts := o.now()
	if err := o.store.Put(key, agg, ts); err != nil {
		return models.CacheEntry{}, err
	}
	return models.CacheEntry{Key: key, LastUpdatedAt: ts, Payload: agg}, nil
}

// runJob is one worker's unit of work. Only success writes the store; a
// failed job leaves the previous entry untouched, so readers never see a
// half-written snapshot.
func (o *Orchestrator) runJob(ctx context.Context, key models.CacheKey) models.RefreshJobResult {
	agg, err := o.fetchAndAggregate(ctx, key)
	if err != nil {
		o.record(key.Platform, models.OutcomeFailure)
		o.log.Warn("refresh job failed",
			slog.String("key", key.String()),
			slog.String("err", err.Error()))
		return models.RefreshJobResult{Key: key, Outcome: models.OutcomeFailure, Error: err.Error()}
	}
	if err := o.store.Put(key, agg, o.now()); err != nil {
		o.record(key.Platform, models.OutcomeFailure)
		return models.RefreshJobResult{Key: key, Outcome: models.OutcomeFailure, Error: "store: " + err.Error()}
	}
	o.record(key.Platform, models.OutcomeSuccess)
	return models.RefreshJobResult{Key: key, Outcome: models.OutcomeSuccess}
}

func (o *Orchestrator) fetchAndAggregate(ctx context.Context, key models.CacheKey) (models.AggregatedMetrics, error) {
	fetchStart := o.now()
	payload, err := o.flights.Do(ctx, key.String(), func() ([]models.RawCampaignPayload, error) {
		return o.fetcher.FetchCampaignData(ctx, key)
	})
	if o.inst != nil {
		o.inst.RecordFetchDuration(key.Platform, o.now().Sub(fetchStart))
	}
	if err != nil {
		return models.AggregatedMetrics{}, err
	}
	return o.aggregator.Aggregate(o.normalizer.NormalizeAll(payload)), nil
}

func (o *Orchestrator) record(platform models.Platform, outcome models.JobOutcome) {
	if o.inst != nil {
		o.inst.RecordJob(platform, outcome)
	}
}
