package report

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/adlens/adlens/internal/aggregate"
	"github.com/adlens/adlens/internal/cachehealth"
	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/normalize"
	"github.com/adlens/adlens/internal/refresh"
	"github.com/adlens/adlens/internal/store"
)

var now = time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

type blockingFetcher struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (f *blockingFetcher) FetchCampaignData(ctx context.Context, key models.CacheKey) ([]models.RawCampaignPayload, error) {
	f.once.Do(func() { close(f.started) })
	if f.release != nil {
		<-f.release
	}
	return []models.RawCampaignPayload{{
		Spend:   100,
		Clicks:  10,
		Actions: []models.RawActionRecord{{Tag: "omni_purchase", Value: 3}},
	}}, nil
}

func newTestService(st store.Store, fetcher *blockingFetcher) *Service {
	classifier := cachehealth.NewClassifier(180*time.Minute, func() time.Time { return now })
	evaluator := cachehealth.NewEvaluator(classifier, 0.5)
	orch := refresh.NewOrchestrator(
		fetcher, st,
		normalize.New(normalize.DefaultRules(nil, nil), slog.Default()),
		aggregate.New(0.2),
		refresh.NewFlightGroup(), 2, nil, slog.Default())
	svc := NewService(st, classifier, evaluator, orch, nil, slog.Default())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func metaKey(client, period string) models.CacheKey {
	return models.CacheKey{ClientID: client, PeriodID: period, Platform: models.PlatformMeta}
}

func TestMonitoringSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("c1", "2025-08"), models.AggregatedMetrics{}, now.Add(-10*time.Minute))
	st.Put(metaKey("c2", "2025-08"), models.AggregatedMetrics{}, now.Add(-300*time.Minute))

	svc := newTestService(st, &blockingFetcher{started: make(chan struct{})})
	snap, err := svc.MonitoringSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.PerTable) != len(models.Platforms) {
		t.Fatalf("expected one summary per platform, got %d", len(snap.PerTable))
	}
	if snap.System.FreshEntries != 1 || snap.System.StaleEntries != 1 {
		t.Fatalf("unexpected system counts: %+v", snap.System)
	}
	// meta: 1/2 stale -> critical at 0.5 boundary; google: empty -> healthy.
	if snap.System.CriticalCaches != 1 || snap.System.HealthyCaches != 1 {
		t.Fatalf("unexpected verdicts: %+v", snap.System)
	}
}

func TestRefreshAllSerialized(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("c1", "2025-08"), models.AggregatedMetrics{}, now)

	f := &blockingFetcher{release: make(chan struct{}), started: make(chan struct{})}
	svc := newTestService(st, f)

	done := make(chan models.RefreshSummary, 1)
	go func() {
		s, _ := svc.RefreshAll(context.Background(), nil)
		done <- s
	}()
	<-f.started

	if _, err := svc.RefreshAll(context.Background(), nil); err != ErrRefreshInFlight {
		t.Fatalf("expected ErrRefreshInFlight for overlapping run, got %v", err)
	}

	close(f.release)
	summary := <-done
	if summary.Total != 1 || summary.Successful != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// The guard releases once the run completes.
	if _, err := svc.RefreshAll(context.Background(), []models.CacheKey{metaKey("c1", "2025-08")}); err != nil {
		t.Fatalf("expected next run to proceed, got %v", err)
	}
}

func TestStaleKeys(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("fresh", "2025-08"), models.AggregatedMetrics{}, now.Add(-time.Minute))
	st.Put(metaKey("stale", "2025-08"), models.AggregatedMetrics{}, now.Add(-200*time.Minute))

	svc := newTestService(st, &blockingFetcher{started: make(chan struct{})})
	keys, err := svc.StaleKeys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 || keys[0].ClientID != "stale" {
		t.Fatalf("unexpected stale keys: %+v", keys)
	}
}

func TestReportUnavailableWhenAbsent(t *testing.T) {
	svc := newTestService(store.NewMemoryStore(), &blockingFetcher{started: make(chan struct{})})

	res, err := svc.Report(metaKey("nobody", "2025-08"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceUnavailable {
		t.Fatalf("expected unavailable, got %s", res.Source)
	}
	if res.Payload != nil {
		t.Fatal("an unavailable report must not carry fabricated numbers")
	}
}

func TestReportCached(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("c1", "2025-08"),
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 10}},
		now.Add(-30*time.Minute))

	svc := newTestService(st, &blockingFetcher{started: make(chan struct{})})
	res, err := svc.Report(metaKey("c1", "2025-08"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != models.SourceCached || res.Payload.Spend != 10 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Status.Status != models.StatusFresh || res.Status.AgeMinutes != 30 {
		t.Fatalf("unexpected status: %+v", res.Status)
	}
}

func TestCompareYoY(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("c1", "2025-08"),
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 120}}, now)
	st.Put(metaKey("c1", "2024-08"),
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 100}}, now.AddDate(-1, 0, 0))

	svc := newTestService(st, &blockingFetcher{started: make(chan struct{})})
	deltas, err := svc.CompareYoY(metaKey("c1", "2025-08"))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range deltas {
		if d.Metric == "spend" {
			if d.NoHistory || d.ChangePercent != 20 {
				t.Fatalf("expected +20%% spend, got %+v", d)
			}
		}
	}
}

func TestCompareYoYNoBaseline(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(metaKey("c1", "2025-08"),
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 120}}, now)

	svc := newTestService(st, &blockingFetcher{started: make(chan struct{})})
	deltas, err := svc.CompareYoY(metaKey("c1", "2025-08"))
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range deltas {
		if !d.NoHistory {
			t.Fatalf("expected no-history for %s without a stored baseline", d.Metric)
		}
	}
}

func TestCompareYoYRejectsBadPeriod(t *testing.T) {
	svc := newTestService(store.NewMemoryStore(), &blockingFetcher{started: make(chan struct{})})
	if _, err := svc.CompareYoY(metaKey("c1", "last-30-days")); err == nil {
		t.Fatal("expected error for non-calendar period")
	}
}

func TestCompareYoYMissingCurrent(t *testing.T) {
	svc := newTestService(store.NewMemoryStore(), &blockingFetcher{started: make(chan struct{})})
	if _, err := svc.CompareYoY(metaKey("c1", "2025-08")); err == nil {
		t.Fatal("expected error when the current period has no cached report")
	}
}
