package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adlens/adlens/internal/aggregate"
	"github.com/adlens/adlens/internal/cachehealth"
	"github.com/adlens/adlens/internal/models"
	"github.com/adlens/adlens/internal/normalize"
	"github.com/adlens/adlens/internal/refresh"
	"github.com/adlens/adlens/internal/report"
	"github.com/adlens/adlens/internal/store"
)

var now = time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

type stubFetcher struct {
	failClient string
}

func (f *stubFetcher) FetchCampaignData(ctx context.Context, key models.CacheKey) ([]models.RawCampaignPayload, error) {
	if key.ClientID == f.failClient {
		return nil, fmt.Errorf("fetch failed (auth): non-2xx: 401")
	}
	return []models.RawCampaignPayload{{
		Spend:   100,
		Clicks:  10,
		Actions: []models.RawActionRecord{{Tag: "omni_purchase", Value: 3}},
	}}, nil
}

func newTestServer(t *testing.T, st store.Store, fetcher *stubFetcher) *httptest.Server {
	t.Helper()
	classifier := cachehealth.NewClassifier(180*time.Minute, func() time.Time { return now })
	evaluator := cachehealth.NewEvaluator(classifier, 0.5)
	orch := refresh.NewOrchestrator(
		fetcher, st,
		normalize.New(normalize.DefaultRules(nil, nil), slog.Default()),
		aggregate.New(0.2),
		refresh.NewFlightGroup(), 2, nil, slog.Default())
	svc := report.NewService(st, classifier, evaluator, orch, nil, slog.Default())
	svc.SetClock(func() time.Time { return now })

	srv := httptest.NewServer(NewRouter(slog.Default(), svc, nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decoding %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), &stubFetcher{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if code := getJSON(t, srv.URL+path, nil); code != 200 {
			t.Fatalf("%s returned %d", path, code)
		}
	}
}

func TestMonitoringSnapshotEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(models.CacheKey{ClientID: "c1", PeriodID: "2025-08", Platform: models.PlatformMeta},
		models.AggregatedMetrics{}, now.Add(-10*time.Minute))

	srv := newTestServer(t, st, &stubFetcher{})
	var snap models.MonitoringSnapshot
	if code := getJSON(t, srv.URL+"/monitoring/snapshot", &snap); code != 200 {
		t.Fatalf("snapshot returned %d", code)
	}
	if len(snap.PerTable) != len(models.Platforms) {
		t.Fatalf("expected %d tables, got %d", len(models.Platforms), len(snap.PerTable))
	}
	if snap.System.FreshEntries != 1 {
		t.Fatalf("unexpected system summary: %+v", snap.System)
	}
}

func TestReportUnavailable(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), &stubFetcher{})

	var res report.ReportResult
	code := getJSON(t, srv.URL+"/reports/meta_ads/c1/2025-08", &res)
	if code != 404 {
		t.Fatalf("expected 404 for missing report, got %d", code)
	}
	if res.Source != models.SourceUnavailable {
		t.Fatalf("expected explicit unavailable source, got %q", res.Source)
	}
}

func TestReportBadPeriod(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), &stubFetcher{})
	if code := getJSON(t, srv.URL+"/reports/meta_ads/c1/not-a-period", nil); code != 400 {
		t.Fatalf("expected 400 for bad period, got %d", code)
	}
}

func TestRefreshRunAndReadBack(t *testing.T) {
	st := store.NewMemoryStore()
	srv := newTestServer(t, st, &stubFetcher{failClient: "c2"})

	resp, err := http.Post(srv.URL+"/refresh/run?clients=c1,c2&period=2025-08&platform=meta_ads", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("refresh run returned %d", resp.StatusCode)
	}
	var summary models.RefreshSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatal(err)
	}
	if summary.Total != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}

	var res report.ReportResult
	if code := getJSON(t, srv.URL+"/reports/meta_ads/c1/2025-08", &res); code != 200 {
		t.Fatalf("expected refreshed report, got %d", code)
	}
	if res.Source != models.SourceCached || res.Payload.Reservations != 3 {
		t.Fatalf("unexpected report: %+v", res)
	}
}

func TestRefreshRunRejectsPartialFilter(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), &stubFetcher{})
	resp, err := http.Post(srv.URL+"/refresh/run?clients=c1", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for clients without period, got %d", resp.StatusCode)
	}
}

func TestYoYEndpoint(t *testing.T) {
	st := store.NewMemoryStore()
	st.Put(models.CacheKey{ClientID: "c1", PeriodID: "2025-08", Platform: models.PlatformMeta},
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 150}}, now)
	st.Put(models.CacheKey{ClientID: "c1", PeriodID: "2024-08", Platform: models.PlatformMeta},
		models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{Spend: 100}}, now.AddDate(-1, 0, 0))

	srv := newTestServer(t, st, &stubFetcher{})
	var deltas []models.YoYDelta
	if code := getJSON(t, srv.URL+"/reports/meta_ads/c1/2025-08/yoy", &deltas); code != 200 {
		t.Fatalf("yoy returned %d", code)
	}
	found := false
	for _, d := range deltas {
		if d.Metric == "spend" {
			found = true
			if d.NoHistory || d.ChangePercent != 50 {
				t.Fatalf("expected +50%% spend, got %+v", d)
			}
		}
	}
	if !found {
		t.Fatal("spend delta missing")
	}
}

func TestYoYBadPeriod(t *testing.T) {
	srv := newTestServer(t, store.NewMemoryStore(), &stubFetcher{})
	code := getJSON(t, srv.URL+"/reports/meta_ads/c1/"+strings.ReplaceAll("last 30 days", " ", "-")+"/yoy", nil)
	if code != 400 {
		t.Fatalf("expected 400 for custom range, got %d", code)
	}
}
