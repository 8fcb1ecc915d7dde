package yoy

import (
	"testing"

	"github.com/adlens/adlens/internal/models"
)

func metricsWith(spend float64, clicks int64, reservations float64) models.AggregatedMetrics {
	return models.AggregatedMetrics{CanonicalMetricSet: models.CanonicalMetricSet{
		Spend:        spend,
		Clicks:       clicks,
		Reservations: reservations,
	}}
}

func deltaFor(t *testing.T, deltas []models.YoYDelta, metric string) models.YoYDelta {
	t.Helper()
	for _, d := range deltas {
		if d.Metric == metric {
			return d
		}
	}
	t.Fatalf("metric %s missing from deltas", metric)
	return models.YoYDelta{}
}

func TestAbsentBaselineYieldsNoHistory(t *testing.T) {
	deltas := Compare(metricsWith(100, 10, 3), nil)
	if len(deltas) != len(TrackedMetrics) {
		t.Fatalf("expected %d deltas, got %d", len(TrackedMetrics), len(deltas))
	}
	for _, d := range deltas {
		if !d.NoHistory {
			t.Fatalf("expected no-history for %s with absent baseline", d.Metric)
		}
		if d.ChangePercent != 0 {
			t.Fatalf("no-history delta must not carry a percentage: %+v", d)
		}
	}
}

func TestZeroBaselineYieldsNoHistory(t *testing.T) {
	prev := metricsWith(0, 50, 2)
	deltas := Compare(metricsWith(100, 60, 4), &prev)

	spend := deltaFor(t, deltas, "spend")
	if !spend.NoHistory {
		t.Fatal("expected no-history for spend with a zero baseline")
	}
	clicks := deltaFor(t, deltas, "clicks")
	if clicks.NoHistory {
		t.Fatal("clicks had a real baseline and must carry a delta")
	}
	if clicks.ChangePercent != 20 {
		t.Fatalf("expected +20%% clicks, got %v", clicks.ChangePercent)
	}
}

func TestNumericDeltas(t *testing.T) {
	prev := metricsWith(200, 100, 10)
	deltas := Compare(metricsWith(150, 120, 10), &prev)

	if d := deltaFor(t, deltas, "spend"); d.ChangePercent != -25 {
		t.Fatalf("expected -25%% spend, got %v", d.ChangePercent)
	}
	if d := deltaFor(t, deltas, "reservations"); d.ChangePercent != 0 || d.NoHistory {
		t.Fatalf("expected flat reservations, got %+v", d)
	}
}

func TestCheckAligned(t *testing.T) {
	cur := models.Period{Kind: models.PeriodMonth, Year: 2025, Num: 8}

	if err := CheckAligned(cur, cur.PrevYear()); err != nil {
		t.Fatalf("prev-year period must be aligned: %v", err)
	}
	if err := CheckAligned(cur, models.Period{Kind: models.PeriodMonth, Year: 2024, Num: 7}); err == nil {
		t.Fatal("expected error for different month")
	}
	if err := CheckAligned(cur, models.Period{Kind: models.PeriodWeek, Year: 2024, Num: 8}); err == nil {
		t.Fatal("expected error for different period kind")
	}
	if err := CheckAligned(cur, models.Period{Kind: models.PeriodMonth, Year: 2023, Num: 8}); err == nil {
		t.Fatal("expected error for two-year gap")
	}
}
