// Package aggregate sums deduplicated per-campaign metrics into period
// totals and derives the reporting ratios. Every division resolves to 0 on a
// zero denominator; no ratio ever comes back NaN or infinite.
package aggregate

import (
	"math"

	"github.com/adlens/adlens/internal/models"
)

type Aggregator struct {
	offlineConversionRate float64
}

func New(offlineConversionRate float64) *Aggregator {
	return &Aggregator{offlineConversionRate: offlineConversionRate}
}

// Aggregate sums the already-deduplicated campaign sets and derives ratios.
// Summation is order-independent, so callers may pass campaigns in any order.
func (a *Aggregator) Aggregate(campaigns []models.CanonicalMetricSet) models.AggregatedMetrics {
	var t models.CanonicalMetricSet
	for _, c := range campaigns {
		t.Spend += c.Spend
		t.Impressions += c.Impressions
		t.Clicks += c.Clicks
		t.Reservations += c.Reservations
		t.ReservationValue += c.ReservationValue
		t.BookingStep1 += c.BookingStep1
		t.BookingStep2 += c.BookingStep2
		t.BookingStep3 += c.BookingStep3
		t.EmailContacts += c.EmailContacts
		t.PhoneContacts += c.PhoneContacts
	}

	out := models.AggregatedMetrics{CanonicalMetricSet: t}
	out.CTR = round3(safeDiv(float64(t.Clicks), float64(t.Impressions)) * 100)
	out.CPC = round3(safeDiv(t.Spend, float64(t.Clicks)))
	out.CPA = round2(safeDiv(t.Spend, t.Reservations))
	out.ROAS = round2(safeDiv(t.ReservationValue, t.Spend))
	out.AverageReservationValue = round2(safeDiv(t.ReservationValue, t.Reservations))

	offline := math.Round((t.EmailContacts + t.PhoneContacts) * a.offlineConversionRate)
	out.PotentialOfflineReservations = int64(offline)
	out.PotentialOfflineValue = round2(offline * out.AverageReservationValue)
	out.CostPercentage = round2(safeDiv(t.Spend, out.PotentialOfflineValue+t.ReservationValue) * 100)
	return out
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
