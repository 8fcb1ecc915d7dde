// Package yoy compares a period's aggregated metrics against the same
// calendar period one year earlier. An absent or zero baseline yields an
// explicit no-history marker, never a numeric delta, so the UI cannot render
// "no prior data" as infinite or zero growth.
package yoy

import (
	"fmt"
	"math"

	"github.com/adlens/adlens/internal/models"
)

// TrackedMetrics is the fixed set of metrics a comparison reports, in
// presentation order.
var TrackedMetrics = []string{
	"spend",
	"impressions",
	"clicks",
	"booking_step_1",
	"booking_step_2",
	"booking_step_3",
	"reservations",
}

// Compare produces one delta per tracked metric. previous == nil means no
// snapshot exists for the prior-year period; every metric then carries the
// no-history marker.
func Compare(current models.AggregatedMetrics, previous *models.AggregatedMetrics) []models.YoYDelta {
	out := make([]models.YoYDelta, 0, len(TrackedMetrics))
	for _, name := range TrackedMetrics {
		d := models.YoYDelta{Metric: name, CurrentValue: metricValue(current, name)}
		if previous == nil {
			d.NoHistory = true
			out = append(out, d)
			continue
		}
		d.PreviousValue = metricValue(*previous, name)
		if d.PreviousValue == 0 {
			d.NoHistory = true
			out = append(out, d)
			continue
		}
		d.ChangePercent = round2((d.CurrentValue - d.PreviousValue) / d.PreviousValue * 100)
		out = append(out, d)
	}
	return out
}

// CheckAligned rejects comparisons between periods that do not cover the
// same slot of the calendar. Custom date ranges never parse into a Period,
// so they cannot reach this far.
func CheckAligned(current, previous models.Period) error {
	if !current.Aligned(previous) {
		return fmt.Errorf("periods %s and %s are not calendar-aligned", current, previous)
	}
	if previous.Year != current.Year-1 {
		return fmt.Errorf("period %s is not one year before %s", previous, current)
	}
	return nil
}

func metricValue(m models.AggregatedMetrics, name string) float64 {
	switch name {
	case "spend":
		return m.Spend
	case "impressions":
		return float64(m.Impressions)
	case "clicks":
		return float64(m.Clicks)
	case "booking_step_1":
		return m.BookingStep1
	case "booking_step_2":
		return m.BookingStep2
	case "booking_step_3":
		return m.BookingStep3
	case "reservations":
		return m.Reservations
	}
	return 0
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
