// Package normalize deduplicates the overlapping action records ad platforms
// report for a campaign. A single purchase typically shows up under both a
// legacy pixel tag and a current omni tag; summing them double-counts every
// conversion, so each canonical field takes the value of exactly one winning
// tag per campaign.
package normalize

import (
	"log/slog"
	"math"
	"strings"

	"github.com/adlens/adlens/internal/models"
)

type Normalizer struct {
	rules []Rule
	log   *slog.Logger
}

func New(rules []Rule, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{rules: rules, log: log}
}

// Normalize resolves one campaign's raw payload into a canonical metric set.
// Spend, impressions and clicks come from dedicated non-overlapping fields
// and pass through untouched apart from a negative clamp.
func (n *Normalizer) Normalize(p models.RawCampaignPayload) models.CanonicalMetricSet {
	counts := n.tagMap(p.CampaignID, p.Actions)
	values := n.tagMap(p.CampaignID, p.ActionValues)

	out := models.CanonicalMetricSet{
		Spend:       maxf(p.Spend),
		Impressions: max0(p.Impressions),
		Clicks:      max0(p.Clicks),
	}
	for _, r := range n.rules {
		src := counts
		if r.FromValues {
			src = values
		}
		v, ok := resolve(src, r.Tags)
		if !ok {
			continue
		}
		switch r.Field {
		case FieldReservations:
			out.Reservations = v
		case FieldReservationValue:
			out.ReservationValue = v
		case FieldBookingStep1:
			out.BookingStep1 = v
		case FieldBookingStep2:
			out.BookingStep2 = v
		case FieldBookingStep3:
			out.BookingStep3 = v
		case FieldEmailContacts:
			out.EmailContacts = v
		case FieldPhoneContacts:
			out.PhoneContacts = v
		}
	}
	return out
}

// NormalizeAll resolves each campaign independently. The winning tag is
// decided per campaign; totals are sums of the resolved values.
func (n *Normalizer) NormalizeAll(ps []models.RawCampaignPayload) []models.CanonicalMetricSet {
	out := make([]models.CanonicalMetricSet, 0, len(ps))
	for _, p := range ps {
		out = append(out, n.Normalize(p))
	}
	return out
}

// tagMap lower-cases tags and sums repeats of the same tag. Repeats of one
// tag are genuinely additive (per-adset breakdowns); only distinct synonymous
// tags must not be summed, and that is the precedence lists' job.
func (n *Normalizer) tagMap(campaignID string, records []models.RawActionRecord) map[string]float64 {
	m := make(map[string]float64, len(records))
	for _, r := range records {
		tag := strings.ToLower(strings.TrimSpace(r.Tag))
		if tag == "" {
			continue
		}
		v := r.Value
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			n.log.Warn("coercing invalid action value to 0",
				slog.String("campaign_id", campaignID),
				slog.String("tag", tag),
				slog.Float64("value", v))
			v = 0
		}
		m[tag] += v
	}
	return m
}

// resolve returns the value of the first tag present in the map. It never
// falls through to a later tag once one is found.
func resolve(m map[string]float64, tags []string) (float64, bool) {
	for _, tag := range tags {
		if v, ok := m[strings.ToLower(tag)]; ok {
			return v, true
		}
	}
	return 0, false
}

func max0(i int64) int64 {
	if i < 0 {
		return 0
	}
	return i
}

func maxf(f float64) float64 {
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}
