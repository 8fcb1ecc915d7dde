package models

import "time"

type Platform string

const (
	PlatformMeta   Platform = "meta_ads"
	PlatformGoogle Platform = "google_ads"
)

// Platforms lists every platform the service keeps a cache table for.
var Platforms = []Platform{PlatformMeta, PlatformGoogle}

// RawActionRecord is one platform-reported event type for a single campaign
// in a single period. The same physical event may appear under several tags.
type RawActionRecord struct {
	Tag   string  `json:"action_type"`
	Value float64 `json:"value"`
}

// RawCampaignPayload is what the fetch collaborator returns for one campaign.
// Spend, impressions and clicks come from dedicated fields; conversion events
// arrive as overlapping action records that need precedence resolution.
type RawCampaignPayload struct {
	CampaignID   string            `json:"campaign_id"`
	CampaignName string            `json:"campaign_name"`
	Spend        float64           `json:"spend"`
	Impressions  int64             `json:"impressions"`
	Clicks       int64             `json:"clicks"`
	Actions      []RawActionRecord `json:"actions"`
	ActionValues []RawActionRecord `json:"action_values"`
}

// CanonicalMetricSet holds the deduplicated metrics for one campaign-period.
// Each conversion field is populated from at most one winning tag.
type CanonicalMetricSet struct {
	Spend            float64 `json:"spend"`
	Impressions      int64   `json:"impressions"`
	Clicks           int64   `json:"clicks"`
	Reservations     float64 `json:"reservations"`
	ReservationValue float64 `json:"reservation_value"`
	BookingStep1     float64 `json:"booking_step_1"`
	BookingStep2     float64 `json:"booking_step_2"`
	BookingStep3     float64 `json:"booking_step_3"`
	EmailContacts    float64 `json:"email_contacts"`
	PhoneContacts    float64 `json:"phone_contacts"`
}

// AggregatedMetrics is the period total across campaigns plus derived ratios.
// Every ratio is 0 when its denominator is 0.
type AggregatedMetrics struct {
	CanonicalMetricSet

	CTR                          float64 `json:"ctr"`
	CPC                          float64 `json:"cpc"`
	CPA                          float64 `json:"cpa"`
	ROAS                         float64 `json:"roas"`
	AverageReservationValue      float64 `json:"average_reservation_value"`
	PotentialOfflineReservations int64   `json:"potential_offline_reservations"`
	PotentialOfflineValue        float64 `json:"potential_offline_value"`
	CostPercentage               float64 `json:"cost_percentage"`
}

// CacheKey identifies one cache entry: a client's report for one period on
// one platform.
type CacheKey struct {
	ClientID string   `json:"client_id"`
	PeriodID string   `json:"period_id"`
	Platform Platform `json:"platform"`
}

func (k CacheKey) String() string {
	return string(k.Platform) + "|" + k.ClientID + "|" + k.PeriodID
}

// CacheEntry is a stored snapshot. Created on first successful refresh,
// overwritten in place by later refreshes, never deleted by this core.
type CacheEntry struct {
	Key           CacheKey          `json:"key"`
	LastUpdatedAt time.Time         `json:"last_updated_at"`
	Payload       AggregatedMetrics `json:"payload"`
}

type EntryStatus string

const (
	StatusFresh EntryStatus = "fresh"
	StatusStale EntryStatus = "stale"
)

// CacheEntryStatus is derived on every read, never stored.
type CacheEntryStatus struct {
	Key        CacheKey    `json:"key"`
	AgeMinutes float64     `json:"age_minutes"`
	Status     EntryStatus `json:"status"`
}

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// CacheTableSummary describes the freshness of one platform's cache table.
type CacheTableSummary struct {
	Table        Platform     `json:"table"`
	TotalEntries int          `json:"total_entries"`
	FreshEntries int          `json:"fresh_entries"`
	StaleEntries int          `json:"stale_entries"`
	OldestEntry  *time.Time   `json:"oldest_entry,omitempty"`
	NewestEntry  *time.Time   `json:"newest_entry,omitempty"`
	HealthStatus HealthStatus `json:"health_status"`
}

// SystemSummary sums table verdicts and entry counts. No ratios are
// re-derived at this level.
type SystemSummary struct {
	HealthyCaches  int `json:"healthy_caches"`
	WarningCaches  int `json:"warning_caches"`
	CriticalCaches int `json:"critical_caches"`
	FreshEntries   int `json:"fresh_entries"`
	StaleEntries   int `json:"stale_entries"`
}

// MonitoringSnapshot is the read-only payload served to the dashboard.
type MonitoringSnapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	PerTable    []CacheTableSummary `json:"per_table"`
	System      SystemSummary       `json:"system"`
}

type JobOutcome string

const (
	OutcomeSuccess JobOutcome = "success"
	OutcomeFailure JobOutcome = "failure"
)

// RefreshJobResult is the terminal state of one refresh job.
type RefreshJobResult struct {
	Key     CacheKey   `json:"key"`
	Outcome JobOutcome `json:"outcome"`
	Error   string     `json:"error,omitempty"`
}

// RefreshSummary reports a whole orchestration run. Total always equals
// len(Results); the orchestrator never returns a partial report.
type RefreshSummary struct {
	RunID      string             `json:"run_id"`
	Total      int                `json:"total"`
	Successful int                `json:"successful"`
	Failed     int                `json:"failed"`
	Duration   time.Duration      `json:"duration"`
	Results    []RefreshJobResult `json:"results"`
}

// DataSource tells the caller where report numbers came from. The service
// answers Unavailable rather than fabricating placeholder metrics.
type DataSource string

const (
	SourceLive        DataSource = "live"
	SourceCached      DataSource = "cached"
	SourceUnavailable DataSource = "unavailable"
)

// YoYDelta compares one metric against the same calendar period a year back.
// NoHistory marks an absent or zero baseline; ChangePercent is only
// meaningful when NoHistory is false.
type YoYDelta struct {
	Metric        string  `json:"metric"`
	CurrentValue  float64 `json:"current_value"`
	PreviousValue float64 `json:"previous_value"`
	ChangePercent float64 `json:"change_percent"`
	NoHistory     bool    `json:"no_history"`
}
