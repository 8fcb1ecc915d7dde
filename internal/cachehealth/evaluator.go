package cachehealth

import (
	"time"

	"github.com/adlens/adlens/internal/models"
)

// Evaluator rolls entry statuses up into table and system verdicts.
type Evaluator struct {
	classifier    *Classifier
	criticalRatio float64
}

func NewEvaluator(classifier *Classifier, criticalRatio float64) *Evaluator {
	return &Evaluator{classifier: classifier, criticalRatio: criticalRatio}
}

// EvaluateTable counts fresh and stale entries and assigns the health
// verdict. An empty table is healthy: absence of data is not an error state.
func (ev *Evaluator) EvaluateTable(table models.Platform, entries []models.CacheEntry) models.CacheTableSummary {
	s := models.CacheTableSummary{Table: table, HealthStatus: models.HealthHealthy}
	var oldest, newest time.Time
	for _, e := range entries {
		s.TotalEntries++
		if ev.classifier.Stale(e) {
			s.StaleEntries++
		} else {
			s.FreshEntries++
		}
		if oldest.IsZero() || e.LastUpdatedAt.Before(oldest) {
			oldest = e.LastUpdatedAt
		}
		if newest.IsZero() || e.LastUpdatedAt.After(newest) {
			newest = e.LastUpdatedAt
		}
	}
	if s.TotalEntries == 0 {
		return s
	}
	s.OldestEntry = &oldest
	s.NewestEntry = &newest
	ratio := float64(s.StaleEntries) / float64(s.TotalEntries)
	switch {
	case ratio >= ev.criticalRatio:
		s.HealthStatus = models.HealthCritical
	case s.StaleEntries > 0:
		s.HealthStatus = models.HealthWarning
	}
	return s
}

// Summarize sums table verdicts and entry counts. No ratios are re-derived
// at the system level.
func Summarize(tables []models.CacheTableSummary) models.SystemSummary {
	var sum models.SystemSummary
	for _, t := range tables {
		switch t.HealthStatus {
		case models.HealthHealthy:
			sum.HealthyCaches++
		case models.HealthWarning:
			sum.WarningCaches++
		case models.HealthCritical:
			sum.CriticalCaches++
		}
		sum.FreshEntries += t.FreshEntries
		sum.StaleEntries += t.StaleEntries
	}
	return sum
}
