// Package cachehealth derives freshness status for cache entries and
// health verdicts for cache tables. Everything here is a pure function of
// the entries and the clock; nothing is stored, so the read path is safe to
// call from any number of goroutines.
package cachehealth

import (
	"time"

	"github.com/adlens/adlens/internal/models"
)

// Classifier computes age and fresh/stale status for single entries.
// There is no hysteresis: an entry is stale exactly when its age exceeds
// the threshold at the moment of the read.
type Classifier struct {
	threshold time.Duration
	now       func() time.Time
}

func NewClassifier(threshold time.Duration, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{threshold: threshold, now: now}
}

func (c *Classifier) Classify(e models.CacheEntry) models.CacheEntryStatus {
	age := c.now().Sub(e.LastUpdatedAt)
	st := models.StatusFresh
	if age > c.threshold {
		st = models.StatusStale
	}
	return models.CacheEntryStatus{
		Key:        e.Key,
		AgeMinutes: age.Minutes(),
		Status:     st,
	}
}

// Stale is a shortcut for refresh-candidate selection.
func (c *Classifier) Stale(e models.CacheEntry) bool {
	return c.now().Sub(e.LastUpdatedAt) > c.threshold
}
