// Package store persists cached report snapshots keyed by
// (platform, client, period).
package store

import (
	"time"

	"github.com/adlens/adlens/internal/models"
)

// Store is the persistence collaborator. Entries are created on first Put
// for a key and overwritten in place afterwards; this core never deletes.
type Store interface {
	Get(key models.CacheKey) (models.CacheEntry, bool, error)
	Put(key models.CacheKey, payload models.AggregatedMetrics, updatedAt time.Time) error
	Entries(platform models.Platform) ([]models.CacheEntry, error)
	Keys() ([]models.CacheKey, error)
}
