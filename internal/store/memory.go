package store

import (
	"sync"
	"time"

	"github.com/adlens/adlens/internal/models"
)

// MemoryStore keeps snapshots in process memory. The default store; reports
// and YoY baselines are lost on restart unless the SQLite store is
// configured instead.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[models.CacheKey]models.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[models.CacheKey]models.CacheEntry)}
}

func (s *MemoryStore) Get(key models.CacheKey) (models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemoryStore) Put(key models.CacheKey, payload models.AggregatedMetrics, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = models.CacheEntry{Key: key, LastUpdatedAt: updatedAt, Payload: payload}
	return nil
}

func (s *MemoryStore) Entries(platform models.Platform) ([]models.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.CacheEntry
	for k, e := range s.entries {
		if k.Platform == platform {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) Keys() ([]models.CacheKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CacheKey, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	return out, nil
}
