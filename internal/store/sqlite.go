package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/adlens/adlens/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	platform   TEXT NOT NULL,
	client_id  TEXT NOT NULL,
	period_id  TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	payload    TEXT NOT NULL,
	PRIMARY KEY (platform, client_id, period_id)
);`

// SQLiteStore keeps snapshots in a local SQLite database so prior-year
// baselines survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache_entries table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Get(key models.CacheKey) (models.CacheEntry, bool, error) {
	row := s.db.QueryRow(
		`SELECT updated_at, payload FROM cache_entries WHERE platform=? AND client_id=? AND period_id=?`,
		string(key.Platform), key.ClientID, key.PeriodID)

	var updatedAt time.Time
	var raw []byte
	if err := row.Scan(&updatedAt, &raw); err != nil {
		if err == sql.ErrNoRows {
			return models.CacheEntry{}, false, nil
		}
		return models.CacheEntry{}, false, err
	}
	var payload models.AggregatedMetrics
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("decoding payload for %s: %w", key, err)
	}
	return models.CacheEntry{Key: key, LastUpdatedAt: updatedAt, Payload: payload}, true, nil
}

func (s *SQLiteStore) Put(key models.CacheKey, payload models.AggregatedMetrics, updatedAt time.Time) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO cache_entries (platform, client_id, period_id, updated_at, payload)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (platform, client_id, period_id)
		 DO UPDATE SET updated_at=excluded.updated_at, payload=excluded.payload`,
		string(key.Platform), key.ClientID, key.PeriodID, updatedAt, raw)
	return err
}

func (s *SQLiteStore) Entries(platform models.Platform) ([]models.CacheEntry, error) {
	rows, err := s.db.Query(
		`SELECT client_id, period_id, updated_at, payload FROM cache_entries WHERE platform=?`,
		string(platform))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CacheEntry
	for rows.Next() {
		var e models.CacheEntry
		var raw []byte
		e.Key.Platform = platform
		if err := rows.Scan(&e.Key.ClientID, &e.Key.PeriodID, &e.LastUpdatedAt, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &e.Payload); err != nil {
			return nil, fmt.Errorf("decoding payload for %s: %w", e.Key, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Keys() ([]models.CacheKey, error) {
	rows, err := s.db.Query(`SELECT platform, client_id, period_id FROM cache_entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CacheKey
	for rows.Next() {
		var k models.CacheKey
		var platform string
		if err := rows.Scan(&platform, &k.ClientID, &k.PeriodID); err != nil {
			return nil, err
		}
		k.Platform = models.Platform(platform)
		out = append(out, k)
	}
	return out, rows.Err()
}
