package fitsync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Cache keys.
const (
	ProfileCacheKey   = "profile_cache"
	ExercisesCacheKey = "exercises_cache"
)

// cacheVersion is bumped whenever a cached payload's shape changes. Entries
// written under another version read as misses.
const cacheVersion = 1

// stampSuffix names the parallel key holding a snapshot's write time.
const stampSuffix = "_timestamp"

// CacheEntry is the envelope stored under a cache key.
type CacheEntry struct {
	Version int             `json:"version"`
	UserID  string          `json:"user_id"`
	SavedAt time.Time       `json:"saved_at"`
	Data    json.RawMessage `json:"data"`
}

// CacheStore keeps JSON snapshots in a LocalStore, scoped to the user who
// wrote them.
type CacheStore struct {
	local   LocalStore
	clock   Clock
	logger  Logger
	metrics Metrics
}

// NewCacheStore creates a CacheStore over local. Nil clock, logger and
// metrics fall back to defaults.
func NewCacheStore(local LocalStore, clock Clock, logger Logger, metrics Metrics) *CacheStore {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &CacheStore{local: local, clock: clock, logger: logger, metrics: metrics}
}

// Read decodes the snapshot under key into out. It reports a miss when
// nothing is stored, the entry belongs to another user, or the entry cannot
// be decoded. Only storage failures are returned as errors.
func (c *CacheStore) Read(key, userID string, out any) (bool, error) {
	entry, err := c.Entry(key)
	if err != nil {
		return false, err
	}
	if entry == nil || entry.UserID != userID {
		c.metrics.CacheMiss(key)
		return false, nil
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		c.logger.Warn("discarding undecodable cache payload", "key", key, "err", err)
		c.metrics.CacheMiss(key)
		return false, nil
	}
	c.metrics.CacheHit(key)
	return true, nil
}

// Entry returns the raw entry under key, or nil when there is no usable one.
func (c *CacheStore) Entry(key string) (*CacheEntry, error) {
	raw, ok, err := c.local.Get(key)
	if err != nil {
		return nil, fmt.Errorf("reading cache %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	var entry CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "key", key, "err", err)
		return nil, nil
	}
	if entry.Version != cacheVersion {
		c.logger.Debug("ignoring cache entry from another version", "key", key, "version", entry.Version)
		return nil, nil
	}
	return &entry, nil
}

// Write replaces the snapshot under key.
func (c *CacheStore) Write(key, userID string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding cache payload %s: %w", key, err)
	}
	raw, err := json.Marshal(CacheEntry{
		Version: cacheVersion,
		UserID:  userID,
		SavedAt: c.clock.Now().UTC(),
		Data:    payload,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry %s: %w", key, err)
	}
	if err := c.local.Set(key, string(raw)); err != nil {
		return fmt.Errorf("writing cache %s: %w", key, err)
	}
	return nil
}

// Stamp returns the write time recorded in key's timestamp key.
func (c *CacheStore) Stamp(key string) (time.Time, bool, error) {
	raw, ok, err := c.local.Get(key + stampSuffix)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("reading cache stamp %s: %w", key, err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.logger.Warn("discarding corrupt cache stamp", "key", key, "err", err)
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// WriteStamp records t in key's timestamp key.
func (c *CacheStore) WriteStamp(key string, t time.Time) error {
	if err := c.local.Set(key+stampSuffix, strconv.FormatInt(t.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("writing cache stamp %s: %w", key, err)
	}
	return nil
}

// Fresh reports whether key's stamp is younger than window. A stamp from the
// future is never fresh.
func (c *CacheStore) Fresh(key string, window time.Duration) (bool, error) {
	stamp, ok, err := c.Stamp(key)
	if err != nil || !ok {
		return false, err
	}
	now := c.clock.Now()
	if stamp.After(now) {
		c.logger.Warn("ignoring cache stamp from the future", "key", key, "stamp", stamp)
		return false, nil
	}
	return now.Sub(stamp) < window, nil
}

// Remove deletes each key together with its timestamp key.
func (c *CacheStore) Remove(keys ...string) error {
	for _, key := range keys {
		if err := c.local.Remove(key); err != nil {
			return fmt.Errorf("removing cache %s: %w", key, err)
		}
		if err := c.local.Remove(key + stampSuffix); err != nil {
			return fmt.Errorf("removing cache stamp %s: %w", key, err)
		}
	}
	return nil
}
