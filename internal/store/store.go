package store

import (
	"sync"
	"time"

	"fleetcache/internal/metrics"
)

// TombstoneTTL is how long a delete marker is retained so that peers
// which missed the delete can still learn about it before the sweeper
// reclaims it.
const TombstoneTTL = time.Hour

// Store is the replicated in-memory key-value store of one fleet member.
//
// Design principles:
// - Safe for concurrent access using a single RWMutex; the version
//   check and the write behind it are atomic per call
// - Local writes carry versions from a monotonic per-node clock;
//   remote writes are applied conditionally so every node resolves
//   conflicts identically
// - TTL expiration handled using wall-clock time (time.Now)
//
// Note:
// TTL testing uses short sleeps instead of injecting a clock,
// keeping the store free of test-only concerns.
type Store struct {
	mu         sync.RWMutex
	data       map[string]Entry
	lastIssued int64
	metrics    *metrics.Registry
}

// NewStore initializes and returns a new Store.
func NewStore(metricsRegistry *metrics.Registry) *Store {
	return &Store{
		data:    make(map[string]Entry),
		metrics: metricsRegistry,
	}
}

// nextVersion issues the version for a local write to key.
// Callers must hold s.mu.
//
// Rules:
// - never below the wall clock in unix microseconds
// - strictly above every version this node issued before
// - strictly above whatever the key currently holds, so a local write
//   supersedes a previously accepted remote write even when the remote
//   clock ran ahead of ours
func (s *Store) nextVersion(key string) int64 {
	v := time.Now().UnixMicro()
	if v <= s.lastIssued {
		v = s.lastIssued + 1
	}
	if cur, ok := s.data[key]; ok && v <= cur.Version {
		v = cur.Version + 1
	}
	s.lastIssued = v
	return v
}

// Put inserts or overwrites a key with a freshly issued version.
//
// ttl <= 0 means the entry never expires. The committed entry is
// returned so the caller can hand it to replication as-is.
func (s *Store) Put(key string, value []byte, ttl time.Duration) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.CachePutsTotal)

	entry := Entry{
		Value:   append([]byte(nil), value...),
		Version: s.nextVersion(key),
	}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	// CacheKeysTotal counts non-tombstone entries in the map
	if cur, ok := s.data[key]; !ok || cur.Tombstone {
		s.metrics.Inc(metrics.CacheKeysTotal)
	}

	s.data[key] = entry
	return entry
}

// Delete replaces the key with a versioned tombstone.
//
// The tombstone replicates like any other write so peers still holding
// the old value learn about the delete; it stays readable-as-absent
// locally and is swept after TombstoneTTL. The bool reports whether a
// live entry existed.
func (s *Store) Delete(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.Inc(metrics.CacheDeletesTotal)

	cur, existed := s.data[key]
	live := existed && cur.Live(time.Now())

	entry := Entry{
		Version:   s.nextVersion(key),
		ExpiresAt: time.Now().Add(TombstoneTTL),
		Tombstone: true,
	}
	s.data[key] = entry

	if existed && !cur.Tombstone {
		s.metrics.Add(metrics.CacheKeysTotal, -1)
	}

	return entry, live
}

// ApplyRemote applies an entry received from a peer.
//
// The write lands only if it supersedes what the key currently holds;
// stale and replayed entries are suppressed, reported as false, and
// never treated as errors. Delivery order does not matter.
func (s *Store) ApplyRemote(key string, incoming Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[key]
	if exists && !incoming.Supersedes(cur) {
		s.metrics.Inc(metrics.StaleWritesTotal)
		return false
	}

	wasCounted := exists && !cur.Tombstone
	if !incoming.Tombstone && !wasCounted {
		s.metrics.Inc(metrics.CacheKeysTotal)
	} else if incoming.Tombstone && wasCounted {
		s.metrics.Add(metrics.CacheKeysTotal, -1)
	}

	s.data[key] = incoming
	s.metrics.Inc(metrics.RemoteAppliesTotal)
	return true
}

// Get retrieves the value for a key.
//
// Behavior:
// - Returns (value, true) only for a live entry
// - Tombstoned keys read as absent
// - Expired entries are deleted on sight and read as absent
func (s *Store) Get(key string) ([]byte, bool) {
	s.metrics.Inc(metrics.CacheGetsTotal)

	s.mu.RLock()
	entry, exists := s.data[key]
	s.mu.RUnlock()

	if !exists || entry.Tombstone {
		s.metrics.Inc(metrics.CacheMissesTotal)
		return nil, false
	}

	if entry.IsExpired(time.Now()) {
		s.mu.Lock()
		// re-check the version: a newer write may have landed between the locks
		if cur, ok := s.data[key]; ok && cur.Version == entry.Version {
			delete(s.data, key)
			s.metrics.Inc(metrics.CacheExpiredTotal)
			s.metrics.Add(metrics.CacheKeysTotal, -1)
		}
		s.mu.Unlock()

		s.metrics.Inc(metrics.CacheMissesTotal)
		return nil, false
	}

	return append([]byte(nil), entry.Value...), true
}

// List returns a snapshot of all live entries.
// Used by admin APIs.
func (s *Store) List() map[string]Entry {
	now := time.Now()
	result := make(map[string]Entry)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, v := range s.data {
		if v.Live(now) {
			result[k] = v
		}
	}
	return result
}

// Items returns a snapshot of every entry including tombstones and
// not-yet-swept expired entries. Used to build and answer sync digests,
// where tombstones must still be visible.
func (s *Store) Items() map[string]Entry {
	result := make(map[string]Entry)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, v := range s.data {
		result[k] = v
	}
	return result
}

// RemoveExpired removes all expired entries, tombstones past their
// retention included.
//
// This is used by the background TTL cleaner; logical absence is
// already enforced on the read path, so the sweep only reclaims memory.
func (s *Store) RemoveExpired() int {
	now := time.Now()
	removed := 0
	liveRemoved := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range s.data {
		if v.IsExpired(now) {
			delete(s.data, k)
			removed++
			if !v.Tombstone {
				liveRemoved++
			}
		}
	}

	if removed > 0 {
		s.metrics.Add(metrics.CacheExpiredTotal, int64(removed))
	}
	if liveRemoved > 0 {
		s.metrics.Add(metrics.CacheKeysTotal, -int64(liveRemoved))
	}

	return removed
}
