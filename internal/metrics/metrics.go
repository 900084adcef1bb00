package metrics

import (
	"sync"
	"sync/atomic"
)

// MetricKey is a strongly typed metric identifier.
type MetricKey string

// Metric keys (centralized)
const (
	// Cache
	CacheKeysTotal    MetricKey = "cache_keys_total"
	CachePutsTotal    MetricKey = "cache_puts_total"
	CacheGetsTotal    MetricKey = "cache_gets_total"
	CacheMissesTotal  MetricKey = "cache_misses_total"
	CacheDeletesTotal MetricKey = "cache_deletes_total"
	CacheExpiredTotal MetricKey = "cache_expired_total"

	// Replication, outbound
	ReplicationAttemptsTotal MetricKey = "replication_attempts_total"
	ReplicationSuccessTotal  MetricKey = "replication_success_total"
	ReplicationFailureTotal  MetricKey = "replication_failure_total"
	ReplicationRetriesTotal  MetricKey = "replication_retries_total"

	// Replication, inbound
	RemoteAppliesTotal  MetricKey = "remote_applies_total"
	StaleWritesTotal    MetricKey = "stale_writes_total"
	AuthRejectionsTotal MetricKey = "auth_rejections_total"

	// Anti-entropy sync
	SyncRunsTotal          MetricKey = "sync_runs_total"
	SyncFailuresTotal      MetricKey = "sync_failures_total"
	SyncEntriesPulledTotal MetricKey = "sync_entries_pulled_total"
	SyncEntriesServedTotal MetricKey = "sync_entries_served_total"

	// TTL
	TTLCleanupRunsTotal MetricKey = "ttl_cleanup_runs_total"
	TTLKeysRemovedTotal MetricKey = "ttl_keys_removed_total"
)

// Registry stores all metrics.
type Registry struct {
	mu       sync.RWMutex
	counters map[MetricKey]*int64
}

// NewRegistry creates a metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[MetricKey]*int64),
	}
}

// Inc increments a metric by 1.
func (r *Registry) Inc(key MetricKey) {
	r.Add(key, 1)
}

// Add increments a metric by delta.
func (r *Registry) Add(key MetricKey, delta int64) {
	r.mu.RLock()
	ptr, ok := r.counters[key]
	r.mu.RUnlock()

	if ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	// Slow path: metric not yet initialized
	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if ptr, ok = r.counters[key]; ok {
		atomic.AddInt64(ptr, delta)
		return
	}

	var val int64
	r.counters[key] = &val
	atomic.AddInt64(&val, delta)
}
