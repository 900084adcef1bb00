package replication

import (
	"context"
	"fmt"
	"time"

	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/peers"
	"fleetcache/internal/store"
)

// Reconciler periodically exchanges digests with every peer so that
// nodes which missed pushed mutations (restarts, partitions, dropped
// dispatches) converge anyway.
//
// Each round sends a peer the map of key -> held version; the peer
// answers with entries it holds at versions the digest does not cover.
// Answers flow through the same conditional apply as pushed writes, so
// a sync round can never regress a key. A pod that restarts empty
// backfills the whole cache this way without waiting for fresh writes.
type Reconciler struct {
	store     *store.Store
	topology  Topology
	transport *Transport
	config    peers.Config
	logger    *logs.Logger
	metrics   *metrics.Registry
}

// NewReconciler creates a new instance of the sync worker.
func NewReconciler(
	st *store.Store,
	topology Topology,
	transport *Transport,
	cfg peers.Config,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Reconciler {
	return &Reconciler{
		store:     st,
		topology:  topology,
		transport: transport,
		config:    cfg,
		logger:    logger,
		metrics:   reg,
	}
}

// Start runs the sync loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (rc *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(rc.config.Sync.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rc.runOnce(ctx)
		case <-ctx.Done():
			rc.logger.Debug("sync loop stopped")
			return
		}
	}
}

// runOnce performs one digest exchange with each peer in turn.
func (rc *Reconciler) runOnce(ctx context.Context) {
	rc.metrics.Inc(metrics.SyncRunsTotal)

	digest := rc.digest()
	for _, peer := range rc.topology.Peers() {
		rc.syncPeer(ctx, peer, digest)
	}
}

// digest maps every held key, tombstones included, to its version.
func (rc *Reconciler) digest() map[string]int64 {
	items := rc.store.Items()

	digest := make(map[string]int64, len(items))
	for key, entry := range items {
		digest[key] = entry.Version
	}
	return digest
}

func (rc *Reconciler) syncPeer(ctx context.Context, peer peers.Peer, digest map[string]int64) {
	ctx, cancel := context.WithTimeout(ctx, rc.config.Timeout.SyncTimeout)
	defer cancel()

	entries, err := rc.transport.Sync(ctx, peer, digest)
	if err != nil {
		rc.metrics.Inc(metrics.SyncFailuresTotal)
		rc.logger.Warn(fmt.Sprintf("sync with peer %d failed: %v", peer.Ordinal, err))
		return
	}

	applied := 0
	for _, msg := range entries {
		if rc.store.ApplyRemote(msg.Key, msg.Entry()) {
			applied++
		}
	}

	if applied > 0 {
		rc.metrics.Add(metrics.SyncEntriesPulledTotal, int64(applied))
		rc.logger.Info(fmt.Sprintf("pulled %d entries from peer %d", applied, peer.Ordinal))
	}
}
