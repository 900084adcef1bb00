package replication

import (
	"context"
	"testing"
	"time"

	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/peers"
	"fleetcache/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconcilerFixture is a local node pointed at an arbitrary topology.
type reconcilerFixture struct {
	store      *store.Store
	logger     *logs.Logger
	metrics    *metrics.Registry
	reconciler *Reconciler
}

func newReconcilerFixture(t *testing.T, topology Topology, cfg peers.Config) *reconcilerFixture {
	t.Helper()

	reg := metrics.NewRegistry()
	st := store.NewStore(reg)
	logger := logs.NewLogger(100, logs.DEBUG)
	transport := NewTransport(newTestGuard(t, "fleet-secret"), time.Second)

	return &reconcilerFixture{
		store:      st,
		logger:     logger,
		metrics:    reg,
		reconciler: NewReconciler(st, topology, transport, cfg, logger, reg),
	}
}

func TestReconciler(t *testing.T) {
	t.Run("BackfillsFromPeer", func(t *testing.T) {
		peer := newHandlerFixture(t, 1024)
		require.True(t, peer.store.ApplyRemote("fresh", store.Entry{Value: []byte("f"), Version: 10}))
		require.True(t, peer.store.ApplyRemote("stale", store.Entry{Value: []byte("new"), Version: 20}))
		require.True(t, peer.store.ApplyRemote("deleted", store.Entry{Version: 2, Tombstone: true}))

		topology := staticTopology{peerFromURL(t, peer.server.URL, 1)}
		f := newReconcilerFixture(t, topology, peers.DefaultConfig())

		// The local node is behind on everything: missing one key,
		// stale on another, and still holding a deleted one.
		require.True(t, f.store.ApplyRemote("stale", store.Entry{Value: []byte("old"), Version: 5}))
		require.True(t, f.store.ApplyRemote("deleted", store.Entry{Value: []byte("zombie"), Version: 1}))

		f.reconciler.runOnce(context.Background())

		val, ok := f.store.Get("fresh")
		require.True(t, ok)
		assert.Equal(t, []byte("f"), val)

		val, ok = f.store.Get("stale")
		require.True(t, ok)
		assert.Equal(t, []byte("new"), val)

		_, ok = f.store.Get("deleted")
		assert.False(t, ok, "tombstone must win over the stale local value")

		snap := f.metrics.Snapshot()
		assert.Equal(t, int64(1), snap[string(metrics.SyncRunsTotal)])
		assert.Equal(t, int64(3), snap[string(metrics.SyncEntriesPulledTotal)])
	})

	t.Run("AlreadyConverged", func(t *testing.T) {
		peer := newHandlerFixture(t, 1024)
		require.True(t, peer.store.ApplyRemote("key", store.Entry{Value: []byte("v"), Version: 7}))

		topology := staticTopology{peerFromURL(t, peer.server.URL, 1)}
		f := newReconcilerFixture(t, topology, peers.DefaultConfig())
		require.True(t, f.store.ApplyRemote("key", store.Entry{Value: []byte("v"), Version: 7}))

		f.reconciler.runOnce(context.Background())

		snap := f.metrics.Snapshot()
		assert.Zero(t, snap[string(metrics.SyncEntriesPulledTotal)])
		assert.Zero(t, snap[string(metrics.SyncFailuresTotal)])
	})

	t.Run("PeerDownCountsFailure", func(t *testing.T) {
		cfg := peers.DefaultConfig()
		cfg.Timeout.SyncTimeout = 250 * time.Millisecond

		topology := staticTopology{{Ordinal: 2, Address: "localhost:12345"}}
		f := newReconcilerFixture(t, topology, cfg)

		f.reconciler.runOnce(context.Background())

		assert.Equal(t, int64(1), f.metrics.Snapshot()[string(metrics.SyncFailuresTotal)])

		entries := f.logger.GetLast(10)
		require.NotEmpty(t, entries)
		assert.Equal(t, logs.WARN, entries[len(entries)-1].Level)
		assert.Contains(t, entries[len(entries)-1].Message, "sync with peer 2 failed")
	})

	t.Run("LoopRunsUntilCancelled", func(t *testing.T) {
		peer := newHandlerFixture(t, 1024)
		require.True(t, peer.store.ApplyRemote("key", store.Entry{Value: []byte("v"), Version: 3}))

		cfg := peers.DefaultConfig()
		cfg.Sync.Interval = 10 * time.Millisecond

		topology := staticTopology{peerFromURL(t, peer.server.URL, 1)}
		f := newReconcilerFixture(t, topology, cfg)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			f.reconciler.Start(ctx)
			close(done)
		}()

		assert.Eventually(t, func() bool {
			_, ok := f.store.Get("key")
			return ok
		}, time.Second, 10*time.Millisecond)

		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("sync loop did not stop after cancel")
		}
	})
}
