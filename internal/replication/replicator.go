package replication

import (
	"context"
	"errors"
	"fmt"

	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/peers"
	"fleetcache/internal/store"
)

// Topology is the slice of the resolver the replication workers need.
type Topology interface {
	Peers() []peers.Peer
}

// Replicator fans committed local mutations out to the fleet.
//
// Behavior:
// 1. Never blocks the caller; the local commit already happened and is
//    never rolled back.
// 2. Dispatches run concurrently but bounded, so a wide fleet cannot
//    exhaust the node.
// 3. Individual peer failures are isolated: they are retried within a
//    bounded budget, then logged, counted, and dropped. A peer that
//    missed a mutation converges later through sync or the next write.
type Replicator struct {
	topology  Topology
	transport *Transport
	config    peers.Config
	logger    *logs.Logger
	metrics   *metrics.Registry
	slots     chan struct{}
}

// NewReplicator creates a new Replicator instance.
func NewReplicator(
	topology Topology,
	transport *Transport,
	cfg peers.Config,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Replicator {
	return &Replicator{
		topology:  topology,
		transport: transport,
		config:    cfg,
		logger:    logger,
		metrics:   reg,
		slots:     make(chan struct{}, cfg.Fanout.MaxConcurrent),
	}
}

// Propagate dispatches one committed mutation to every peer and
// returns as soon as the dispatches are handed off.
//
// The peer set is resolved fresh on every call, so a peer that was
// unreachable a moment ago gets probed again on the next write.
func (r *Replicator) Propagate(key string, entry store.Entry) {
	msg := NewMessage(key, entry)

	for _, peer := range r.topology.Peers() {
		go func(p peers.Peer) {
			r.slots <- struct{}{}
			defer func() { <-r.slots }()

			r.dispatch(p, msg)
		}(peer)
	}
}

// dispatch delivers one message to one peer within the dispatch budget.
func (r *Replicator) dispatch(peer peers.Peer, msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.Timeout.DispatchBudget)
	defer cancel()

	var authErr error
	err := peers.Retry(ctx, r.config.Retry, func(attempt int) error {
		r.metrics.Inc(metrics.ReplicationAttemptsTotal)
		if attempt > 1 {
			r.metrics.Inc(metrics.ReplicationRetriesTotal)
		}

		applied, err := r.transport.Send(ctx, peer, msg)
		if errors.Is(err, ErrUnauthorized) {
			// no point retrying until the fleet agrees on a secret
			authErr = err
			return nil
		}
		if err != nil {
			return err
		}

		if !applied {
			r.logger.Debug(fmt.Sprintf("peer %d already ahead for key %s", peer.Ordinal, msg.Key))
		}
		return nil
	})

	switch {
	case authErr != nil:
		r.metrics.Inc(metrics.ReplicationFailureTotal)
		r.logger.Error(fmt.Sprintf("replication to peer %d rejected: fleet secret mismatch", peer.Ordinal))
	case err != nil:
		r.metrics.Inc(metrics.ReplicationFailureTotal)
		r.logger.Warn(fmt.Sprintf("replication failed for key %s to peer %d: %v", msg.Key, peer.Ordinal, err))
	default:
		r.metrics.Inc(metrics.ReplicationSuccessTotal)
		r.logger.Debug(fmt.Sprintf("replicated key %s to peer %d", msg.Key, peer.Ordinal))
	}
}
