package replication

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"fleetcache/internal/auth"
	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/store"
)

// Handler serves the inter-node surface: one endpoint applying pushed
// mutations, one answering digest sync exchanges. It listens on the
// replication port, separate from client traffic.
type Handler struct {
	store     *store.Store
	guard     *auth.Guard
	logger    *logs.Logger
	metrics   *metrics.Registry
	batchSize int
}

// NewHandler creates the inter-node handler. batchSize caps the
// entries returned per sync exchange.
func NewHandler(
	st *store.Store,
	guard *auth.Guard,
	logger *logs.Logger,
	reg *metrics.Registry,
	batchSize int,
) *Handler {
	return &Handler{
		store:     st,
		guard:     guard,
		logger:    logger,
		metrics:   reg,
		batchSize: batchSize,
	}
}

// RegisterRoutes mounts the inter-node endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/internal/replicate", h.handleReplicate)
	mux.HandleFunc("/internal/sync", h.handleSync)
}

// authorize verifies the request token before any store access.
// A rejected request mutates nothing.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	_, err := h.guard.Verify(r.Header.Get(auth.HeaderName))
	if err == nil {
		return true
	}

	h.metrics.Inc(metrics.AuthRejectionsTotal)
	if errors.Is(err, auth.ErrStaleToken) {
		h.logger.Warn("rejected stale fleet token from " + r.RemoteAddr)
	} else {
		h.logger.Warn("rejected invalid fleet token from " + r.RemoteAddr)
	}

	http.Error(w, "unauthorized", http.StatusUnauthorized)
	return false
}

/* ---------------- POST /internal/replicate ---------------- */

func (h *Handler) handleReplicate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if msg.Key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	applied := h.store.ApplyRemote(msg.Key, msg.Entry())
	if applied {
		h.logger.Debug("applied replicated key " + msg.Key)
	}

	// A rejected-stale write still answers 200; staleness is normal
	// convergence, not an error.
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"applied": applied})
}

/* ---------------- POST /internal/sync ---------------- */

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorize(w, r) {
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	entries := h.diff(req.Digest)
	h.metrics.Add(metrics.SyncEntriesServedTotal, int64(len(entries)))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(syncResponse{Entries: entries})
}

// diff returns the entries the caller's digest is behind on, oldest
// versions first so a truncated batch still converges front-to-back.
func (h *Handler) diff(digest map[string]int64) []Message {
	items := h.store.Items()

	out := make([]Message, 0)
	for key, entry := range items {
		if have, ok := digest[key]; ok && have >= entry.Version {
			continue
		}
		out = append(out, NewMessage(key, entry))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })

	if len(out) > h.batchSize {
		out = out[:h.batchSize]
	}
	return out
}
