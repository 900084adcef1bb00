package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetcache/internal/ai"
	"fleetcache/internal/logs"
	"fleetcache/internal/metrics"
	"fleetcache/internal/peers"
	"fleetcache/internal/store"
)

// MaxValueBytes caps the size of a single value accepted over the
// client API.
const MaxValueBytes = 5 << 20

// Propagator receives committed local mutations for fleet-wide fan-out.
type Propagator interface {
	Propagate(key string, entry store.Entry)
}

// Handler holds dependencies for the client-facing HTTP handlers.
type Handler struct {
	store      *store.Store
	metrics    *metrics.Registry
	analyzer   *ai.HealthAnalyzer
	resolver   *peers.Resolver
	propagator Propagator
	defaultTTL time.Duration
}

// NewHandler creates a new API handler.
func NewHandler(
	st *store.Store,
	reg *metrics.Registry,
	logger *logs.Logger,
	resolver *peers.Resolver,
	propagator Propagator,
	defaultTTL time.Duration,
) *Handler {
	return &Handler{
		store:      st,
		metrics:    reg,
		analyzer:   ai.NewHealthAnalyzer(reg, logger),
		resolver:   resolver,
		propagator: propagator,
		defaultTTL: defaultTTL,
	}
}

/* ---------------- PUT /kv/{key} ---------------- */

// SetKey stores the raw request body under the key, commits locally,
// then hands the committed entry to replication. The optional ttl
// query parameter is in seconds; absent means the configured default,
// 0 means no expiry.
func (h *Handler) SetKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		http.Error(w, "missing key in URL", http.StatusBadRequest)
		return
	}

	ttl := h.defaultTTL
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds < 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		ttl = time.Duration(seconds) * time.Second
	}

	value, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxValueBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "value too large", http.StatusBadRequest)
			return
		}
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	entry := h.store.Put(key, value, ttl)
	h.propagator.Propagate(key, entry)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"version": entry.Version})
}

/* ---------------- GET /kv/{key} ---------------- */

func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	value, ok := h.store.Get(key)
	if !ok {
		http.Error(w, "key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(value)
}

/* ---------------- DELETE /kv/{key} ---------------- */

// DeleteKey writes a tombstone and replicates it. Deleting an absent
// key still commits and propagates the tombstone, in case a peer holds
// the key, so the response is 200 either way.
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/kv/")
	if key == "" {
		http.Error(w, "missing key", http.StatusBadRequest)
		return
	}

	entry, _ := h.store.Delete(key)
	h.propagator.Propagate(key, entry)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int64{"version": entry.Version})
}

/* ---------------- GET /admin/keys ---------------- */

type keyMeta struct {
	Version   int64      `json:"version"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Bytes     int        `json:"bytes"`
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	entries := h.store.List()

	resp := make(map[string]keyMeta, len(entries))
	for k, v := range entries {
		meta := keyMeta{Version: v.Version, Bytes: len(v.Value)}
		if !v.ExpiresAt.IsZero() {
			expiresAt := v.ExpiresAt
			meta.ExpiresAt = &expiresAt
		}
		resp[k] = meta
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

/* ---------------- GET /admin/peers ---------------- */

func (h *Handler) GetPeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"self":  h.resolver.Self(),
		"peers": h.resolver.Peers(),
	})
}

/* ---------------- GET /metrics ---------------- */

func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.metrics.Snapshot())
}

/* ---------------- GET /health ---------------- */

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := h.analyzer.Analyze()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

/* ---------------- probes ---------------- */

// Healthz and Readyz back the kubelet probes. The node is ready as
// soon as it serves traffic; sync backfills the cache in the
// background, so readiness does not wait for convergence.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
