package replication

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleetcache/internal/auth"
	"fleetcache/internal/peers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peerFromURL turns an httptest server URL into a Peer the transport
// can dial.
func peerFromURL(t *testing.T, url string, ordinal int) peers.Peer {
	t.Helper()
	return peers.Peer{
		Ordinal: ordinal,
		Address: strings.TrimPrefix(url, "http://"),
	}
}

func TestTransportSend(t *testing.T) {
	t.Run("delivers an authenticated message", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")

		var gotToken, gotContentType string
		var gotMsg Message
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken = r.Header.Get(auth.HeaderName)
			gotContentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotMsg))
			_ = json.NewEncoder(w).Encode(map[string]bool{"applied": true})
		}))
		defer server.Close()

		transport := NewTransport(guard, time.Second)
		applied, err := transport.Send(context.Background(), peerFromURL(t, server.URL, 1), Message{
			Key:     "k",
			Value:   []byte("v"),
			Version: 7,
		})

		require.NoError(t, err)
		assert.True(t, applied)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "k", gotMsg.Key)
		assert.Equal(t, int64(7), gotMsg.Version)

		ordinal, err := guard.Verify(gotToken)
		require.NoError(t, err)
		assert.Equal(t, 0, ordinal)
	})

	t.Run("reports peer that did not apply", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]bool{"applied": false})
		}))
		defer server.Close()

		transport := NewTransport(guard, time.Second)
		applied, err := transport.Send(context.Background(), peerFromURL(t, server.URL, 1), Message{Key: "k"})

		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("maps 401 to ErrUnauthorized", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}))
		defer server.Close()

		transport := NewTransport(guard, time.Second)
		_, err := transport.Send(context.Background(), peerFromURL(t, server.URL, 1), Message{Key: "k"})

		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("surfaces non-200 responses", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		transport := NewTransport(guard, time.Second)
		_, err := transport.Send(context.Background(), peerFromURL(t, server.URL, 3), Message{Key: "k"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "peer 3")
	})

	t.Run("fails fast on unreachable peer", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")

		transport := NewTransport(guard, 200*time.Millisecond)
		_, err := transport.Send(context.Background(), peers.Peer{Ordinal: 2, Address: "127.0.0.1:1"}, Message{Key: "k"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "peer 2")
	})
}

func TestTransportSync(t *testing.T) {
	t.Run("exchanges digest for entries", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")

		var gotReq syncRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			_ = json.NewEncoder(w).Encode(syncResponse{Entries: []Message{
				{Key: "missing", Value: []byte("x"), Version: 4},
			}})
		}))
		defer server.Close()

		transport := NewTransport(guard, time.Second)
		entries, err := transport.Sync(context.Background(), peerFromURL(t, server.URL, 1), map[string]int64{"held": 9})

		require.NoError(t, err)
		assert.Equal(t, int64(9), gotReq.Digest["held"])
		require.Len(t, entries, 1)
		assert.Equal(t, "missing", entries[0].Key)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		guard := newTestGuard(t, "fleet-secret")
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		transport := NewTransport(guard, time.Second)
		_, err := transport.Sync(ctx, peerFromURL(t, server.URL, 1), nil)

		assert.Error(t, err)
	})
}
