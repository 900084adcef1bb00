package replication

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fleetcache/internal/auth"
	"fleetcache/internal/peers"
)

// ErrUnauthorized reports that a peer rejected our token. It is kept
// distinct from transport failures because retrying cannot help until
// the fleet agrees on a secret again.
var ErrUnauthorized = errors.New("peer rejected fleet token")

// Transport performs single-attempt authenticated calls to peers.
// Retry policy belongs to the caller, keeping this layer a thin,
// testable boundary.
type Transport struct {
	guard  *auth.Guard
	client *http.Client
}

// NewTransport creates a transport whose individual calls are bounded
// by timeout.
func NewTransport(guard *auth.Guard, timeout time.Duration) *Transport {
	return &Transport{
		guard:  guard,
		client: &http.Client{Timeout: timeout},
	}
}

// Send delivers one message to one peer.
//
// The bool reports whether the peer applied the write; false with a
// nil error means the peer already held something newer, which is
// normal convergence, not a failure.
func (t *Transport) Send(ctx context.Context, peer peers.Peer, msg Message) (bool, error) {
	var reply struct {
		Applied bool `json:"applied"`
	}
	if err := t.post(ctx, peer, "/internal/replicate", msg, &reply); err != nil {
		return false, err
	}
	return reply.Applied, nil
}

// Sync sends our digest to a peer and returns the entries the peer
// holds at versions the digest does not cover.
func (t *Transport) Sync(ctx context.Context, peer peers.Peer, digest map[string]int64) ([]Message, error) {
	var reply syncResponse
	if err := t.post(ctx, peer, "/internal/sync", syncRequest{Digest: digest}, &reply); err != nil {
		return nil, err
	}
	return reply.Entries, nil
}

func (t *Transport) post(ctx context.Context, peer peers.Peer, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request for peer %d: %w", peer.Ordinal, err)
	}

	token, err := t.guard.Token()
	if err != nil {
		return fmt.Errorf("minting token for peer %d: %w", peer.Ordinal, err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		"http://"+peer.Address+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("building request for peer %d: %w", peer.Ordinal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderName, token)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling peer %d at %s: %w", peer.Ordinal, peer.Address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %d responded %s", peer.Ordinal, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from peer %d: %w", peer.Ordinal, err)
	}
	return nil
}
