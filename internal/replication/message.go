package replication

import (
	"time"

	"fleetcache/internal/store"
)

// Message is the wire form of one replicated mutation.
//
// Value is absent for tombstones. Version and the tie-break rules are
// the same on every node, so a message can be applied any number of
// times, in any order, with the same outcome.
type Message struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value,omitempty"`
	Version   int64     `json:"version"`
	ExpiresAt time.Time `json:"expires_at"`
	Tombstone bool      `json:"tombstone,omitempty"`
}

// NewMessage packs a committed store entry for the wire.
func NewMessage(key string, e store.Entry) Message {
	return Message{
		Key:       key,
		Value:     e.Value,
		Version:   e.Version,
		ExpiresAt: e.ExpiresAt,
		Tombstone: e.Tombstone,
	}
}

// Entry unpacks the message into a store entry.
func (m Message) Entry() store.Entry {
	return store.Entry{
		Value:     m.Value,
		Version:   m.Version,
		ExpiresAt: m.ExpiresAt,
		Tombstone: m.Tombstone,
	}
}

// syncRequest carries the caller's digest: every key it holds mapped
// to the version it holds it at.
type syncRequest struct {
	Digest map[string]int64 `json:"digest"`
}

// syncResponse returns the entries the serving peer holds at versions
// the digest does not cover.
type syncResponse struct {
	Entries []Message `json:"entries"`
}
