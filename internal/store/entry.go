package store

import (
	"bytes"
	"time"
)

// Entry represents a single replicated value in the cache.
//
// Design choices:
// - Version orders writes to the same key across the fleet; the
//   highest version wins everywhere.
// - Equal versions are resolved by a deterministic tie-break (see
//   Supersedes) so nodes converge without a coordination authority.
// - Tombstone marks a deleted key. Deletes replicate like writes and
//   are swept once their retention expires.
// - Zero value of ExpiresAt means "no expiration".
type Entry struct {
	Value     []byte
	Version   int64
	ExpiresAt time.Time
	Tombstone bool
}

// IsExpired checks whether the entry is expired at the given time.
func (e Entry) IsExpired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return now.After(e.ExpiresAt)
}

// Live reports whether the entry is readable: neither deleted nor expired.
func (e Entry) Live(now time.Time) bool {
	return !e.Tombstone && !e.IsExpired(now)
}

// Supersedes reports whether the incoming entry should replace current.
//
// Rules:
// - A strictly higher version always wins.
// - At equal versions a live value beats a tombstone, and otherwise
//   the larger value bytes win. Both comparisons are symmetric, so two
//   nodes holding the rivals resolve them the same way.
// - An entry never supersedes an identical one; replay is a no-op.
func (e Entry) Supersedes(current Entry) bool {
	if e.Version != current.Version {
		return e.Version > current.Version
	}
	if e.Tombstone != current.Tombstone {
		return current.Tombstone
	}
	return bytes.Compare(e.Value, current.Value) > 0
}
