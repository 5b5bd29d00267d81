// Package store persists authority and guard state. The persisted form is
// the sole source of truth: components keep in-memory copies only as
// write-through caches with no independent lifetime.
package store

import (
	"time"

	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/ucan"
)

// Key is an encryption key record owned by the guard. Material is the
// symmetric secret (JSON encodes it base64). DID is set when the key is
// bound to a capability-holding identity.
type Key struct {
	ID        string     `json:"key_id"`
	Algorithm string     `json:"algorithm"`
	Material  []byte     `json:"key_material"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Context   string     `json:"context,omitempty"`
	DID       did.DID    `json:"ucan_did"`
}

// Store loads and saves whole state categories. Implementations must make a
// successful Save durable before returning: callers treat a completed Save
// as committed.
type Store interface {
	LoadKeyPairs() (map[string]ucan.KeyPair, error)
	SaveKeyPairs(map[string]ucan.KeyPair) error

	LoadTokens() (map[string]ucan.Token, error)
	SaveTokens(map[string]ucan.Token) error

	LoadRevocations() (map[string]ucan.Revocation, error)
	SaveRevocations(map[string]ucan.Revocation) error

	LoadKeys() (map[string]Key, error)
	SaveKeys(map[string]Key) error

	Close() error
}
