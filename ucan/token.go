package ucan

import (
	"time"

	"github.com/keywarden/go-keywarden/did"
)

// Token is a signed grant of capabilities from an issuer to an audience.
// Once issued a token is immutable. It stops being usable when it expires or
// when a revocation is recorded against it; neither transition is reversible.
type Token struct {
	ID           string           `json:"token_id"`
	Issuer       did.DID          `json:"issuer"`
	Audience     did.DID          `json:"audience"`
	Capabilities []Capability     `json:"capabilities"`
	ExpiresAt    UTCUnixTimestamp `json:"expires_at"`
	NotBefore    UTCUnixTimestamp `json:"not_before,omitempty"`
	// Proof is the id of the parent token establishing the delegation chain,
	// empty for root grants.
	Proof     string `json:"proof,omitempty"`
	Signature []byte `json:"signature"`
}

// SelfIssued reports whether issuer and audience are the same DID. Self
// issued tokens bootstrap root authority over a newly created resource.
func (t Token) SelfIssued() bool {
	return t.Issuer == t.Audience
}

// Grants reports whether any capability in the token permits the action on
// the resource, honouring wildcards.
func (t Token) Grants(resource Resource, action Action) bool {
	for _, c := range t.Capabilities {
		if c.Grants(resource, action) {
			return true
		}
	}
	return false
}

// Revocation is a permanent record invalidating a token regardless of its
// stated expiry. There is no un-revoke operation.
type Revocation struct {
	TokenID   string           `json:"token_id"`
	RevokedBy did.DID          `json:"revoked_by"`
	RevokedAt UTCUnixTimestamp `json:"revoked_at"`
	Reason    string           `json:"reason,omitempty"`
}

// KeyPair is a persisted identity record. PrivateKey is empty for
// verification-only identities, which can be an audience but cannot sign.
type KeyPair struct {
	DID        did.DID   `json:"did"`
	PublicKey  string    `json:"public_key"`
	PrivateKey string    `json:"private_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	KeyType    string    `json:"key_type"`
}

// CanSign reports whether the keypair carries private key material.
func (kp KeyPair) CanSign() bool {
	return kp.PrivateKey != ""
}

// IsExpired checks if a token is expired.
func IsExpired(t Token) bool {
	return t.ExpiresAt <= Now()
}

// IsTooEarly checks if a token is not active yet.
func IsTooEarly(t Token) bool {
	return t.NotBefore != 0 && Now() < t.NotBefore
}

// Now returns a UTC Unix timestamp for comparing against the time window of
// a token.
func Now() UTCUnixTimestamp {
	return UTCUnixTimestamp(time.Now().Unix())
}
