// Package guard implements the key capability guard: it owns symmetric
// encryption keys, binds each key to a DID with a self-issued root token, and
// gates every encrypt, decrypt, delegate and revoke operation through the
// capability authority. Denials fail closed: the caller gets a terse typed
// error, the reason goes to the audit log.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/keywarden/go-keywarden/authority"
	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/logging"
	"github.com/keywarden/go-keywarden/store"
	"github.com/keywarden/go-keywarden/ucan"
)

// DefaultRootTokenTTL is the lifetime of the self-issued root token created
// alongside a DID-bound encryption key.
const DefaultRootTokenTTL = 365 * 24 * time.Hour

// rootActions are granted to a key's owning DID at generation time. They are
// the root of every delegation chain for that key.
var rootActions = []ucan.Action{
	ucan.ActionEncrypt,
	ucan.ActionDecrypt,
	ucan.ActionDelegate,
	ucan.ActionRevoke,
}

// Metadata describes a single encryption operation. The nonce is also
// prepended to the ciphertext, so a ciphertext is self-contained; the copy
// here is informational.
type Metadata struct {
	Algorithm    string    `json:"algorithm"`
	KeyID        string    `json:"key_id"`
	Nonce        []byte    `json:"nonce"`
	EncryptedAt  time.Time `json:"encrypted_at"`
	KeyDID       did.DID   `json:"key_did,omitempty"`
	RequestorDID did.DID   `json:"requestor_did,omitempty"`
}

// Guard owns encryption keys and enforces capability checks on their use.
// Safe for concurrent use.
type Guard struct {
	mu        sync.Mutex
	authority *authority.Authority
	store     store.Store
	log       logging.Logger
	keys      map[string]store.Key
	rootTTL   time.Duration
}

// Option configures a Guard.
type Option func(*Guard)

// WithLogger sets the audit logger. Defaults to logging.Nop.
func WithLogger(l logging.Logger) Option {
	return func(g *Guard) {
		g.log = l
	}
}

// WithRootTokenTTL overrides the lifetime of self-issued root tokens.
func WithRootTokenTTL(ttl time.Duration) Option {
	return func(g *Guard) {
		g.rootTTL = ttl
	}
}

// New creates a Guard sharing a store with the given authority. Persisted
// keys are loaded eagerly.
func New(a *authority.Authority, s store.Store, options ...Option) (*Guard, error) {
	keys, err := s.LoadKeys()
	if err != nil {
		return nil, errors.Wrap(err, "loading encryption keys")
	}

	g := &Guard{
		authority: a,
		store:     s,
		log:       logging.Nop{},
		keys:      keys,
		rootTTL:   DefaultRootTokenTTL,
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// KeyOption configures a generated encryption key.
type KeyOption func(cfg *keyConfig)

type keyConfig struct {
	withoutDelegation bool
	passphrase        string
	ttl               time.Duration
}

// WithoutDelegation skips DID binding: the key gets no owning identity and
// its use is never capability-gated.
func WithoutDelegation() KeyOption {
	return func(cfg *keyConfig) {
		cfg.withoutDelegation = true
	}
}

// WithPassphrase derives the key material from a passphrase with argon2id
// instead of drawing it from system randomness.
func WithPassphrase(passphrase string) KeyOption {
	return func(cfg *keyConfig) {
		cfg.passphrase = passphrase
	}
}

// WithKeyTTL sets an expiry on the key material itself.
func WithKeyTTL(ttl time.Duration) KeyOption {
	return func(cfg *keyConfig) {
		cfg.ttl = ttl
	}
}

// GenerateEncryptionKey creates key material for the given algorithm (empty
// selects aes-256-gcm) and, unless WithoutDelegation is given, mints an
// owning DID and self-issues a long-lived token granting encrypt, decrypt,
// delegate and revoke over the key id. Returns the key id.
func (g *Guard) GenerateEncryptionKey(ctx context.Context, algorithm, keyContext string, options ...KeyOption) (string, error) {
	cfg := keyConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	if !validAlgorithm(algorithm) {
		return "", NewUnsupportedAlgorithmError(algorithm)
	}

	var material []byte
	var err error
	if cfg.passphrase != "" {
		material, err = deriveKeyMaterial(cfg.passphrase)
	} else {
		material, err = randomKeyMaterial()
	}
	if err != nil {
		return "", err
	}

	key := store.Key{
		ID:        uuid.NewString(),
		Algorithm: algorithm,
		Material:  material,
		CreatedAt: time.Now().UTC(),
		Context:   keyContext,
	}
	if cfg.ttl != 0 {
		exp := key.CreatedAt.Add(cfg.ttl)
		key.ExpiresAt = &exp
	}

	if !cfg.withoutDelegation {
		kp, err := g.authority.GenerateKeyPair()
		if err != nil {
			return "", errors.Wrap(err, "generating owning keypair")
		}
		capabilities := make([]ucan.Capability, 0, len(rootActions))
		for _, action := range rootActions {
			capabilities = append(capabilities, ucan.NewCapability(key.ID, action, nil))
		}
		if _, err := g.authority.CreateToken(kp.DID, kp.DID, capabilities, authority.WithTTL(g.rootTTL)); err != nil {
			return "", errors.Wrap(err, "issuing root token")
		}
		key.DID = kp.DID
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys[key.ID] = key
	if err := g.store.SaveKeys(g.keys); err != nil {
		delete(g.keys, key.ID)
		return "", errors.Wrap(err, "persisting encryption key")
	}

	g.log.Info(ctx, "encryption key generated",
		"key_id", key.ID, "algorithm", algorithm, "did", key.DID.String())
	return key.ID, nil
}

// Key returns the record for a key id, including its material.
func (g *Guard) Key(keyID string) (store.Key, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key, ok := g.keys[keyID]
	return key, ok
}

// Keys returns all key records.
func (g *Guard) Keys() []store.Key {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]store.Key, 0, len(g.keys))
	for _, key := range g.keys {
		out = append(out, key)
	}
	return out
}

// Encrypt encrypts data under the named key. When a requestor is supplied
// and the key is DID-bound, the requestor must hold the encrypt capability
// on the key id; an undefined requestor bypasses the gate for callers that
// predate capability binding. The returned ciphertext carries the nonce as
// its prefix.
func (g *Guard) Encrypt(ctx context.Context, data []byte, keyID string, requestor did.DID) ([]byte, Metadata, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, err := g.usableKeyLocked(ctx, keyID, requestor, ucan.ActionEncrypt)
	if err != nil {
		return nil, Metadata{}, err
	}

	aead, err := newAEAD(key.Algorithm, key.Material)
	if err != nil {
		return nil, Metadata{}, err
	}
	nonce, sealed, err := seal(aead, data)
	if err != nil {
		return nil, Metadata{}, err
	}

	meta := Metadata{
		Algorithm:    key.Algorithm,
		KeyID:        key.ID,
		Nonce:        nonce,
		EncryptedAt:  time.Now().UTC(),
		KeyDID:       key.DID,
		RequestorDID: requestor,
	}
	return append(nonce, sealed...), meta, nil
}

// Decrypt reverses Encrypt, under the same capability gate for the decrypt
// action.
func (g *Guard) Decrypt(ctx context.Context, ciphertext []byte, keyID string, requestor did.DID) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, err := g.usableKeyLocked(ctx, keyID, requestor, ucan.ActionDecrypt)
	if err != nil {
		return nil, err
	}

	aead, err := newAEAD(key.Algorithm, key.Material)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, errors.Errorf("ciphertext too short: %d", len(ciphertext))
	}
	return open(aead, ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():])
}

// usableKeyLocked resolves a key and applies the capability gate for the
// given action.
func (g *Guard) usableKeyLocked(ctx context.Context, keyID string, requestor did.DID, action ucan.Action) (store.Key, error) {
	key, ok := g.keys[keyID]
	if !ok {
		g.log.Warn(ctx, "unknown encryption key", "key_id", keyID)
		return store.Key{}, NewUnknownKeyError(keyID)
	}
	if key.ExpiresAt != nil && !key.ExpiresAt.After(time.Now()) {
		g.log.Warn(ctx, "expired encryption key", "key_id", keyID)
		return store.Key{}, NewKeyExpiredError(keyID)
	}
	if requestor.Defined() && key.DID.Defined() {
		if !g.authority.HasCapability(requestor, keyID, action) {
			g.log.Warn(ctx, "capability denied",
				"key_id", keyID, "action", action, "requestor", requestor.String())
			return store.Key{}, NewCapabilityDeniedError(keyID, action)
		}
	}
	return key, nil
}

// DelegateKeyCapability delegates an action on a key from one DID to
// another. The authority enforces that the delegator holds both the action
// and the delegate capability on the key id. Returns the new token id.
func (g *Guard) DelegateKeyCapability(ctx context.Context, keyID string, delegator, delegatee did.DID, action ucan.Action, options ...authority.TokenOption) (string, error) {
	if _, ok := g.Key(keyID); !ok {
		g.log.Warn(ctx, "unknown encryption key", "key_id", keyID)
		return "", NewUnknownKeyError(keyID)
	}

	token, err := g.authority.DelegateCapability(delegator, delegatee, keyID, action, options...)
	if err != nil {
		g.log.Warn(ctx, "delegation refused",
			"key_id", keyID, "action", action,
			"delegator", delegator.String(), "delegatee", delegatee.String(), "reason", err.Error())
		return "", err
	}

	g.log.Info(ctx, "capability delegated",
		"key_id", keyID, "action", action, "token_id", token.ID,
		"delegator", delegator.String(), "delegatee", delegatee.String())
	return token.ID, nil
}

// RevokeKeyCapability revokes a capability token. The authority enforces
// that the revoker is the token's issuer or audience.
func (g *Guard) RevokeKeyCapability(ctx context.Context, tokenID string, revoker did.DID, reason string) (bool, error) {
	revoked, err := g.authority.RevokeToken(tokenID, revoker, reason)
	if err != nil {
		return false, err
	}
	if revoked {
		g.log.Info(ctx, "capability revoked",
			"token_id", tokenID, "revoker", revoker.String(), "reason", reason)
	} else {
		g.log.Warn(ctx, "revocation refused",
			"token_id", tokenID, "revoker", revoker.String())
	}
	return revoked, nil
}
