// Package authority implements the capability authority: the sole source of
// truth for whether a DID currently holds a capability on a resource. It
// issues, verifies, revokes and delegates signed capability tokens bound to
// did:key identities.
package authority

import (
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/principal"
	"github.com/keywarden/go-keywarden/principal/ed25519/signer"
	"github.com/keywarden/go-keywarden/principal/ed25519/verifier"
	"github.com/keywarden/go-keywarden/store"
	"github.com/keywarden/go-keywarden/ucan"
	"github.com/keywarden/go-keywarden/ucan/crypto/signature"
)

// DefaultTTL is the lifetime of tokens issued without an explicit TTL or
// expiration.
const DefaultTTL = 24 * time.Hour

const verifierCacheSize = 128

// Authority issues, verifies, revokes and delegates capability tokens. All
// operations are safe for concurrent use: a single mutex covers every
// load-mutate-persist sequence, so a capability check observes either the
// state before or after any concurrent revocation, never a torn state.
type Authority struct {
	mu          sync.Mutex
	store       store.Store
	keypairs    map[string]ucan.KeyPair
	tokens      map[string]ucan.Token
	revocations map[string]ucan.Revocation
	// verifiers is a read-through cache of parsed verifier archives. Entries
	// are derived from the keypair registry and carry no independent state.
	verifiers  *lru.Cache[string, principal.Verifier]
	defaultTTL time.Duration
}

// Option configures an Authority.
type Option func(*Authority)

// WithDefaultTTL overrides the lifetime applied to tokens issued without an
// explicit expiration.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(a *Authority) {
		a.defaultTTL = ttl
	}
}

// New creates an Authority backed by the given store. Persisted state is
// loaded eagerly; the in-memory copy is a write-through cache over the
// store.
func New(s store.Store, options ...Option) (*Authority, error) {
	keypairs, err := s.LoadKeyPairs()
	if err != nil {
		return nil, errors.Wrap(err, "loading keypairs")
	}
	tokens, err := s.LoadTokens()
	if err != nil {
		return nil, errors.Wrap(err, "loading tokens")
	}
	revocations, err := s.LoadRevocations()
	if err != nil {
		return nil, errors.Wrap(err, "loading revocations")
	}
	cache, err := lru.New[string, principal.Verifier](verifierCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating verifier cache")
	}

	a := &Authority{
		store:       s,
		keypairs:    keypairs,
		tokens:      tokens,
		revocations: revocations,
		verifiers:   cache,
		defaultTTL:  DefaultTTL,
	}
	for _, opt := range options {
		opt(a)
	}
	return a, nil
}

// Close releases the authority's caches. The underlying store is owned by
// the caller and is not closed.
func (a *Authority) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.verifiers.Purge()
	return nil
}

// GenerateKeyPair creates a new Ed25519 keypair, derives its DID and
// registers it. The returned record includes the private key material - the
// caller is trusted.
func (a *Authority) GenerateKeyPair() (ucan.KeyPair, error) {
	s, err := signer.Generate()
	if err != nil {
		return ucan.KeyPair{}, errors.Wrap(err, "generating keypair")
	}

	pub, err := verifier.Format(s.Verifier())
	if err != nil {
		return ucan.KeyPair{}, errors.Wrap(err, "formatting public key")
	}
	priv, err := signer.Format(s)
	if err != nil {
		return ucan.KeyPair{}, errors.Wrap(err, "formatting private key")
	}

	kp := ucan.KeyPair{
		DID:        s.DID(),
		PublicKey:  pub,
		PrivateKey: priv,
		CreatedAt:  time.Now().UTC(),
		KeyType:    signer.Name,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.putKeyPairLocked(kp); err != nil {
		return ucan.KeyPair{}, err
	}
	return kp, nil
}

// ImportKeyPair registers an identity from existing key material. The
// private key may be omitted to register a verification-only identity: one
// that can be an audience but cannot issue tokens.
func (a *Authority) ImportKeyPair(publicKey string, privateKey string) (ucan.KeyPair, error) {
	v, err := verifier.Parse(publicKey)
	if err != nil {
		return ucan.KeyPair{}, errors.Wrap(err, "parsing public key")
	}

	if privateKey != "" {
		s, err := signer.Parse(privateKey)
		if err != nil {
			return ucan.KeyPair{}, errors.Wrap(err, "parsing private key")
		}
		if s.DID() != v.DID() {
			return ucan.KeyPair{}, errors.New("private key does not correspond to public key")
		}
	}

	kp := ucan.KeyPair{
		DID:        v.DID(),
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		CreatedAt:  time.Now().UTC(),
		KeyType:    verifier.Name,
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.putKeyPairLocked(kp); err != nil {
		return ucan.KeyPair{}, err
	}
	return kp, nil
}

// KeyPair returns the registered record for a DID.
func (a *Authority) KeyPair(id did.DID) (ucan.KeyPair, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	kp, ok := a.keypairs[id.String()]
	return kp, ok
}

// KeyPairs returns all registered identity records.
func (a *Authority) KeyPairs() []ucan.KeyPair {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ucan.KeyPair, 0, len(a.keypairs))
	for _, kp := range a.keypairs {
		out = append(out, kp)
	}
	return out
}

// Token returns a token by id, whether valid or not.
func (a *Authority) Token(id string) (ucan.Token, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.tokens[id]
	return t, ok
}

// TokenOption configures an issued token.
type TokenOption func(cfg *tokenConfig)

type tokenConfig struct {
	ttl     time.Duration
	exp     ucan.UTCUnixTimestamp
	nbf     ucan.UTCUnixTimestamp
	proof   string
	caveats ucan.Caveats
}

// WithTTL sets the token lifetime relative to issue time.
func WithTTL(ttl time.Duration) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.ttl = ttl
	}
}

// WithExpiration sets an absolute expiration in UTC seconds since Unix
// epoch, overriding any TTL.
func WithExpiration(exp ucan.UTCUnixTimestamp) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.exp = exp
	}
}

// WithNotBefore sets the time in UTC seconds since Unix epoch when the token
// becomes valid.
func WithNotBefore(nbf ucan.UTCUnixTimestamp) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.nbf = nbf
	}
}

// WithProof links the token to the parent token its issuer's own authority
// derives from.
func WithProof(tokenID string) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.proof = tokenID
	}
}

// WithCaveats attaches restrictions to a delegated capability. Only
// meaningful to DelegateCapability.
func WithCaveats(caveats ucan.Caveats) TokenOption {
	return func(cfg *tokenConfig) {
		cfg.caveats = caveats
	}
}

// CreateToken issues a signed token granting capabilities from issuer to
// audience. Both DIDs must be registered and the issuer must hold private
// key material. Capability actions must come from the fixed vocabulary.
func (a *Authority) CreateToken(issuer, audience did.DID, capabilities []ucan.Capability, options ...TokenOption) (ucan.Token, error) {
	cfg := tokenConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.createTokenLocked(issuer, audience, capabilities, cfg)
}

func (a *Authority) createTokenLocked(issuer, audience did.DID, capabilities []ucan.Capability, cfg tokenConfig) (ucan.Token, error) {
	ikp, ok := a.keypairs[issuer.String()]
	if !ok {
		return ucan.Token{}, NewNotFoundError("issuer DID", issuer.String())
	}
	if _, ok := a.keypairs[audience.String()]; !ok {
		return ucan.Token{}, NewNotFoundError("audience DID", audience.String())
	}
	if !ikp.CanSign() {
		return ucan.Token{}, NewNotFoundError("signing key for DID", issuer.String())
	}
	for _, c := range capabilities {
		if !ucan.ValidAction(c.Action) {
			return ucan.Token{}, NewUnsupportedCapabilityError(c)
		}
	}

	exp := cfg.exp
	if exp == 0 {
		ttl := cfg.ttl
		if ttl == 0 {
			ttl = a.defaultTTL
		}
		exp = ucan.Now() + ucan.UTCUnixTimestamp(ttl/time.Second)
	}

	t := ucan.Token{
		ID:           uuid.NewString(),
		Issuer:       issuer,
		Audience:     audience,
		Capabilities: capabilities,
		ExpiresAt:    exp,
		NotBefore:    cfg.nbf,
		Proof:        cfg.proof,
	}

	s, err := signer.Parse(ikp.PrivateKey)
	if err != nil {
		return ucan.Token{}, errors.Wrap(err, "parsing issuer signing key")
	}
	payload, err := ucan.FormatSignPayload(t, s.SignatureAlgorithm())
	if err != nil {
		return ucan.Token{}, errors.Wrap(err, "formatting sign payload")
	}
	t.Signature = s.Sign(payload).Bytes()

	a.tokens[t.ID] = t
	if err := a.store.SaveTokens(a.tokens); err != nil {
		delete(a.tokens, t.ID)
		return ucan.Token{}, errors.Wrap(err, "persisting token")
	}
	return t, nil
}

// VerifyToken checks a token against the full validity invariant: existence,
// revocation, time window, issuer resolvability, signature and - when the
// token carries a proof - the delegation chain. It reports the outcome as a
// value; an invalid token is not an exceptional condition.
func (a *Authority) VerifyToken(tokenID string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.verifyTokenLocked(tokenID, map[string]bool{})
}

func (a *Authority) verifyTokenLocked(tokenID string, visited map[string]bool) (bool, error) {
	t, ok := a.tokens[tokenID]
	if !ok {
		return false, NewNotFoundError("token", tokenID)
	}
	if rev, ok := a.revocations[tokenID]; ok {
		return false, NewRevokedError(rev)
	}
	if ucan.IsExpired(t) {
		return false, NewExpiredError(t)
	}
	if ucan.IsTooEarly(t) {
		return false, NewNotValidBeforeError(t)
	}

	ikp, ok := a.keypairs[t.Issuer.String()]
	if !ok {
		return false, NewUnknownIssuerError(t.Issuer)
	}
	if len(t.Signature) == 0 {
		return false, NewInvalidSignatureError(t)
	}

	v, err := a.resolveVerifierLocked(ikp)
	if err != nil {
		return false, errors.Wrap(err, "resolving issuer verifier")
	}
	payload, err := ucan.FormatSignPayload(t, signer.SignatureAlgorithm)
	if err != nil {
		return false, errors.Wrap(err, "formatting sign payload")
	}
	if !v.Verify(payload, signature.Decode(t.Signature)) {
		return false, NewInvalidSignatureError(t)
	}

	if t.Proof != "" {
		if visited[tokenID] {
			return false, NewProofError(t.Proof, errors.New("delegation chain contains a cycle"))
		}
		visited[tokenID] = true

		ok, err := a.verifyTokenLocked(t.Proof, visited)
		if !ok {
			return false, NewProofError(t.Proof, err)
		}
		proof := a.tokens[t.Proof]
		if proof.Audience != t.Issuer {
			return false, NewProofError(t.Proof, errors.New("proof token audience does not match issuer"))
		}
		for _, c := range t.Capabilities {
			if !proof.Grants(c.Resource, ucan.ActionDelegate) {
				return false, NewProofError(t.Proof, errors.New("proof token does not have delegation capability"))
			}
		}
	}

	return true, nil
}

// RevokeToken permanently invalidates a token. Only the token's issuer or
// audience may revoke it; anyone else gets a false result rather than an
// error, and no detail about the token leaks. Revocation is irreversible.
func (a *Authority) RevokeToken(tokenID string, revoker did.DID, reason string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t, ok := a.tokens[tokenID]
	if !ok {
		return false, nil
	}
	if revoker != t.Issuer && revoker != t.Audience {
		return false, nil
	}
	if _, ok := a.revocations[tokenID]; ok {
		// already terminal
		return true, nil
	}

	a.revocations[tokenID] = ucan.Revocation{
		TokenID:   tokenID,
		RevokedBy: revoker,
		RevokedAt: ucan.Now(),
		Reason:    reason,
	}
	if err := a.store.SaveRevocations(a.revocations); err != nil {
		delete(a.revocations, tokenID)
		return false, errors.Wrap(err, "persisting revocation")
	}
	return true, nil
}

// GetCapabilities collects the union of capabilities across all currently
// valid tokens naming the DID as audience. Invalid, expired and revoked
// tokens contribute nothing.
func (a *Authority) GetCapabilities(audience did.DID) []ucan.Capability {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []ucan.Capability
	for id, t := range a.tokens {
		if t.Audience != audience {
			continue
		}
		if ok, _ := a.verifyTokenLocked(id, map[string]bool{}); !ok {
			continue
		}
		out = append(out, t.Capabilities...)
	}
	return out
}

// HasCapability reports whether the DID currently holds a capability
// matching the resource and action, honouring wildcards on both.
func (a *Authority) HasCapability(audience did.DID, resource ucan.Resource, action ucan.Action) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasCapabilityLocked(audience, resource, action)
}

func (a *Authority) hasCapabilityLocked(audience did.DID, resource ucan.Resource, action ucan.Action) bool {
	for id, t := range a.tokens {
		if t.Audience != audience {
			continue
		}
		if !t.Grants(resource, action) {
			continue
		}
		if ok, _ := a.verifyTokenLocked(id, map[string]bool{}); ok {
			return true
		}
	}
	return false
}

// DelegateCapability issues a single-capability token from issuer to
// audience. The issuer must currently hold both the delegated action and the
// delegate action on the resource; holding a capability is never implied by
// naming (a DID equal to the resource identifier gets no special treatment -
// root grants are bootstrapped by explicit self-issuance through
// CreateToken).
func (a *Authority) DelegateCapability(issuer, audience did.DID, resource ucan.Resource, action ucan.Action, options ...TokenOption) (ucan.Token, error) {
	cfg := tokenConfig{}
	for _, opt := range options {
		opt(&cfg)
	}

	c := ucan.NewCapability(resource, action, cfg.caveats)
	if !ucan.ValidAction(action) {
		return ucan.Token{}, NewUnsupportedCapabilityError(c)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasCapabilityLocked(issuer, resource, action) {
		return ucan.Token{}, NewEscalationError(issuer, resource, action)
	}
	if !a.hasCapabilityLocked(issuer, resource, ucan.ActionDelegate) {
		return ucan.Token{}, NewEscalationError(issuer, resource, ucan.ActionDelegate)
	}

	return a.createTokenLocked(issuer, audience, []ucan.Capability{c}, cfg)
}

func (a *Authority) resolveVerifierLocked(kp ucan.KeyPair) (principal.Verifier, error) {
	key := kp.DID.String()
	if v, ok := a.verifiers.Get(key); ok {
		return v, nil
	}
	v, err := verifier.Parse(kp.PublicKey)
	if err != nil {
		return nil, err
	}
	a.verifiers.Add(key, v)
	return v, nil
}

func (a *Authority) putKeyPairLocked(kp ucan.KeyPair) error {
	key := kp.DID.String()
	prev, existed := a.keypairs[key]
	a.keypairs[key] = kp
	if err := a.store.SaveKeyPairs(a.keypairs); err != nil {
		if existed {
			a.keypairs[key] = prev
		} else {
			delete(a.keypairs, key)
		}
		return errors.Wrap(err, "persisting keypair")
	}
	a.verifiers.Remove(key)
	return nil
}
