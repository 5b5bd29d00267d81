package guard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keywarden/go-keywarden/authority"
	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/store"
	"github.com/keywarden/go-keywarden/ucan"
)

func newTestGuard(t *testing.T) (*Guard, *authority.Authority) {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	a, err := authority.New(s)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	g, err := New(a, s)
	require.NoError(t, err)
	return g, a
}

func TestGenerateEncryptionKeySelfIssuedRoot(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)

	key, ok := g.Key(keyID)
	require.True(t, ok)
	require.Equal(t, AlgorithmAES256GCM, key.Algorithm)
	require.Len(t, key.Material, 32)
	require.True(t, key.DID.Defined())

	// the owning DID holds the full root capability set immediately
	for _, action := range []ucan.Action{ucan.ActionEncrypt, ucan.ActionDecrypt, ucan.ActionDelegate, ucan.ActionRevoke} {
		require.True(t, a.HasCapability(key.DID, keyID, action), action)
	}
	require.False(t, a.HasCapability(key.DID, keyID, ucan.ActionManage))
}

func TestGenerateWithoutDelegation(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "cache", WithoutDelegation())
	require.NoError(t, err)

	key, ok := g.Key(keyID)
	require.True(t, ok)
	require.False(t, key.DID.Defined())

	// unbound keys are never capability-gated, even with a requestor
	stranger, err := a.GenerateKeyPair()
	require.NoError(t, err)

	ciphertext, _, err := g.Encrypt(ctx, []byte("payload"), keyID, stranger.DID)
	require.NoError(t, err)
	plaintext, err := g.Decrypt(ctx, ciphertext, keyID, stranger.DID)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), plaintext)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	for _, algorithm := range []string{AlgorithmAES256GCM, AlgorithmChaCha20Poly1305} {
		t.Run(algorithm, func(t *testing.T) {
			g, _ := newTestGuard(t)
			ctx := context.Background()

			keyID, err := g.GenerateEncryptionKey(ctx, algorithm, "documents")
			require.NoError(t, err)
			key, _ := g.Key(keyID)

			data := []byte("the quick brown fox")
			ciphertext, meta, err := g.Encrypt(ctx, data, keyID, key.DID)
			require.NoError(t, err)
			require.NotEqual(t, data, ciphertext)
			require.Equal(t, algorithm, meta.Algorithm)
			require.Equal(t, keyID, meta.KeyID)
			require.NotEmpty(t, meta.Nonce)
			require.Equal(t, key.DID, meta.KeyDID)

			plaintext, err := g.Decrypt(ctx, ciphertext, keyID, key.DID)
			require.NoError(t, err)
			require.Equal(t, data, plaintext)
		})
	}
}

func TestEncryptDeniedWithoutCapability(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)

	stranger, err := a.GenerateKeyPair()
	require.NoError(t, err)

	_, _, err = g.Encrypt(ctx, []byte("payload"), keyID, stranger.DID)
	require.IsType(t, CapabilityDeniedError{}, err)
}

func TestNoRequestorBypassesGate(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)

	ciphertext, _, err := g.Encrypt(ctx, []byte("payload"), keyID, did.Undef)
	require.NoError(t, err)
	plaintext, err := g.Decrypt(ctx, ciphertext, keyID, did.Undef)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), plaintext)
}

func TestDelegatedEncryptOnly(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)
	key, _ := g.Key(keyID)

	bob, err := a.GenerateKeyPair()
	require.NoError(t, err)

	tokenID, err := g.DelegateKeyCapability(ctx, keyID, key.DID, bob.DID, ucan.ActionEncrypt)
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	ciphertext, _, err := g.Encrypt(ctx, []byte("payload"), keyID, bob.DID)
	require.NoError(t, err)

	// encrypt was delegated, decrypt was not
	_, err = g.Decrypt(ctx, ciphertext, keyID, bob.DID)
	require.IsType(t, CapabilityDeniedError{}, err)
}

func TestRevokedDelegationDenies(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)
	key, _ := g.Key(keyID)

	bob, err := a.GenerateKeyPair()
	require.NoError(t, err)

	tokenID, err := g.DelegateKeyCapability(ctx, keyID, key.DID, bob.DID, ucan.ActionEncrypt)
	require.NoError(t, err)

	_, _, err = g.Encrypt(ctx, []byte("payload"), keyID, bob.DID)
	require.NoError(t, err)

	revoked, err := g.RevokeKeyCapability(ctx, tokenID, key.DID, "rotation")
	require.NoError(t, err)
	require.True(t, revoked)

	_, _, err = g.Encrypt(ctx, []byte("payload"), keyID, bob.DID)
	require.IsType(t, CapabilityDeniedError{}, err)
}

func TestDelegateWithoutHolding(t *testing.T) {
	g, a := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)

	bob, err := a.GenerateKeyPair()
	require.NoError(t, err)
	charlie, err := a.GenerateKeyPair()
	require.NoError(t, err)

	_, err = g.DelegateKeyCapability(ctx, keyID, bob.DID, charlie.DID, ucan.ActionEncrypt)
	require.IsType(t, authority.EscalationError{}, err)
}

func TestPassphraseDerivedKey(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, AlgorithmChaCha20Poly1305, "vault", WithPassphrase("correct horse battery staple"))
	require.NoError(t, err)

	key, ok := g.Key(keyID)
	require.True(t, ok)
	require.Len(t, key.Material, 32)

	ciphertext, _, err := g.Encrypt(ctx, []byte("secret"), keyID, key.DID)
	require.NoError(t, err)
	plaintext, err := g.Decrypt(ctx, ciphertext, keyID, key.DID)
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), plaintext)
}

func TestExpiredKey(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "ephemeral", WithKeyTTL(-time.Hour))
	require.NoError(t, err)

	_, _, err = g.Encrypt(ctx, []byte("payload"), keyID, did.Undef)
	require.IsType(t, KeyExpiredError{}, err)
}

func TestUnknownKey(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	_, _, err := g.Encrypt(ctx, []byte("payload"), "missing", did.Undef)
	require.IsType(t, UnknownKeyError{}, err)

	_, err = g.Decrypt(ctx, []byte("payload"), "missing", did.Undef)
	require.IsType(t, UnknownKeyError{}, err)

	_, err = g.DelegateKeyCapability(ctx, "missing", did.Undef, did.Undef, ucan.ActionEncrypt)
	require.IsType(t, UnknownKeyError{}, err)
}

func TestUnsupportedAlgorithm(t *testing.T) {
	g, _ := newTestGuard(t)
	_, err := g.GenerateEncryptionKey(context.Background(), "rot13", "documents")
	require.IsType(t, UnsupportedAlgorithmError{}, err)
}

func TestTamperedCiphertext(t *testing.T) {
	g, _ := newTestGuard(t)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)

	ciphertext, _, err := g.Encrypt(ctx, []byte("payload"), keyID, did.Undef)
	require.NoError(t, err)

	ciphertext[len(ciphertext)-1] ^= 0xff
	_, err = g.Decrypt(ctx, ciphertext, keyID, did.Undef)
	require.Error(t, err)
}

func TestKeysSurviveRestart(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	require.NoError(t, err)
	a, err := authority.New(s)
	require.NoError(t, err)
	g, err := New(a, s)
	require.NoError(t, err)
	ctx := context.Background()

	keyID, err := g.GenerateEncryptionKey(ctx, "", "documents")
	require.NoError(t, err)
	key, _ := g.Key(keyID)
	ciphertext, _, err := g.Encrypt(ctx, []byte("payload"), keyID, key.DID)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, s.Close())

	s2, err := store.NewFileStore(dir)
	require.NoError(t, err)
	defer s2.Close()
	a2, err := authority.New(s2)
	require.NoError(t, err)
	defer a2.Close()
	g2, err := New(a2, s2)
	require.NoError(t, err)

	plaintext, err := g2.Decrypt(ctx, ciphertext, keyID, key.DID)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), plaintext)
}
