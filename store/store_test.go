package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keywarden/go-keywarden/testing/fixtures"
	"github.com/keywarden/go-keywarden/ucan"
)

func testStoreRoundTrip(t *testing.T, s Store) {
	t.Helper()

	// empty categories load as empty maps
	kps, err := s.LoadKeyPairs()
	require.NoError(t, err)
	require.Empty(t, kps)

	alice := fixtures.Alice.DID()
	bob := fixtures.Bob.DID()

	kp := ucan.KeyPair{
		DID:       alice,
		PublicKey: "Med...",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		KeyType:   "Ed25519",
	}
	require.NoError(t, s.SaveKeyPairs(map[string]ucan.KeyPair{alice.String(): kp}))

	kps, err = s.LoadKeyPairs()
	require.NoError(t, err)
	require.Len(t, kps, 1)
	require.Equal(t, kp, kps[alice.String()])
	require.False(t, kps[alice.String()].CanSign())

	tkn := ucan.Token{
		ID:           "10000000-0000-0000-0000-000000000001",
		Issuer:       alice,
		Audience:     bob,
		Capabilities: []ucan.Capability{ucan.NewCapability("key1", ucan.ActionEncrypt, nil)},
		ExpiresAt:    ucan.Now() + 3600,
		Signature:    []byte{0xd0, 0xed},
	}
	require.NoError(t, s.SaveTokens(map[string]ucan.Token{tkn.ID: tkn}))

	tkns, err := s.LoadTokens()
	require.NoError(t, err)
	require.Equal(t, tkn, tkns[tkn.ID])

	rev := ucan.Revocation{TokenID: tkn.ID, RevokedBy: alice, RevokedAt: ucan.Now(), Reason: "rotation"}
	require.NoError(t, s.SaveRevocations(map[string]ucan.Revocation{rev.TokenID: rev}))

	revs, err := s.LoadRevocations()
	require.NoError(t, err)
	require.Equal(t, rev, revs[tkn.ID])

	key := Key{
		ID:        "20000000-0000-0000-0000-000000000002",
		Algorithm: "aes-256-gcm",
		Material:  []byte("0123456789abcdef0123456789abcdef"),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Context:   "documents",
		DID:       alice,
	}
	require.NoError(t, s.SaveKeys(map[string]Key{key.ID: key}))

	keys, err := s.LoadKeys()
	require.NoError(t, err)
	require.Equal(t, key, keys[key.ID])
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	testStoreRoundTrip(t, s)
}

func TestFileStoreReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	rev := ucan.Revocation{TokenID: "t1", RevokedBy: fixtures.Alice.DID(), RevokedAt: ucan.Now()}
	require.NoError(t, s.SaveRevocations(map[string]ucan.Revocation{"t1": rev}))
	require.NoError(t, s.Close())

	// revocations survive a restart
	s2, err := NewFileStore(dir)
	require.NoError(t, err)
	defer s2.Close()

	revs, err := s2.LoadRevocations()
	require.NoError(t, err)
	require.Equal(t, rev, revs["t1"])
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	defer s.Close()

	testStoreRoundTrip(t, s)
}

func TestSQLiteStoreSaveReplaces(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	defer s.Close()

	a := ucan.Token{ID: "a", Issuer: fixtures.Alice.DID(), Audience: fixtures.Bob.DID(), ExpiresAt: ucan.Now() + 10}
	b := ucan.Token{ID: "b", Issuer: fixtures.Alice.DID(), Audience: fixtures.Bob.DID(), ExpiresAt: ucan.Now() + 10}

	require.NoError(t, s.SaveTokens(map[string]ucan.Token{"a": a, "b": b}))
	require.NoError(t, s.SaveTokens(map[string]ucan.Token{"b": b}))

	tkns, err := s.LoadTokens()
	require.NoError(t, err)
	require.Len(t, tkns, 1)
	require.Contains(t, tkns, "b")
}
