package ucan

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keywarden/go-keywarden/did"
)

func TestValidAction(t *testing.T) {
	for _, a := range []Action{ActionEncrypt, ActionDecrypt, ActionDelegate, ActionRevoke, ActionManage, ActionAll} {
		require.True(t, ValidAction(a), a)
	}
	require.False(t, ValidAction("read"))
	require.False(t, ValidAction(""))
}

func TestCapabilityGrants(t *testing.T) {
	testCases := []struct {
		name     string
		cap      Capability
		resource Resource
		action   Action
		want     bool
	}{
		{"exact/exact", NewCapability("key1", ActionEncrypt, nil), "key1", ActionEncrypt, true},
		{"exact resource, other action", NewCapability("key1", ActionEncrypt, nil), "key1", ActionDecrypt, false},
		{"other resource", NewCapability("key1", ActionEncrypt, nil), "key2", ActionEncrypt, false},
		{"wildcard resource", NewCapability(ResourceAll, ActionEncrypt, nil), "any-resource-id", ActionEncrypt, true},
		{"wildcard resource, other action", NewCapability(ResourceAll, ActionEncrypt, nil), "any-resource-id", ActionDecrypt, false},
		{"wildcard action", NewCapability("key1", ActionAll, nil), "key1", ActionRevoke, true},
		{"wildcard action, other resource", NewCapability("key1", ActionAll, nil), "key2", ActionRevoke, false},
		{"wildcard/wildcard", NewCapability(ResourceAll, ActionAll, nil), "key9", ActionManage, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.cap.Grants(tc.resource, tc.action))
		})
	}
}

func TestTokenGrants(t *testing.T) {
	tkn := Token{
		Capabilities: []Capability{
			NewCapability("key1", ActionEncrypt, nil),
			NewCapability("key2", ActionDelegate, nil),
		},
	}
	require.True(t, tkn.Grants("key1", ActionEncrypt))
	require.True(t, tkn.Grants("key2", ActionDelegate))
	require.False(t, tkn.Grants("key1", ActionDelegate))
}

func TestTemporalChecks(t *testing.T) {
	now := Now()

	require.False(t, IsExpired(Token{ExpiresAt: now + 3600}))
	require.True(t, IsExpired(Token{ExpiresAt: now - 1}))

	require.False(t, IsTooEarly(Token{ExpiresAt: now + 3600}))
	require.True(t, IsTooEarly(Token{ExpiresAt: now + 3600, NotBefore: now + 60}))
	// now >= not_before means active
	require.False(t, IsTooEarly(Token{ExpiresAt: now + 3600, NotBefore: now}))
}

func TestFormatSignPayload(t *testing.T) {
	alice, err := did.Parse("did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo")
	require.NoError(t, err)
	bob, err := did.Parse("did:key:z6Mkkf6cVH2H8MEXQqNJofx5ZokeSi1nsks3m8uUh8L7qn8D")
	require.NoError(t, err)

	tkn := Token{
		ID:           "b3a9f2d0-0000-0000-0000-000000000000",
		Issuer:       alice,
		Audience:     bob,
		Capabilities: []Capability{NewCapability("key1", ActionEncrypt, nil)},
		ExpiresAt:    Now() + 3600,
	}

	payload, err := FormatSignPayload(tkn, "EdDSA")
	require.NoError(t, err)

	parts := strings.Split(string(payload), ".")
	require.Len(t, parts, 2)

	// deterministic for the same token
	payload2, err := FormatSignPayload(tkn, "EdDSA")
	require.NoError(t, err)
	require.Equal(t, payload, payload2)

	// any field affecting validity changes the payload
	tkn.Proof = "parent-token"
	payload3, err := FormatSignPayload(tkn, "EdDSA")
	require.NoError(t, err)
	require.NotEqual(t, payload, payload3)
}

func TestTokenJSONRoundTrip(t *testing.T) {
	alice, err := did.Parse("did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo")
	require.NoError(t, err)

	tkn := Token{
		ID:           "b3a9f2d0-0000-0000-0000-000000000000",
		Issuer:       alice,
		Audience:     alice,
		Capabilities: []Capability{NewCapability("key1", ActionEncrypt, Caveats{"max_uses": float64(3)})},
		ExpiresAt:    1790000000,
		Signature:    []byte{0x01, 0x02},
	}
	require.True(t, tkn.SelfIssued())

	data, err := json.Marshal(tkn)
	require.NoError(t, err)

	var out Token
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, tkn, out)
}
