package did

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDIDKey(t *testing.T) {
	str := "did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo"
	d, err := Parse(str)
	require.NoError(t, err)
	require.Equal(t, str, d.String())
	require.True(t, d.Key())
}

func TestDecodeDIDKey(t *testing.T) {
	str := "did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo"
	d0, err := Parse(str)
	require.NoError(t, err)
	d1, err := Decode(d0.Bytes())
	require.NoError(t, err)
	require.Equal(t, str, d1.String())
}

func TestParseDIDWeb(t *testing.T) {
	str := "did:web:example.org"
	d, err := Parse(str)
	require.NoError(t, err)
	require.Equal(t, str, d.String())
	require.False(t, d.Key())
}

func TestParseInvalid(t *testing.T) {
	_, err := Parse("key:z6Mkntf")
	require.Error(t, err)

	_, err = Parse("did:key:not-multibase!")
	require.Error(t, err)
}

func TestFromEd25519RoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	d, err := FromEd25519(pub)
	require.NoError(t, err)

	p, err := d.PublicKey()
	require.NoError(t, err)
	require.Equal(t, pub, p)

	d1, err := Parse(d.String())
	require.NoError(t, err)
	require.Equal(t, d, d1)
}

func TestEquivalence(t *testing.T) {
	u0 := DID{}
	u1 := Undef
	require.Equal(t, u0, u1)
	require.False(t, u0.Defined())

	d0, err := Parse("did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo")
	require.NoError(t, err)
	d1, err := Parse("did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo")
	require.NoError(t, err)
	require.True(t, d0 == d1)
}

func TestRoundtripJSON(t *testing.T) {
	id, err := Parse("did:key:z6MkntfUkVsXxpmA9d7beiFvpnaDJWkHugq56mZuT15agamo")
	require.NoError(t, err)

	type Object struct {
		ID                DID  `json:"id"`
		UndefID           DID  `json:"undef_id"`
		OptionalPresentID *DID `json:"optional_present_id"`
		OptionalAbsentID  *DID `json:"optional_absent_id"`
	}
	obj := Object{
		ID:                id,
		UndefID:           Undef,
		OptionalPresentID: &id,
		OptionalAbsentID:  nil,
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)

	var out Object
	err = json.Unmarshal(data, &out)
	require.NoError(t, err)

	require.Equal(t, obj.ID, out.ID)
	require.Equal(t, obj.UndefID, out.UndefID)
	require.Equal(t, obj.OptionalPresentID.String(), out.OptionalPresentID.String())
	require.Nil(t, out.OptionalAbsentID)
}
