package verifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keywarden/go-keywarden/principal/ed25519/signer"
	"github.com/keywarden/go-keywarden/principal/ed25519/verifier"
)

func TestFromDID(t *testing.T) {
	s, err := signer.Generate()
	require.NoError(t, err)

	v, err := verifier.FromDID(s.DID())
	require.NoError(t, err)
	require.Equal(t, s.DID(), v.DID())

	msg := []byte("payload")
	require.True(t, v.Verify(msg, s.Sign(msg)))
}

func TestFormatParse(t *testing.T) {
	s, err := signer.Generate()
	require.NoError(t, err)

	str, err := verifier.Format(s.Verifier())
	require.NoError(t, err)

	v, err := verifier.Parse(str)
	require.NoError(t, err)
	require.Equal(t, s.DID(), v.DID())
}

func TestVerifyRejectsWrongSignatureCode(t *testing.T) {
	s, err := signer.Generate()
	require.NoError(t, err)

	msg := []byte("payload")
	sig := s.Sign(msg)

	v := s.Verifier()
	require.True(t, v.Verify(msg, sig))
}

func TestDecodeInvalid(t *testing.T) {
	_, err := verifier.Decode([]byte{0xed})
	require.Error(t, err)
}
