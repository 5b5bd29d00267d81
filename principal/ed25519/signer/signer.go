// Package signer implements Ed25519 signing keys as multicodec tagged byte
// archives: a private key tag and seed followed by the public key archive.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"

	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/principal"
	"github.com/keywarden/go-keywarden/principal/ed25519/verifier"
	"github.com/keywarden/go-keywarden/ucan/crypto/signature"
)

const Code = uint64(multicodec.Ed25519Priv)
const Name = verifier.Name

const SignatureCode = verifier.SignatureCode
const SignatureAlgorithm = verifier.SignatureAlgorithm

var privateTagSize = varint.UvarintSize(Code)
var publicTagSize = varint.UvarintSize(verifier.Code)

const keySize = ed25519.SeedSize

var size = privateTagSize + keySize + publicTagSize + keySize
var pubKeyOffset = privateTagSize + keySize

// Generate creates a new Ed25519 signer from cryptographically secure
// randomness.
func Generate() (principal.Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating Ed25519 key: %s", err)
	}
	s := make(Ed25519Signer, size)
	varint.PutUvarint(s, Code)
	copy(s[privateTagSize:], priv.Seed())
	varint.PutUvarint(s[pubKeyOffset:], verifier.Code)
	copy(s[pubKeyOffset+publicTagSize:], pub)
	return s, nil
}

// Parse a multibase encoded signer archive.
func Parse(str string) (principal.Signer, error) {
	_, bytes, err := multibase.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("decoding multibase string: %s", err)
	}
	return Decode(bytes)
}

// Decode a signer archive.
func Decode(b []byte) (principal.Signer, error) {
	if len(b) != size {
		return nil, fmt.Errorf("invalid length: %d wanted: %d", len(b), size)
	}

	prc, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("reading private key codec: %s", err)
	}
	if prc != Code || n != privateTagSize {
		return nil, fmt.Errorf("invalid private key codec: 0x%x", prc)
	}

	if _, err := verifier.Decode(b[pubKeyOffset:]); err != nil {
		return nil, fmt.Errorf("decoding public key: %s", err)
	}

	s := make(Ed25519Signer, size)
	copy(s, b)

	return s, nil
}

// Format encodes a signer to its canonical multibase (base64pad) string.
func Format(s principal.Signer) (string, error) {
	return multibase.Encode(multibase.Base64pad, s.Encode())
}

type Ed25519Signer []byte

func (s Ed25519Signer) Code() uint64 {
	return Code
}

func (s Ed25519Signer) SignatureCode() uint64 {
	return SignatureCode
}

func (s Ed25519Signer) SignatureAlgorithm() string {
	return SignatureAlgorithm
}

func (s Ed25519Signer) Verifier() principal.Verifier {
	v, _ := verifier.Decode(s[pubKeyOffset:])
	return v
}

func (s Ed25519Signer) DID() did.DID {
	id, _ := did.FromEd25519(ed25519.PublicKey(s[pubKeyOffset+publicTagSize:]))
	return id
}

func (s Ed25519Signer) Encode() []byte {
	return s
}

func (s Ed25519Signer) Sign(msg []byte) signature.SignatureView {
	pk := ed25519.NewKeyFromSeed(s[privateTagSize:pubKeyOffset])
	return signature.NewSignatureView(signature.NewSignature(signature.EdDSA, ed25519.Sign(pk, msg)))
}
