// Package verifier implements Ed25519 public keys as multicodec tagged byte
// archives that can check token signatures and derive did:key identifiers.
package verifier

import (
	"crypto/ed25519"
	"fmt"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"

	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/principal"
	"github.com/keywarden/go-keywarden/ucan/crypto/signature"
)

const Code = uint64(multicodec.Ed25519Pub)
const Name = "Ed25519"

const SignatureCode = signature.EdDSA
const SignatureAlgorithm = "EdDSA"

var publicTagSize = varint.UvarintSize(Code)

const keySize = ed25519.PublicKeySize

var size = publicTagSize + keySize

// Parse a multibase encoded verifier archive.
func Parse(str string) (principal.Verifier, error) {
	_, bytes, err := multibase.Decode(str)
	if err != nil {
		return nil, fmt.Errorf("decoding multibase string: %s", err)
	}
	return Decode(bytes)
}

// Decode a verifier archive - the Ed25519 public key multicodec tag followed
// by the raw public key.
func Decode(b []byte) (principal.Verifier, error) {
	if len(b) != size {
		return nil, fmt.Errorf("invalid length: %d wanted: %d", len(b), size)
	}

	puc, n, err := varint.FromUvarint(b)
	if err != nil {
		return nil, fmt.Errorf("reading public key codec: %s", err)
	}
	if puc != Code || n != publicTagSize {
		return nil, fmt.Errorf("invalid public key codec: 0x%x", puc)
	}

	v := make(Ed25519Verifier, size)
	copy(v, b)

	return v, nil
}

// FromDID derives a verifier from a did:key identifier. No key material
// beyond the DID itself is needed.
func FromDID(id did.DID) (principal.Verifier, error) {
	pub, err := id.PublicKey()
	if err != nil {
		return nil, err
	}
	return FromRaw(pub)
}

// FromRaw wraps a raw Ed25519 public key in a verifier archive.
func FromRaw(pub ed25519.PublicKey) (principal.Verifier, error) {
	if len(pub) != keySize {
		return nil, fmt.Errorf("invalid public key length: %d", len(pub))
	}
	v := make(Ed25519Verifier, size)
	varint.PutUvarint(v, Code)
	copy(v[publicTagSize:], pub)
	return v, nil
}

// Format encodes a verifier to its canonical multibase (base64pad) string.
func Format(v principal.Verifier) (string, error) {
	return multibase.Encode(multibase.Base64pad, v.Encode())
}

type Ed25519Verifier []byte

func (v Ed25519Verifier) Code() uint64 {
	return Code
}

func (v Ed25519Verifier) Verify(payload []byte, sig signature.Signature) bool {
	if sig.Code() != SignatureCode {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(v[publicTagSize:]), payload, sig.Raw())
}

func (v Ed25519Verifier) DID() did.DID {
	id, _ := did.FromEd25519(ed25519.PublicKey(v[publicTagSize:]))
	return id
}

func (v Ed25519Verifier) Encode() []byte {
	return v
}
