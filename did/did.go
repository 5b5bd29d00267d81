// Package did implements Decentralized Identifiers as used by the capability
// authority. Identities are did:key identifiers derived from Ed25519 public
// keys. Other DID methods parse and round-trip but cannot be used to verify
// signatures without first registering key material for them.
package did

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multicodec"
	"github.com/multiformats/go-varint"
)

const Prefix = "did:"
const KeyPrefix = "did:key:"

// Code is the multicodec code for a DID.
const Code = 0x0d1d

// Undef can be used to represent a nil or undefined DID, using DID{}
// directly is also acceptable.
var Undef = DID{}

// DID is a Decentralized Identifier. The zero value is Undef. DIDs are
// comparable with ==.
type DID struct {
	// bytes is the method specific identifier. For did:key it is the
	// multicodec tagged public key. For other methods it is the UTF-8 bytes
	// of everything after "did:".
	bytes string
	key   bool
}

// Defined returns true if the DID is not Undef.
func (d DID) Defined() bool {
	return d.bytes != ""
}

// Key returns true if this is a did:key identifier.
func (d DID) Key() bool {
	return d.key
}

// PublicKey returns the Ed25519 public key a did:key identifier was derived
// from. It returns an error for non-key methods and non-Ed25519 keys.
func (d DID) PublicKey() (ed25519.PublicKey, error) {
	if !d.key {
		return nil, fmt.Errorf("not a did:key identifier: %s", d.String())
	}
	b, err := untag(uint64(multicodec.Ed25519Pub), []byte(d.bytes))
	if err != nil {
		return nil, fmt.Errorf("reading public key tag: %s", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key length: %d", len(b))
	}
	return ed25519.PublicKey(b), nil
}

func (d DID) String() string {
	if !d.Defined() {
		return ""
	}
	if d.key {
		str, _ := multibase.Encode(multibase.Base58BTC, []byte(d.bytes))
		return KeyPrefix + str
	}
	return Prefix + d.bytes
}

// Bytes returns a binary representation of the DID - the varint DID
// multicodec tag followed by the method specific identifier.
func (d DID) Bytes() []byte {
	if !d.Defined() {
		return nil
	}
	if d.key {
		return tag(Code, []byte(d.bytes))
	}
	return append(tag(Code, nil), d.bytes...)
}

func (d DID) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, d.String())), nil
}

func (d *DID) UnmarshalJSON(b []byte) error {
	str := strings.Trim(string(b), `"`)
	if str == "" {
		*d = Undef
		return nil
	}
	id, err := Parse(str)
	if err != nil {
		return err
	}
	*d = id
	return nil
}

// Parse a DID string into a DID value. did:key strings are validated to carry
// a multibase encoded, multicodec tagged Ed25519 public key.
func Parse(str string) (DID, error) {
	if !strings.HasPrefix(str, Prefix) {
		return Undef, fmt.Errorf("must start with 'did:'")
	}
	if strings.HasPrefix(str, KeyPrefix) {
		_, bytes, err := multibase.Decode(str[len(KeyPrefix):])
		if err != nil {
			return Undef, fmt.Errorf("decoding multibase string: %s", err)
		}
		if _, err := untag(uint64(multicodec.Ed25519Pub), bytes); err != nil {
			return Undef, fmt.Errorf("unsupported did:key codec: %s", err)
		}
		return DID{bytes: string(bytes), key: true}, nil
	}
	return DID{bytes: str[len(Prefix):]}, nil
}

// Decode a binary representation produced by DID.Bytes back into a DID value.
func Decode(b []byte) (DID, error) {
	body, err := untag(Code, b)
	if err != nil {
		return Undef, fmt.Errorf("reading DID tag: %s", err)
	}
	if _, err := untag(uint64(multicodec.Ed25519Pub), body); err == nil {
		return DID{bytes: string(body), key: true}, nil
	}
	return DID{bytes: string(body)}, nil
}

// FromEd25519 derives a did:key identifier from an Ed25519 public key.
func FromEd25519(pub ed25519.PublicKey) (DID, error) {
	if len(pub) != ed25519.PublicKeySize {
		return Undef, fmt.Errorf("invalid public key length: %d", len(pub))
	}
	return DID{bytes: string(tag(uint64(multicodec.Ed25519Pub), pub)), key: true}, nil
}

func tag(code uint64, bytes []byte) []byte {
	offset := varint.UvarintSize(code)
	tagged := make([]byte, len(bytes)+offset)
	varint.PutUvarint(tagged, code)
	copy(tagged[offset:], bytes)
	return tagged
}

func untag(code uint64, source []byte) ([]byte, error) {
	c, n, err := varint.FromUvarint(source)
	if err != nil {
		return nil, err
	}
	if c != code {
		return nil, fmt.Errorf("expected multiformat with 0x%x tag instead got 0x%x", code, c)
	}
	return source[n:], nil
}
