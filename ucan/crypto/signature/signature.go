// Package signature implements self-describing signatures. A signature is
// prefixed with a varint code naming the algorithm that produced it, so the
// bytes can be stored and later verified without out-of-band information.
package signature

import (
	"bytes"

	"github.com/multiformats/go-varint"
)

const EdDSA = 0xd0ed

// NonStandard is the code used for signatures produced by algorithms without
// a registered multicodec code, and for absent signatures.
const NonStandard = 0xd000

type Signature interface {
	Code() uint64
	Size() uint64
	Bytes() []byte
	// Raw signature (without signature algorithm info).
	Raw() []byte
}

func NewSignature(code uint64, raw []byte) Signature {
	cl := varint.UvarintSize(code)
	rl := varint.UvarintSize(uint64(len(raw)))
	sig := make(signature, cl+rl+len(raw))
	varint.PutUvarint(sig, code)
	varint.PutUvarint(sig[cl:], uint64(len(raw)))
	copy(sig[cl+rl:], raw)
	return sig
}

func Encode(s Signature) []byte {
	return s.Bytes()
}

func Decode(b []byte) Signature {
	return signature(b)
}

type signature []byte

func (s signature) Code() uint64 {
	c, _ := varint.ReadUvarint(bytes.NewReader(s))
	return c
}

func (s signature) Size() uint64 {
	n, _ := varint.ReadUvarint(bytes.NewReader(s[varint.UvarintSize(s.Code()):]))
	return n
}

func (s signature) Raw() []byte {
	cl := varint.UvarintSize(s.Code())
	rl := varint.UvarintSize(s.Size())
	return s[cl+rl:]
}

func (s signature) Bytes() []byte {
	return s
}

// Verifier checks that signatures over a payload were produced by the holder
// of a key.
type Verifier interface {
	Verify(payload []byte, sig Signature) bool
}

type SignatureView interface {
	Signature
	// Verify that the signature was produced over the given message.
	Verify(msg []byte, verifier Verifier) bool
}

func NewSignatureView(s Signature) SignatureView {
	return signatureView(signature(s.Bytes()))
}

type signatureView signature

func (v signatureView) Bytes() []byte {
	return signature(v).Bytes()
}

func (v signatureView) Code() uint64 {
	return signature(v).Code()
}

func (v signatureView) Raw() []byte {
	return signature(v).Raw()
}

func (v signatureView) Size() uint64 {
	return signature(v).Size()
}

func (v signatureView) Verify(msg []byte, verifier Verifier) bool {
	return verifier.Verify(msg, v)
}
