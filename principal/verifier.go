package principal

import (
	"github.com/keywarden/go-keywarden/ucan"
	"github.com/keywarden/go-keywarden/ucan/crypto/signature"
)

// Verifier is a principal that can check signatures produced by the holder
// of its corresponding private key.
type Verifier interface {
	ucan.Principal
	Verify(payload []byte, sig signature.Signature) bool
	// Code is the multicodec code of the public key type.
	Code() uint64
	Encode() []byte
}
