package principal

import (
	"github.com/keywarden/go-keywarden/ucan"
	"github.com/keywarden/go-keywarden/ucan/crypto/signature"
)

// Signer is a principal that can produce signatures over payloads with its
// private key.
type Signer interface {
	ucan.Principal
	Sign(payload []byte) signature.SignatureView
	// Code is the multicodec code of the private key type.
	Code() uint64
	SignatureCode() uint64
	SignatureAlgorithm() string
	Verifier() Verifier
	Encode() []byte
}
