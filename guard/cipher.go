package guard

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Supported symmetric algorithms. Both are AEADs with 32-byte keys.
const (
	AlgorithmAES256GCM        = "aes-256-gcm"
	AlgorithmChaCha20Poly1305 = "chacha20-poly1305"
	DefaultAlgorithm          = AlgorithmAES256GCM
)

const keyMaterialSize = 32

// argon2id parameters for passphrase derived key material.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

func validAlgorithm(algorithm string) bool {
	return algorithm == AlgorithmAES256GCM || algorithm == AlgorithmChaCha20Poly1305
}

func newAEAD(algorithm string, material []byte) (cipher.AEAD, error) {
	switch algorithm {
	case AlgorithmAES256GCM:
		block, err := aes.NewCipher(material)
		if err != nil {
			return nil, errors.Wrap(err, "creating AES cipher")
		}
		return cipher.NewGCM(block)
	case AlgorithmChaCha20Poly1305:
		return chacha20poly1305.New(material)
	default:
		return nil, NewUnsupportedAlgorithmError(algorithm)
	}
}

func randomKeyMaterial() ([]byte, error) {
	material := make([]byte, keyMaterialSize)
	if _, err := rand.Read(material); err != nil {
		return nil, errors.Wrap(err, "reading randomness")
	}
	return material, nil
}

// deriveKeyMaterial stretches a passphrase into key material with argon2id.
// The salt is random per key; the derived material is what gets persisted,
// so the salt does not need to outlive this call.
func deriveKeyMaterial(passphrase string) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "reading salt randomness")
	}
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, keyMaterialSize), nil
}

// seal encrypts with a fresh random nonce and returns nonce and ciphertext
// separately. The nonce travels in the metadata.
func seal(aead cipher.AEAD, plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, errors.Wrap(err, "reading nonce randomness")
	}
	return nonce, aead.Seal(nil, nonce, plaintext, nil), nil
}

func open(aead cipher.AEAD, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != aead.NonceSize() {
		return nil, errors.Errorf("invalid nonce length: %d", len(nonce))
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "opening ciphertext")
	}
	return plaintext, nil
}
