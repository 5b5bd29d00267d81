package guard

import (
	"fmt"

	"github.com/keywarden/go-keywarden/failure"
)

// CapabilityDeniedError indicates a requestor does not currently hold the
// capability a key operation requires. The message is deliberately terse:
// the reason for the denial goes to the audit log, not to the caller.
type CapabilityDeniedError struct {
	failure.NamedWithStackTrace
	keyID  string
	action string
}

func NewCapabilityDeniedError(keyID, action string) CapabilityDeniedError {
	return CapabilityDeniedError{failure.NamedWithCurrentStackTrace("CapabilityDenied"), keyID, action}
}

func (cde CapabilityDeniedError) Error() string {
	return fmt.Sprintf("capability denied: %s on %s", cde.action, cde.keyID)
}

// UnknownKeyError indicates the referenced encryption key does not exist.
type UnknownKeyError struct {
	failure.NamedWithStackTrace
	keyID string
}

func NewUnknownKeyError(keyID string) UnknownKeyError {
	return UnknownKeyError{failure.NamedWithCurrentStackTrace("UnknownKey"), keyID}
}

func (uke UnknownKeyError) Error() string {
	return fmt.Sprintf("encryption key not found: %s", uke.keyID)
}

// KeyExpiredError indicates the referenced encryption key is past its expiry
// and can no longer be used.
type KeyExpiredError struct {
	failure.NamedWithStackTrace
	keyID string
}

func NewKeyExpiredError(keyID string) KeyExpiredError {
	return KeyExpiredError{failure.NamedWithCurrentStackTrace("KeyExpired"), keyID}
}

func (kee KeyExpiredError) Error() string {
	return fmt.Sprintf("encryption key expired: %s", kee.keyID)
}

// UnsupportedAlgorithmError indicates an algorithm outside the supported
// set.
type UnsupportedAlgorithmError struct {
	failure.NamedWithStackTrace
	algorithm string
}

func NewUnsupportedAlgorithmError(algorithm string) UnsupportedAlgorithmError {
	return UnsupportedAlgorithmError{failure.NamedWithCurrentStackTrace("UnsupportedAlgorithm"), algorithm}
}

func (uae UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported encryption algorithm: %s", uae.algorithm)
}
