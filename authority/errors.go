package authority

import (
	"fmt"
	"time"

	"github.com/keywarden/go-keywarden/did"
	"github.com/keywarden/go-keywarden/failure"
	"github.com/keywarden/go-keywarden/ucan"
)

// NotFoundError indicates a referenced DID, token or signing key does not
// exist in the store.
type NotFoundError struct {
	failure.NamedWithStackTrace
	kind string
	id   string
}

func NewNotFoundError(kind, id string) NotFoundError {
	return NotFoundError{failure.NamedWithCurrentStackTrace("NotFound"), kind, id}
}

func (nfe NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", nfe.kind, nfe.id)
}

// UnsupportedCapabilityError indicates an action outside the fixed
// vocabulary.
type UnsupportedCapabilityError struct {
	failure.NamedWithStackTrace
	capability ucan.Capability
}

func NewUnsupportedCapabilityError(capability ucan.Capability) UnsupportedCapabilityError {
	return UnsupportedCapabilityError{failure.NamedWithCurrentStackTrace("UnsupportedCapability"), capability}
}

func (uce UnsupportedCapabilityError) Capability() ucan.Capability {
	return uce.capability
}

func (uce UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("unsupported capability action: %s", uce.capability.Action)
}

// RevokedError indicates a token has been permanently revoked.
type RevokedError struct {
	failure.NamedWithStackTrace
	revocation ucan.Revocation
}

func NewRevokedError(revocation ucan.Revocation) RevokedError {
	return RevokedError{failure.NamedWithCurrentStackTrace("Revoked"), revocation}
}

func (re RevokedError) Error() string {
	return fmt.Sprintf("token %s has been revoked by %s", re.revocation.TokenID, re.revocation.RevokedBy)
}

// ExpiredError indicates a token is past its expiry.
type ExpiredError struct {
	failure.NamedWithStackTrace
	token ucan.Token
}

func NewExpiredError(token ucan.Token) ExpiredError {
	return ExpiredError{failure.NamedWithCurrentStackTrace("Expired"), token}
}

func (ee ExpiredError) Error() string {
	return fmt.Sprintf("token %s has expired on %s", ee.token.ID,
		time.Unix(int64(ee.token.ExpiresAt), 0).UTC().Format(time.RFC3339))
}

// NotValidBeforeError indicates a token is not active yet.
type NotValidBeforeError struct {
	failure.NamedWithStackTrace
	token ucan.Token
}

func NewNotValidBeforeError(token ucan.Token) NotValidBeforeError {
	return NotValidBeforeError{failure.NamedWithCurrentStackTrace("NotValidBefore"), token}
}

func (nvbe NotValidBeforeError) Error() string {
	return fmt.Sprintf("token %s is not valid before %s", nvbe.token.ID,
		time.Unix(int64(nvbe.token.NotBefore), 0).UTC().Format(time.RFC3339))
}

// UnknownIssuerError indicates a token's issuer DID cannot be resolved to a
// registered keypair.
type UnknownIssuerError struct {
	failure.NamedWithStackTrace
	issuer did.DID
}

func NewUnknownIssuerError(issuer did.DID) UnknownIssuerError {
	return UnknownIssuerError{failure.NamedWithCurrentStackTrace("UnknownIssuer"), issuer}
}

func (uie UnknownIssuerError) Error() string {
	return fmt.Sprintf("issuer unknown: %s", uie.issuer)
}

// InvalidSignatureError indicates a token signature did not verify against
// the issuer's public key.
type InvalidSignatureError struct {
	failure.NamedWithStackTrace
	token ucan.Token
}

func NewInvalidSignatureError(token ucan.Token) InvalidSignatureError {
	return InvalidSignatureError{failure.NamedWithCurrentStackTrace("InvalidSignature"), token}
}

func (ise InvalidSignatureError) Error() string {
	return fmt.Sprintf("token %s does not have a valid signature from %s", ise.token.ID, ise.token.Issuer)
}

// ProofError indicates the delegation chain referenced through a token's
// proof failed validation.
type ProofError struct {
	failure.NamedWithStackTrace
	tokenID string
	cause   error
}

func NewProofError(tokenID string, cause error) ProofError {
	return ProofError{failure.NamedWithCurrentStackTrace("InvalidProof"), tokenID, cause}
}

func (pe ProofError) Unwrap() error {
	return pe.cause
}

func (pe ProofError) Error() string {
	return fmt.Sprintf("proof token %s: %s", pe.tokenID, pe.cause)
}

// EscalationError indicates an attempt to delegate a capability the
// delegator does not hold.
type EscalationError struct {
	failure.NamedWithStackTrace
	issuer   did.DID
	resource ucan.Resource
	action   ucan.Action
}

func NewEscalationError(issuer did.DID, resource ucan.Resource, action ucan.Action) EscalationError {
	return EscalationError{failure.NamedWithCurrentStackTrace("Escalation"), issuer, resource, action}
}

func (ee EscalationError) Error() string {
	return fmt.Sprintf("%s does not hold %s#%s and cannot delegate it", ee.issuer, ee.resource, ee.action)
}
