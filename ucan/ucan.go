// Package ucan defines the capability token data model: capabilities bound to
// resources and actions, signed delegatable tokens, revocations and the
// keypair records the authority persists.
package ucan

import (
	"github.com/keywarden/go-keywarden/did"
)

// Resource is a string naming the thing a token holder can act upon, such as
// an encryption key id. The wildcard "*" matches any resource.
type Resource = string

// Action is a string naming an operation a token holder can perform on a
// resource. Actions come from a fixed vocabulary, plus the wildcard "*".
type Action = string

const (
	ActionEncrypt  Action = "encrypt"
	ActionDecrypt  Action = "decrypt"
	ActionDelegate Action = "delegate"
	ActionRevoke   Action = "revoke"
	ActionManage   Action = "manage"
)

// Wildcard matches any action or any resource.
const Wildcard = "*"

// ResourceAll is the wildcard resource.
const ResourceAll Resource = Wildcard

// ActionAll is the wildcard action.
const ActionAll Action = Wildcard

var actions = map[Action]struct{}{
	ActionEncrypt:  {},
	ActionDecrypt:  {},
	ActionDelegate: {},
	ActionRevoke:   {},
	ActionManage:   {},
	ActionAll:      {},
}

// ValidAction reports whether the action is part of the fixed vocabulary.
func ValidAction(a Action) bool {
	_, ok := actions[a]
	return ok
}

// Principal is a DID object representation with a `DID` accessor.
type Principal interface {
	DID() did.DID
}

// UTCUnixTimestamp is a timestamp in seconds since the Unix epoch.
type UTCUnixTimestamp = uint64
