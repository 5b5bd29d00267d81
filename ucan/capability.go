package ucan

import (
	"fmt"
)

// Caveats are named restrictions attached to a capability. They are carried
// and persisted verbatim; enforcement is up to the component interpreting
// them.
type Caveats map[string]any

// Capability is a value object describing an action permitted on a resource.
// It only has meaning inside a Token.
type Capability struct {
	Resource Resource `json:"resource"`
	Action   Action   `json:"action"`
	Caveats  Caveats  `json:"caveats,omitempty"`
}

func NewCapability(resource Resource, action Action, caveats Caveats) Capability {
	return Capability{Resource: resource, Action: action, Caveats: caveats}
}

// Grants reports whether this capability permits the given action on the
// given resource. Wildcards on either side of the stored capability match:
// exact/exact, wildcard-resource/exact, exact/wildcard-action and
// wildcard/wildcard are all checked.
func (c Capability) Grants(resource Resource, action Action) bool {
	resourceOK := c.Resource == resource || c.Resource == Wildcard
	actionOK := c.Action == action || c.Action == Wildcard
	return resourceOK && actionOK
}

func (c Capability) String() string {
	return fmt.Sprintf("%s#%s", c.Resource, c.Action)
}
