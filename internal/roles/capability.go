package roles

// Capability names the role requirement attached to a route.
type Capability string

const (
	Authenticated  Capability = "authenticated"
	AdminOnly      Capability = "admin"
	InstructorOnly Capability = "instructor"
	StudentOnly    Capability = "student"
	Staff          Capability = "staff"
)

// capabilityTable maps each capability to the roles satisfying it. A nil entry
// means any authenticated identity qualifies.
var capabilityTable = map[Capability][]Role{
	Authenticated:  nil,
	AdminOnly:      {Admin},
	InstructorOnly: {Instructor},
	StudentOnly:    {Student},
	Staff:          {Admin, Instructor},
}

// Known reports whether c is present in the capability table.
func (c Capability) Known() bool {
	_, ok := capabilityTable[c]
	return ok
}

// AllowedRoles returns the roles satisfying c.
func (c Capability) AllowedRoles() []Role {
	allowed := capabilityTable[c]
	out := make([]Role, len(allowed))
	copy(out, allowed)
	return out
}

// Allows reports whether any of the given role names satisfies c. Unknown
// capabilities never allow access.
func (c Capability) Allows(roleNames []string) bool {
	allowed, ok := capabilityTable[c]
	if !ok {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, name := range roleNames {
		for _, r := range allowed {
			if name == string(r) {
				return true
			}
		}
	}
	return false
}
