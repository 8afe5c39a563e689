// Package roles defines the closed set of LMS roles and the capability table
// used to gate routes.
package roles

import (
	"fmt"
	"strings"
)

// Role is one of the fixed LMS roles.
type Role string

const (
	Admin      Role = "Admin"
	Instructor Role = "Instructor"
	Student    Role = "Student"
)

// All lists every role in seed order.
func All() []Role {
	return []Role{Admin, Instructor, Student}
}

// Descriptions are stored alongside seeded role rows.
var descriptions = map[Role]string{
	Admin:      "Platform administrator",
	Instructor: "Course author, active once approved",
	Student:    "Learner enrolled in courses",
}

// Description returns a human readable summary for the role.
func (r Role) Description() string {
	return descriptions[r]
}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r belongs to the fixed role set.
func (r Role) Valid() bool {
	_, ok := descriptions[r]
	return ok
}

// RequiresApproval reports whether identities registering with r start unapproved.
func (r Role) RequiresApproval() bool {
	return r == Instructor
}

// Parse resolves a role name case-insensitively.
func Parse(name string) (Role, error) {
	name = strings.TrimSpace(name)
	for _, r := range All() {
		if strings.EqualFold(name, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("roles: unknown role %q", name)
}

// Names converts roles to their string form.
func Names(rs []Role) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, string(r))
	}
	return out
}
