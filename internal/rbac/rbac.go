// Package rbac defines workspace roles and what each may do.
//
// Roles are ordered: owner > editor > viewer. Every precedence decision in
// the code base goes through Compare (or AtLeast) so the ordering lives in
// exactly one place.
package rbac

import "strings"

type Role string
type Action string

const (
	RoleNone   Role = ""
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleOwner  Role = "owner"
)

const (
	ActionRead         Action = "read"
	ActionWrite        Action = "write"
	ActionManageMember Action = "manage_members"
	ActionDelete       Action = "delete_workspace"
)

func rank(r Role) int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Compare returns -1, 0 or 1 as a is weaker than, equal to, or stronger than b.
// Unknown roles rank below viewer.
func Compare(a, b Role) int {
	ra, rb := rank(a), rank(b)
	switch {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether r grants at least the authority of min.
func AtLeast(r, min Role) bool {
	return r.Valid() && Compare(r, min) >= 0
}

func (r Role) Valid() bool {
	return rank(r) > 0
}

func (r Role) String() string {
	return string(r)
}

// Parse maps a stored or user-supplied role string to a Role. It returns
// false for anything that is not one of the three known roles.
func Parse(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return RoleNone, false
	}
	return r, true
}

// ParseMemberRole accepts only roles that may be granted through a
// membership row. Owner authority comes from the workspace record.
func ParseMemberRole(s string) (Role, bool) {
	r, ok := Parse(s)
	if !ok || r == RoleOwner {
		return RoleNone, false
	}
	return r, true
}

// EffectiveMemberRole is the authority a stored membership row confers.
// Owner authority comes only from the workspace record, so a row claiming
// owner is capped to editor. Unknown roles confer nothing.
func EffectiveMemberRole(stored Role) (Role, bool) {
	r, ok := Parse(string(stored))
	if !ok {
		return RoleNone, false
	}
	if r == RoleOwner {
		return RoleEditor, true
	}
	return r, true
}

// Required returns the weakest role allowed to perform action.
func Required(action Action) Role {
	switch action {
	case ActionRead:
		return RoleViewer
	case ActionWrite:
		return RoleEditor
	case ActionManageMember, ActionDelete:
		return RoleOwner
	default:
		return RoleOwner
	}
}

func Can(role Role, action Action) bool {
	return AtLeast(role, Required(action))
}
