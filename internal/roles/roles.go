// Package roles implements the authorization lattice for list memberships.
// Every comparison goes through the numeric levels; the one deliberate
// exception is IsOwner, which is exact equality so that an Admin is never
// treated as owner-equivalent.
package roles

import "strings"

type Role string

const (
	Owner     Role = "Owner"
	Admin     Role = "Admin"
	Editor    Role = "Editor"
	Viewer    Role = "Viewer"
	Temporary Role = "Temporary"
)

var levels = map[Role]int{
	Owner:     4,
	Admin:     3,
	Editor:    2,
	Viewer:    1,
	Temporary: 0,
}

// All returns every role, highest level first.
func All() []Role {
	return []Role{Owner, Admin, Editor, Viewer, Temporary}
}

func Level(role Role) (int, bool) {
	level, ok := levels[role]
	return level, ok
}

func Valid(role Role) bool {
	_, ok := levels[role]
	return ok
}

// Parse resolves a role name case-insensitively. The original data layer
// stored lowercase role names, so boundaries normalize through here.
func Parse(value string) (Role, bool) {
	trimmed := strings.TrimSpace(value)
	for role := range levels {
		if strings.EqualFold(string(role), trimmed) {
			return role, true
		}
	}
	return "", false
}

// HasPermission reports whether role is at least as privileged as required.
// Unknown roles never grant anything.
func HasPermission(role, required Role) bool {
	roleLevel, ok := levels[role]
	if !ok {
		return false
	}
	requiredLevel, ok := levels[required]
	if !ok {
		return false
	}
	return roleLevel >= requiredLevel
}

// IsOwner is exact equality, not a level comparison.
func IsOwner(role Role) bool {
	return role == Owner
}

func CanManageUsers(role Role) bool {
	return HasPermission(role, Admin)
}

func CanEdit(role Role) bool {
	return HasPermission(role, Editor)
}

func CanView(role Role) bool {
	return HasPermission(role, Viewer)
}

// LowerRoles returns every role strictly below the given one, highest
// first. A manager who is not the owner may only grant roles from this set.
func LowerRoles(role Role) []Role {
	level, ok := levels[role]
	if !ok {
		return nil
	}
	var lower []Role
	for _, candidate := range All() {
		if levels[candidate] < level {
			lower = append(lower, candidate)
		}
	}
	return lower
}

// AssignableRoles returns the roles an actor may assign to a target member,
// and whether the target's role control is locked entirely. The owner may
// assign anything to anyone. A non-owner may not touch a target that already
// holds Owner or Admin, and may otherwise only grant roles below their own.
func AssignableRoles(actor, target Role) ([]Role, bool) {
	if IsOwner(actor) {
		return All(), false
	}
	if target == Owner || target == Admin {
		return nil, true
	}
	return LowerRoles(actor), false
}
