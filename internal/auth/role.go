package auth

import (
	"fmt"
	"strings"
)

// Role is a caller's permission level. Higher roles include lower ones.
type Role int

// Roles in ascending order of permission.
const (
	RoleNone Role = iota
	RoleRead
	RoleFull
	RoleAdmin
)

var roleNames = map[Role]string{
	RoleNone:  "None",
	RoleRead:  "Read",
	RoleFull:  "Full",
	RoleAdmin: "Admin",
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Allows reports whether r satisfies the required role.
func (r Role) Allows(required Role) bool {
	return r >= required
}

// ParseRole parses a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return role, nil
		}
	}
	return RoleNone, fmt.Errorf("unknown role %q (want None, Read, Full or Admin)", s)
}
