package auth

import (
	"fmt"
	"strings"
)

// Role is a position in the authority hierarchy. Higher values carry more
// authority; the zero value is an unknown role that is granted nothing.
type Role int

const (
	RoleUnknown Role = iota
	RoleUser
	RoleAdmin
	RoleOwner
	RoleSuperAdmin
)

var roleNames = map[Role]string{
	RoleUser:       "USER",
	RoleAdmin:      "ADMIN",
	RoleOwner:      "OWNER",
	RoleSuperAdmin: "SUPER_ADMIN",
}

// Roles lists the known roles from least to most authority.
var Roles = []Role{RoleUser, RoleAdmin, RoleOwner, RoleSuperAdmin}

// ParseRole resolves the textual role name. Unknown names yield RoleUnknown and false.
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for role, name := range roleNames {
		if name == s {
			return role, true
		}
	}
	return RoleUnknown, false
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// AtLeast reports whether r carries at least the authority of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && other.Valid() && r >= other
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: unknown role %d", ErrInvalidInput, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, ok := ParseRole(string(text))
	if !ok {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, string(text))
	}
	*r = role
	return nil
}
