package domain

import (
	"strings"
	"time"
)

// Role enumerates staff roles carried in session claims.
type Role string

const (
	RoleCashier    Role = "cashier"
	RoleGuard      Role = "guard"
	RoleSuperAdmin Role = "superadmin"
	RoleKaizen     Role = "kaizen"
)

// ParseRole normalizes a role name, reporting whether it is known.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleCashier, RoleGuard, RoleSuperAdmin, RoleKaizen:
		return role, true
	}
	return "", false
}

// BranchScoped reports whether the role is bound to a branch and its operating hours.
func (r Role) BranchScoped() bool {
	return r == RoleCashier || r == RoleGuard
}

// Admin reports whether the role manages branches and users.
func (r Role) Admin() bool {
	return r == RoleSuperAdmin || r == RoleKaizen
}

// Session records an issued access token so branch deletion can see who is signed in.
type Session struct {
	ID        string
	UserID    int64
	Role      Role
	BranchID  *int64
	ExpiresAt time.Time
}
