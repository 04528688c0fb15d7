package auth

import (
	"slices"
	"strings"
)

// Role is a flag stored on an account. Absence of RoleUnverified means verified.
type Role string

const (
	// RoleUnverified marks an account whose email was never confirmed
	RoleUnverified Role = "UNVERIFIED"
	// RoleBlocked marks an account that may not act
	RoleBlocked Role = "BLOCKED"
	// RoleAdmin marks an administrator
	RoleAdmin Role = "ADMIN"
)

const (
	authorityPrefix = "ROLE_"

	// AuthorityGoodUser is granted to verified, unblocked accounts.
	AuthorityGoodUser = authorityPrefix + "GOOD_USER"
	// AuthorityGoodAdmin is granted to good users holding RoleAdmin.
	AuthorityGoodAdmin = authorityPrefix + "GOOD_ADMIN"
)

// IsValid checks if the role is one of the predefined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUnverified, RoleBlocked, RoleAdmin:
		return true
	default:
		return false
	}
}

// Authority returns the ROLE_ prefixed name of r.
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

// ParseRole parses a role name, accepting an optional ROLE_ prefix and any case.
func ParseRole(s string) (Role, bool) {
	s = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(s)), authorityPrefix)
	r := Role(s)
	return r, r.IsValid()
}

// Roles is a set of roles kept sorted and free of duplicates.
type Roles []Role

// NewRoles builds a normalized set from roles, dropping unknown values.
func NewRoles(roles ...Role) Roles {
	out := make(Roles, 0, len(roles))
	for _, r := range roles {
		if r.IsValid() && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

// Has reports whether r is in the set.
func (rs Roles) Has(r Role) bool {
	return slices.Contains(rs, r)
}

// With returns a copy of the set including r.
func (rs Roles) With(r Role) Roles {
	return NewRoles(append(slices.Clone(rs), r)...)
}

// Without returns a copy of the set excluding r.
func (rs Roles) Without(r Role) Roles {
	out := make(Roles, 0, len(rs))
	for _, existing := range rs {
		if existing != r {
			out = append(out, existing)
		}
	}
	return NewRoles(out...)
}

// Equal reports whether both sets hold the same roles.
func (rs Roles) Equal(other Roles) bool {
	return slices.Equal(NewRoles(rs...), NewRoles(other...))
}

func (rs Roles) IsAdmin() bool { return rs.Has(RoleAdmin) }

// IsGoodUser is true for verified accounts that are not blocked.
func (rs Roles) IsGoodUser() bool {
	return !rs.Has(RoleUnverified) && !rs.Has(RoleBlocked)
}

// IsGoodAdmin is true for good users holding the admin role.
func (rs Roles) IsGoodAdmin() bool {
	return rs.IsAdmin() && rs.IsGoodUser()
}

// Authorities lists ROLE_<role> for every role plus the computed good user and
// good admin authorities when they apply.
func (rs Roles) Authorities() []string {
	out := make([]string, 0, len(rs)+2)
	for _, r := range NewRoles(rs...) {
		out = append(out, r.Authority())
	}
	if rs.IsGoodUser() {
		out = append(out, AuthorityGoodUser)
	}
	if rs.IsGoodAdmin() {
		out = append(out, AuthorityGoodAdmin)
	}
	return out
}
