package auth

import (
	"slices"

	"github.com/google/uuid"
)

// Principal is the authenticated caller handed to the authorization layer.
type Principal struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Roles       Roles     `json:"roles"`
	Authorities []string  `json:"authorities"`
}

// NewPrincipal builds a principal from the account's current state.
func NewPrincipal(account *Account) *Principal {
	roles := NewRoles(account.Roles...)
	return &Principal{
		ID:          account.ID,
		Username:    account.Email,
		Roles:       roles,
		Authorities: roles.Authorities(),
	}
}

func (p *Principal) HasAuthority(authority string) bool {
	return p != nil && slices.Contains(p.Authorities, authority)
}

func (p *Principal) IsGoodUser() bool { return p != nil && p.Roles.IsGoodUser() }

func (p *Principal) IsGoodAdmin() bool { return p != nil && p.Roles.IsGoodAdmin() }

// CanEdit reports whether the principal may modify the account with id: its
// owner or a good admin.
func (p *Principal) CanEdit(id uuid.UUID) bool {
	if p == nil {
		return false
	}
	return p.ID == id || p.IsGoodAdmin()
}

// CanEditRoles reports whether the principal may change the roles of id.
// Only good admins may, and never their own.
func (p *Principal) CanEditRoles(id uuid.UUID) bool {
	return p.IsGoodAdmin() && p.ID != id
}
