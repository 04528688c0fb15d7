package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted record the token protocol protects.
type Account struct {
	bun.BaseModel               `bun:"table:accounts,alias:acc"`
	ID                          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Email                       string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash                string     `bun:"password_hash,notnull" json:"-"`
	Roles                       Roles      `bun:"roles" json:"roles"`
	PendingNewEmail             string     `bun:"pending_new_email" json:"pending_new_email,omitempty"`
	CredentialsFreshSinceMillis int64      `bun:"credentials_fresh_since,notnull" json:"credentials_fresh_since"`
	Version                     int64      `bun:"version,notnull" json:"-"`
	CreatedAt                   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt                   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func (a *Account) IsAdmin() bool { return a.Roles.IsAdmin() }

func (a *Account) IsVerified() bool { return !a.Roles.Has(RoleUnverified) }

// IsGoodUser is true when the account is verified and not blocked.
func (a *Account) IsGoodUser() bool { return a.Roles.IsGoodUser() }

// IsGoodAdmin is true for good users that are also admins.
func (a *Account) IsGoodAdmin() bool { return a.Roles.IsGoodAdmin() }

// HasPendingEmailChange reports whether an email change request is outstanding.
func (a *Account) HasPendingEmailChange() bool { return a.PendingNewEmail != "" }

// Clone returns a deep copy so callers can mutate without touching a loaded value.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Roles = NewRoles(a.Roles...)
	return &out
}

// NormalizeEmail lower cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
