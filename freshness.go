package auth

import (
	"time"
)

// FreshnessPolicy is the only place that moves an account's freshness watermark.
// Every mutator changes the account in memory and bumps the watermark in the same
// step; the caller persists both with a single optimistic save.
type FreshnessPolicy struct {
	now func() time.Time
}

// NewFreshnessPolicy returns a policy using now as its clock, time.Now when nil.
func NewFreshnessPolicy(now func() time.Time) FreshnessPolicy {
	return FreshnessPolicy{now: normalizeClock(now)}
}

// Bump moves the watermark one millisecond past both now and its previous
// value. Every token stamped at or before the current instant becomes obsolete.
func (p FreshnessPolicy) Bump(account *Account) int64 {
	now := millis(normalizeClock(p.now)())
	account.CredentialsFreshSinceMillis = max(now+1, account.CredentialsFreshSinceMillis+1)
	return account.CredentialsFreshSinceMillis
}

// Stamp sets the initial watermark of a new account.
func (p FreshnessPolicy) Stamp(account *Account) {
	account.CredentialsFreshSinceMillis = millis(normalizeClock(p.now)())
}

// ChangePassword stores the new hash and bumps.
func (p FreshnessPolicy) ChangePassword(account *Account, passwordHash string) {
	account.PasswordHash = passwordHash
	p.Bump(account)
}

// MarkVerified removes RoleUnverified and bumps. It reports false, leaving the
// account untouched, when the account was already verified.
func (p FreshnessPolicy) MarkVerified(account *Account) bool {
	if !account.Roles.Has(RoleUnverified) {
		return false
	}
	account.Roles = account.Roles.Without(RoleUnverified)
	p.Bump(account)
	return true
}

// MarkUnverified adds RoleUnverified and bumps. It reports false when the
// account was already unverified.
func (p FreshnessPolicy) MarkUnverified(account *Account) bool {
	if account.Roles.Has(RoleUnverified) {
		return false
	}
	account.Roles = account.Roles.With(RoleUnverified)
	p.Bump(account)
	return true
}

// ReplaceRoles sets roles, bumping only when RoleUnverified was toggled.
func (p FreshnessPolicy) ReplaceRoles(account *Account, roles Roles) (bumped bool) {
	roles = NewRoles(roles...)
	toggled := account.Roles.Has(RoleUnverified) != roles.Has(RoleUnverified)
	account.Roles = roles
	if toggled {
		p.Bump(account)
	}
	return toggled
}

// RequestEmailChange records a pending address. The live email is unchanged,
// so the watermark is not moved.
func (p FreshnessPolicy) RequestEmailChange(account *Account, newEmail string) {
	account.PendingNewEmail = newEmail
}

// ChangeEmail commits the new address, clears the pending request, marks the
// account verified and bumps.
func (p FreshnessPolicy) ChangeEmail(account *Account, newEmail string) {
	account.Email = newEmail
	account.PendingNewEmail = ""
	account.Roles = account.Roles.Without(RoleUnverified)
	p.Bump(account)
}
