package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ClaimUser carries a serialized principal in full tokens.
const ClaimUser = "user"

// UpdateRoles replaces the roles of the account with id. Only a good admin may
// do it, and never on their own account. Toggling UNVERIFIED bumps freshness;
// making an account unverified asks for a new verify mail.
func (s *AccountService) UpdateRoles(ctx context.Context, principal *Principal, id uuid.UUID, roles Roles) (*Outcome, error) {
	if !principal.CanEditRoles(id) {
		return nil, forbidden(principal, id, "roles can only be changed by another good admin")
	}

	var (
		saved      *Account
		unverified bool
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := store.LoadByID(ctx, id)
		if err != nil {
			return err
		}

		next := NewRoles(roles...)
		if account.Roles.Equal(next) {
			saved = account
			return nil
		}

		unverified = !account.Roles.Has(RoleUnverified) && next.Has(RoleUnverified)
		s.freshness.ReplaceRoles(account, next)

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventRolesUpdated, principal, saved.ID, map[string]any{
		"roles": saved.Roles.Authorities(),
	})

	out := &Outcome{Account: saved}
	if unverified {
		effect, err := s.verifyEmailEffect(saved)
		if err != nil {
			return nil, err
		}
		out.Effects = append(out.Effects, effect)
	}
	return out, nil
}

// FetchNewToken mints an auth token for the account registered with email,
// which must be the principal's own or the principal must be a good admin.
// A zero ttl means the auth token lifetime.
func (s *AccountService) FetchNewToken(ctx context.Context, principal *Principal, email string, ttl time.Duration) (string, error) {
	if principal == nil {
		return "", ErrAuthenticationFailed.Clone()
	}

	if email == "" {
		email = principal.Username
	}

	account, err := s.store.LoadByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	if account.ID != principal.ID && !principal.IsGoodAdmin() {
		return "", forbidden(principal, account.ID, "not the account owner or a good admin")
	}

	if ttl <= 0 {
		ttl = s.authTTL
	}

	token, err := s.authToken(account, ttl)
	if err != nil {
		return "", err
	}

	s.record(ctx, ActivityEventTokenFetched, principal, account.ID, map[string]any{
		"ttl_ms": ttl.Milliseconds(),
	})
	return token, nil
}

// FetchFullToken mints a short lived auth token that also carries the
// principal. A token that already carries one cannot be exchanged again.
func (s *AccountService) FetchFullToken(ctx context.Context, authn Authentication) (string, error) {
	if !authn.IsAuthenticated() {
		return "", ErrAuthenticationFailed.Clone()
	}

	if _, ok := authn.Claims.Extra[ClaimUser]; ok {
		return "", forbidden(authn.Principal, authn.Principal.ID, "full token cannot be exchanged")
	}

	p := authn.Principal
	token, err := s.tokens.IssueSince(AudienceAuth, p.ID.String(), s.shortTTL, map[string]any{
		ClaimUser: map[string]any{
			"id":          p.ID.String(),
			"username":    p.Username,
			"authorities": p.Authorities,
		},
	}, authn.Claims.IssuedAtMillis)
	if err != nil {
		return "", err
	}

	s.record(ctx, ActivityEventTokenFetched, p, p.ID, map[string]any{
		"ttl_ms": s.shortTTL.Milliseconds(),
		"full":   true,
	})
	return token, nil
}
