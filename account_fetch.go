package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionContext is what a client learns about its own session.
type SessionContext struct {
	Principal *Principal `json:"user,omitempty"`
	AuthToken string     `json:"-"`
}

// FetchAccountByID returns the account with id as principal may see it.
func (s *AccountService) FetchAccountByID(ctx context.Context, principal *Principal, id uuid.UUID) (*Account, error) {
	account, err := s.store.LoadByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return hideConfidentialFields(principal, account), nil
}

// FetchAccountByEmail returns the account registered with email as principal
// may see it.
func (s *AccountService) FetchAccountByEmail(ctx context.Context, principal *Principal, email string) (*Account, error) {
	email = NormalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email").
			WithTextCode(TextCodeInvalidRequest).
			WithCode(goerrors.CodeBadRequest)
	}

	account, err := s.store.LoadByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return hideConfidentialFields(principal, account), nil
}

// FetchContext describes the caller's session. An authenticated caller also
// gets a refreshed auth token valid for ttl, the auth token lifetime when zero.
func (s *AccountService) FetchContext(ctx context.Context, principal *Principal, ttl time.Duration) (*SessionContext, error) {
	if principal == nil {
		return &SessionContext{}, nil
	}

	account, err := s.store.LoadByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = s.authTTL
	}

	token, err := s.authToken(account, ttl)
	if err != nil {
		return nil, err
	}

	return &SessionContext{Principal: NewPrincipal(account), AuthToken: token}, nil
}

// hideConfidentialFields returns a copy of account without its password hash.
// Callers that may not edit the account also lose its email addresses.
func hideConfidentialFields(principal *Principal, account *Account) *Account {
	out := account.Clone()
	out.PasswordHash = ""
	if !principal.CanEdit(account.ID) {
		out.Email = ""
		out.PendingNewEmail = ""
	}
	return out
}
