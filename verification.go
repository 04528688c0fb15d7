package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountFinder resolves accounts for code redemption.
type AccountFinder interface {
	LoadByID(ctx context.Context, id uuid.UUID) (*Account, error)
	LoadByEmail(ctx context.Context, email string) (*Account, error)
}

// VerificationCodeIssuer mints one-time codes that carry the facts they verify,
// and resolves them back to the account they act on. No record of a code is
// ever stored.
type VerificationCodeIssuer struct {
	tokens *TokenService
	ttl    time.Duration
	logger Logger
}

// VerificationOption configures a VerificationCodeIssuer.
type VerificationOption func(*VerificationCodeIssuer)

// WithCodeTTL sets how long minted codes stay valid.
func WithCodeTTL(ttl time.Duration) VerificationOption {
	return func(v *VerificationCodeIssuer) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

// WithVerificationLogger sets the logger for rejected codes.
func WithVerificationLogger(logger Logger) VerificationOption {
	return func(v *VerificationCodeIssuer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerificationCodeIssuer creates an issuer on top of tokens.
func NewVerificationCodeIssuer(tokens *TokenService, opts ...VerificationOption) *VerificationCodeIssuer {
	v := &VerificationCodeIssuer{
		tokens: tokens,
		ttl:    DefaultCodeTTL,
		logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// VerifyEmailCode mints a verify code bound to the account's current email.
func (v *VerificationCodeIssuer) VerifyEmailCode(account *Account) (string, error) {
	return v.tokens.IssueSince(AudienceVerify, account.ID.String(), v.ttl, map[string]any{
		ClaimEmail: account.Email,
	}, account.CredentialsFreshSinceMillis)
}

// ForgotPasswordCode mints a reset code whose subject is the account email.
func (v *VerificationCodeIssuer) ForgotPasswordCode(account *Account) (string, error) {
	return v.tokens.IssueSince(AudienceForgotPassword, account.Email, v.ttl, nil,
		account.CredentialsFreshSinceMillis)
}

// ChangeEmailCode mints a change-email code for the account's pending address.
func (v *VerificationCodeIssuer) ChangeEmailCode(account *Account) (string, error) {
	if !account.HasPendingEmailChange() {
		return "", ErrAlreadyDone.Clone().WithMetadata(map[string]any{
			"reason": "no pending email change",
		})
	}
	return v.tokens.IssueSince(AudienceChangeEmail, account.ID.String(), v.ttl, map[string]any{
		ClaimNewEmail: account.PendingNewEmail,
	}, account.CredentialsFreshSinceMillis)
}

// ResolveVerifyEmail returns the account a verify code may mark verified.
// An already verified account is reported as ErrAlreadyDone before the code's
// freshness is considered.
func (v *VerificationCodeIssuer) ResolveVerifyEmail(ctx context.Context, accounts AccountFinder, code string) (*Account, error) {
	claims, err := v.tokens.validate(code, AudienceVerify)
	if err != nil {
		return nil, v.invalid(AudienceVerify, err)
	}

	account, err := v.loadSubject(ctx, accounts, claims)
	if err != nil {
		return nil, err
	}

	if account.IsVerified() {
		return nil, ErrAlreadyDone.Clone().WithMetadata(map[string]any{
			"account_id": account.ID.String(),
			"reason":     "already verified",
		})
	}

	if err := v.tokens.CheckFreshness(claims, account.CredentialsFreshSinceMillis); err != nil {
		return nil, v.invalid(AudienceVerify, err)
	}

	if claims.String(ClaimEmail) != account.Email {
		return nil, v.invalid(AudienceVerify, ErrIntegrity.Clone().WithMetadata(map[string]any{
			"reason": "email changed since code was issued",
		}))
	}

	v.tokens.observer.TokenValidated(AudienceVerify, OutcomeValid)
	return account, nil
}

// ResolveForgotPassword returns the account a reset code may change the password of.
// A code issued before the account's last credential change is rejected, which
// makes a redeemed code unusable a second time.
func (v *VerificationCodeIssuer) ResolveForgotPassword(ctx context.Context, accounts AccountFinder, code string) (*Account, error) {
	claims, err := v.tokens.validate(code, AudienceForgotPassword)
	if err != nil {
		return nil, v.invalid(AudienceForgotPassword, err)
	}

	account, err := accounts.LoadByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	if err := v.tokens.CheckFreshness(claims, account.CredentialsFreshSinceMillis); err != nil {
		return nil, v.invalid(AudienceForgotPassword, err)
	}

	v.tokens.observer.TokenValidated(AudienceForgotPassword, OutcomeValid)
	return account, nil
}

// ResolveChangeEmail returns the account and the address a change-email code may
// switch it to. Only the code for the current pending request is accepted and the
// address must still be free.
func (v *VerificationCodeIssuer) ResolveChangeEmail(ctx context.Context, accounts AccountFinder, code string) (*Account, string, error) {
	claims, err := v.tokens.validate(code, AudienceChangeEmail)
	if err != nil {
		return nil, "", v.invalid(AudienceChangeEmail, err)
	}

	account, err := v.loadSubject(ctx, accounts, claims)
	if err != nil {
		return nil, "", err
	}

	if !account.HasPendingEmailChange() {
		return nil, "", ErrAlreadyDone.Clone().WithMetadata(map[string]any{
			"account_id": account.ID.String(),
			"reason":     "no pending email change",
		})
	}

	if err := v.tokens.CheckFreshness(claims, account.CredentialsFreshSinceMillis); err != nil {
		return nil, "", v.invalid(AudienceChangeEmail, err)
	}

	newEmail := claims.String(ClaimNewEmail)
	if newEmail == "" || newEmail != account.PendingNewEmail {
		return nil, "", v.invalid(AudienceChangeEmail, ErrIntegrity.Clone().WithMetadata(map[string]any{
			"reason": "code does not match the pending email change",
		}))
	}

	owner, err := accounts.LoadByEmail(ctx, newEmail)
	switch {
	case err == nil && owner.ID != account.ID:
		return nil, "", ErrConflict.Clone().WithMetadata(map[string]any{
			"email": newEmail,
		})
	case err != nil && !IsNotFoundError(err):
		return nil, "", err
	}

	v.tokens.observer.TokenValidated(AudienceChangeEmail, OutcomeValid)
	return account, newEmail, nil
}

func (v *VerificationCodeIssuer) loadSubject(ctx context.Context, accounts AccountFinder, claims Claims) (*Account, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, v.invalid(claims.Audience, integrityFailure(err))
	}
	return accounts.LoadByID(ctx, id)
}

// invalid collapses a token failure into ErrInvalidCode, keeping the cause for logs.
func (v *VerificationCodeIssuer) invalid(aud Audience, cause error) error {
	v.logger.Info("rejected %s code: %v", aud, cause)
	return withCause(ErrInvalidCode, cause)
}
