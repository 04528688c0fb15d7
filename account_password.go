package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ForgotPassword asks for a reset mail to the account registered with email.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) (*Outcome, error) {
	email = NormalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email").
			WithTextCode(TextCodeInvalidRequest).
			WithCode(goerrors.CodeBadRequest)
	}

	if !s.resetLimit.Allow(email) {
		s.logger.Warn("password reset throttled for %s", email)
		return nil, ErrTooManyResets.Clone().WithMetadata(map[string]any{"email": email})
	}

	account, err := s.store.LoadByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	code, err := s.codes.ForgotPasswordCode(account)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventPasswordResetRequest, nil, account.ID, nil)

	return &Outcome{
		Account: account,
		Effects: []MailEvent{{
			Purpose:   MailForgotPassword,
			AccountID: account.ID,
			To:        account.Email,
			Code:      code,
		}},
	}, nil
}

// ResetPassword redeems a forgot-password code. The password change bumps the
// account's freshness, so the same code cannot be redeemed again.
func (s *AccountService) ResetPassword(ctx context.Context, code, newPassword string) (*Outcome, error) {
	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	var saved *Account
	err = s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.codes.ResolveForgotPassword(ctx, store, code)
		if err != nil {
			return err
		}

		s.freshness.ChangePassword(account, hash)

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventPasswordReset, nil, saved.ID, nil)
	return s.login(saved)
}

// ChangePasswordRequest is the input of AccountService.ChangePassword.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	Password    string `json:"password"`
}

// ChangePassword sets a new password on the account with id. OldPassword must
// match the password of the principal making the change, which is the owner
// or a good admin. Owners get a replacement auth token, since the change made
// their current one obsolete.
func (s *AccountService) ChangePassword(ctx context.Context, principal *Principal, id uuid.UUID, req ChangePasswordRequest) (*Outcome, error) {
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var saved *Account
	err = s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.loadEditable(ctx, store, principal, id)
		if err != nil {
			return err
		}

		actor := account
		if principal.ID != account.ID {
			if actor, err = store.LoadByID(ctx, principal.ID); err != nil {
				return err
			}
		}

		if err := s.checkPassword(actor, req.OldPassword); err != nil {
			return err
		}

		s.freshness.ChangePassword(account, hash)

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventPasswordChanged, principal, saved.ID, nil)

	if principal.ID != saved.ID {
		return &Outcome{Account: saved}, nil
	}
	return s.login(saved)
}
