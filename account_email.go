package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResendVerification asks for another verify mail for the account with id.
func (s *AccountService) ResendVerification(ctx context.Context, principal *Principal, id uuid.UUID) (*Outcome, error) {
	account, err := s.loadEditable(ctx, s.store, principal, id)
	if err != nil {
		return nil, err
	}

	if account.IsVerified() {
		return nil, ErrAlreadyDone.Clone().WithMetadata(map[string]any{
			"account_id": account.ID.String(),
			"reason":     "already verified",
		})
	}

	effect, err := s.verifyEmailEffect(account)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventVerificationResent, principal, account.ID, nil)
	return &Outcome{Account: account, Effects: []MailEvent{effect}}, nil
}

// VerifyEmail redeems a verify code and logs the account in again, since
// dropping UNVERIFIED made its previous tokens obsolete.
func (s *AccountService) VerifyEmail(ctx context.Context, code string) (*Outcome, error) {
	var saved *Account
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.codes.ResolveVerifyEmail(ctx, store, code)
		if err != nil {
			return err
		}

		if !s.freshness.MarkVerified(account) {
			return ErrAlreadyDone.Clone()
		}

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventEmailVerified, nil, saved.ID, map[string]any{"email": saved.Email})
	return s.login(saved)
}

// EmailChangeRequest is the input of AccountService.RequestEmailChange.
type EmailChangeRequest struct {
	NewEmail string `json:"new_email"`
	Password string `json:"password"`
}

// Validate implements validation.Validatable.
func (r EmailChangeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.NewEmail, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

// RequestEmailChange records NewEmail as pending for the account with id and
// asks for a change-email mail to the new address. The live email and the
// freshness watermark are left alone until the code is redeemed.
func (s *AccountService) RequestEmailChange(ctx context.Context, principal *Principal, id uuid.UUID, req EmailChangeRequest) (*Outcome, error) {
	req.NewEmail = NormalizeEmail(req.NewEmail)
	if err := req.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid email change request").
			WithTextCode(TextCodeInvalidRequest)
	}

	var saved *Account
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, err := s.loadEditable(ctx, store, principal, id)
		if err != nil {
			return err
		}

		if err := s.checkPassword(account, req.Password); err != nil {
			return err
		}

		if err := ensureEmailFree(ctx, store, req.NewEmail); err != nil {
			return err
		}

		s.freshness.RequestEmailChange(account, req.NewEmail)

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	code, err := s.codes.ChangeEmailCode(saved)
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventEmailChangeRequested, principal, saved.ID, map[string]any{
		"new_email": saved.PendingNewEmail,
	})

	return &Outcome{
		Account: saved,
		Effects: []MailEvent{{
			Purpose:   MailChangeEmail,
			AccountID: saved.ID,
			To:        saved.PendingNewEmail,
			Code:      code,
		}},
	}, nil
}

// ChangeEmail redeems a change-email code. Only the account the code was minted
// for may redeem it.
func (s *AccountService) ChangeEmail(ctx context.Context, principal *Principal, code string) (*Outcome, error) {
	if principal == nil {
		return nil, ErrAuthenticationFailed.Clone()
	}

	var (
		saved    *Account
		previous string
	)
	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		account, newEmail, err := s.codes.ResolveChangeEmail(ctx, store, code)
		if err != nil {
			return err
		}

		if account.ID != principal.ID {
			return forbidden(principal, account.ID, "change-email code belongs to another account")
		}

		previous = account.Email
		s.freshness.ChangeEmail(account, newEmail)

		saved, err = store.Save(ctx, account)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventEmailChanged, principal, saved.ID, map[string]any{
		"previous_email": previous,
		"email":          saved.Email,
	})
	return s.login(saved)
}

func ensureEmailFree(ctx context.Context, store AccountStore, email string) error {
	_, err := store.LoadByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrConflict.Clone().WithMetadata(map[string]any{"email": email})
	case IsNotFoundError(err):
		return nil
	default:
		return err
	}
}
