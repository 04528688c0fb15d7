package auth

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// SignupRequest is the input of AccountService.Signup.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements validation.Validatable.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.EmailFormat),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, MaxPasswordLength)),
	)
}

// Signup creates an unverified account, logs it in and asks for a verify mail.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (*Outcome, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, goerrors.FromOzzoValidation(err, "invalid signup request").
			WithTextCode(TextCodeInvalidRequest)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Email:        req.Email,
		PasswordHash: hash,
		Roles:        NewRoles(RoleUnverified),
	}

	if s.useHashID {
		id, err := hashid.NewUUID(req.Email)
		if err != nil {
			s.logger.Warn("hashid failed for signup, using random id: %v", err)
		} else {
			account.ID = id
		}
	}

	var created *Account
	err = s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		s.freshness.Stamp(account)
		record, err := store.Create(ctx, account)
		if err != nil {
			return err
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEventSignup, nil, created.ID, map[string]any{"email": created.Email})

	effect, err := s.verifyEmailEffect(created)
	if err != nil {
		return nil, err
	}

	return s.login(created, effect)
}

// Login checks email and password and mints an auth token. Unknown emails and
// wrong passwords fail alike with ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Outcome, error) {
	account, err := s.store.LoadByEmail(ctx, email)
	if err != nil {
		if IsNotFoundError(err) {
			s.record(ctx, ActivityEventLoginFailure, nil, uuid.Nil, map[string]any{"email": NormalizeEmail(email)})
			return nil, withCause(ErrInvalidCredentials, err)
		}
		return nil, err
	}

	if err := s.checkPassword(account, password); err != nil {
		s.record(ctx, ActivityEventLoginFailure, nil, account.ID, nil)
		return nil, err
	}

	s.record(ctx, ActivityEventLoginSuccess, nil, account.ID, nil)
	return s.login(account)
}

// EnsureAdmin creates a verified admin with email unless an account with that
// email already exists. It returns the existing or created account.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password string) (*Account, bool, error) {
	email = NormalizeEmail(email)
	if err := validation.Validate(email, validation.Required, is.EmailFormat); err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid admin email").
			WithTextCode(TextCodeInvalidRequest).
			WithCode(goerrors.CodeBadRequest)
	}

	var (
		account *Account
		created bool
	)

	err := s.store.RunInTx(ctx, func(ctx context.Context, store AccountStore) error {
		existing, err := store.LoadByEmail(ctx, email)
		if err == nil {
			account = existing
			return nil
		}
		if !IsNotFoundError(err) {
			return err
		}

		hash, err := s.hashPassword(password)
		if err != nil {
			return err
		}

		admin := &Account{
			Email:        email,
			PasswordHash: hash,
			Roles:        NewRoles(RoleAdmin),
		}
		s.freshness.Stamp(admin)

		account, err = store.Create(ctx, admin)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("bootstrapped admin account %s", account.Email)
		s.record(ctx, ActivityEventAdminBootstrapped, nil, account.ID, map[string]any{"email": account.Email})
	}

	return account, created, nil
}
