package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// MinPasswordLength and MaxPasswordLength bound accepted passwords.
	MinPasswordLength = 6
	MaxPasswordLength = 50
)

// AccountService runs the account lifecycle on top of the token protocol.
// Each mutating call loads, checks, mutates, bumps and saves inside a single
// store transaction, then mints tokens and reports mail effects once the
// transaction committed.
type AccountService struct {
	store      AccountStore
	tokens     *TokenService
	codes      *VerificationCodeIssuer
	hasher     PasswordAuthenticator
	freshness  FreshnessPolicy
	activity   ActivitySink
	logger     Logger
	now        func() time.Time
	authTTL    time.Duration
	shortTTL   time.Duration
	resetLimit *resetThrottle
	useHashID  bool
}

// AccountServiceOption configures an AccountService.
type AccountServiceOption func(*AccountService)

// WithServiceClock sets the clock used for freshness stamps and throttling.
func WithServiceClock(now func() time.Time) AccountServiceOption {
	return func(s *AccountService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithServiceLogger overrides the logger used by the service.
func WithServiceLogger(logger Logger) AccountServiceOption {
	return func(s *AccountService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithActivitySink sets the sink used to emit account events.
func WithActivitySink(sink ActivitySink) AccountServiceOption {
	return func(s *AccountService) {
		s.activity = normalizeActivitySink(sink)
	}
}

// WithAuthTokenTTL sets the lifetime of login tokens.
func WithAuthTokenTTL(ttl time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		if ttl > 0 {
			s.authTTL = ttl
		}
	}
}

// WithShortLivedTTL sets the lifetime of full tokens and hand-off tokens.
func WithShortLivedTTL(ttl time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		if ttl > 0 {
			s.shortTTL = ttl
		}
	}
}

// WithResetLimit allows requests forgot-password calls per window for each
// email. Zero requests disables the throttle.
func WithResetLimit(requests int, window time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		s.resetLimit = newResetThrottle(requests, window, func() time.Time { return s.now() })
	}
}

// WithHashIDs derives new account ids from the signup email.
func WithHashIDs(enabled bool) AccountServiceOption {
	return func(s *AccountService) {
		s.useHashID = enabled
	}
}

// NewAccountService wires the account flows.
func NewAccountService(store AccountStore, tokens *TokenService, codes *VerificationCodeIssuer, hasher PasswordAuthenticator, opts ...AccountServiceOption) *AccountService {
	s := &AccountService{
		store:    store,
		tokens:   tokens,
		codes:    codes,
		hasher:   hasher,
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
		authTTL:  DefaultAuthTokenTTL,
		shortTTL: DefaultShortLivedTTL,
	}

	if s.codes == nil {
		s.codes = NewVerificationCodeIssuer(tokens)
	}

	if s.hasher == nil {
		s.hasher = NewBcryptHasher(0)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.freshness = NewFreshnessPolicy(func() time.Time { return s.now() })
	return s
}

// Freshness exposes the policy the service mutates accounts with.
func (s *AccountService) Freshness() FreshnessPolicy {
	return s.freshness
}

// AuthToken mints a login token for account that is not obsolete on arrival.
func (s *AccountService) AuthToken(account *Account) (string, error) {
	return s.authToken(account, s.authTTL)
}

func (s *AccountService) authToken(account *Account, ttl time.Duration) (string, error) {
	return s.tokens.IssueSince(AudienceAuth, account.ID.String(), ttl, nil,
		account.CredentialsFreshSinceMillis)
}

// login completes an outcome with a replacement auth token.
func (s *AccountService) login(account *Account, effects ...MailEvent) (*Outcome, error) {
	token, err := s.AuthToken(account)
	if err != nil {
		return nil, err
	}
	return &Outcome{Account: account, AuthToken: token, Effects: effects}, nil
}

func (s *AccountService) verifyEmailEffect(account *Account) (MailEvent, error) {
	code, err := s.codes.VerifyEmailCode(account)
	if err != nil {
		return MailEvent{}, err
	}
	return MailEvent{
		Purpose:   MailVerifyEmail,
		AccountID: account.ID,
		To:        account.Email,
		Code:      code,
	}, nil
}

func (s *AccountService) loadEditable(ctx context.Context, store AccountStore, principal *Principal, id uuid.UUID) (*Account, error) {
	if !principal.CanEdit(id) {
		return nil, forbidden(principal, id, "not the account owner or a good admin")
	}
	return store.LoadByID(ctx, id)
}

func (s *AccountService) checkPassword(account *Account, password string) error {
	return s.hasher.ComparePasswordAndHash(password, account.PasswordHash)
}

func (s *AccountService) hashPassword(password string) (string, error) {
	if err := validatePassword(password); err != nil {
		return "", err
	}
	return s.hasher.HashPassword(password)
}

func (s *AccountService) record(ctx context.Context, eventType ActivityEventType, actor *Principal, accountID uuid.UUID, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		AccountID:  accountID.String(),
		Metadata:   meta,
		OccurredAt: s.now(),
	}
	if actor != nil {
		event.ActorID = actor.ID.String()
	} else {
		event.ActorID = event.AccountID
	}

	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink error for %s: %v", eventType, err)
	}
}

func validatePassword(password string) error {
	err := validation.Validate(password,
		validation.Required,
		validation.Length(MinPasswordLength, MaxPasswordLength),
	)
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password").
		WithTextCode(TextCodeInvalidRequest).
		WithCode(goerrors.CodeBadRequest)
}

func forbidden(principal *Principal, id uuid.UUID, reason string) error {
	meta := map[string]any{
		"account_id": id.String(),
		"reason":     reason,
	}
	if principal != nil {
		meta["principal_id"] = principal.ID.String()
	}
	return ErrForbidden.Clone().WithMetadata(meta)
}
