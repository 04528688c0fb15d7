package auth

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// TokenService mints and validates audience scoped tokens.
type TokenService struct {
	codec    *Codec
	now      func() time.Time
	logger   Logger
	observer ValidationObserver
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithTokenClock overrides the clock used for issue and expiry times.
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger used to report individual validation failures.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// WithValidationObserver registers an observer for issuance and validation outcomes.
func WithValidationObserver(observer ValidationObserver) TokenServiceOption {
	return func(ts *TokenService) {
		ts.observer = normalizeObserver(observer)
	}
}

// NewTokenService creates a TokenService keyed by secret. It fails with
// ErrConfiguration when the secret is shorter than MinSecretLength.
func NewTokenService(secret []byte, opts ...TokenServiceOption) (*TokenService, error) {
	codec, err := NewCodec(secret)
	if err != nil {
		return nil, err
	}

	ts := &TokenService{
		codec:    codec,
		now:      time.Now,
		logger:   defLogger{},
		observer: noopObserver{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

// ModeFor returns the codec mode tokens for aud are protected with.
// Login tokens are only signed; every one-time code is also encrypted.
func ModeFor(aud Audience) Mode {
	if aud == AudienceAuth {
		return SignOnly
	}
	return SignAndEncrypt
}

// Issue mints a token for aud and subject valid for ttl.
func (ts *TokenService) Issue(aud Audience, subject string, ttl time.Duration, extra map[string]any) (string, error) {
	return ts.IssueSince(aud, subject, ttl, extra, 0)
}

// IssueSince mints a token whose issue time is never before notBeforeMillis.
// Tokens minted right after a freshness bump use it so they are not born obsolete.
func (ts *TokenService) IssueSince(aud Audience, subject string, ttl time.Duration, extra map[string]any, notBeforeMillis int64) (string, error) {
	if aud == "" {
		return "", invalidIssueRequest("audience is required")
	}

	if subject == "" {
		return "", invalidIssueRequest("subject is required")
	}

	if ttl.Milliseconds() <= 0 {
		return "", invalidIssueRequest("ttl must be positive")
	}

	if err := guardExtraClaims(extra); err != nil {
		return "", err
	}

	now := millis(ts.now())
	issuedAt := max(now, notBeforeMillis)

	claims := Claims{
		Audience:        aud,
		Subject:         subject,
		IssuedAtMillis:  issuedAt,
		ExpiresAtMillis: now + ttl.Milliseconds(),
		Extra:           extra,
	}

	token, err := ts.codec.Encode(ModeFor(aud), claims.toMap())
	if err != nil {
		return "", err
	}

	ts.observer.TokenIssued(aud)
	return token, nil
}

// Validate decodes token and checks its audience and expiry.
func (ts *TokenService) Validate(token string, expected Audience) (Claims, error) {
	claims, err := ts.validate(token, expected)
	if err != nil {
		return Claims{}, err
	}
	ts.observer.TokenValidated(expected, OutcomeValid)
	return claims, nil
}

// ValidateFresh is Validate plus a rejection of tokens issued before notIssuedBeforeMillis.
// It suits callers that know the watermark before reading the token. Callers that
// must resolve the subject first use Validate and then CheckFreshness.
func (ts *TokenService) ValidateFresh(token string, expected Audience, notIssuedBeforeMillis int64) (Claims, error) {
	claims, err := ts.validate(token, expected)
	if err != nil {
		return Claims{}, err
	}

	if err := ts.CheckFreshness(claims, notIssuedBeforeMillis); err != nil {
		return Claims{}, err
	}

	ts.observer.TokenValidated(expected, OutcomeValid)
	return claims, nil
}

// CheckFreshness rejects claims issued before notIssuedBeforeMillis with ErrObsolete.
// It is the second step for callers that must read the subject before they can
// look up the watermark.
func (ts *TokenService) CheckFreshness(claims Claims, notIssuedBeforeMillis int64) error {
	if claims.IssuedAtMillis >= notIssuedBeforeMillis {
		return nil
	}

	ts.observer.TokenValidated(claims.Audience, OutcomeObsolete)
	ts.logger.Debug("token for %s issued at %d is older than %d",
		claims.Audience, claims.IssuedAtMillis, notIssuedBeforeMillis)

	return ErrObsolete.Clone().WithMetadata(map[string]any{
		"audience":          string(claims.Audience),
		"issued_at":         claims.IssuedAtMillis,
		"not_issued_before": notIssuedBeforeMillis,
	})
}

// Inspect decodes token without audience, expiry or freshness checks.
func (ts *TokenService) Inspect(token string) (Mode, Claims, error) {
	mode, raw, err := ts.codec.Decode(token)
	if err != nil {
		return 0, Claims{}, err
	}

	claims, err := claimsFromMap(raw)
	if err != nil {
		return 0, Claims{}, integrityFailure(err)
	}

	return mode, claims, nil
}

func (ts *TokenService) validate(token string, expected Audience) (Claims, error) {
	mode, claims, err := ts.Inspect(token)
	if err != nil {
		ts.observer.TokenValidated(expected, OutcomeIntegrity)
		ts.logger.Debug("token for %s failed integrity check: %v", expected, err)
		return Claims{}, err
	}

	if claims.Audience != expected {
		ts.observer.TokenValidated(expected, OutcomeWrongAudience)
		ts.logger.Debug("token for %s presented where %s was expected", claims.Audience, expected)
		return Claims{}, ErrWrongAudience.Clone().WithMetadata(map[string]any{
			"expected": string(expected),
			"actual":   string(claims.Audience),
		})
	}

	if mode != ModeFor(expected) {
		ts.observer.TokenValidated(expected, OutcomeIntegrity)
		ts.logger.Warn("token for %s used %s protection", expected, mode)
		return Claims{}, integrityFailure(nil)
	}

	now := millis(ts.now())
	if now > claims.ExpiresAtMillis {
		ts.observer.TokenValidated(expected, OutcomeExpired)
		ts.logger.Debug("token for %s expired at %d, now %d", expected, claims.ExpiresAtMillis, now)
		return Claims{}, ErrExpired.Clone().WithMetadata(map[string]any{
			"audience":   string(expected),
			"expired_at": claims.ExpiresAtMillis,
		})
	}

	return claims, nil
}

func invalidIssueRequest(reason string) error {
	return goerrors.New(reason, goerrors.CategoryBadInput).
		WithTextCode(TextCodeInvalidRequest).
		WithCode(goerrors.CodeBadRequest)
}
