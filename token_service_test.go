package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-stateless-auth"
)

func TestNewTokenService(t *testing.T) {
	ts, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)
	assert.NotNil(t, ts)

	_, err = auth.NewTokenService(testSecret[:auth.MinSecretLength-1])
	assert.True(t, auth.IsConfigurationError(err))
}

func TestModeFor(t *testing.T) {
	assert.Equal(t, auth.SignOnly, auth.ModeFor(auth.AudienceAuth))
	assert.Equal(t, auth.SignAndEncrypt, auth.ModeFor(auth.AudienceVerify))
	assert.Equal(t, auth.SignAndEncrypt, auth.ModeFor(auth.AudienceForgotPassword))
	assert.Equal(t, auth.SignAndEncrypt, auth.ModeFor(auth.AudienceChangeEmail))
}

func TestTokenService_IssueAndValidate(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)

	token, err := ts.Issue(auth.AudienceVerify, "subject-1", time.Hour, map[string]any{
		auth.ClaimEmail: "a@example.com",
	})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 5)

	claims, err := ts.Validate(token, auth.AudienceVerify)
	require.NoError(t, err)
	assert.Equal(t, auth.AudienceVerify, claims.Audience)
	assert.Equal(t, "subject-1", claims.Subject)
	assert.Equal(t, clock.Now().UnixMilli(), claims.IssuedAtMillis)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), claims.ExpiresAtMillis)
	assert.Equal(t, "a@example.com", claims.String(auth.ClaimEmail))

	login, err := ts.Issue(auth.AudienceAuth, "subject-1", time.Hour, nil)
	require.NoError(t, err)
	assert.Len(t, strings.Split(login, "."), 3)
}

func TestTokenService_IssueRejectsBadInput(t *testing.T) {
	ts := newTokens(t, newFakeClock())

	_, err := ts.Issue("", "s", time.Minute, nil)
	assert.Error(t, err)

	_, err = ts.Issue(auth.AudienceAuth, "", time.Minute, nil)
	assert.Error(t, err)

	_, err = ts.Issue(auth.AudienceAuth, "s", 0, nil)
	assert.Error(t, err)

	_, err = ts.Issue(auth.AudienceAuth, "s", time.Minute, map[string]any{"exp_ms": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved claim")
}

func TestTokenService_AudienceIsolation(t *testing.T) {
	ts := newTokens(t, newFakeClock())

	for _, minted := range auth.Audiences {
		token, err := ts.Issue(minted, "subject", time.Hour, nil)
		require.NoError(t, err)

		for _, expected := range auth.Audiences {
			_, err := ts.Validate(token, expected)
			if minted == expected {
				assert.NoError(t, err, "%s token for %s", minted, expected)
				continue
			}
			assert.Truef(t, auth.IsWrongAudienceError(err), "%s token validated as %s: %v", minted, expected, err)
		}
	}
}

func TestTokenService_Expiry(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)
	issuedAt := clock.Now()
	ttl := 500 * time.Millisecond

	for _, aud := range []auth.Audience{auth.AudienceAuth, auth.AudienceVerify} {
		clock.Set(issuedAt)
		token, err := ts.Issue(aud, "subject", ttl, nil)
		require.NoError(t, err)

		clock.Set(issuedAt.Add(ttl - time.Millisecond))
		_, err = ts.Validate(token, aud)
		assert.NoError(t, err)

		clock.Set(issuedAt.Add(ttl))
		_, err = ts.Validate(token, aud)
		assert.NoError(t, err, "expiry instant itself is still valid")

		clock.Set(issuedAt.Add(ttl + time.Millisecond))
		_, err = ts.Validate(token, aud)
		assert.True(t, auth.IsExpiredError(err))
	}
}

func TestTokenService_Freshness(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)

	token, err := ts.Issue(auth.AudienceAuth, "subject", time.Hour, nil)
	require.NoError(t, err)
	issued := clock.Now().UnixMilli()

	_, err = ts.ValidateFresh(token, auth.AudienceAuth, issued)
	assert.NoError(t, err, "issued at the watermark is fresh")

	_, err = ts.ValidateFresh(token, auth.AudienceAuth, issued-1)
	assert.NoError(t, err)

	_, err = ts.ValidateFresh(token, auth.AudienceAuth, issued+1)
	assert.True(t, auth.IsObsoleteError(err))
}

func TestTokenService_IssueSinceIsNeverObsolete(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)

	watermark := clock.Now().UnixMilli() + 5
	token, err := ts.IssueSince(auth.AudienceAuth, "subject", time.Hour, nil, watermark)
	require.NoError(t, err)

	claims, err := ts.ValidateFresh(token, auth.AudienceAuth, watermark)
	require.NoError(t, err)
	assert.Equal(t, watermark, claims.IssuedAtMillis)
	assert.Equal(t, clock.Now().Add(time.Hour).UnixMilli(), claims.ExpiresAtMillis)
}

func TestTokenService_ModeMismatchIsIntegrityFailure(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)
	codec, err := auth.NewCodec(testSecret)
	require.NoError(t, err)

	// a verify claim set that was only signed
	signed, err := codec.Sign(map[string]any{
		"aud":    "verify",
		"sub":    "subject",
		"iat_ms": clock.Now().UnixMilli(),
		"exp_ms": clock.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	_, err = ts.Validate(signed, auth.AudienceVerify)
	assert.True(t, auth.IsIntegrityError(err))
}

func TestTokenService_MissingClaimsAreIntegrityFailures(t *testing.T) {
	ts := newTokens(t, newFakeClock())
	codec, err := auth.NewCodec(testSecret)
	require.NoError(t, err)

	signed, err := codec.Sign(map[string]any{"aud": "auth"})
	require.NoError(t, err)

	_, err = ts.Validate(signed, auth.AudienceAuth)
	assert.True(t, auth.IsIntegrityError(err))
}

func TestTokenService_Inspect(t *testing.T) {
	clock := newFakeClock()
	ts := newTokens(t, clock)

	token, err := ts.Issue(auth.AudienceChangeEmail, "subject", time.Millisecond, map[string]any{
		auth.ClaimNewEmail: "b@example.com",
	})
	require.NoError(t, err)

	clock.Advance(time.Hour)

	mode, claims, err := ts.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, auth.SignAndEncrypt, mode)
	assert.Equal(t, "b@example.com", claims.String(auth.ClaimNewEmail))
}

func TestTokenService_ObserverOutcomes(t *testing.T) {
	clock := newFakeClock()
	observer := &MockObserver{}
	observer.On("TokenIssued", auth.AudienceAuth).Return().Once()
	observer.On("TokenValidated", auth.AudienceAuth, auth.OutcomeValid).Return().Once()
	observer.On("TokenValidated", auth.AudienceVerify, auth.OutcomeWrongAudience).Return().Once()
	observer.On("TokenValidated", auth.AudienceAuth, auth.OutcomeExpired).Return().Once()

	ts := newTokens(t, clock, auth.WithValidationObserver(observer))

	token, err := ts.Issue(auth.AudienceAuth, "subject", time.Second, nil)
	require.NoError(t, err)

	_, err = ts.Validate(token, auth.AudienceAuth)
	require.NoError(t, err)

	_, err = ts.Validate(token, auth.AudienceVerify)
	require.Error(t, err)

	clock.Advance(2 * time.Second)
	_, err = ts.Validate(token, auth.AudienceAuth)
	require.Error(t, err)

	observer.AssertExpectations(t)
}

func TestTokenService_LogsFailures(t *testing.T) {
	logger := &MockLogger{}
	logger.On("Debug", mock.Anything, mock.Anything).Return()

	ts, err := auth.NewTokenService(testSecret, auth.WithTokenLogger(logger))
	require.NoError(t, err)

	_, err = ts.Validate("not-a-token", auth.AudienceAuth)
	require.Error(t, err)

	logger.AssertCalled(t, "Debug", mock.MatchedBy(func(format string) bool {
		return strings.Contains(format, "integrity")
	}), mock.Anything)
}
