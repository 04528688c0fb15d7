package auth

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asRich(t *testing.T, err error) *goerrors.Error {
	t.Helper()
	var rich *goerrors.Error
	require.True(t, goerrors.As(err, &rich), "not a rich error: %v", err)
	return rich
}

func TestPredicatesMatchSentinels(t *testing.T) {
	cases := []struct {
		name string
		err  *goerrors.Error
		is   func(error) bool
	}{
		{"configuration", ErrConfiguration, IsConfigurationError},
		{"integrity", ErrIntegrity, IsIntegrityError},
		{"wrong audience", ErrWrongAudience, IsWrongAudienceError},
		{"expired", ErrExpired, IsExpiredError},
		{"obsolete", ErrObsolete, IsObsoleteError},
		{"not found", ErrNotFound, IsNotFoundError},
		{"already done", ErrAlreadyDone, IsAlreadyDoneError},
		{"conflict", ErrConflict, IsConflictError},
		{"invalid code", ErrInvalidCode, IsInvalidCodeError},
		{"authentication failed", ErrAuthenticationFailed, IsAuthenticationFailed},
		{"forbidden", ErrForbidden, IsForbiddenError},
		{"invalid credentials", ErrInvalidCredentials, IsInvalidCredentialsError},
		{"stale account", ErrStaleAccount, IsStaleAccountError},
		{"too many resets", ErrTooManyResets, IsTooManyResetsError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.is(tc.err.Clone()))
			assert.True(t, tc.is(fmt.Errorf("wrapped: %w", tc.err.Clone())))
			assert.False(t, tc.is(errors.New(tc.err.Message)))
			assert.False(t, tc.is(nil))
		})
	}
}

func TestWithCauseKeepsPreciseFailure(t *testing.T) {
	err := withCause(ErrInvalidCode, ErrObsolete.Clone())

	assert.True(t, IsInvalidCodeError(err))
	assert.True(t, IsObsoleteError(err))
	assert.False(t, IsExpiredError(err))
	assert.True(t, IsTokenError(err))

	assert.Nil(t, ErrInvalidCode.Source, "sentinel must not be mutated")
	assert.Equal(t, ErrInvalidCode.Code, err.Code)
}

func TestIsTokenError(t *testing.T) {
	for _, e := range []*goerrors.Error{ErrIntegrity, ErrWrongAudience, ErrExpired, ErrObsolete} {
		assert.True(t, IsTokenError(e.Clone()), e.TextCode)
	}
	assert.False(t, IsTokenError(ErrNotFound.Clone()))
	assert.False(t, IsTokenError(ErrAlreadyDone.Clone()))
}

func TestBoundaryErrorsAreCoarse(t *testing.T) {
	for _, cause := range []*goerrors.Error{ErrIntegrity, ErrWrongAudience, ErrExpired, ErrObsolete} {
		err := withCause(ErrAuthenticationFailed, cause.Clone())
		assert.Equal(t, goerrors.CodeUnauthorized, err.Code)
		assert.Equal(t, TextCodeAuthenticationFailed, err.TextCode)
		assert.Equal(t, ErrAuthenticationFailed.Message, err.Message)
	}
}
