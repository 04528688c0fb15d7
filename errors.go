package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConfiguration        = "CONFIGURATION_ERROR"
	TextCodeIntegrity            = goerrors.TextCodeTokenMalformed
	TextCodeWrongAudience        = "TOKEN_WRONG_AUDIENCE"
	TextCodeExpired              = goerrors.TextCodeTokenExpired
	TextCodeObsolete             = "TOKEN_OBSOLETE"
	TextCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	TextCodeAlreadyDone          = "ALREADY_DONE"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeInvalidCode          = "INVALID_CODE"
	TextCodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	TextCodeForbidden            = "FORBIDDEN"
	TextCodeInvalidCredentials   = goerrors.TextCodeInvalidCredentials
	TextCodeStaleAccount         = "STALE_ACCOUNT"
	TextCodeTooManyResets        = goerrors.TextCodeResetRateLimit
	TextCodeImmutableClaim       = goerrors.TextCodeImmutableClaim
	TextCodeInvalidRequest       = "INVALID_REQUEST"
)

// ErrConfiguration is returned at construction time when the secret or options are unusable.
var ErrConfiguration = goerrors.New("invalid auth configuration", goerrors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(goerrors.CodeInternal)

// ErrIntegrity covers every way a token can fail to decode: bad shape, bad MAC, bad
// ciphertext or unsupported algorithm. Callers never learn which.
var ErrIntegrity = goerrors.New("token integrity check failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeIntegrity).
	WithCode(goerrors.CodeUnauthorized)

// ErrWrongAudience is returned when a token was minted for a different purpose.
var ErrWrongAudience = goerrors.New("token audience mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongAudience).
	WithCode(goerrors.CodeUnauthorized)

// ErrExpired is returned for tokens validated after their expiry instant.
var ErrExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrObsolete is returned for tokens issued before the account's freshness watermark.
var ErrObsolete = goerrors.New("token was issued before credentials changed", goerrors.CategoryAuth).
	WithTextCode(TextCodeObsolete).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotFound is returned when an account cannot be resolved.
var ErrNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAlreadyDone is returned when the account already satisfies the requested transition.
var ErrAlreadyDone = goerrors.New("requested change was already applied", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyDone).
	WithCode(goerrors.CodeConflict)

// ErrConflict is returned when an email is already owned by another account.
var ErrConflict = goerrors.New("email is already in use", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCode is the single client-facing signal for a bad verification code.
var ErrInvalidCode = goerrors.New("invalid or expired code", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCode).
	WithCode(goerrors.CodeUnauthorized)

// ErrAuthenticationFailed is the single client-facing signal for a rejected bearer token.
var ErrAuthenticationFailed = goerrors.New("authentication failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeAuthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when the principal may not act on the target account.
var ErrForbidden = goerrors.New("operation not permitted", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidCredentials is returned when a password does not match.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrStaleAccount is returned when an optimistic save lost against a concurrent write.
var ErrStaleAccount = goerrors.New("account was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(TextCodeStaleAccount).
	WithCode(goerrors.CodeConflict)

// ErrTooManyResets is returned when forgot-password requests exceed the throttle.
var ErrTooManyResets = goerrors.New("too many password reset requests", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyResets).
	WithCode(goerrors.CodeTooManyRequests)

// ErrImmutableClaim is returned when extra claims try to override reserved ones.
var ErrImmutableClaim = goerrors.New("reserved claim cannot be overridden", goerrors.CategoryBadInput).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(goerrors.CodeBadRequest)

// hasTextCode walks the cause chain looking for a rich error carrying code.
func hasTextCode(err error, code string) bool {
	for err != nil {
		var rich *goerrors.Error
		if !goerrors.As(err, &rich) {
			return false
		}
		if rich.TextCode == code {
			return true
		}
		err = rich.Unwrap()
	}
	return false
}

// withCause returns a copy of boundary whose source is cause, so the precise
// failure stays inspectable server-side while the client sees boundary.
func withCause(boundary *goerrors.Error, cause error) *goerrors.Error {
	out := boundary.Clone()
	out.Source = cause
	return out
}

func IsConfigurationError(err error) bool { return hasTextCode(err, TextCodeConfiguration) }

func IsIntegrityError(err error) bool { return hasTextCode(err, TextCodeIntegrity) }

func IsWrongAudienceError(err error) bool { return hasTextCode(err, TextCodeWrongAudience) }

// IsExpiredError reports whether err, or any cause behind it, is an expired token.
func IsExpiredError(err error) bool { return hasTextCode(err, TextCodeExpired) }

func IsObsoleteError(err error) bool { return hasTextCode(err, TextCodeObsolete) }

func IsNotFoundError(err error) bool { return hasTextCode(err, TextCodeAccountNotFound) }

func IsAlreadyDoneError(err error) bool { return hasTextCode(err, TextCodeAlreadyDone) }

func IsConflictError(err error) bool { return hasTextCode(err, TextCodeEmailTaken) }

func IsInvalidCodeError(err error) bool { return hasTextCode(err, TextCodeInvalidCode) }

func IsAuthenticationFailed(err error) bool {
	return hasTextCode(err, TextCodeAuthenticationFailed)
}

func IsForbiddenError(err error) bool { return hasTextCode(err, TextCodeForbidden) }

// IsTokenError reports whether err is one of the four token validation failures.
func IsTokenError(err error) bool {
	return IsIntegrityError(err) ||
		IsWrongAudienceError(err) ||
		IsExpiredError(err) ||
		IsObsoleteError(err)
}

func IsInvalidCredentialsError(err error) bool { return hasTextCode(err, TextCodeInvalidCredentials) }

func IsStaleAccountError(err error) bool { return hasTextCode(err, TextCodeStaleAccount) }

func IsTooManyResetsError(err error) bool { return hasTextCode(err, TextCodeTooManyResets) }

// IsValidationError reports whether err rejected malformed input.
func IsValidationError(err error) bool { return hasTextCode(err, TextCodeInvalidRequest) }
