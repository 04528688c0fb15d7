package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Audience is the single purpose a token is valid for.
type Audience string

const (
	AudienceAuth           Audience = "auth"
	AudienceVerify         Audience = "verify"
	AudienceForgotPassword Audience = "forgot-password"
	AudienceChangeEmail    Audience = "change-email"
)

// Audiences lists every purpose known to the token protocol.
var Audiences = []Audience{
	AudienceAuth,
	AudienceVerify,
	AudienceForgotPassword,
	AudienceChangeEmail,
}

func (a Audience) String() string { return string(a) }

// Config holds auth options
type Config interface {
	GetSecret() string
	GetAuthTokenTTL() time.Duration
	GetCodeTTL() time.Duration
	GetShortLivedTTL() time.Duration
	GetApplicationURL() string
	GetTokenHeader() string
}

// AccountStore is the persistence collaborator the flows run against.
// Save must be optimistic: it fails with ErrStaleAccount when the stored
// version moved since the account was loaded.
type AccountStore interface {
	LoadByID(ctx context.Context, id uuid.UUID) (*Account, error)
	LoadByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	Save(ctx context.Context, account *Account) (*Account, error)
	RunInTx(ctx context.Context, fn func(ctx context.Context, store AccountStore) error) error
}

// AccountLoader is the read side of AccountStore used by the gate.
type AccountLoader interface {
	LoadByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// ValidationObserver receives the outcome of every token issuance and validation.
type ValidationObserver interface {
	TokenIssued(audience Audience)
	TokenValidated(audience Audience, outcome string)
}

const (
	OutcomeValid         = "valid"
	OutcomeIntegrity     = "integrity"
	OutcomeWrongAudience = "wrong_audience"
	OutcomeExpired       = "expired"
	OutcomeObsolete      = "obsolete"
)

type noopObserver struct{}

func (noopObserver) TokenIssued(Audience)            {}
func (noopObserver) TokenValidated(Audience, string) {}

func normalizeObserver(o ValidationObserver) ValidationObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}

func normalizeClock(now func() time.Time) func() time.Time {
	if now == nil {
		return time.Now
	}
	return now
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
