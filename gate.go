package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// BearerScheme is the Authorization header scheme carrying auth tokens.
const BearerScheme = "Bearer"

// AuthState is the outcome state of the gate for one request.
type AuthState int

const (
	Unauthenticated AuthState = iota
	Authenticated
)

func (s AuthState) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Authentication is the result of passing a request through the gate.
type Authentication struct {
	State     AuthState
	Principal *Principal
	Claims    Claims
}

func (a Authentication) IsAuthenticated() bool {
	return a.State == Authenticated && a.Principal != nil
}

// AuthenticationGate turns a bearer token into a principal.
type AuthenticationGate struct {
	tokens   *TokenService
	accounts AccountLoader
	logger   Logger
}

// GateOption configures an AuthenticationGate.
type GateOption func(*AuthenticationGate)

// WithGateLogger sets the logger for rejected tokens.
func WithGateLogger(logger Logger) GateOption {
	return func(g *AuthenticationGate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewAuthenticationGate creates a gate that validates auth tokens with tokens
// and resolves their subject through accounts.
func NewAuthenticationGate(tokens *TokenService, accounts AccountLoader, opts ...GateOption) *AuthenticationGate {
	g := &AuthenticationGate{
		tokens:   tokens,
		accounts: accounts,
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate processes an Authorization header value. A missing or non bearer
// header leaves the request unauthenticated without error; a bearer token that
// fails any check yields ErrAuthenticationFailed.
func (g *AuthenticationGate) Authenticate(ctx context.Context, authorization string) (Authentication, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return Authentication{State: Unauthenticated}, nil
	}
	return g.AuthenticateToken(ctx, token)
}

// AuthenticateToken validates token against the auth audience, loads the subject
// and applies the account's freshness watermark.
func (g *AuthenticationGate) AuthenticateToken(ctx context.Context, token string) (Authentication, error) {
	claims, err := g.tokens.validate(token, AudienceAuth)
	if err != nil {
		return Authentication{}, g.reject(err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Authentication{}, g.reject(integrityFailure(err))
	}

	account, err := g.accounts.LoadByID(ctx, id)
	if err != nil {
		return Authentication{}, g.reject(err)
	}

	if err := g.tokens.CheckFreshness(claims, account.CredentialsFreshSinceMillis); err != nil {
		return Authentication{}, g.reject(err)
	}

	g.tokens.observer.TokenValidated(AudienceAuth, OutcomeValid)

	return Authentication{
		State:     Authenticated,
		Principal: NewPrincipal(account),
		Claims:    claims,
	}, nil
}

func (g *AuthenticationGate) reject(cause error) error {
	out := withCause(ErrAuthenticationFailed, cause)
	g.logger.Info("bearer token rejected: %v", cause)
	var rich *goerrors.Error
	if goerrors.As(cause, &rich) && len(rich.Metadata) > 0 {
		g.logger.Debug("rejection details: %v", print.MaybePrettyJSON(rich.Metadata))
	}
	return out
}
