package bearer

import (
	"context"
	"encoding/json"
	"net/http"

	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-stateless-auth"
)

const (
	headerAuthorization   = "Authorization"
	headerWWWAuthenticate = "WWW-Authenticate"
	invalidTokenChallenge = auth.BearerScheme + ` error="invalid_token"`
)

// Authenticator mirrors AuthenticationGate.Authenticate.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (auth.Authentication, error)
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type Config struct {
	// Gate resolves the Authorization header. Required.
	Gate Authenticator
	// Filter skips the middleware when it returns true.
	Filter func(*http.Request) bool
	// Required rejects requests that carry no bearer token.
	Required bool
	// ErrorHandler defaults to a 401 JSON body with a Bearer challenge.
	ErrorHandler ErrorHandler
	// Logger defaults to the package logger of auth.
	Logger auth.Logger
}

// New returns middleware that authenticates bearer tokens and stores the
// principal and claims in the request context.
func New(cfg Config) func(http.Handler) http.Handler {
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = Unauthorized
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Filter != nil && cfg.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			result, err := cfg.Gate.Authenticate(r.Context(), r.Header.Get(headerAuthorization))
			if err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Debug("%s %s rejected: %v", r.Method, r.URL.Path, err)
				}
				cfg.ErrorHandler(w, r, err)
				return
			}

			if !result.IsAuthenticated() {
				if cfg.Required {
					cfg.ErrorHandler(w, r, auth.ErrAuthenticationFailed.Clone())
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithAuthentication(r.Context(), result)))
		})
	}
}

// Unauthorized writes a 401 with a Bearer challenge. The body never names the
// precise token failure.
func Unauthorized(w http.ResponseWriter, _ *http.Request, _ error) {
	body := auth.ErrAuthenticationFailed.Clone().ToErrorResponse(false, nil)

	w.Header().Set(headerWWWAuthenticate, invalidTokenChallenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(body)
}

// RequirePrincipal rejects requests the middleware did not authenticate.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			Unauthorized(w, r, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthority rejects authenticated principals lacking authority with 403.
func RequireAuthority(authority string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				Unauthorized(w, r, nil)
				return
			}

			if !principal.HasAuthority(authority) {
				body := auth.ErrForbidden.Clone().
					WithMetadata(map[string]any{"authority": authority}).
					ToErrorResponse(false, nil)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(body)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteToken sets a replacement auth token on the response so the client can
// re-arm its session. An empty header name means auth.DefaultTokenHeader.
func WriteToken(w http.ResponseWriter, header, token string) {
	if token == "" {
		return
	}
	if header == "" {
		header = auth.DefaultTokenHeader
	}
	w.Header().Set(header, auth.BearerScheme+" "+token)
}

// StatusCode maps an error returned by the auth package to an HTTP status.
func StatusCode(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code != 0 {
		return rich.Code
	}
	return http.StatusInternalServerError
}
