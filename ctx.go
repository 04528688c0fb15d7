package auth

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// WithClaims sets the validated auth token claims in the given context
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the auth token claims from the context
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(Claims)
	return raw, ok
}

// WithAuthentication stores both the principal and the claims of an
// authenticated result. Unauthenticated results leave ctx unchanged.
func WithAuthentication(ctx context.Context, auth Authentication) context.Context {
	if !auth.IsAuthenticated() {
		return ctx
	}
	return WithClaims(WithPrincipal(ctx, auth.Principal), auth.Claims)
}

// AuthenticationFromContext rebuilds the authenticated result stored by
// WithAuthentication.
func AuthenticationFromContext(ctx context.Context) (Authentication, bool) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return Authentication{State: Unauthenticated}, false
	}
	claims, _ := ClaimsFromContext(ctx)
	return Authentication{
		State:     Authenticated,
		Principal: principal,
		Claims:    claims,
	}, true
}
