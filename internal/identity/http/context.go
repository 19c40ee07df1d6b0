// Package http provides the authentication middleware, rate limiters and token
// endpoints of the identity layer.
package http

import (
	"context"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// principalKey is a context key type for storing the authenticated principal.
type principalKey struct{}

// WithPrincipal stores an authenticated principal in the context.
func WithPrincipal(ctx context.Context, principal *identityDomain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// GetPrincipal retrieves the authenticated principal from the context.
// Returns (principal, true) if present, or (nil, false) otherwise.
func GetPrincipal(ctx context.Context) (*identityDomain.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*identityDomain.Principal)
	return principal, ok && principal != nil
}
