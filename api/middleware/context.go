package middleware

import (
	"context"

	"github.com/ecomarket/marketplace-backend/pkg/auth"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the verified caller, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	identity, ok := ctx.Value(ctxIdentity).(auth.Identity)
	return identity, ok
}

func UserIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.UserID
}

// WithIdentity injects the caller into the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}

// WithUserID injects a bare user id; handler tests use it to skip token minting.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithIdentity(ctx, auth.Identity{UserID: userID})
}
