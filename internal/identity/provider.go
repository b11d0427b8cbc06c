// Package identity resolves the current user from a request session. Two
// providers are supported: wallet signature verification and a hosted Clerk
// session. The compose core only ever branches on identity presence.
package identity

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jongan69/threadiverse/internal/model"
)

type Provider interface {
	// Middleware resolves the session on every request and, when valid, binds
	// the user id into the request context. Requests without a valid session
	// proceed without an identity.
	Middleware() func(http.Handler) http.Handler

	UserFromSession(r *http.Request) (model.UserID, error)
}

// SessionSource answers "current identity or none" for a request context.
type SessionSource interface {
	Current(ctx context.Context) (model.UserID, bool)
}

// ContextSource reads the identity set by a Provider's middleware.
type ContextSource struct{}

func (ContextSource) Current(ctx context.Context) (model.UserID, bool) {
	return UserFromContext(ctx)
}

var identityLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	identityLogger = l
}
