package identity

import (
	"context"

	"github.com/jongan69/threadiverse/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const ContextKeyUserID ContextKey = "userID"

func ContextWithUser(ctx context.Context, userID model.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

func UserFromContext(ctx context.Context) (model.UserID, bool) {
	userID, ok := ctx.Value(ContextKeyUserID).(model.UserID)
	return userID, ok && userID != ""
}
