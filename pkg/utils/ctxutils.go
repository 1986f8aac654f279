package utils

import (
	"context"

	"petro-planning/pkg/contextkeys"
)

// SystemActor - автор изменений, когда запрос пришёл без X-User-ID.
const SystemActor = "system"

func GetUserIDFromCtx(ctx context.Context) string {
	if userID, ok := ctx.Value(contextkeys.UserIDKey).(string); ok && userID != "" {
		return userID
	}
	return SystemActor
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}
