package middleware

import (
	"context"

	"github.com/academyportal/internal/auth"
)

type contextKey string

const UserIDKey contextKey = "user_id"

// GetUserID возвращает id пользователя из контекста (устанавливается BearerAuth). 0 — не аутентифицирован.
func GetUserID(ctx context.Context) int64 {
	v, _ := ctx.Value(UserIDKey).(int64)
	return v
}

// WithUser кладёт пользователя проверенного токена в контекст.
func WithUser(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, UserIDKey, claims.UserID)
}
