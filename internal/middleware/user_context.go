// internal/middleware/user_context.go
package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"github.com/evn/dstracker/config"
)

const roleKey contextKey = "role"

type contextKey string

// GetUserIDFromContext возвращает user_id из контекста.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(config.UserIDKey).(string)
	return id, ok && id != ""
}

func GetRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// WithUser кладёт пользователя в контекст (используется и в тестах хендлеров).
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, config.UserIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// AddUserIDToContext извлекает user_id и role из JWT и кладёт в контекст.
func AddUserIDToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, claims, _ := jwtauth.FromContext(r.Context())
			if claims == nil {
				next.ServeHTTP(w, r)
				return
			}

			userID, _ := claims["user_id"].(string)
			role, _ := claims["role"].(string)
			if userID != "" {
				r = r.WithContext(WithUser(r.Context(), userID, role))
			}
			next.ServeHTTP(w, r)
		})
	}
}
