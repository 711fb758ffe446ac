package middleware

import (
	"net/http"

	"github.com/evn/dstracker/internal/models"
	"github.com/evn/dstracker/internal/pkg/response"
)

// RequireUser отсекает запросы без user_id в контексте.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			response.RespondWithError(w, http.StatusUnauthorized, "Не авторизован")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly проверяет, что роль пользователя равна "admin".
// Роль берётся из токена, поэтому после снятия прав нужен новый вход.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserIDFromContext(r.Context()); !ok {
			response.RespondWithError(w, http.StatusUnauthorized, "Не авторизован")
			return
		}
		if GetRoleFromContext(r.Context()) != models.RoleAdmin {
			response.RespondWithError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}
