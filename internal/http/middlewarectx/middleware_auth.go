// Package middlewarectx содержит HTTP middleware сессии и доступа.
//
// Authenticate достаёт access токен из cookie accessToken или заголовка
// Authorization: Bearer, загружает пользователя и кладёт его в контекст.
// RequireRoles пропускает только указанные роли.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Имена cookie сессии.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

var (
	errMissingToken = apperr.New(apperr.KindUnauthenticated, "authentication required")
	errForbidden    = apperr.New(apperr.KindForbidden, "insufficient permissions")
)

// Authenticator проверяет access токен и возвращает владельца.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
}

// TokenFromRequest возвращает access токен из cookie или заголовка Authorization.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// Authenticate возвращает middleware, который требует валидный access токен.
func Authenticate(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := TokenFromRequest(r)
			if token == "" {
				log.Debug("missing access token")
				response.FromError(w, r, errMissingToken)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Debug("invalid or expired token", sl.Err(err))
				response.FromError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth прикрепляет пользователя, если токен валиден, и пропускает запрос в любом случае.
func OptionalAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if user, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles пропускает только пользователей с одной из ролей. Должен стоять после Authenticate.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFrom(r.Context())
			if !ok {
				response.FromError(w, r, errMissingToken)
				return
			}
			if !hasRole(user.Role, roles) {
				response.FromError(w, r, errForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
