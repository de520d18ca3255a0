package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// User ключ пользователя сессии в контексте.
const User Key = "user"

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, User, u)
}

// UserFrom достаёт пользователя сессии.
func UserFrom(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(User).(*models.User)
	return u, ok && u != nil
}

// UserIDFrom возвращает ID пользователя сессии или nil.
func UserIDFrom(ctx context.Context) *int64 {
	u, ok := UserFrom(ctx)
	if !ok {
		return nil
	}
	id := u.ID
	return &id
}
