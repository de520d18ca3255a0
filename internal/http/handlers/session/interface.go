package session

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/services/auth"
)

// Service описывает бизнес-логику сессии.
type Service interface {
	Login(ctx context.Context, email, pass string, aud auth.Audience) (*auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, userID int64) error
	LogoutByRefresh(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetOTP(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}
