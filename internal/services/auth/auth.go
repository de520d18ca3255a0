// Package auth выдаёт и проверяет сессии и реализует сброс пароля по одноразовому коду.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/jwt"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/otp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/password"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки сессии и сброса пароля.
var (
	ErrInvalidCredentials  = apperr.New(apperr.KindUnauthenticated, "invalid email or password")
	ErrWrongAudience       = apperr.New(apperr.KindForbidden, "access denied for this account")
	ErrInvalidToken        = apperr.New(apperr.KindUnauthenticated, "invalid or expired token")
	ErrInvalidOrExpiredOTP = apperr.Validation("invalid or expired code")
)

// Audience определяет, какие роли могут войти через конкретную точку входа.
type Audience uint8

const (
	// AudienceAdmin вход в панель администратора.
	AudienceAdmin Audience = iota
	// AudienceCustomer вход пользователей и партнёров.
	AudienceCustomer
)

// Allows сообщает, что роль допускается к этой точке входа.
func (a Audience) Allows(role models.Role) bool {
	switch role {
	case models.RoleAdmin:
		return a == AudienceAdmin
	case models.RoleUser, models.RolePartner:
		return a == AudienceCustomer
	case models.RoleUnknown:
		return false
	}
	return false
}

// UserRepository операции с пользователями, нужные сессии.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	RevokeRefreshToken(ctx context.Context, id int64, token string) error
	SetResetOTP(ctx context.Context, id int64, code string, expires time.Time) error
	ResetPassword(ctx context.Context, id int64, code, passwordHash string) error
}

// Mailer отправляет код сброса пароля.
type Mailer interface {
	SendPasswordResetOTP(to, code string, ttl time.Duration) error
}

// Session пара токенов и вошедший пользователь.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// AuthService управляет сессиями.
type AuthService struct {
	repo   UserRepository
	jwt    jwt.Maker
	mailer Mailer
	otpTTL time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewAuthService создаёт AuthService.
func NewAuthService(repo UserRepository, maker jwt.Maker, mailer Mailer, otpTTL time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		repo:   repo,
		jwt:    maker,
		mailer: mailer,
		otpTTL: otpTTL,
		log:    log,
		now:    time.Now,
	}
}

// Login проверяет пароль, выдаёт пару токенов и сохраняет refresh токен у пользователя.
// Предыдущая сессия пользователя при этом перестаёт обновляться.
func (s *AuthService) Login(ctx context.Context, email, pass string, aud Audience) (*Session, error) {
	const op = "services.auth.Login"

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := password.CompareHash(user.PasswordHash, pass); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !aud.Allows(user.Role) {
		return nil, ErrWrongAudience
	}

	session, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user logged in", slog.Int64("user_id", user.ID), slog.String("role", user.Role.String()))
	return session, nil
}

func (s *AuthService) issueSession(ctx context.Context, user *models.User) (*Session, error) {
	access, err := s.jwt.GenerateToken(user.ID, jwt.Access)
	if err != nil {
		return nil, err
	}
	refresh, err := s.jwt.GenerateToken(user.ID, jwt.Refresh)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, err
	}
	return &Session{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// Refresh выдаёт новый access токен, если refresh токен валиден и совпадает с сохранённым.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "services.auth.Refresh"

	claims, err := s.jwt.ParseToken(refreshToken, jwt.Refresh)
	if err != nil {
		return "", ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidToken
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return "", ErrInvalidToken
	}

	access, err := s.jwt.GenerateToken(user.ID, jwt.Access)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return access, nil
}

// Logout отзывает сохранённый refresh токен.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	const op = "services.auth.Logout"
	if err := s.repo.SetRefreshToken(ctx, userID, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// LogoutByRefresh отзывает refresh токен по нему самому, когда access токен уже истёк.
// Сохранённый токен сбрасывается, только если он совпадает с предъявленным.
func (s *AuthService) LogoutByRefresh(ctx context.Context, refreshToken string) error {
	const op = "services.auth.LogoutByRefresh"

	claims, err := s.jwt.ParseToken(refreshToken, jwt.Refresh)
	if err != nil {
		return ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.repo.RevokeRefreshToken(ctx, userID, refreshToken); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Authenticate возвращает владельца access токена.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	const op = "services.auth.Authenticate"

	claims, err := s.jwt.ParseToken(accessToken, jwt.Access)
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ForgotPassword сохраняет код сброса и отправляет его на почту.
// Для неизвестного email ответ такой же, как для существующего.
// Ошибка отправки письма только логируется, чтобы ответ не выдавал существование адреса.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	const op = "services.auth.ForgotPassword"
	log := s.log.With(sl.Op(op))

	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Debug("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.SetResetOTP(ctx, user.ID, code, s.now().Add(s.otpTTL)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.mailer.SendPasswordResetOTP(user.Email, code, s.otpTTL); err != nil {
		log.Error("failed to send password reset code", slog.Int64("user_id", user.ID), sl.Err(err))
	}
	return nil
}

// VerifyResetOTP проверяет код сброса, не расходуя его.
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) error {
	const op = "services.auth.VerifyResetOTP"
	if _, err := s.checkResetOTP(ctx, email, code); err != nil {
		if errors.Is(err, ErrInvalidOrExpiredOTP) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword меняет пароль по действующему коду. Код и refresh токен при этом сбрасываются.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "services.auth.ResetPassword"

	user, err := s.checkResetOTP(ctx, email, code)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredOTP) {
			return err
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.ResetPassword(ctx, user.ID, code, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredOTP
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset", slog.Int64("user_id", user.ID))
	return nil
}

func (s *AuthService) checkResetOTP(ctx context.Context, email, code string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.OTPVerification("password_reset", false)
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, err
	}
	var stored string
	if user.ResetOTP != nil {
		stored = *user.ResetOTP
	}
	ok := otp.Valid(stored, user.ResetOTPExpires, code, s.now())
	metrics.OTPVerification("password_reset", ok)
	if !ok {
		return nil, ErrInvalidOrExpiredOTP
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
