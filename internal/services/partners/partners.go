// Package partners реализует онбординг партнёров: подтверждение почты кодом,
// полная заявка и решение администратора.
//
// Переходы: pending -> verified (код), verified|pending -> pending (полная заявка),
// любой -> approved|rejected (администратор). Одобренная заявка повторно не подаётся.
package partners

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/otp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/mailer"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки онбординга.
var (
	ErrInvalidOrExpiredOTP    = apperr.Validation("invalid or expired code")
	ErrVerificationRequired   = apperr.Validation("email verification is required before registration")
	ErrPartnerAlreadyApproved = apperr.Conflict("partner with this email is already approved")
	ErrRegistrationNotFound   = apperr.NotFound("partner registration not found")
	ErrInvalidDecision        = apperr.Validation("status must be approved or rejected")
)

// Repository хранилище заявок партнёров.
type Repository interface {
	UpsertPartnerOTP(ctx context.Context, email, code string, expires time.Time) (*models.PartnerRegistration, error)
	GetPartnerRegistration(ctx context.Context, id int64) (*models.PartnerRegistration, error)
	GetPartnerRegistrationByEmail(ctx context.Context, email string) (*models.PartnerRegistration, error)
	ConsumePartnerOTP(ctx context.Context, id int64, code string) (*models.PartnerRegistration, error)
	SubmitPartnerDetails(ctx context.Context, email string, d models.PartnerDetails) (*models.PartnerRegistration, error)
	SetPartnerStatus(ctx context.Context, id int64, status models.PartnerStatus) (*models.PartnerRegistration, error)
	ListPartnerRegistrations(ctx context.Context, f models.PartnerFilter, limit, offset int) ([]*models.PartnerRegistration, int, error)
	PartnerSummary(ctx context.Context) (models.PartnerSummary, error)
	DeletePartnerRegistration(ctx context.Context, id int64) error
}

// Mailer письма онбординга.
type Mailer interface {
	SendPartnerOTP(to, code string, ttl time.Duration) error
	NotifyAdminPartnerRegistration(reg *models.PartnerRegistration) error
	NotifyPartnerStatus(reg *models.PartnerRegistration) error
}

// PartnerService бизнес-логика онбординга.
type PartnerService struct {
	repo   Repository
	mailer Mailer
	otpTTL time.Duration
	log    *slog.Logger
	now    func() time.Time
}

// NewPartnerService создаёт PartnerService.
func NewPartnerService(repo Repository, m Mailer, otpTTL time.Duration, log *slog.Logger) *PartnerService {
	return &PartnerService{
		repo:   repo,
		mailer: m,
		otpTTL: otpTTL,
		log:    log,
		now:    time.Now,
	}
}

// RequestOTP создаёт заготовку заявки или заменяет действующий код и отправляет новый.
// Возвращает предупреждение, если письмо не ушло.
func (s *PartnerService) RequestOTP(ctx context.Context, email string) (string, error) {
	const op = "services.partners.RequestOTP"
	email = normalizeEmail(email)

	code, err := otp.Generate()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	reg, err := s.repo.UpsertPartnerOTP(ctx, email, code, s.now().Add(s.otpTTL))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("partner otp issued", slog.Int64("registration_id", reg.ID))

	if err := s.mailer.SendPartnerOTP(email, code, s.otpTTL); err != nil {
		s.log.Error("failed to send partner otp", slog.Int64("registration_id", reg.ID), sl.Err(err))
		return mailer.Warning, nil
	}
	return "", nil
}

// VerifyOTP подтверждает почту. Неверный и просроченный код неразличимы для клиента.
// Код одноразовый: после успешной проверки он стирается.
func (s *PartnerService) VerifyOTP(ctx context.Context, email, code string) (*models.PartnerRegistration, error) {
	const op = "services.partners.VerifyOTP"

	reg, err := s.repo.GetPartnerRegistrationByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.OTPVerification("partner", false)
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var stored string
	if reg.OTP != nil {
		stored = *reg.OTP
	}
	if !otp.Valid(stored, reg.OTPExpires, code, s.now()) {
		metrics.OTPVerification("partner", false)
		return nil, ErrInvalidOrExpiredOTP
	}

	// Код мог быть заменён или использован параллельным запросом.
	reg, err = s.repo.ConsumePartnerOTP(ctx, reg.ID, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.OTPVerification("partner", false)
			return nil, ErrInvalidOrExpiredOTP
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.OTPVerification("partner", true)
	return reg, nil
}

// SubmitRegistration сохраняет полную заявку и возвращает её на рассмотрение (pending).
// Требует существующую запись, созданную запросом кода.
func (s *PartnerService) SubmitRegistration(ctx context.Context, email string, d models.PartnerDetails) (*models.PartnerRegistration, string, error) {
	const op = "services.partners.SubmitRegistration"
	email = normalizeEmail(email)

	existing, err := s.repo.GetPartnerRegistrationByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrVerificationRequired
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	if existing.Status == models.PartnerApproved {
		return nil, "", ErrPartnerAlreadyApproved
	}

	reg, err := s.repo.SubmitPartnerDetails(ctx, email, d)
	if err != nil {
		// Заявку одобрили между чтением и записью.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrPartnerAlreadyApproved
		}
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("partner registration submitted", slog.Int64("registration_id", reg.ID))

	if err := s.mailer.NotifyAdminPartnerRegistration(reg); err != nil {
		s.log.Error("failed to notify admin", slog.Int64("registration_id", reg.ID), sl.Err(err))
		return reg, mailer.Warning, nil
	}
	return reg, "", nil
}

// SetStatus записывает решение администратора. Допустимы только approved и rejected;
// повторное решение перезаписывает предыдущее.
func (s *PartnerService) SetStatus(ctx context.Context, id int64, status models.PartnerStatus) (*models.PartnerRegistration, string, error) {
	const op = "services.partners.SetStatus"
	if status != models.PartnerApproved && status != models.PartnerRejected {
		return nil, "", ErrInvalidDecision
	}

	reg, err := s.repo.SetPartnerStatus(ctx, id, status)
	if err != nil {
		return nil, "", wrap(op, err)
	}
	s.log.Info("partner status changed", slog.Int64("registration_id", id), slog.String("status", string(status)))

	if err := s.mailer.NotifyPartnerStatus(reg); err != nil {
		s.log.Error("failed to notify partner", slog.Int64("registration_id", id), sl.Err(err))
		return reg, mailer.Warning, nil
	}
	return reg, "", nil
}

// Get возвращает заявку по ID.
func (s *PartnerService) Get(ctx context.Context, id int64) (*models.PartnerRegistration, error) {
	const op = "services.partners.Get"
	reg, err := s.repo.GetPartnerRegistration(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return reg, nil
}

// List возвращает страницу заявок.
func (s *PartnerService) List(ctx context.Context, f models.PartnerFilter, page models.PageRequest) (models.Page[*models.PartnerRegistration], error) {
	const op = "services.partners.List"
	items, total, err := s.repo.ListPartnerRegistrations(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.PartnerRegistration]{}, wrap(op, err)
	}
	return models.Page[*models.PartnerRegistration]{Items: items, Total: total}, nil
}

// Export возвращает все заявки, подходящие под фильтр.
func (s *PartnerService) Export(ctx context.Context, f models.PartnerFilter) ([]*models.PartnerRegistration, error) {
	const op = "services.partners.Export"
	items, _, err := s.repo.ListPartnerRegistrations(ctx, f, 0, 0)
	if err != nil {
		return nil, wrap(op, err)
	}
	return items, nil
}

// Summary возвращает количество заявок по статусам.
func (s *PartnerService) Summary(ctx context.Context) (models.PartnerSummary, error) {
	const op = "services.partners.Summary"
	sum, err := s.repo.PartnerSummary(ctx)
	if err != nil {
		return models.PartnerSummary{}, wrap(op, err)
	}
	return sum, nil
}

// Delete удаляет заявку.
func (s *PartnerService) Delete(ctx context.Context, id int64) error {
	const op = "services.partners.Delete"
	if err := s.repo.DeletePartnerRegistration(ctx, id); err != nil {
		return wrap(op, err)
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrRegistrationNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
