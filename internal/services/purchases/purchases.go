// Package purchases ведёт журнал покупок: создание с вычислением срока действия,
// выборки, статистику выручки и административную правку статуса.
package purchases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/period"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки журнала покупок.
var (
	ErrUserNotFound         = apperr.NotFound("user not found")
	ErrPurchaseNotFound     = apperr.NotFound("purchase not found")
	ErrDuplicateTransaction = apperr.Conflict("transaction id already exists")
	ErrInvalidServiceType   = apperr.Validation("serviceType must be CLOUD or SERVER")
	ErrInvalidPlanType      = apperr.Validation("planType must be MONTHLY or YEARLY")
	ErrInvalidPaymentStatus = apperr.Validation("paymentStatus must be COMPLETED, PENDING, FAILED or REFUNDED")
	ErrInvalidAmount        = apperr.Validation("amount must not be negative")
	ErrInvalidExpiryFilter  = apperr.Validation("expiry must be soon, expired or active")
)

// StatsCacheKey ключ кэша статистики. Сбрасывается при любой записи в журнал.
const StatsCacheKey = "purchases:stats"

const (
	statsCacheTTL   = 30 * time.Second
	defaultCurrency = "USD"
)

// Source канал, через который создана покупка.
type Source string

// Каналы создания покупки.
const (
	SourceAdmin          Source = "admin"
	SourceCustomer       Source = "customer"
	SourceServiceRequest Source = "service_request"
)

// Repository хранилище журнала покупок.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreatePurchase(ctx context.Context, p models.Purchase) (*models.Purchase, error)
	GetPurchase(ctx context.Context, id int64) (*models.Purchase, error)
	ListPurchases(ctx context.Context, f models.PurchaseFilter, limit, offset int) ([]*models.Purchase, int, error)
	PurchaseStatusAggregates(ctx context.Context) ([]models.StatusAggregate, error)
	PurchaseExpiryCounts(ctx context.Context, now time.Time) (models.ExpiryCounts, error)
	UpdatePurchaseStatus(ctx context.Context, id int64, status string) error
}

// Cache кэш статистики.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CreateParams поля новой покупки.
type CreateParams struct {
	UserID        int64
	ServiceType   string
	ServiceID     string
	Amount        float64
	Currency      string
	PaymentMethod string
	PaymentStatus string
	PlanType      string
}

// PurchaseService бизнес-логика журнала покупок.
type PurchaseService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewPurchaseService создаёт PurchaseService.
func NewPurchaseService(repo Repository, cache Cache, log *slog.Logger) *PurchaseService {
	return &PurchaseService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// NewTransactionID возвращает идентификатор вида TXN-<unix ms>-<12 hex>.
// Случайная часть даёт 2^48 вариантов в пределах одной миллисекунды.
func NewTransactionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

// ValidPaymentStatus сообщает, что статус оплаты известен.
func ValidPaymentStatus(status string) bool {
	switch status {
	case models.PaymentCompleted, models.PaymentPending, models.PaymentFailed, models.PaymentRefunded:
		return true
	}
	return false
}

func normalizeParams(p *CreateParams, source Source) error {
	p.ServiceType = strings.ToUpper(strings.TrimSpace(p.ServiceType))
	if p.ServiceType != models.ServiceTypeCloud && p.ServiceType != models.ServiceTypeServer {
		return ErrInvalidServiceType
	}

	p.PlanType = strings.ToUpper(strings.TrimSpace(p.PlanType))
	switch p.PlanType {
	case "":
		p.PlanType = models.PlanMonthly
	case models.PlanMonthly, models.PlanYearly:
	default:
		return ErrInvalidPlanType
	}

	if p.Amount < 0 {
		return ErrInvalidAmount
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	p.Currency = strings.ToUpper(p.Currency)

	switch source {
	case SourceCustomer:
		p.PaymentStatus = models.PaymentPending
	default:
		p.PaymentStatus = strings.ToUpper(p.PaymentStatus)
		if p.PaymentStatus == "" {
			p.PaymentStatus = models.PaymentCompleted
		}
		if !ValidPaymentStatus(p.PaymentStatus) {
			return ErrInvalidPaymentStatus
		}
	}
	return nil
}

// Create проверяет пользователя и пишет покупку. Срок действия: YEARLY 365 дней,
// остальные планы 31 день от момента создания. Покупка клиента создаётся в статусе PENDING.
func (s *PurchaseService) Create(ctx context.Context, p CreateParams, source Source) (*models.Purchase, error) {
	const op = "services.purchases.Create"
	if err := normalizeParams(&p, source); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetUser(ctx, p.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	created, err := s.repo.CreatePurchase(ctx, models.Purchase{
		UserID:        p.UserID,
		ServiceType:   p.ServiceType,
		ServiceID:     p.ServiceID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		TransactionID: NewTransactionID(now),
		PlanType:      p.PlanType,
		ExpiresAt:     period.PlanExpiry(p.PlanType, now),
		CreatedAt:     now,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyExists):
			return nil, ErrDuplicateTransaction
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.PurchaseCreated(string(source))
	s.invalidateStats(ctx)
	s.log.Info("purchase created",
		slog.Int64("id", created.ID),
		slog.String("transaction_id", created.TransactionID),
		slog.String("source", string(source)))
	return created, nil
}

// Get возвращает покупку по ID.
func (s *PurchaseService) Get(ctx context.Context, id int64) (*models.Purchase, error) {
	const op = "services.purchases.Get"
	p, err := s.repo.GetPurchase(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPurchaseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *PurchaseService) prepareFilter(f *models.PurchaseFilter) error {
	f.PaymentStatus = strings.ToUpper(f.PaymentStatus)
	f.ServiceType = strings.ToUpper(f.ServiceType)
	f.PlanType = strings.ToUpper(f.PlanType)
	f.Expiry = strings.ToLower(f.Expiry)
	switch f.Expiry {
	case "", models.ExpirySoon, models.ExpiryExpired, models.ExpiryActive:
	default:
		return ErrInvalidExpiryFilter
	}
	f.Now = s.now().UTC()
	return nil
}

// List возвращает страницу покупок. Фильтр expiry вычисляется относительно текущего момента.
func (s *PurchaseService) List(ctx context.Context, f models.PurchaseFilter, page models.PageRequest) (models.Page[*models.Purchase], error) {
	const op = "services.purchases.List"
	if err := s.prepareFilter(&f); err != nil {
		return models.Page[*models.Purchase]{}, err
	}
	items, total, err := s.repo.ListPurchases(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.Purchase]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.Purchase]{Items: items, Total: total}, nil
}

// ListMine возвращает покупки одного пользователя.
func (s *PurchaseService) ListMine(ctx context.Context, userID int64, f models.PurchaseFilter, page models.PageRequest) (models.Page[*models.Purchase], error) {
	f.UserID = &userID
	return s.List(ctx, f, page)
}

// Export возвращает все покупки, подходящие под фильтр.
func (s *PurchaseService) Export(ctx context.Context, f models.PurchaseFilter) ([]*models.Purchase, error) {
	const op = "services.purchases.Export"
	if err := s.prepareFilter(&f); err != nil {
		return nil, err
	}
	items, _, err := s.repo.ListPurchases(ctx, f, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Stats возвращает сводную статистику. Выручка считается только по COMPLETED.
func (s *PurchaseService) Stats(ctx context.Context) (*models.PurchaseStats, error) {
	const op = "services.purchases.Stats"

	var cached models.PurchaseStats
	found, err := s.cache.Get(ctx, StatsCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", StatsCacheKey), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	aggregates, err := s.repo.PurchaseStatusAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	counts, err := s.repo.PurchaseExpiryCounts(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := BuildStats(aggregates, counts)
	if err := s.cache.Set(ctx, StatsCacheKey, stats, statsCacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", StatsCacheKey), slog.Any("err", err))
	}
	return stats, nil
}

// BuildStats сводит агрегаты по статусам и счётчики сроков в статистику.
func BuildStats(aggregates []models.StatusAggregate, counts models.ExpiryCounts) *models.PurchaseStats {
	stats := &models.PurchaseStats{
		ByStatus: map[string]int{
			models.PaymentCompleted: 0,
			models.PaymentPending:   0,
			models.PaymentFailed:    0,
			models.PaymentRefunded:  0,
		},
		Active:       counts.Active,
		ExpiringSoon: counts.ExpiringSoon,
		Expired:      counts.Expired,
	}
	for _, a := range aggregates {
		stats.TotalPurchases += a.Count
		stats.ByStatus[a.Status] = a.Count
		if a.Status == models.PaymentCompleted {
			stats.TotalRevenue += a.Amount
		}
	}
	return stats
}

// CorrectStatus меняет статус оплаты покупки. Остальные поля записи неизменны.
func (s *PurchaseService) CorrectStatus(ctx context.Context, id int64, status string) (*models.Purchase, error) {
	const op = "services.purchases.CorrectStatus"
	status = strings.ToUpper(strings.TrimSpace(status))
	if !ValidPaymentStatus(status) {
		return nil, ErrInvalidPaymentStatus
	}
	if err := s.repo.UpdatePurchaseStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrPurchaseNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateStats(ctx)
	s.log.Info("purchase status corrected", slog.Int64("id", id), slog.String("status", status))
	return s.Get(ctx, id)
}

func (s *PurchaseService) invalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, StatsCacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", StatsCacheKey), slog.Any("err", err))
	}
}
