// Package servicerequests обрабатывает заявки партнёров на подключение услуг.
// Одобрение заявки создаёт запись в журнале покупок в той же транзакции.
package servicerequests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/period"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/purchases"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// PaymentMethod способ оплаты покупок, созданных одобрением заявки.
const PaymentMethod = "SERVICE_REQUEST"

// Ошибки заявок.
var (
	ErrRequestNotFound      = apperr.NotFound("service request not found")
	ErrRequestNotPending    = apperr.Conflict("service request has already been processed")
	ErrInvalidBillingCycle  = apperr.Validation("billingCycle must be MONTHLY, QUARTERLY or YEARLY")
	ErrInvalidServiceType   = apperr.Validation("serviceType must be CLOUD or SERVER")
	ErrInvalidAmount        = apperr.Validation("amount must not be negative")
	ErrInvalidStatusFilter  = apperr.Validation("status must be PENDING, APPROVED or REJECTED")
	ErrDuplicateTransaction = apperr.Conflict("transaction id already exists")
)

// Repository хранилище заявок.
type Repository interface {
	CreateServiceRequest(ctx context.Context, r models.ServiceRequest) (*models.ServiceRequest, error)
	GetServiceRequest(ctx context.Context, id int64) (*models.ServiceRequest, error)
	ListServiceRequests(ctx context.Context, f models.ServiceRequestFilter, limit, offset int) ([]*models.ServiceRequest, int, error)
	ApproveServiceRequest(ctx context.Context, a repository.Approval) (*models.ApprovalResult, error)
	RejectServiceRequest(ctx context.Context, id, adminID int64, notes *string, at time.Time) (*models.ServiceRequest, error)
}

// Cache сбрасывает закэшированную статистику покупок.
type Cache interface {
	Invalidate(ctx context.Context, keys ...string) error
}

// ServiceRequestService бизнес-логика заявок.
type ServiceRequestService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewServiceRequestService создаёт ServiceRequestService.
func NewServiceRequestService(repo Repository, cache Cache, log *slog.Logger) *ServiceRequestService {
	return &ServiceRequestService{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Submit сохраняет заявку партнёра partnerID в статусе PENDING.
func (s *ServiceRequestService) Submit(ctx context.Context, partnerID int64, r models.ServiceRequest) (*models.ServiceRequest, error) {
	const op = "services.servicerequests.Submit"

	r.BillingCycle = strings.ToUpper(strings.TrimSpace(r.BillingCycle))
	switch r.BillingCycle {
	case "":
		r.BillingCycle = models.PlanMonthly
	case models.PlanMonthly, models.PlanQuarterly, models.PlanYearly:
	default:
		return nil, ErrInvalidBillingCycle
	}
	r.ServiceType = strings.ToUpper(strings.TrimSpace(r.ServiceType))
	if r.ServiceType != models.ServiceTypeCloud && r.ServiceType != models.ServiceTypeServer {
		return nil, ErrInvalidServiceType
	}
	if r.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.PartnerID = &partnerID

	created, err := s.repo.CreateServiceRequest(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("service request submitted", slog.Int64("id", created.ID), slog.Int64("partner_id", partnerID))
	return created, nil
}

// Get возвращает заявку по ID.
func (s *ServiceRequestService) Get(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	const op = "services.servicerequests.Get"
	r, err := s.repo.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return r, nil
}

// List возвращает страницу заявок.
func (s *ServiceRequestService) List(ctx context.Context, f models.ServiceRequestFilter, page models.PageRequest) (models.Page[*models.ServiceRequest], error) {
	const op = "services.servicerequests.List"
	f.Status = strings.ToUpper(f.Status)
	switch f.Status {
	case "", models.RequestPending, models.RequestApproved, models.RequestRejected:
	default:
		return models.Page[*models.ServiceRequest]{}, ErrInvalidStatusFilter
	}
	items, total, err := s.repo.ListServiceRequests(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.ServiceRequest]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.ServiceRequest]{Items: items, Total: total}, nil
}

// ListMine возвращает только заявки партнёра partnerID.
func (s *ServiceRequestService) ListMine(ctx context.Context, partnerID int64, f models.ServiceRequestFilter, page models.PageRequest) (models.Page[*models.ServiceRequest], error) {
	f.PartnerID = &partnerID
	return s.List(ctx, f, page)
}

// Approve одобряет заявку в статусе PENDING: находит или создаёт пользователя,
// пишет покупку со сроком по периоду оплаты и переводит заявку в APPROVED.
// Повторное одобрение даёт ErrRequestNotPending без второй записи в журнале.
func (s *ServiceRequestService) Approve(ctx context.Context, id, adminID int64, notes *string) (*models.ApprovalResult, error) {
	const op = "services.servicerequests.Approve"
	now := s.now().UTC()

	result, err := s.repo.ApproveServiceRequest(ctx, repository.Approval{
		RequestID: id,
		AdminID:   adminID,
		Notes:     notes,
		At:        now,
		Purchase: func(req *models.ServiceRequest) models.Purchase {
			return models.Purchase{
				ServiceType:   req.ServiceType,
				ServiceID:     req.ServiceID,
				Amount:        req.Amount,
				Currency:      req.Currency,
				PaymentMethod: PaymentMethod,
				PaymentStatus: models.PaymentCompleted,
				TransactionID: purchases.NewTransactionID(now),
				PlanType:      planType(req.BillingCycle),
				ExpiresAt:     period.BillingCycleExpiry(req.BillingCycle, now),
				CreatedAt:     now,
			}
		},
	})
	if err != nil {
		return nil, wrap(op, err)
	}

	metrics.PurchaseCreated(string(purchases.SourceServiceRequest))
	if err := s.cache.Invalidate(ctx, purchases.StatsCacheKey); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", purchases.StatsCacheKey), slog.Any("err", err))
	}
	s.log.Info("service request approved",
		slog.Int64("id", id),
		slog.Int64("admin_id", adminID),
		slog.Int64("purchase_id", result.Purchase.ID),
		slog.Bool("user_created", result.UserCreated))
	return result, nil
}

// Reject отклоняет заявку в статусе PENDING. Журнал покупок не меняется.
func (s *ServiceRequestService) Reject(ctx context.Context, id, adminID int64, notes *string) (*models.ServiceRequest, error) {
	const op = "services.servicerequests.Reject"
	r, err := s.repo.RejectServiceRequest(ctx, id, adminID, notes, s.now().UTC())
	if err != nil {
		return nil, wrap(op, err)
	}
	s.log.Info("service request rejected", slog.Int64("id", id), slog.Int64("admin_id", adminID))
	return r, nil
}

func planType(cycle string) string {
	switch strings.ToUpper(cycle) {
	case models.PlanYearly:
		return models.PlanYearly
	case models.PlanQuarterly:
		return models.PlanQuarterly
	default:
		return models.PlanMonthly
	}
}

func wrap(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotPending):
		return fmt.Errorf("%s: %w", op, ErrRequestNotPending)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrRequestNotFound)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, ErrDuplicateTransaction)
	}
	return fmt.Errorf("%s: %w", op, err)
}
