package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const serviceRequestColumns = `id, partner_id, name, email, phone, company_name, service_type,
	service_id, service_name, billing_cycle, amount, currency, notes, status, admin_notes,
	approved_by, approved_at, created_at, updated_at`

func scanServiceRequest(row scanner) (*models.ServiceRequest, error) {
	var (
		r                     models.ServiceRequest
		partnerID, approvedBy sql.NullInt64
		adminNotes            sql.NullString
		approvedAt            sql.NullTime
	)
	if err := row.Scan(&r.ID, &partnerID, &r.Name, &r.Email, &r.Phone, &r.CompanyName,
		&r.ServiceType, &r.ServiceID, &r.ServiceName, &r.BillingCycle, &r.Amount, &r.Currency,
		&r.Notes, &r.Status, &adminNotes, &approvedBy, &approvedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.PartnerID = int64Ptr(partnerID)
	r.AdminNotes = stringPtr(adminNotes)
	r.ApprovedBy = int64Ptr(approvedBy)
	r.ApprovedAt = timePtr(approvedAt)
	return &r, nil
}

// CreateServiceRequest сохраняет заявку в статусе PENDING.
func (s *Storage) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) (*models.ServiceRequest, error) {
	const op = "storage.CreateServiceRequest"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO service_requests (partner_id, name, email, phone, company_name,
			      service_type, service_id, service_name, billing_cycle, amount, currency, notes, status)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 'PENDING')
			  RETURNING ` + serviceRequestColumns
	created, err := scanServiceRequest(s.DB.QueryRowContext(ctx, query,
		nullInt64(r.PartnerID), r.Name, r.Email, r.Phone, r.CompanyName, r.ServiceType, r.ServiceID,
		r.ServiceName, r.BillingCycle, r.Amount, r.Currency, r.Notes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetServiceRequest возвращает заявку по ID.
func (s *Storage) GetServiceRequest(ctx context.Context, id int64) (*models.ServiceRequest, error) {
	const op = "storage.GetServiceRequest"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r, err := scanServiceRequest(s.DB.QueryRowContext(ctx,
		`SELECT `+serviceRequestColumns+` FROM service_requests WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return r, nil
}

// ListServiceRequests возвращает страницу заявок и их общее количество.
func (s *Storage) ListServiceRequests(ctx context.Context, f models.ServiceRequestFilter, limit, offset int) ([]*models.ServiceRequest, int, error) {
	const op = "storage.ListServiceRequests"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.eq("status", f.Status)
	if f.PartnerID != nil {
		w.add("partner_id = %s", *f.PartnerID)
	}
	w.search(f.Search, "name", "email", "company_name", "service_name")

	total, err := count(ctx, s.DB, "service_requests", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+serviceRequestColumns+` FROM service_requests`+w.String()+
			` ORDER BY created_at DESC, id DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.ServiceRequest, 0)
	for rows.Next() {
		r, err := scanServiceRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// Approval параметры одобрения заявки. Purchase строит запись журнала по заблокированной
// заявке; UserID и ServiceRequestID заполняются хранилищем.
type Approval struct {
	RequestID int64
	AdminID   int64
	Notes     *string
	At        time.Time
	Purchase  func(req *models.ServiceRequest) models.Purchase
}

func lockServiceRequest(ctx context.Context, tx *sql.Tx, id int64) (*models.ServiceRequest, error) {
	r, err := scanServiceRequest(tx.QueryRowContext(ctx,
		`SELECT `+serviceRequestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err)
	}
	if r.Status != models.RequestPending {
		return nil, ErrNotPending
	}
	return r, nil
}

func decideServiceRequest(ctx context.Context, tx *sql.Tx, id int64, status string, adminID int64, notes *string, at time.Time) (*models.ServiceRequest, error) {
	query := `UPDATE service_requests
			  SET status = $1, admin_notes = $2, approved_by = $3, approved_at = $4, updated_at = $4
			  WHERE id = $5
			  RETURNING ` + serviceRequestColumns
	r, err := scanServiceRequest(tx.QueryRowContext(ctx, query, status, notes, adminID, at, id))
	if err != nil {
		return nil, mapError(err)
	}
	return r, nil
}

// ApproveServiceRequest в одной транзакции блокирует заявку, находит или создаёт
// пользователя по email заявки, пишет покупку и переводит заявку в APPROVED.
// Заявка не в статусе PENDING даёт ErrNotPending без записи в журнал.
func (s *Storage) ApproveServiceRequest(ctx context.Context, a Approval) (*models.ApprovalResult, error) {
	const op = "storage.ApproveServiceRequest"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &models.ApprovalResult{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		req, err := lockServiceRequest(ctx, tx, a.RequestID)
		if err != nil {
			return err
		}

		var userID int64
		u, err := getUserByEmail(ctx, tx, req.Email)
		switch {
		case err == nil:
			userID = u.ID
		case errors.Is(err, ErrNotFound):
			userID, err = createUser(ctx, tx, models.User{
				Email:       req.Email,
				Role:        models.RoleUser,
				Name:        req.Name,
				Phone:       req.Phone,
				CompanyName: req.CompanyName,
				PartnerID:   req.PartnerID,
			})
			if err != nil {
				return err
			}
			result.UserCreated = true
		default:
			return err
		}

		p := a.Purchase(req)
		p.UserID = userID
		p.ServiceRequestID = &req.ID
		purchase, err := createPurchase(ctx, tx, p)
		if err != nil {
			return err
		}
		purchase.UserEmail = req.Email
		result.Purchase = purchase

		result.Request, err = decideServiceRequest(ctx, tx, req.ID, models.RequestApproved, a.AdminID, a.Notes, a.At)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RejectServiceRequest переводит заявку в REJECTED. Записей в журнал не создаётся.
func (s *Storage) RejectServiceRequest(ctx context.Context, id, adminID int64, notes *string, at time.Time) (*models.ServiceRequest, error) {
	const op = "storage.RejectServiceRequest"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var result *models.ServiceRequest
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := lockServiceRequest(ctx, tx, id); err != nil {
			return err
		}
		var err error
		result, err = decideServiceRequest(ctx, tx, id, models.RequestRejected, adminID, notes, at)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
