package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/period"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const purchaseColumns = `pu.id, pu.user_id, u.email, pu.service_type, pu.service_id, pu.amount,
	pu.currency, pu.payment_method, pu.payment_status, pu.transaction_id, pu.plan_type,
	pu.expires_at, pu.service_request_id, pu.created_at, pu.updated_at`

const purchaseFrom = `purchases pu JOIN users u ON u.id = pu.user_id`

func scanPurchase(row scanner) (*models.Purchase, error) {
	var (
		p         models.Purchase
		requestID sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.UserEmail, &p.ServiceType, &p.ServiceID, &p.Amount,
		&p.Currency, &p.PaymentMethod, &p.PaymentStatus, &p.TransactionID, &p.PlanType,
		&p.ExpiresAt, &requestID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ServiceRequestID = int64Ptr(requestID)
	return &p, nil
}

func createPurchase(ctx context.Context, q querier, p models.Purchase) (*models.Purchase, error) {
	query := `INSERT INTO purchases (user_id, service_type, service_id, amount, currency,
			      payment_method, payment_status, transaction_id, plan_type, expires_at,
			      service_request_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
			  RETURNING id, created_at, updated_at`
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	err := q.QueryRowContext(ctx, query,
		p.UserID, p.ServiceType, p.ServiceID, p.Amount, p.Currency, p.PaymentMethod,
		p.PaymentStatus, p.TransactionID, p.PlanType, p.ExpiresAt, nullInt64(p.ServiceRequestID),
		p.CreatedAt).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

// CreatePurchase добавляет запись в журнал покупок.
// Несуществующий пользователь даёт ErrNotFound, повтор transaction_id ErrAlreadyExists.
func (s *Storage) CreatePurchase(ctx context.Context, p models.Purchase) (*models.Purchase, error) {
	const op = "storage.CreatePurchase"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := createPurchase(ctx, s.DB, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetPurchase возвращает покупку по ID.
func (s *Storage) GetPurchase(ctx context.Context, id int64) (*models.Purchase, error) {
	const op = "storage.GetPurchase"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p, err := scanPurchase(s.DB.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+` WHERE pu.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

func purchaseWhere(f models.PurchaseFilter) *where {
	w := &where{}
	w.eq("pu.payment_status", f.PaymentStatus)
	w.eq("pu.service_type", f.ServiceType)
	w.eq("pu.plan_type", f.PlanType)
	if f.UserID != nil {
		w.add("pu.user_id = %s", *f.UserID)
	}
	switch f.Expiry {
	case models.ExpirySoon:
		w.add("pu.expires_at >= %s", f.Now)
		w.add("pu.expires_at <= %s", f.Now.Add(period.ExpiringSoonWindow))
	case models.ExpiryExpired:
		w.add("pu.expires_at < %s", f.Now)
	case models.ExpiryActive:
		w.add("pu.expires_at >= %s", f.Now)
	}
	w.search(f.Search, "pu.transaction_id", "pu.service_id", "u.email")
	return w
}

// ListPurchases возвращает страницу покупок и их общее количество.
func (s *Storage) ListPurchases(ctx context.Context, f models.PurchaseFilter, limit, offset int) ([]*models.Purchase, int, error) {
	const op = "storage.ListPurchases"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := purchaseWhere(f)
	total, err := count(ctx, s.DB, purchaseFrom, w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+purchaseColumns+` FROM `+purchaseFrom+w.String()+
			` ORDER BY pu.created_at DESC, pu.id DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// PurchaseStatusAggregates возвращает количество и сумму покупок по каждому статусу оплаты.
func (s *Storage) PurchaseStatusAggregates(ctx context.Context) ([]models.StatusAggregate, error) {
	const op = "storage.PurchaseStatusAggregates"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT payment_status, COUNT(*), COALESCE(SUM(amount), 0)
		 FROM purchases GROUP BY payment_status`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.StatusAggregate
	for rows.Next() {
		var a models.StatusAggregate
		if err := rows.Scan(&a.Status, &a.Count, &a.Amount); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// PurchaseExpiryCounts считает действующие, скоро истекающие и истёкшие покупки на момент now.
func (s *Storage) PurchaseExpiryCounts(ctx context.Context, now time.Time) (models.ExpiryCounts, error) {
	const op = "storage.PurchaseExpiryCounts"
	var c models.ExpiryCounts
	if err := checkCtx(ctx); err != nil {
		return c, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT
			      COUNT(*) FILTER (WHERE expires_at >= $1),
			      COUNT(*) FILTER (WHERE expires_at >= $1 AND expires_at <= $2),
			      COUNT(*) FILTER (WHERE expires_at < $1)
			  FROM purchases`
	err := s.DB.QueryRowContext(ctx, query, now, now.Add(period.ExpiringSoonWindow)).
		Scan(&c.Active, &c.ExpiringSoon, &c.Expired)
	if err != nil {
		return c, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// UpdatePurchaseStatus меняет статус оплаты. Это единственное изменение записи журнала.
func (s *Storage) UpdatePurchaseStatus(ctx context.Context, id int64, status string) error {
	const op = "storage.UpdatePurchaseStatus"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE purchases SET payment_status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindPurchasesExpiringBetween возвращает оплаченные покупки с expires_at в [from, to).
func (s *Storage) FindPurchasesExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiryReminder, error) {
	const op = "storage.FindPurchasesExpiringBetween"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT u.email, u.name, pu.service_type, pu.service_id, pu.expires_at, pu.transaction_id
			  FROM ` + purchaseFrom + `
			  WHERE pu.payment_status = 'COMPLETED' AND pu.expires_at >= $1 AND pu.expires_at < $2
			  ORDER BY pu.expires_at`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.ExpiryReminder
	for rows.Next() {
		var r models.ExpiryReminder
		if err := rows.Scan(&r.Email, &r.Name, &r.ServiceType, &r.ServiceID, &r.ExpiresAt, &r.TransactionID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
