package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const partnerColumns = `id, email, company_name, contact_name, phone, address, website, tax_id,
	business_type, message, status, otp, otp_expires, created_at, updated_at`

func scanPartner(row scanner) (*models.PartnerRegistration, error) {
	var (
		p          models.PartnerRegistration
		code       sql.NullString
		otpExpires sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Email, &p.CompanyName, &p.ContactName, &p.Phone, &p.Address,
		&p.Website, &p.TaxID, &p.BusinessType, &p.Message, &p.Status, &code, &otpExpires,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.OTP = stringPtr(code)
	p.OTPExpires = timePtr(otpExpires)
	return &p, nil
}

// UpsertPartnerOTP создаёт заготовку заявки или перезаписывает действующий код.
func (s *Storage) UpsertPartnerOTP(ctx context.Context, email, code string, expires time.Time) (*models.PartnerRegistration, error) {
	const op = "storage.UpsertPartnerOTP"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO partner_registrations (email, status, otp, otp_expires)
			  VALUES ($1, 'pending', $2, $3)
			  ON CONFLICT (email) DO UPDATE
			  SET otp = EXCLUDED.otp, otp_expires = EXCLUDED.otp_expires, updated_at = NOW()
			  RETURNING ` + partnerColumns
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query, email, code, expires))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// GetPartnerRegistration возвращает заявку по ID.
func (s *Storage) GetPartnerRegistration(ctx context.Context, id int64) (*models.PartnerRegistration, error) {
	const op = "storage.GetPartnerRegistration"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + partnerColumns + ` FROM partner_registrations WHERE id = $1`
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// GetPartnerRegistrationByEmail возвращает заявку по email.
func (s *Storage) GetPartnerRegistrationByEmail(ctx context.Context, email string) (*models.PartnerRegistration, error) {
	const op = "storage.GetPartnerRegistrationByEmail"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + partnerColumns + ` FROM partner_registrations WHERE LOWER(email) = LOWER($1)`
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// ConsumePartnerOTP очищает код подтверждения, если он совпадает с code.
// Статус pending переводится в verified, остальные статусы не меняются.
// Возвращает ErrNotFound, если код уже использован или заменён.
func (s *Storage) ConsumePartnerOTP(ctx context.Context, id int64, code string) (*models.PartnerRegistration, error) {
	const op = "storage.ConsumePartnerOTP"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE partner_registrations
			  SET otp = NULL, otp_expires = NULL,
			      status = CASE WHEN status = 'pending' THEN 'verified' ELSE status END,
			      updated_at = NOW()
			  WHERE id = $1 AND otp = $2
			  RETURNING ` + partnerColumns
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query, id, code))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// SubmitPartnerDetails записывает поля полной заявки и возвращает статус в pending.
// Одобренные заявки не изменяются: для них возвращается ErrNotFound.
func (s *Storage) SubmitPartnerDetails(ctx context.Context, email string, d models.PartnerDetails) (*models.PartnerRegistration, error) {
	const op = "storage.SubmitPartnerDetails"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE partner_registrations
			  SET company_name = $1, contact_name = $2, phone = $3, address = $4, website = $5,
			      tax_id = $6, business_type = $7, message = $8, status = 'pending', updated_at = NOW()
			  WHERE LOWER(email) = LOWER($9) AND status <> 'approved'
			  RETURNING ` + partnerColumns
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query,
		d.CompanyName, d.ContactName, d.Phone, d.Address, d.Website, d.TaxID, d.BusinessType,
		d.Message, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// SetPartnerStatus перезаписывает статус заявки.
func (s *Storage) SetPartnerStatus(ctx context.Context, id int64, status models.PartnerStatus) (*models.PartnerRegistration, error) {
	const op = "storage.SetPartnerStatus"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE partner_registrations SET status = $1, updated_at = NOW()
			  WHERE id = $2
			  RETURNING ` + partnerColumns
	p, err := scanPartner(s.DB.QueryRowContext(ctx, query, string(status), id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return p, nil
}

// ListPartnerRegistrations возвращает страницу заявок и их общее количество.
func (s *Storage) ListPartnerRegistrations(ctx context.Context, f models.PartnerFilter, limit, offset int) ([]*models.PartnerRegistration, int, error) {
	const op = "storage.ListPartnerRegistrations"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.eq("status", string(f.Status))
	w.search(f.Search, "email", "company_name", "contact_name")

	total, err := count(ctx, s.DB, "partner_registrations", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	query := `SELECT ` + partnerColumns + ` FROM partner_registrations` + w.String() +
		` ORDER BY created_at DESC, id DESC` + pageSQL
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.PartnerRegistration, 0)
	for rows.Next() {
		p, err := scanPartner(rows)
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

// PartnerSummary считает заявки по статусам.
func (s *Storage) PartnerSummary(ctx context.Context) (models.PartnerSummary, error) {
	const op = "storage.PartnerSummary"
	var sum models.PartnerSummary
	if err := checkCtx(ctx); err != nil {
		return sum, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM partner_registrations GROUP BY status`)
	if err != nil {
		return sum, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var (
			status models.PartnerStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return sum, fmt.Errorf("%s: %w", op, err)
		}
		switch status {
		case models.PartnerPending:
			sum.Pending = n
		case models.PartnerVerified:
			sum.Verified = n
		case models.PartnerApproved:
			sum.Approved = n
		case models.PartnerRejected:
			sum.Rejected = n
		}
		sum.Total += n
	}
	if err := rows.Err(); err != nil {
		return sum, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

// DeletePartnerRegistration удаляет заявку.
func (s *Storage) DeletePartnerRegistration(ctx context.Context, id int64) error {
	const op = "storage.DeletePartnerRegistration"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM partner_registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
