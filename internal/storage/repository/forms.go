package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const formColumns = `id, type, name, email, phone, company_name, subject, message, service_name,
	status, user_id, created_at, updated_at`

func scanForm(row scanner) (*models.FormSubmission, error) {
	var (
		f      models.FormSubmission
		userID sql.NullInt64
	)
	if err := row.Scan(&f.ID, &f.Type, &f.Name, &f.Email, &f.Phone, &f.CompanyName, &f.Subject,
		&f.Message, &f.ServiceName, &f.Status, &userID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.UserID = int64Ptr(userID)
	return &f, nil
}

// CreateFormSubmission сохраняет форму со статусом new.
func (s *Storage) CreateFormSubmission(ctx context.Context, f models.FormSubmission) (*models.FormSubmission, error) {
	const op = "storage.CreateFormSubmission"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO form_submissions (type, name, email, phone, company_name, subject,
			      message, service_name, status, user_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + formColumns
	created, err := scanForm(s.DB.QueryRowContext(ctx, query,
		string(f.Type), f.Name, f.Email, f.Phone, f.CompanyName, f.Subject, f.Message, f.ServiceName,
		models.FormStatusNew, nullInt64(f.UserID)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetFormSubmission возвращает форму по ID.
func (s *Storage) GetFormSubmission(ctx context.Context, id int64) (*models.FormSubmission, error) {
	const op = "storage.GetFormSubmission"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := scanForm(s.DB.QueryRowContext(ctx,
		`SELECT `+formColumns+` FROM form_submissions WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return f, nil
}

// ListFormSubmissions возвращает страницу форм и их общее количество.
func (s *Storage) ListFormSubmissions(ctx context.Context, f models.FormFilter, limit, offset int) ([]*models.FormSubmission, int, error) {
	const op = "storage.ListFormSubmissions"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.eq("type", string(f.Type))
	w.eq("status", f.Status)
	w.search(f.Search, "name", "email", "company_name", "subject")

	total, err := count(ctx, s.DB, "form_submissions", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+formColumns+` FROM form_submissions`+w.String()+
			` ORDER BY created_at DESC, id DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.FormSubmission, 0)
	for rows.Next() {
		item, err := scanForm(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// SetFormStatus меняет статус формы.
func (s *Storage) SetFormStatus(ctx context.Context, id int64, status string) (*models.FormSubmission, error) {
	const op = "storage.SetFormStatus"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f, err := scanForm(s.DB.QueryRowContext(ctx,
		`UPDATE form_submissions SET status = $1, updated_at = NOW() WHERE id = $2
		 RETURNING `+formColumns, status, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return f, nil
}

// DeleteFormSubmission удаляет форму.
func (s *Storage) DeleteFormSubmission(ctx context.Context, id int64) error {
	const op = "storage.DeleteFormSubmission"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM form_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
