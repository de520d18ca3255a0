package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const userColumns = `u.id, u.email, u.password_hash, u.role, u.name, u.phone, u.address,
	u.company_name, u.tax_id, u.partner_id, p.email, u.refresh_token, u.reset_otp,
	u.reset_otp_expires, u.created_at, u.updated_at`

const userFrom = `users u LEFT JOIN users p ON p.id = u.partner_id`

func scanUser(row scanner) (*models.User, error) {
	var (
		u                     models.User
		passwordHash          sql.NullString
		partnerID             sql.NullInt64
		partnerEmail, refresh sql.NullString
		resetOTP              sql.NullString
		resetOTPExpires       sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Email, &passwordHash, &u.Role, &u.Name, &u.Phone, &u.Address,
		&u.CompanyName, &u.TaxID, &partnerID, &partnerEmail, &refresh, &resetOTP,
		&resetOTPExpires, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = passwordHash.String
	u.PartnerID = int64Ptr(partnerID)
	u.PartnerEmail = stringPtr(partnerEmail)
	u.RefreshToken = stringPtr(refresh)
	u.ResetOTP = stringPtr(resetOTP)
	u.ResetOTPExpires = timePtr(resetOTPExpires)
	return &u, nil
}

func createUser(ctx context.Context, q querier, u models.User) (int64, error) {
	query := `INSERT INTO users (email, password_hash, role, name, phone, address, company_name,
			      tax_id, partner_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var id int64
	err := q.QueryRowContext(ctx, query,
		u.Email, nullString(u.PasswordHash), u.Role, u.Name, u.Phone, u.Address, u.CompanyName,
		u.TaxID, nullInt64(u.PartnerID)).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func getUserByEmail(ctx context.Context, q querier, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM ` + userFrom + ` WHERE LOWER(u.email) = LOWER($1)`
	u, err := scanUser(q.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, mapError(err)
	}
	return u, nil
}

// CreateUser сохраняет пользователя и возвращает его ID.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (int64, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := createUser(ctx, s.DB, u)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetUser возвращает пользователя по ID.
func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUser"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT ` + userColumns + ` FROM ` + userFrom + ` WHERE u.id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := getUserByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// EmailExists проверяет, занят ли email.
func (s *Storage) EmailExists(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailExists"
	if err := checkCtx(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListUsers возвращает страницу пользователей и их общее количество.
// Если limit <= 0, возвращаются все подходящие записи.
func (s *Storage) ListUsers(ctx context.Context, f models.UserFilter, limit, offset int) ([]*models.User, int, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.search(f.Search, "u.email", "u.name", "u.company_name")
	if f.Role.Valid() {
		w.add("u.role = %s", f.Role)
	}
	if f.PartnerID != nil {
		w.add("u.partner_id = %s", *f.PartnerID)
	}

	total, err := count(ctx, s.DB, userFrom, w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	query := `SELECT ` + userColumns + ` FROM ` + userFrom + w.String() + ` ORDER BY u.id DESC` + pageSQL
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateUser обновляет профиль, роль и партнёра пользователя.
func (s *Storage) UpdateUser(ctx context.Context, id int64, p models.UserProfile, role models.Role, partnerID *int64) error {
	const op = "storage.UpdateUser"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET email = $1, name = $2, phone = $3, address = $4, company_name = $5,
			      tax_id = $6, role = $7, partner_id = $8, updated_at = NOW()
			  WHERE id = $9`
	res, err := s.DB.ExecContext(ctx, query,
		p.Email, p.Name, p.Phone, p.Address, p.CompanyName, p.TaxID, role, nullInt64(partnerID), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetRefreshToken сохраняет refresh token пользователя; nil отзывает его.
func (s *Storage) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	const op = "storage.SetRefreshToken"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`, token, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetResetOTP сохраняет код сброса пароля и срок его действия.
func (s *Storage) SetResetOTP(ctx context.Context, id int64, code string, expires time.Time) error {
	const op = "storage.SetResetOTP"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET reset_otp = $1, reset_otp_expires = $2, updated_at = NOW() WHERE id = $3`,
		code, expires, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RevokeRefreshToken отзывает refresh token, если у пользователя сохранён именно он.
// Возвращает ErrNotFound, если токен уже отозван или заменён новым входом.
func (s *Storage) RevokeRefreshToken(ctx context.Context, id int64, token string) error {
	const op = "storage.RevokeRefreshToken"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1 AND refresh_token = $2`,
		id, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ResetPassword записывает новый хэш пароля, очищает код сброса и отзывает refresh token.
// Код проверяется в том же UPDATE: уже использованный код даёт ErrNotFound.
func (s *Storage) ResetPassword(ctx context.Context, id int64, code, passwordHash string) error {
	const op = "storage.ResetPassword"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET password_hash = $1, reset_otp = NULL, reset_otp_expires = NULL,
			      refresh_token = NULL, updated_at = NOW()
			  WHERE id = $2 AND reset_otp = $3`
	res, err := s.DB.ExecContext(ctx, query, passwordHash, id, code)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
