package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// CreateCategory сохраняет категорию. Повтор имени возвращает ErrAlreadyExists.
func (s *Storage) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	const op = "storage.CreateCategory"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := &models.Category{Name: name, Description: description}
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name, description) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`, name, description).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return c, nil
}

const categorySelect = `SELECT c.id, c.name, c.description,
	(SELECT COUNT(*) FROM category_types t WHERE t.category_id = c.id),
	c.created_at, c.updated_at
	FROM categories c`

func scanCategory(row scanner) (*models.Category, error) {
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.TypeCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategory возвращает категорию по ID.
func (s *Storage) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "storage.GetCategory"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c, err := scanCategory(s.DB.QueryRowContext(ctx, categorySelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return c, nil
}

// ListCategories возвращает категории с количеством типов.
func (s *Storage) ListCategories(ctx context.Context, search string, limit, offset int) ([]*models.Category, int, error) {
	const op = "storage.ListCategories"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.search(search, "c.name", "c.description")
	total, err := count(ctx, s.DB, "categories c", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx, categorySelect+w.String()+` ORDER BY c.name`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateCategory меняет имя и описание категории.
func (s *Storage) UpdateCategory(ctx context.Context, id int64, name, description string) error {
	const op = "storage.UpdateCategory"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE categories SET name = $1, description = $2, updated_at = NOW() WHERE id = $3`,
		name, description, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteCategory удаляет категорию вместе с её типами.
func (s *Storage) DeleteCategory(ctx context.Context, id int64) error {
	const op = "storage.DeleteCategory"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const categoryTypeColumns = `id, category_id, name, description, created_at, updated_at`

func scanCategoryType(row scanner) (*models.CategoryType, error) {
	var t models.CategoryType
	if err := row.Scan(&t.ID, &t.CategoryID, &t.Name, &t.Description, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateCategoryType сохраняет тип категории.
func (s *Storage) CreateCategoryType(ctx context.Context, categoryID int64, name, description string) (*models.CategoryType, error) {
	const op = "storage.CreateCategoryType"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err := scanCategoryType(s.DB.QueryRowContext(ctx,
		`INSERT INTO category_types (category_id, name, description) VALUES ($1, $2, $3)
		 RETURNING `+categoryTypeColumns, categoryID, name, description))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return t, nil
}

// GetCategoryType возвращает тип категории по ID.
func (s *Storage) GetCategoryType(ctx context.Context, id int64) (*models.CategoryType, error) {
	const op = "storage.GetCategoryType"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err := scanCategoryType(s.DB.QueryRowContext(ctx,
		`SELECT `+categoryTypeColumns+` FROM category_types WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return t, nil
}

// ListCategoryTypes возвращает типы категории.
func (s *Storage) ListCategoryTypes(ctx context.Context, categoryID int64) ([]*models.CategoryType, error) {
	const op = "storage.ListCategoryTypes"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+categoryTypeColumns+` FROM category_types WHERE category_id = $1 ORDER BY name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.CategoryType, 0)
	for rows.Next() {
		t, err := scanCategoryType(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// UpdateCategoryType меняет имя и описание типа.
func (s *Storage) UpdateCategoryType(ctx context.Context, id int64, name, description string) (*models.CategoryType, error) {
	const op = "storage.UpdateCategoryType"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	t, err := scanCategoryType(s.DB.QueryRowContext(ctx,
		`UPDATE category_types SET name = $1, description = $2, updated_at = NOW()
		 WHERE id = $3 RETURNING `+categoryTypeColumns, name, description, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return t, nil
}

// DeleteCategoryType удаляет тип категории.
func (s *Storage) DeleteCategoryType(ctx context.Context, id int64) error {
	const op = "storage.DeleteCategoryType"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM category_types WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const serviceColumns = `id, name, description, category_id, category_type_id, monthly_price,
	yearly_price, features, status, priority, owner_id, created_at, updated_at`

func (s *Storage) scanService(row scanner) (*models.Service, error) {
	var (
		svc                    models.Service
		categoryID, categoryTy sql.NullInt64
	)
	if err := row.Scan(&svc.ID, &svc.Name, &svc.Description, &categoryID, &categoryTy,
		&svc.MonthlyPrice, &svc.YearlyPrice, s.tm.SQLScanner(&svc.Features), &svc.Status,
		&svc.Priority, &svc.OwnerID, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return nil, err
	}
	if svc.Features == nil {
		svc.Features = []string{}
	}
	svc.CategoryID = int64Ptr(categoryID)
	svc.CategoryTypeID = int64Ptr(categoryTy)
	return &svc, nil
}

// CreateService сохраняет услугу.
func (s *Storage) CreateService(ctx context.Context, svc models.Service) (*models.Service, error) {
	const op = "storage.CreateService"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO services (name, description, category_id, category_type_id, monthly_price,
			      yearly_price, features, status, priority, owner_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING ` + serviceColumns
	created, err := s.scanService(s.DB.QueryRowContext(ctx, query,
		svc.Name, svc.Description, nullInt64(svc.CategoryID), nullInt64(svc.CategoryTypeID),
		svc.MonthlyPrice, svc.YearlyPrice, features(svc.Features), svc.Status, svc.Priority, svc.OwnerID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetService возвращает услугу по ID.
func (s *Storage) GetService(ctx context.Context, id int64) (*models.Service, error) {
	const op = "storage.GetService"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc, err := s.scanService(s.DB.QueryRowContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return svc, nil
}

// ListServices возвращает страницу услуг и их общее количество.
func (s *Storage) ListServices(ctx context.Context, f models.ServiceFilter, limit, offset int) ([]*models.Service, int, error) {
	const op = "storage.ListServices"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.search(f.Search, "name", "description")
	w.eq("status", f.Status)
	w.eq("priority", f.Priority)
	if f.CategoryID != nil {
		w.add("category_id = %s", *f.CategoryID)
	}

	total, err := count(ctx, s.DB, "services", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services`+w.String()+` ORDER BY id DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.Service, 0)
	for rows.Next() {
		svc, err := s.scanService(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateService перезаписывает изменяемые поля услуги. Владелец не меняется.
func (s *Storage) UpdateService(ctx context.Context, id int64, svc models.Service) (*models.Service, error) {
	const op = "storage.UpdateService"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE services
			  SET name = $1, description = $2, category_id = $3, category_type_id = $4,
			      monthly_price = $5, yearly_price = $6, features = $7, status = $8, priority = $9,
			      updated_at = NOW()
			  WHERE id = $10
			  RETURNING ` + serviceColumns
	updated, err := s.scanService(s.DB.QueryRowContext(ctx, query,
		svc.Name, svc.Description, nullInt64(svc.CategoryID), nullInt64(svc.CategoryTypeID),
		svc.MonthlyPrice, svc.YearlyPrice, features(svc.Features), svc.Status, svc.Priority, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return updated, nil
}

// DeleteService удаляет услугу.
func (s *Storage) DeleteService(ctx context.Context, id int64) error {
	const op = "storage.DeleteService"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func features(f []string) []string {
	if f == nil {
		return []string{}
	}
	return f
}
