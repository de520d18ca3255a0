package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

const vpsColumns = `id, name, os, cpu, ram, storage, bandwidth, location, price, created_at, updated_at`

func scanVPS(row scanner) (*models.VPSServer, error) {
	var v models.VPSServer
	if err := row.Scan(&v.ID, &v.Name, &v.OS, &v.CPU, &v.RAM, &v.Storage, &v.Bandwidth,
		&v.Location, &v.Price, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVPS сохраняет VPS.
func (s *Storage) CreateVPS(ctx context.Context, v models.VPSServer) (*models.VPSServer, error) {
	const op = "storage.CreateVPS"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO vps_servers (name, os, cpu, ram, storage, bandwidth, location, price)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + vpsColumns
	created, err := scanVPS(s.DB.QueryRowContext(ctx, query,
		v.Name, v.OS, v.CPU, v.RAM, v.Storage, v.Bandwidth, v.Location, v.Price))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetVPS возвращает VPS по ID.
func (s *Storage) GetVPS(ctx context.Context, id int64) (*models.VPSServer, error) {
	const op = "storage.GetVPS"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	v, err := scanVPS(s.DB.QueryRowContext(ctx, `SELECT `+vpsColumns+` FROM vps_servers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return v, nil
}

// ListVPS возвращает страницу VPS, отфильтрованную по ОС и строке поиска.
func (s *Storage) ListVPS(ctx context.Context, f models.ServerFilter, limit, offset int) ([]*models.VPSServer, int, error) {
	const op = "storage.ListVPS"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.eq("os", f.OS)
	w.search(f.Search, "name", "location")

	total, err := count(ctx, s.DB, "vps_servers", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+vpsColumns+` FROM vps_servers`+w.String()+` ORDER BY price, id`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.VPSServer, 0)
	for rows.Next() {
		v, err := scanVPS(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateVPS перезаписывает VPS.
func (s *Storage) UpdateVPS(ctx context.Context, id int64, v models.VPSServer) (*models.VPSServer, error) {
	const op = "storage.UpdateVPS"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE vps_servers
			  SET name = $1, os = $2, cpu = $3, ram = $4, storage = $5, bandwidth = $6,
			      location = $7, price = $8, updated_at = NOW()
			  WHERE id = $9
			  RETURNING ` + vpsColumns
	updated, err := scanVPS(s.DB.QueryRowContext(ctx, query,
		v.Name, v.OS, v.CPU, v.RAM, v.Storage, v.Bandwidth, v.Location, v.Price, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return updated, nil
}

// DeleteVPS удаляет VPS.
func (s *Storage) DeleteVPS(ctx context.Context, id int64) error {
	const op = "storage.DeleteVPS"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM vps_servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const dedicatedColumns = `id, name, chip, processor, cores, ram, storage, bandwidth, location, price,
	created_at, updated_at`

func scanDedicated(row scanner) (*models.DedicatedServer, error) {
	var d models.DedicatedServer
	if err := row.Scan(&d.ID, &d.Name, &d.Chip, &d.Processor, &d.Cores, &d.RAM, &d.Storage,
		&d.Bandwidth, &d.Location, &d.Price, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDedicated сохраняет выделенный сервер.
func (s *Storage) CreateDedicated(ctx context.Context, d models.DedicatedServer) (*models.DedicatedServer, error) {
	const op = "storage.CreateDedicated"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO dedicated_servers (name, chip, processor, cores, ram, storage, bandwidth,
			      location, price)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING ` + dedicatedColumns
	created, err := scanDedicated(s.DB.QueryRowContext(ctx, query,
		d.Name, d.Chip, d.Processor, d.Cores, d.RAM, d.Storage, d.Bandwidth, d.Location, d.Price))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return created, nil
}

// GetDedicated возвращает выделенный сервер по ID.
func (s *Storage) GetDedicated(ctx context.Context, id int64) (*models.DedicatedServer, error) {
	const op = "storage.GetDedicated"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	d, err := scanDedicated(s.DB.QueryRowContext(ctx,
		`SELECT `+dedicatedColumns+` FROM dedicated_servers WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return d, nil
}

// ListDedicated возвращает страницу выделенных серверов, отфильтрованную по производителю CPU.
func (s *Storage) ListDedicated(ctx context.Context, f models.ServerFilter, limit, offset int) ([]*models.DedicatedServer, int, error) {
	const op = "storage.ListDedicated"
	if err := checkCtx(ctx); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	w := &where{}
	w.eq("chip", f.Chip)
	w.search(f.Search, "name", "processor", "location")

	total, err := count(ctx, s.DB, "dedicated_servers", w)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	pageSQL, args := w.page(limit, offset)
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+dedicatedColumns+` FROM dedicated_servers`+w.String()+` ORDER BY price, id`+pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]*models.DedicatedServer, 0)
	for rows.Next() {
		d, err := scanDedicated(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// UpdateDedicated перезаписывает выделенный сервер.
func (s *Storage) UpdateDedicated(ctx context.Context, id int64, d models.DedicatedServer) (*models.DedicatedServer, error) {
	const op = "storage.UpdateDedicated"
	if err := checkCtx(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE dedicated_servers
			  SET name = $1, chip = $2, processor = $3, cores = $4, ram = $5, storage = $6,
			      bandwidth = $7, location = $8, price = $9, updated_at = NOW()
			  WHERE id = $10
			  RETURNING ` + dedicatedColumns
	updated, err := scanDedicated(s.DB.QueryRowContext(ctx, query,
		d.Name, d.Chip, d.Processor, d.Cores, d.RAM, d.Storage, d.Bandwidth, d.Location, d.Price, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return updated, nil
}

// DeleteDedicated удаляет выделенный сервер.
func (s *Storage) DeleteDedicated(ctx context.Context, id int64) error {
	const op = "storage.DeleteDedicated"
	if err := checkCtx(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM dedicated_servers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
