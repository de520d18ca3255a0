// Package inventory управляет предложениями VPS и выделенных серверов.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки инвентаря.
var (
	ErrVPSNotFound       = apperr.NotFound("vps server not found")
	ErrDedicatedNotFound = apperr.NotFound("dedicated server not found")
	ErrInvalidOS         = apperr.Validation("os must be LINUX or WINDOWS")
	ErrInvalidChip       = apperr.Validation("chip must be AMD or INTEL")
	ErrInvalidPrice      = apperr.Validation("price must not be negative")
)

// Repository хранилище инвентаря.
type Repository interface {
	CreateVPS(ctx context.Context, v models.VPSServer) (*models.VPSServer, error)
	GetVPS(ctx context.Context, id int64) (*models.VPSServer, error)
	ListVPS(ctx context.Context, f models.ServerFilter, limit, offset int) ([]*models.VPSServer, int, error)
	UpdateVPS(ctx context.Context, id int64, v models.VPSServer) (*models.VPSServer, error)
	DeleteVPS(ctx context.Context, id int64) error

	CreateDedicated(ctx context.Context, d models.DedicatedServer) (*models.DedicatedServer, error)
	GetDedicated(ctx context.Context, id int64) (*models.DedicatedServer, error)
	ListDedicated(ctx context.Context, f models.ServerFilter, limit, offset int) ([]*models.DedicatedServer, int, error)
	UpdateDedicated(ctx context.Context, id int64, d models.DedicatedServer) (*models.DedicatedServer, error)
	DeleteDedicated(ctx context.Context, id int64) error
}

// InventoryService бизнес-логика инвентаря.
type InventoryService struct {
	repo Repository
	log  *slog.Logger
}

// NewInventoryService создаёт InventoryService.
func NewInventoryService(repo Repository, log *slog.Logger) *InventoryService {
	return &InventoryService{
		repo: repo,
		log:  log,
	}
}

func checkVPS(v *models.VPSServer) error {
	v.OS = strings.ToUpper(strings.TrimSpace(v.OS))
	if v.OS != models.OSLinux && v.OS != models.OSWindows {
		return ErrInvalidOS
	}
	if v.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func checkDedicated(d *models.DedicatedServer) error {
	d.Chip = strings.ToUpper(strings.TrimSpace(d.Chip))
	if d.Chip != models.ChipAMD && d.Chip != models.ChipIntel {
		return ErrInvalidChip
	}
	if d.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// CreateVPS добавляет VPS.
func (s *InventoryService) CreateVPS(ctx context.Context, v models.VPSServer) (*models.VPSServer, error) {
	const op = "services.inventory.CreateVPS"
	if err := checkVPS(&v); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateVPS(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("vps server created", slog.Int64("id", created.ID))
	return created, nil
}

// GetVPS возвращает VPS по ID.
func (s *InventoryService) GetVPS(ctx context.Context, id int64) (*models.VPSServer, error) {
	const op = "services.inventory.GetVPS"
	v, err := s.repo.GetVPS(ctx, id)
	if err != nil {
		return nil, wrap(op, err, ErrVPSNotFound)
	}
	return v, nil
}

// ListVPS возвращает страницу VPS. Фильтр по ОС нечувствителен к регистру.
func (s *InventoryService) ListVPS(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.VPSServer], error) {
	const op = "services.inventory.ListVPS"
	f.OS = strings.ToUpper(f.OS)
	items, total, err := s.repo.ListVPS(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.VPSServer]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.VPSServer]{Items: items, Total: total}, nil
}

// UpdateVPS заменяет характеристики VPS.
func (s *InventoryService) UpdateVPS(ctx context.Context, id int64, v models.VPSServer) (*models.VPSServer, error) {
	const op = "services.inventory.UpdateVPS"
	if err := checkVPS(&v); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateVPS(ctx, id, v)
	if err != nil {
		return nil, wrap(op, err, ErrVPSNotFound)
	}
	return updated, nil
}

// DeleteVPS удаляет VPS.
func (s *InventoryService) DeleteVPS(ctx context.Context, id int64) error {
	const op = "services.inventory.DeleteVPS"
	if err := s.repo.DeleteVPS(ctx, id); err != nil {
		return wrap(op, err, ErrVPSNotFound)
	}
	return nil
}

// CreateDedicated добавляет выделенный сервер.
func (s *InventoryService) CreateDedicated(ctx context.Context, d models.DedicatedServer) (*models.DedicatedServer, error) {
	const op = "services.inventory.CreateDedicated"
	if err := checkDedicated(&d); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateDedicated(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("dedicated server created", slog.Int64("id", created.ID))
	return created, nil
}

// GetDedicated возвращает выделенный сервер по ID.
func (s *InventoryService) GetDedicated(ctx context.Context, id int64) (*models.DedicatedServer, error) {
	const op = "services.inventory.GetDedicated"
	d, err := s.repo.GetDedicated(ctx, id)
	if err != nil {
		return nil, wrap(op, err, ErrDedicatedNotFound)
	}
	return d, nil
}

// ListDedicated возвращает страницу выделенных серверов.
func (s *InventoryService) ListDedicated(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.DedicatedServer], error) {
	const op = "services.inventory.ListDedicated"
	f.Chip = strings.ToUpper(f.Chip)
	items, total, err := s.repo.ListDedicated(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.DedicatedServer]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.DedicatedServer]{Items: items, Total: total}, nil
}

// UpdateDedicated заменяет характеристики выделенного сервера.
func (s *InventoryService) UpdateDedicated(ctx context.Context, id int64, d models.DedicatedServer) (*models.DedicatedServer, error) {
	const op = "services.inventory.UpdateDedicated"
	if err := checkDedicated(&d); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateDedicated(ctx, id, d)
	if err != nil {
		return nil, wrap(op, err, ErrDedicatedNotFound)
	}
	return updated, nil
}

// DeleteDedicated удаляет выделенный сервер.
func (s *InventoryService) DeleteDedicated(ctx context.Context, id int64) error {
	const op = "services.inventory.DeleteDedicated"
	if err := s.repo.DeleteDedicated(ctx, id); err != nil {
		return wrap(op, err, ErrDedicatedNotFound)
	}
	return nil
}

func wrap(op string, err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
