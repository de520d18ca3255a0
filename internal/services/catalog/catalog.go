// Package catalog управляет иерархией категорий, типов и услуг.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки каталога.
var (
	ErrCategoryExists       = apperr.Conflict("category with this name already exists")
	ErrCategoryNotFound     = apperr.NotFound("category not found")
	ErrCategoryTypeNotFound = apperr.NotFound("category type not found")
	ErrServiceNotFound      = apperr.NotFound("service not found")
	ErrTypeOutsideCategory  = apperr.Validation("category type does not belong to the category")
	ErrInvalidStatus        = apperr.Validation("status must be active or inactive")
	ErrInvalidPriority      = apperr.Validation("priority must be LOW, MEDIUM or HIGH")
)

const serviceCacheTTL = time.Hour

// Repository хранилище каталога.
type Repository interface {
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context, search string, limit, offset int) ([]*models.Category, int, error)
	UpdateCategory(ctx context.Context, id int64, name, description string) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateCategoryType(ctx context.Context, categoryID int64, name, description string) (*models.CategoryType, error)
	GetCategoryType(ctx context.Context, id int64) (*models.CategoryType, error)
	ListCategoryTypes(ctx context.Context, categoryID int64) ([]*models.CategoryType, error)
	UpdateCategoryType(ctx context.Context, id int64, name, description string) (*models.CategoryType, error)
	DeleteCategoryType(ctx context.Context, id int64) error

	CreateService(ctx context.Context, svc models.Service) (*models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context, f models.ServiceFilter, limit, offset int) ([]*models.Service, int, error)
	UpdateService(ctx context.Context, id int64, svc models.Service) (*models.Service, error)
	DeleteService(ctx context.Context, id int64) error
}

// Cache кэш услуг по ID.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// CatalogService бизнес-логика каталога.
type CatalogService struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создаёт CatalogService.
func NewCatalogService(repo Repository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func serviceCacheKey(id int64) string {
	return fmt.Sprintf("service:%d", id)
}

// CreateCategory создаёт категорию с уникальным именем.
func (s *CatalogService) CreateCategory(ctx context.Context, name, description string) (*models.Category, error) {
	const op = "services.catalog.CreateCategory"
	c, err := s.repo.CreateCategory(ctx, strings.TrimSpace(name), description)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrCategoryExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// GetCategory возвращает категорию.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "services.catalog.GetCategory"
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, wrap(op, err, ErrCategoryNotFound)
	}
	return c, nil
}

// ListCategories возвращает страницу категорий с количеством типов.
func (s *CatalogService) ListCategories(ctx context.Context, search string, page models.PageRequest) (models.Page[*models.Category], error) {
	const op = "services.catalog.ListCategories"
	items, total, err := s.repo.ListCategories(ctx, search, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.Category]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.Category]{Items: items, Total: total}, nil
}

// UpdateCategory переименовывает категорию.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, name, description string) (*models.Category, error) {
	const op = "services.catalog.UpdateCategory"
	if err := s.repo.UpdateCategory(ctx, id, strings.TrimSpace(name), description); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrCategoryExists
		}
		return nil, wrap(op, err, ErrCategoryNotFound)
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory удаляет категорию вместе с её типами.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	const op = "services.catalog.DeleteCategory"
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return wrap(op, err, ErrCategoryNotFound)
	}
	return nil
}

// CreateType создаёт тип в существующей категории.
func (s *CatalogService) CreateType(ctx context.Context, categoryID int64, name, description string) (*models.CategoryType, error) {
	const op = "services.catalog.CreateType"
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, wrap(op, err, ErrCategoryNotFound)
	}
	ct, err := s.repo.CreateCategoryType(ctx, categoryID, strings.TrimSpace(name), description)
	if err != nil {
		return nil, wrap(op, err, ErrCategoryNotFound)
	}
	return ct, nil
}

// ListTypes возвращает типы категории.
func (s *CatalogService) ListTypes(ctx context.Context, categoryID int64) ([]*models.CategoryType, error) {
	const op = "services.catalog.ListTypes"
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, wrap(op, err, ErrCategoryNotFound)
	}
	types, err := s.repo.ListCategoryTypes(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return types, nil
}

// UpdateType переименовывает тип.
func (s *CatalogService) UpdateType(ctx context.Context, id int64, name, description string) (*models.CategoryType, error) {
	const op = "services.catalog.UpdateType"
	ct, err := s.repo.UpdateCategoryType(ctx, id, strings.TrimSpace(name), description)
	if err != nil {
		return nil, wrap(op, err, ErrCategoryTypeNotFound)
	}
	return ct, nil
}

// DeleteType удаляет тип.
func (s *CatalogService) DeleteType(ctx context.Context, id int64) error {
	const op = "services.catalog.DeleteType"
	if err := s.repo.DeleteCategoryType(ctx, id); err != nil {
		return wrap(op, err, ErrCategoryTypeNotFound)
	}
	return nil
}

// normalizeService заполняет значения по умолчанию и проверяет ссылки на категорию и тип.
func (s *CatalogService) normalizeService(ctx context.Context, svc *models.Service) error {
	if svc.Status == "" {
		svc.Status = models.ServiceActive
	}
	if svc.Priority == "" {
		svc.Priority = models.PriorityMedium
	}
	svc.Priority = strings.ToUpper(svc.Priority)
	switch svc.Status {
	case models.ServiceActive, models.ServiceInactive:
	default:
		return ErrInvalidStatus
	}
	switch svc.Priority {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
	default:
		return ErrInvalidPriority
	}
	if svc.Features == nil {
		svc.Features = []string{}
	}

	if svc.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *svc.CategoryID); err != nil {
			return mapNotFound(err, ErrCategoryNotFound)
		}
	}
	if svc.CategoryTypeID != nil {
		ct, err := s.repo.GetCategoryType(ctx, *svc.CategoryTypeID)
		if err != nil {
			return mapNotFound(err, ErrCategoryTypeNotFound)
		}
		if svc.CategoryID == nil {
			svc.CategoryID = &ct.CategoryID
		} else if *svc.CategoryID != ct.CategoryID {
			return ErrTypeOutsideCategory
		}
	}
	return nil
}

// CreateService создаёт услугу, владельцем которой становится ownerID.
func (s *CatalogService) CreateService(ctx context.Context, ownerID int64, svc models.Service) (*models.Service, error) {
	const op = "services.catalog.CreateService"
	if err := s.normalizeService(ctx, &svc); err != nil {
		return nil, wrapOp(op, err)
	}
	svc.OwnerID = ownerID

	created, err := s.repo.CreateService(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("service created", slog.Int64("id", created.ID), slog.Int64("owner_id", ownerID))
	return created, nil
}

// GetService возвращает услугу, читая сначала из кэша.
func (s *CatalogService) GetService(ctx context.Context, id int64) (*models.Service, error) {
	const op = "services.catalog.GetService"
	key := serviceCacheKey(id)

	var cached models.Service
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), slog.Any("err", err))
	}
	if found {
		return &cached, nil
	}

	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, wrap(op, err, ErrServiceNotFound)
	}
	if err := s.cache.Set(ctx, key, svc, serviceCacheTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), slog.Any("err", err))
	}
	return svc, nil
}

// ListServices возвращает страницу услуг.
func (s *CatalogService) ListServices(ctx context.Context, f models.ServiceFilter, page models.PageRequest) (models.Page[*models.Service], error) {
	const op = "services.catalog.ListServices"
	f.Priority = strings.ToUpper(f.Priority)
	items, total, err := s.repo.ListServices(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.Service]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.Service]{Items: items, Total: total}, nil
}

// UpdateService обновляет услугу и сбрасывает её кэш.
func (s *CatalogService) UpdateService(ctx context.Context, id int64, svc models.Service) (*models.Service, error) {
	const op = "services.catalog.UpdateService"
	if err := s.normalizeService(ctx, &svc); err != nil {
		return nil, wrapOp(op, err)
	}

	updated, err := s.repo.UpdateService(ctx, id, svc)
	if err != nil {
		return nil, wrap(op, err, ErrServiceNotFound)
	}
	s.invalidate(ctx, id)
	return updated, nil
}

// DeleteService удаляет услугу и сбрасывает её кэш.
func (s *CatalogService) DeleteService(ctx context.Context, id int64) error {
	const op = "services.catalog.DeleteService"
	if err := s.repo.DeleteService(ctx, id); err != nil {
		return wrap(op, err, ErrServiceNotFound)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id int64) {
	key := serviceCacheKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), slog.Any("err", err))
	}
}

func mapNotFound(err, notFound error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound
	}
	return err
}

func wrap(op string, err, notFound error) error {
	return fmt.Errorf("%s: %w", op, mapNotFound(err, notFound))
}

func wrapOp(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
