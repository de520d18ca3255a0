package catalog

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Service описывает бизнес-логику каталога.
type Service interface {
	CreateCategory(ctx context.Context, name, description string) (*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context, search string, page models.PageRequest) (models.Page[*models.Category], error)
	UpdateCategory(ctx context.Context, id int64, name, description string) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	CreateType(ctx context.Context, categoryID int64, name, description string) (*models.CategoryType, error)
	ListTypes(ctx context.Context, categoryID int64) ([]*models.CategoryType, error)
	UpdateType(ctx context.Context, id int64, name, description string) (*models.CategoryType, error)
	DeleteType(ctx context.Context, id int64) error

	CreateService(ctx context.Context, ownerID int64, svc models.Service) (*models.Service, error)
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context, f models.ServiceFilter, page models.PageRequest) (models.Page[*models.Service], error)
	UpdateService(ctx context.Context, id int64, svc models.Service) (*models.Service, error)
	DeleteService(ctx context.Context, id int64) error
}
