package purchases

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/purchases"
)

// Service описывает бизнес-логику журнала покупок.
type Service interface {
	Create(ctx context.Context, p purchases.CreateParams, source purchases.Source) (*models.Purchase, error)
	Get(ctx context.Context, id int64) (*models.Purchase, error)
	List(ctx context.Context, f models.PurchaseFilter, page models.PageRequest) (models.Page[*models.Purchase], error)
	ListMine(ctx context.Context, userID int64, f models.PurchaseFilter, page models.PageRequest) (models.Page[*models.Purchase], error)
	Export(ctx context.Context, f models.PurchaseFilter) ([]*models.Purchase, error)
	Stats(ctx context.Context) (*models.PurchaseStats, error)
	CorrectStatus(ctx context.Context, id int64, status string) (*models.Purchase, error)
}
