package forms

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Service описывает бизнес-логику форм обратной связи.
type Service interface {
	Submit(ctx context.Context, f models.FormSubmission, userID *int64) (*models.FormSubmission, string, error)
	Get(ctx context.Context, id int64) (*models.FormSubmission, error)
	List(ctx context.Context, f models.FormFilter, page models.PageRequest) (models.Page[*models.FormSubmission], error)
	Export(ctx context.Context, f models.FormFilter) ([]*models.FormSubmission, error)
	SetStatus(ctx context.Context, id int64, status string) (*models.FormSubmission, error)
	Delete(ctx context.Context, id int64) error
}
