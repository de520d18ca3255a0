package users

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/users"
)

// Service описывает бизнес-логику пользователей.
type Service interface {
	Create(ctx context.Context, p users.CreateParams) (*models.User, error)
	CreateByPartnerReference(ctx context.Context, p users.CreateParams) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, f models.UserFilter, page models.PageRequest) (models.Page[*models.User], error)
	ListReferred(ctx context.Context, partnerID int64, search string, page models.PageRequest) (models.Page[*models.User], error)
	Export(ctx context.Context, f models.UserFilter) ([]*models.User, error)
	Update(ctx context.Context, id int64, p users.UpdateParams) (*models.User, error)
	UpdateMe(ctx context.Context, id int64, profile models.UserProfile) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}
