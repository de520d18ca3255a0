package partners

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Service описывает бизнес-логику регистрации партнёров.
type Service interface {
	RequestOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (*models.PartnerRegistration, error)
	SubmitRegistration(ctx context.Context, email string, d models.PartnerDetails) (*models.PartnerRegistration, string, error)
	SetStatus(ctx context.Context, id int64, status models.PartnerStatus) (*models.PartnerRegistration, string, error)
	Get(ctx context.Context, id int64) (*models.PartnerRegistration, error)
	List(ctx context.Context, f models.PartnerFilter, page models.PageRequest) (models.Page[*models.PartnerRegistration], error)
	Export(ctx context.Context, f models.PartnerFilter) ([]*models.PartnerRegistration, error)
	Summary(ctx context.Context) (models.PartnerSummary, error)
	Delete(ctx context.Context, id int64) error
}
