package servicerequests

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Service описывает бизнес-логику заявок на услуги.
type Service interface {
	Submit(ctx context.Context, partnerID int64, r models.ServiceRequest) (*models.ServiceRequest, error)
	Get(ctx context.Context, id int64) (*models.ServiceRequest, error)
	List(ctx context.Context, f models.ServiceRequestFilter, page models.PageRequest) (models.Page[*models.ServiceRequest], error)
	ListMine(ctx context.Context, partnerID int64, f models.ServiceRequestFilter, page models.PageRequest) (models.Page[*models.ServiceRequest], error)
	Approve(ctx context.Context, id, adminID int64, notes *string) (*models.ApprovalResult, error)
	Reject(ctx context.Context, id, adminID int64, notes *string) (*models.ServiceRequest, error)
}
