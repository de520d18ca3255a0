package inventory

import (
	"context"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Service описывает бизнес-логику инвентаря серверов.
type Service interface {
	CreateVPS(ctx context.Context, v models.VPSServer) (*models.VPSServer, error)
	GetVPS(ctx context.Context, id int64) (*models.VPSServer, error)
	ListVPS(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.VPSServer], error)
	UpdateVPS(ctx context.Context, id int64, v models.VPSServer) (*models.VPSServer, error)
	DeleteVPS(ctx context.Context, id int64) error

	CreateDedicated(ctx context.Context, d models.DedicatedServer) (*models.DedicatedServer, error)
	GetDedicated(ctx context.Context, id int64) (*models.DedicatedServer, error)
	ListDedicated(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.DedicatedServer], error)
	UpdateDedicated(ctx context.Context, id int64, d models.DedicatedServer) (*models.DedicatedServer, error)
	DeleteDedicated(ctx context.Context, id int64) error
}
