package inventory

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/inventory"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) CreateVPS(ctx context.Context, v models.VPSServer) (*models.VPSServer, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VPSServer), args.Error(1)
}

func (m *ServiceMock) GetVPS(ctx context.Context, id int64) (*models.VPSServer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VPSServer), args.Error(1)
}

func (m *ServiceMock) ListVPS(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.VPSServer], error) {
	args := m.Called(ctx, f, page)
	return args.Get(0).(models.Page[*models.VPSServer]), args.Error(1)
}

func (m *ServiceMock) UpdateVPS(ctx context.Context, id int64, v models.VPSServer) (*models.VPSServer, error) {
	args := m.Called(ctx, id, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VPSServer), args.Error(1)
}

func (m *ServiceMock) DeleteVPS(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ServiceMock) CreateDedicated(ctx context.Context, d models.DedicatedServer) (*models.DedicatedServer, error) {
	args := m.Called(ctx, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DedicatedServer), args.Error(1)
}

func (m *ServiceMock) GetDedicated(ctx context.Context, id int64) (*models.DedicatedServer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DedicatedServer), args.Error(1)
}

func (m *ServiceMock) ListDedicated(ctx context.Context, f models.ServerFilter, page models.PageRequest) (models.Page[*models.DedicatedServer], error) {
	args := m.Called(ctx, f, page)
	return args.Get(0).(models.Page[*models.DedicatedServer]), args.Error(1)
}

func (m *ServiceMock) UpdateDedicated(ctx context.Context, id int64, d models.DedicatedServer) (*models.DedicatedServer, error) {
	args := m.Called(ctx, id, d)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DedicatedServer), args.Error(1)
}

func (m *ServiceMock) DeleteDedicated(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHandler_CreateVPS(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *ServiceMock)
		wantStatus int
	}{
		{
			name: "created",
			body: `{"name":"VPS S","os":"linux","cpu":"2 vCPU","ram":"4GB","storage":"80GB","price":12.5}`,
			setupMock: func(m *ServiceMock) {
				m.On("CreateVPS", mock.Anything, mock.MatchedBy(func(v models.VPSServer) bool {
					return v.Name == "VPS S" && v.OS == "linux" && v.Price == 12.5
				})).Return(&models.VPSServer{ID: 1, Name: "VPS S", OS: models.OSLinux}, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "unknown os",
			body: `{"name":"VPS S","os":"bsd","cpu":"2","ram":"4GB","storage":"80GB"}`,
			setupMock: func(m *ServiceMock) {
				m.On("CreateVPS", mock.Anything, mock.Anything).Return(nil, inventory.ErrInvalidOS).Once()
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative price",
			body:       `{"name":"VPS S","os":"linux","cpu":"2","ram":"4GB","storage":"80GB","price":-5}`,
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			tt.setupMock(svc)
			h := New(newNoopLogger(), svc)

			rec := httptest.NewRecorder()
			h.CreateVPS(rec, httptest.NewRequest(http.MethodPost, "/admin/vps-servers", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_ListFilters(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ListVPS", mock.Anything, models.ServerFilter{Search: "ams", OS: "WINDOWS"}, models.PageRequest{Page: 1, Limit: 10}).
		Return(models.Page[*models.VPSServer]{Items: []*models.VPSServer{}, Total: 0}, nil).Once()
	svc.On("ListDedicated", mock.Anything, models.ServerFilter{Chip: "AMD"}, models.PageRequest{Page: 1, Limit: 10}).
		Return(models.Page[*models.DedicatedServer]{Items: []*models.DedicatedServer{{ID: 2, Chip: "AMD"}}, Total: 1}, nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.ListVPS(rec, httptest.NewRequest(http.MethodGet, "/admin/vps-servers?os=windows&search=ams&chip=amd", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ListDedicated(rec, httptest.NewRequest(http.MethodGet, "/admin/dedicated-servers?chip=amd", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chip":"AMD"`)

	svc.AssertExpectations(t)
}

func TestHandler_DedicatedCRUD(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("GetDedicated", mock.Anything, int64(3)).Return(nil, inventory.ErrDedicatedNotFound).Once()
	svc.On("UpdateDedicated", mock.Anything, int64(3), mock.Anything).
		Return(&models.DedicatedServer{ID: 3, Chip: models.ChipIntel, Cores: 16}, nil).Once()
	svc.On("DeleteDedicated", mock.Anything, int64(3)).Return(nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.GetDedicated(rec, withID(httptest.NewRequest(http.MethodGet, "/admin/dedicated-servers/3", nil), "3"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateDedicated(rec, withID(httptest.NewRequest(http.MethodPut, "/admin/dedicated-servers/3", bytes.NewBufferString(
		`{"name":"D1","chip":"intel","processor":"Xeon","cores":16,"ram":"64GB","storage":"2TB","price":199}`)), "3"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.UpdateDedicated(rec, withID(httptest.NewRequest(http.MethodPut, "/admin/dedicated-servers/3", bytes.NewBufferString(
		`{"name":"D1","chip":"intel","processor":"Xeon","cores":0,"ram":"64GB","storage":"2TB"}`)), "3"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.DeleteDedicated(rec, withID(httptest.NewRequest(http.MethodDelete, "/admin/dedicated-servers/3", nil), "3"))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}
