package users

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/users"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Create(ctx context.Context, p users.CreateParams) (*models.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) CreateByPartnerReference(ctx context.Context, p users.CreateParams) (*models.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) Get(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) List(ctx context.Context, f models.UserFilter, page models.PageRequest) (models.Page[*models.User], error) {
	args := m.Called(ctx, f, page)
	return args.Get(0).(models.Page[*models.User]), args.Error(1)
}

func (m *ServiceMock) ListReferred(ctx context.Context, partnerID int64, search string, page models.PageRequest) (models.Page[*models.User], error) {
	args := m.Called(ctx, partnerID, search, page)
	return args.Get(0).(models.Page[*models.User]), args.Error(1)
}

func (m *ServiceMock) Export(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *ServiceMock) Update(ctx context.Context, id int64, p users.UpdateParams) (*models.User, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) UpdateMe(ctx context.Context, id int64, profile models.UserProfile) (*models.User, error) {
	args := m.Called(ctx, id, profile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *ServiceMock) Delete(ctx context.Context, id int64) error {
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

func TestHandler_Create(t *testing.T) {
	partner := "p@x.com"
	tests := []struct {
		name       string
		body       string
		setupMock  func(m *ServiceMock)
		wantStatus int
		wantBody   string
	}{
		{
			name: "created with partner",
			body: `{"email":"u@x.com","name":"U","password":"longenough","partnerEmail":"p@x.com"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(p users.CreateParams) bool {
					return p.Role == models.RoleUser && p.PartnerEmail == partner && p.Profile.Email == "u@x.com"
				})).Return(&models.User{ID: 3, Email: "u@x.com", Role: models.RoleUser}, nil).Once()
			},
			wantStatus: http.StatusCreated,
			wantBody:   `"email":"u@x.com"`,
		},
		{
			name: "duplicate email",
			body: `{"email":"u@x.com","name":"U","role":"PARTNER"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, users.ErrDuplicateEmail).Once()
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "partner not found",
			body: `{"email":"u@x.com","name":"U","partnerEmail":"ghost@x.com"}`,
			setupMock: func(m *ServiceMock) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil, users.ErrPartnerNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `"message":"partner not found"`,
		},
		{
			name:       "unknown role",
			body:       `{"email":"u@x.com","name":"U","role":"ROOT"}`,
			setupMock:  func(_ *ServiceMock) {},
			wantStatus: http.StatusBadRequest,
			wantBody:   `field Role must be one of`,
		},
		{
			name:       "short password",
			body:       `{"email":"u@x.com","name":"U","password":"123"}`,
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
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/admin/users", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	partnerID := int64(4)
	svc := new(ServiceMock)
	svc.On("List", mock.Anything,
		models.UserFilter{Search: "acme", Role: models.RoleUser, PartnerID: &partnerID},
		models.PageRequest{Page: 2, Limit: 1},
	).Return(models.Page[*models.User]{Items: []*models.User{{ID: 9, Email: "a@acme.com", Role: models.RoleUser}}, Total: 3}, nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/users?page=2&limit=1&search=acme&role=user&partnerId=4", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Users      []models.User     `json:"users"`
			Pagination models.Pagination `json:"pagination"`
			Total      int               `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Users, 1)
	assert.Equal(t, 3, body.Data.Total)
	assert.Equal(t, models.Pagination{Current: 2, Total: 3, HasNext: true, HasPrev: true}, body.Data.Pagination)
	svc.AssertExpectations(t)
}

func TestHandler_List_BadRole(t *testing.T) {
	svc := new(ServiceMock)
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/admin/users?role=root", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_GetDelete(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Get", mock.Anything, int64(7)).Return(nil, users.ErrUserNotFound).Once()
	svc.On("Delete", mock.Anything, int64(8)).Return(nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/admin/users/7", nil), "7"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.Get(rec, withID(httptest.NewRequest(http.MethodGet, "/admin/users/abc", nil), "abc"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/admin/users/8", nil), "8"))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}

func TestHandler_Update_KeepsRoleWhenOmitted(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Update", mock.Anything, int64(3), mock.MatchedBy(func(p users.UpdateParams) bool {
		return p.Role == models.RoleUnknown && p.PartnerEmail == ""
	})).Return(&models.User{ID: 3, Role: models.RoleUser}, nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	req := withID(httptest.NewRequest(http.MethodPut, "/admin/users/3",
		bytes.NewBufferString(`{"email":"u@x.com","name":"U"}`)), "3")
	h.Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_Export(t *testing.T) {
	partner := "p@x.com"
	svc := new(ServiceMock)
	svc.On("Export", mock.Anything, models.UserFilter{}).Return([]*models.User{
		{ID: 1, Email: "a@x.com", Name: "A", Role: models.RoleUser, PartnerEmail: &partner},
	}, nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Export(rec, httptest.NewRequest(http.MethodGet, "/admin/users/export", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{"1", "a@x.com", "A", "USER"}, records[1][:4])
	assert.Equal(t, partner, records[1][7])
}

func TestHandler_Me(t *testing.T) {
	me := &models.User{ID: 11, Email: "me@x.com", Role: models.RolePartner}
	svc := new(ServiceMock)
	svc.On("Get", mock.Anything, int64(11)).Return(me, nil).Once()
	svc.On("UpdateMe", mock.Anything, int64(11), models.UserProfile{Name: "New"}).
		Return(me, nil).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	h.Me(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	h.Me(rec, req.WithContext(middlewarectx.WithUser(req.Context(), me)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"PARTNER"`)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"name":"New"}`))
	h.UpdateMe(rec, req.WithContext(middlewarectx.WithUser(req.Context(), me)))
	assert.Equal(t, http.StatusOK, rec.Code)

	svc.AssertExpectations(t)
}

func TestHandler_PartnerScope(t *testing.T) {
	partner := &models.User{ID: 21, Email: "partner@x.com", Role: models.RolePartner}
	svc := new(ServiceMock)
	svc.On("ListReferred", mock.Anything, int64(21), "", models.PageRequest{Page: 1, Limit: 10}).
		Return(models.Page[*models.User]{Items: []*models.User{}, Total: 0}, nil).Once()
	svc.On("CreateByPartnerReference", mock.Anything, mock.MatchedBy(func(p users.CreateParams) bool {
		return p.PartnerEmail == "partner@x.com" && p.Profile.CompanyName == "Acme"
	})).Return(nil, errors.New("db down")).Once()
	h := New(newNoopLogger(), svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/partner/users", nil)
	h.ListReferred(rec, req.WithContext(middlewarectx.WithUser(req.Context(), partner)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/partner/users", bytes.NewBufferString(
		`{"email":"c@x.com","name":"C","companyName":"Acme","address":"Main st","taxId":"123"}`))
	h.CreateReferred(rec, req.WithContext(middlewarectx.WithUser(req.Context(), partner)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")

	svc.AssertExpectations(t)
}
