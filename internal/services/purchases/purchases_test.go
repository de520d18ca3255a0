package purchases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) CreatePurchase(ctx context.Context, p models.Purchase) (*models.Purchase, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *RepoMock) GetPurchase(ctx context.Context, id int64) (*models.Purchase, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

func (m *RepoMock) ListPurchases(ctx context.Context, f models.PurchaseFilter, limit, offset int) ([]*models.Purchase, int, error) {
	args := m.Called(ctx, f, limit, offset)
	return args.Get(0).([]*models.Purchase), args.Int(1), args.Error(2)
}

func (m *RepoMock) PurchaseStatusAggregates(ctx context.Context) ([]models.StatusAggregate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.StatusAggregate), args.Error(1)
}

func (m *RepoMock) PurchaseExpiryCounts(ctx context.Context, now time.Time) (models.ExpiryCounts, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(models.ExpiryCounts), args.Error(1)
}

func (m *RepoMock) UpdatePurchaseStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type CacheMock struct {
	mock.Mock
}

func (m *CacheMock) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	return args.Bool(0), args.Error(1)
}

func (m *CacheMock) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *CacheMock) Invalidate(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

var createdAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestService(repo *RepoMock, cache *CacheMock) *PurchaseService {
	s := NewPurchaseService(repo, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return createdAt }
	return s
}

func TestNewTransactionID(t *testing.T) {
	re := regexp.MustCompile(`^TXN-1704067200000-[0-9A-F]{12}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewTransactionID(createdAt)
		require.Regexp(t, re, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate transaction id %s", id)
		seen[id] = struct{}{}
	}
}

func TestPurchaseService_Create_Expiry(t *testing.T) {
	tests := []struct {
		name        string
		plan        string
		wantPlan    string
		wantExpires time.Time
	}{
		{name: "yearly", plan: "YEARLY", wantPlan: models.PlanYearly, wantExpires: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
		{name: "monthly", plan: "monthly", wantPlan: models.PlanMonthly, wantExpires: createdAt.AddDate(0, 0, 31)},
		{name: "omitted", plan: "", wantPlan: models.PlanMonthly, wantExpires: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			repo.On("GetUser", mock.Anything, int64(7)).Return(&models.User{ID: 7}, nil).Once()
			repo.On("CreatePurchase", mock.Anything, mock.MatchedBy(func(p models.Purchase) bool {
				return p.PlanType == tt.wantPlan &&
					p.ExpiresAt.Equal(tt.wantExpires) &&
					p.CreatedAt.Equal(createdAt) &&
					p.PaymentStatus == models.PaymentCompleted &&
					p.Currency == "USD"
			})).Return(&models.Purchase{ID: 1, TransactionID: "TXN-1"}, nil).Once()
			cache.On("Invalidate", mock.Anything, []string{StatsCacheKey}).Return(nil).Once()

			_, err := newTestService(repo, cache).Create(context.Background(), CreateParams{
				UserID: 7, ServiceType: "SERVER", ServiceID: "vps-1", Amount: 999,
				PaymentMethod: "card", PlanType: tt.plan,
			}, SourceAdmin)
			require.NoError(t, err)
			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestPurchaseService_Create_YearlyIs365Days(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	var written models.Purchase
	repo.On("GetUser", mock.Anything, int64(7)).Return(&models.User{ID: 7}, nil)
	repo.On("CreatePurchase", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { written = args.Get(1).(models.Purchase) }).
		Return(&models.Purchase{ID: 1}, nil)
	cache.On("Invalidate", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(repo, cache)
	// Високосный год не меняет длительность.
	svc.now = func() time.Time { return time.Date(2024, 2, 28, 15, 30, 0, 0, time.UTC) }

	_, err := svc.Create(context.Background(), CreateParams{UserID: 7, ServiceType: "CLOUD", PlanType: "YEARLY"}, SourceAdmin)
	require.NoError(t, err)
	assert.Equal(t, 365*24*time.Hour, written.ExpiresAt.Sub(written.CreatedAt))
}

func TestPurchaseService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  CreateParams
		source  Source
		wantErr error
	}{
		{name: "service type", params: CreateParams{UserID: 1, ServiceType: "DOMAIN"}, wantErr: ErrInvalidServiceType},
		{name: "quarterly on direct path", params: CreateParams{UserID: 1, ServiceType: "CLOUD", PlanType: "QUARTERLY"}, wantErr: ErrInvalidPlanType},
		{name: "unknown plan", params: CreateParams{UserID: 1, ServiceType: "CLOUD", PlanType: "WEEKLY"}, wantErr: ErrInvalidPlanType},
		{name: "negative amount", params: CreateParams{UserID: 1, ServiceType: "CLOUD", Amount: -1}, wantErr: ErrInvalidAmount},
		{name: "unknown status", params: CreateParams{UserID: 1, ServiceType: "CLOUD", PaymentStatus: "PAID"}, source: SourceAdmin, wantErr: ErrInvalidPaymentStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			_, err := newTestService(repo, new(CacheMock)).Create(context.Background(), tt.params, tt.source)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
			repo.AssertNotCalled(t, "CreatePurchase", mock.Anything, mock.Anything)
		})
	}
}

func TestPurchaseService_Create_UserMissing(t *testing.T) {
	repo := new(RepoMock)
	repo.On("GetUser", mock.Anything, int64(404)).Return(nil, repository.ErrNotFound).Once()

	_, err := newTestService(repo, new(CacheMock)).Create(context.Background(),
		CreateParams{UserID: 404, ServiceType: "CLOUD"}, SourceAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)
	repo.AssertNotCalled(t, "CreatePurchase", mock.Anything, mock.Anything)
}

func TestPurchaseService_Create_CustomerIsPending(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	repo.On("GetUser", mock.Anything, int64(7)).Return(&models.User{ID: 7}, nil)
	repo.On("CreatePurchase", mock.Anything, mock.MatchedBy(func(p models.Purchase) bool {
		return p.PaymentStatus == models.PaymentPending
	})).Return(&models.Purchase{ID: 2}, nil).Once()
	cache.On("Invalidate", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	_, err := newTestService(repo, cache).Create(context.Background(),
		CreateParams{UserID: 7, ServiceType: "CLOUD", PaymentStatus: models.PaymentCompleted}, SourceCustomer)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestBuildStats_RevenueCompletedOnly(t *testing.T) {
	stats := BuildStats([]models.StatusAggregate{
		{Status: models.PaymentCompleted, Count: 2, Amount: 150},
		{Status: models.PaymentPending, Count: 1, Amount: 1000},
		{Status: models.PaymentFailed, Count: 1, Amount: 2000},
		{Status: models.PaymentRefunded, Count: 3, Amount: 3000},
	}, models.ExpiryCounts{Active: 5, ExpiringSoon: 1, Expired: 2})

	assert.Equal(t, 7, stats.TotalPurchases)
	assert.InDelta(t, 150.0, stats.TotalRevenue, 0.001)
	assert.Equal(t, 3, stats.ByStatus[models.PaymentRefunded])
	assert.Equal(t, 5, stats.Active)
	assert.Equal(t, 1, stats.ExpiringSoon)
	assert.Equal(t, 2, stats.Expired)
}

func TestPurchaseService_Stats(t *testing.T) {
	t.Run("cache hit", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", mock.Anything, StatsCacheKey, mock.Anything).Return(true, nil).Once()

		_, err := newTestService(repo, cache).Stats(context.Background())
		require.NoError(t, err)
		repo.AssertNotCalled(t, "PurchaseStatusAggregates", mock.Anything)
	})

	t.Run("cache miss", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		cache.On("Get", mock.Anything, StatsCacheKey, mock.Anything).Return(false, nil).Once()
		repo.On("PurchaseStatusAggregates", mock.Anything).
			Return([]models.StatusAggregate{{Status: models.PaymentCompleted, Count: 1, Amount: 10}}, nil).Once()
		repo.On("PurchaseExpiryCounts", mock.Anything, createdAt).Return(models.ExpiryCounts{Active: 1}, nil).Once()
		cache.On("Set", mock.Anything, StatsCacheKey, mock.Anything, 30*time.Second).Return(nil).Once()

		stats, err := newTestService(repo, cache).Stats(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 10.0, stats.TotalRevenue, 0.001)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})
}

func TestPurchaseService_List(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListPurchases", mock.Anything, mock.MatchedBy(func(f models.PurchaseFilter) bool {
		return f.Expiry == models.ExpirySoon && f.Now.Equal(createdAt) && f.PaymentStatus == "COMPLETED"
	}), 10, 0).Return([]*models.Purchase{}, 0, nil).Once()

	svc := newTestService(repo, new(CacheMock))
	_, err := svc.List(context.Background(), models.PurchaseFilter{Expiry: "Soon", PaymentStatus: "completed"}, models.NewPageRequest(1, 10))
	require.NoError(t, err)

	_, err = svc.List(context.Background(), models.PurchaseFilter{Expiry: "later"}, models.NewPageRequest(1, 10))
	assert.ErrorIs(t, err, ErrInvalidExpiryFilter)
	repo.AssertExpectations(t)
}

func TestPurchaseService_ListMine(t *testing.T) {
	repo := new(RepoMock)
	repo.On("ListPurchases", mock.Anything, mock.MatchedBy(func(f models.PurchaseFilter) bool {
		return f.UserID != nil && *f.UserID == 7
	}), 10, 0).Return([]*models.Purchase{{ID: 1, UserID: 7}}, 1, nil).Once()

	page, err := newTestService(repo, new(CacheMock)).ListMine(context.Background(), 7,
		models.PurchaseFilter{}, models.NewPageRequest(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestPurchaseService_CorrectStatus(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	repo.On("UpdatePurchaseStatus", mock.Anything, int64(1), models.PaymentRefunded).Return(nil).Once()
	repo.On("GetPurchase", mock.Anything, int64(1)).
		Return(&models.Purchase{ID: 1, PaymentStatus: models.PaymentRefunded}, nil).Once()
	repo.On("UpdatePurchaseStatus", mock.Anything, int64(2), models.PaymentFailed).Return(repository.ErrNotFound).Once()
	cache.On("Invalidate", mock.Anything, []string{StatsCacheKey}).Return(nil).Once()

	svc := newTestService(repo, cache)
	p, err := svc.CorrectStatus(context.Background(), 1, "refunded")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, p.PaymentStatus)

	_, err = svc.CorrectStatus(context.Background(), 2, "FAILED")
	assert.ErrorIs(t, err, ErrPurchaseNotFound)

	_, err = svc.CorrectStatus(context.Background(), 3, "PAID")
	assert.ErrorIs(t, err, ErrInvalidPaymentStatus)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}
