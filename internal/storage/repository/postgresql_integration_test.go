package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/hosting-backoffice/internal/migrations"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("backoffice"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(s.DB, filepath.Join(root, "migrations")))
	return s
}

func approvalFor(requestID int64, now time.Time, txn string) Approval {
	return Approval{
		RequestID: requestID,
		AdminID:   1,
		At:        now,
		Purchase: func(req *models.ServiceRequest) models.Purchase {
			return models.Purchase{
				ServiceType:   req.ServiceType,
				ServiceID:     req.ServiceID,
				Amount:        req.Amount,
				Currency:      req.Currency,
				PaymentMethod: "SERVICE_REQUEST",
				PaymentStatus: models.PaymentCompleted,
				TransactionID: txn,
				PlanType:      req.BillingCycle,
				ExpiresAt:     now.AddDate(0, 0, 90),
				CreatedAt:     now,
			}
		},
	}
}

func TestIntegration_Ledger(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	adminID, err := s.CreateUser(ctx, models.User{Email: "admin@x.com", PasswordHash: "h", Role: models.RoleAdmin})
	require.NoError(t, err)
	partnerID, err := s.CreateUser(ctx, models.User{Email: "partner@x.com", PasswordHash: "h", Role: models.RolePartner})
	require.NoError(t, err)

	t.Run("email is unique", func(t *testing.T) {
		_, err := s.CreateUser(ctx, models.User{Email: "admin@x.com", Role: models.RoleUser})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("concurrent approvals write one purchase", func(t *testing.T) {
		req, err := s.CreateServiceRequest(ctx, models.ServiceRequest{
			PartnerID: &partnerID, Name: "Client", Email: "client@x.com", ServiceType: models.ServiceTypeServer,
			ServiceID: "vps-1", BillingCycle: models.PlanQuarterly, Amount: 30, Currency: "USD",
		})
		require.NoError(t, err)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			failed    []error
		)
		for _, txn := range []string{"TXN-A", "TXN-B"} {
			wg.Add(1)
			go func(txn string) {
				defer wg.Done()
				a := approvalFor(req.ID, now, txn)
				a.AdminID = adminID
				_, err := s.ApproveServiceRequest(ctx, a)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					succeeded++
				} else {
					failed = append(failed, err)
				}
			}(txn)
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		require.Len(t, failed, 1)
		assert.ErrorIs(t, failed[0], ErrNotPending)

		var n int
		require.NoError(t, s.DB.QueryRow(
			`SELECT COUNT(*) FROM purchases WHERE service_request_id = $1`, req.ID).Scan(&n))
		assert.Equal(t, 1, n)

		u, err := s.GetUserByEmail(ctx, "client@x.com")
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, u.Role)
		assert.Empty(t, u.PasswordHash)
		require.NotNil(t, u.PartnerID)
		assert.Equal(t, partnerID, *u.PartnerID)
	})

	t.Run("revenue counts completed only", func(t *testing.T) {
		userID, err := s.CreateUser(ctx, models.User{Email: "buyer@x.com", PasswordHash: "h", Role: models.RoleUser})
		require.NoError(t, err)
		for i, status := range []string{models.PaymentCompleted, models.PaymentPending, models.PaymentFailed, models.PaymentRefunded} {
			_, err := s.CreatePurchase(ctx, models.Purchase{
				UserID: userID, ServiceType: models.ServiceTypeCloud, ServiceID: "cloud-1",
				Amount: float64(100 * (i + 1)), Currency: "USD", PaymentMethod: "card",
				PaymentStatus: status, TransactionID: "TXN-R-" + status, PlanType: models.PlanMonthly,
				ExpiresAt: now.AddDate(0, 0, 31), CreatedAt: now,
			})
			require.NoError(t, err)
		}

		aggs, err := s.PurchaseStatusAggregates(ctx)
		require.NoError(t, err)
		byStatus := map[string]models.StatusAggregate{}
		for _, a := range aggs {
			byStatus[a.Status] = a
		}
		// 30 из одобренной заявки и 100 из фикстуры.
		assert.InDelta(t, 130.0, byStatus[models.PaymentCompleted].Amount, 0.001)
		assert.Equal(t, 1, byStatus[models.PaymentRefunded].Count)
	})

	t.Run("partner scoped listing", func(t *testing.T) {
		_, err := s.CreateUser(ctx, models.User{Email: "other@x.com", Role: models.RoleUser})
		require.NoError(t, err)

		users, total, err := s.ListUsers(ctx, models.UserFilter{PartnerID: &partnerID}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		for _, u := range users {
			require.NotNil(t, u.PartnerID)
			assert.Equal(t, partnerID, *u.PartnerID)
		}
	})
}

func TestIntegration_PartnerOTP(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()
	expires := time.Now().Add(10 * time.Minute)

	p, err := s.UpsertPartnerOTP(ctx, "a@x.com", "111111", expires)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerPending, p.Status)

	p, err = s.UpsertPartnerOTP(ctx, "a@x.com", "222222", expires)
	require.NoError(t, err)
	require.NotNil(t, p.OTP)
	assert.Equal(t, "222222", *p.OTP)

	_, err = s.ConsumePartnerOTP(ctx, p.ID, "111111")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = s.ConsumePartnerOTP(ctx, p.ID, "222222")
	require.NoError(t, err)
	assert.Equal(t, models.PartnerVerified, p.Status)
	assert.Nil(t, p.OTP)

	_, err = s.ConsumePartnerOTP(ctx, p.ID, "222222")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err = s.SubmitPartnerDetails(ctx, "a@x.com", models.PartnerDetails{CompanyName: "A Corp"})
	require.NoError(t, err)
	assert.Equal(t, models.PartnerPending, p.Status)

	_, err = s.SetPartnerStatus(ctx, p.ID, models.PartnerApproved)
	require.NoError(t, err)

	_, err = s.SubmitPartnerDetails(ctx, "a@x.com", models.PartnerDetails{CompanyName: "A Corp 2"})
	assert.ErrorIs(t, err, ErrNotFound)

	sum, err := s.PartnerSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerSummary{Approved: 1, Total: 1}, sum)
}

func TestIntegration_ServiceFeatures(t *testing.T) {
	s := setupTestDatabase(t)
	ctx := context.Background()

	ownerID, err := s.CreateUser(ctx, models.User{Email: "admin@x.com", PasswordHash: "h", Role: models.RoleAdmin})
	require.NoError(t, err)

	cat, err := s.CreateCategory(ctx, "Cloud", "")
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, "Cloud", "dup")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	svc, err := s.CreateService(ctx, models.Service{
		Name: "Cloud S", CategoryID: &cat.ID, MonthlyPrice: 5, YearlyPrice: 50,
		Features: []string{"ssd", "backup"}, Status: models.ServiceActive,
		Priority: models.PriorityHigh, OwnerID: ownerID,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ssd", "backup"}, svc.Features)

	got, err := s.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, svc.Features, got.Features)

	_, err = s.GetService(ctx, svc.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
