package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

var (
	userCols = []string{"id", "email", "password_hash", "role", "name", "phone", "address",
		"company_name", "tax_id", "partner_id", "partner_email", "refresh_token", "reset_otp",
		"reset_otp_expires", "created_at", "updated_at"}
	requestCols = []string{"id", "partner_id", "name", "email", "phone", "company_name",
		"service_type", "service_id", "service_name", "billing_cycle", "amount", "currency", "notes",
		"status", "admin_notes", "approved_by", "approved_at", "created_at", "updated_at"}
	testTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func requestRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(requestCols).AddRow(
		int64(5), int64(3), "Client", "client@x.com", "", "ACME", "SERVER", "vps-1", "VPS 1",
		"QUARTERLY", 99.0, "USD", "", status, nil, nil, nil, testTime, testTime)
}

func TestWhereBuilder(t *testing.T) {
	w := &where{}
	assert.Empty(t, w.String())

	w.eq("status", "")
	w.eq("status", "pending")
	w.search("  acme ", "email", "company_name")
	w.add("partner_id = %s", int64(7))

	assert.Equal(t,
		" WHERE status = $1 AND (email ILIKE '%' || $2 || '%' OR company_name ILIKE '%' || $2 || '%') AND partner_id = $3",
		w.String())
	assert.Equal(t, []any{"pending", "acme", int64(7)}, w.args)

	pageSQL, args := w.page(10, 20)
	assert.Equal(t, " LIMIT $4 OFFSET $5", pageSQL)
	assert.Equal(t, []any{"pending", "acme", int64(7), 10, 20}, args)
	assert.Len(t, w.args, 3)

	pageSQL, args = w.page(0, 0)
	assert.Empty(t, pageSQL)
	assert.Len(t, args, 3)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "no rows", in: sql.ErrNoRows, want: ErrNotFound},
		{name: "unique violation", in: &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"}, want: ErrAlreadyExists},
		{name: "foreign key violation", in: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tt.in), tt.want)
		})
	}

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestStorage_CreateUser_Duplicate(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := s.CreateUser(context.Background(), models.User{Email: "a@x.com", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_GetUser(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery(`WHERE u.id = \$1`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(
			int64(1), "a@x.com", "hash", "PARTNER", "A", "", "", "", "", nil, nil, "tok", nil, nil,
			testTime, testTime))
	mock.ExpectQuery(`WHERE u.id = \$1`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := s.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.RolePartner, u.Role)
	assert.Nil(t, u.PartnerID)
	require.NotNil(t, u.RefreshToken)
	assert.Equal(t, "tok", *u.RefreshToken)

	_, err = s.GetUser(context.Background(), 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_CanceledContext(t *testing.T) {
	s, mock := newMockStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetUser(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ApproveServiceRequest(t *testing.T) {
	approval := Approval{
		RequestID: 5,
		AdminID:   1,
		At:        testTime,
		Purchase: func(req *models.ServiceRequest) models.Purchase {
			return models.Purchase{
				ServiceType:   req.ServiceType,
				ServiceID:     req.ServiceID,
				Amount:        req.Amount,
				Currency:      req.Currency,
				PaymentMethod: "SERVICE_REQUEST",
				PaymentStatus: models.PaymentCompleted,
				TransactionID: "TXN-1",
				PlanType:      req.BillingCycle,
				ExpiresAt:     testTime.AddDate(0, 0, 90),
				CreatedAt:     testTime,
			}
		},
	}

	t.Run("existing user", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM service_requests WHERE id = \$1 FOR UPDATE`).WithArgs(int64(5)).
			WillReturnRows(requestRow(models.RequestPending))
		mock.ExpectQuery(`LOWER\(u.email\) = LOWER\(\$1\)`).WithArgs("client@x.com").
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(
				int64(9), "client@x.com", nil, "USER", "", "", "", "", "", int64(3), "p@x.com", nil, nil, nil,
				testTime, testTime))
		mock.ExpectQuery("INSERT INTO purchases").
			WithArgs(int64(9), "SERVER", "vps-1", 99.0, "USD", "SERVICE_REQUEST", "COMPLETED", "TXN-1",
				"QUARTERLY", testTime.AddDate(0, 0, 90), int64(5), testTime).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(100), testTime, testTime))
		mock.ExpectQuery("UPDATE service_requests").
			WithArgs(models.RequestApproved, nil, int64(1), testTime, int64(5)).
			WillReturnRows(requestRow(models.RequestApproved))
		mock.ExpectCommit()

		res, err := s.ApproveServiceRequest(context.Background(), approval)
		require.NoError(t, err)
		assert.False(t, res.UserCreated)
		assert.Equal(t, int64(100), res.Purchase.ID)
		assert.Equal(t, int64(9), res.Purchase.UserID)
		require.NotNil(t, res.Purchase.ServiceRequestID)
		assert.Equal(t, int64(5), *res.Purchase.ServiceRequestID)
		assert.Equal(t, models.RequestApproved, res.Request.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates passwordless user linked to partner", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(5)).
			WillReturnRows(requestRow(models.RequestPending))
		mock.ExpectQuery(`LOWER\(u.email\) = LOWER\(\$1\)`).WithArgs("client@x.com").
			WillReturnRows(sqlmock.NewRows(userCols))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("client@x.com", nil, "USER", "Client", "", "", "ACME", "", int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectQuery("INSERT INTO purchases").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(101), testTime, testTime))
		mock.ExpectQuery("UPDATE service_requests").
			WillReturnRows(requestRow(models.RequestApproved))
		mock.ExpectCommit()

		res, err := s.ApproveServiceRequest(context.Background(), approval)
		require.NoError(t, err)
		assert.True(t, res.UserCreated)
		assert.Equal(t, int64(42), res.Purchase.UserID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not pending rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(5)).
			WillReturnRows(requestRow(models.RequestApproved))
		mock.ExpectRollback()

		_, err := s.ApproveServiceRequest(context.Background(), approval)
		assert.ErrorIs(t, err, ErrNotPending)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("purchase insert failure rolls back", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(requestRow(models.RequestPending))
		mock.ExpectQuery(`LOWER\(u.email\)`).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(
				int64(9), "client@x.com", nil, "USER", "", "", "", "", "", nil, nil, nil, nil, nil,
				testTime, testTime))
		mock.ExpectQuery("INSERT INTO purchases").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "purchases_service_request_id_key"})
		mock.ExpectRollback()

		_, err := s.ApproveServiceRequest(context.Background(), approval)
		assert.ErrorIs(t, err, ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_RejectServiceRequest(t *testing.T) {
	notes := "out of stock"

	t.Run("pending", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(5)).WillReturnRows(requestRow(models.RequestPending))
		mock.ExpectQuery("UPDATE service_requests").
			WithArgs(models.RequestRejected, notes, int64(1), testTime, int64(5)).
			WillReturnRows(requestRow(models.RequestRejected))
		mock.ExpectCommit()

		r, err := s.RejectServiceRequest(context.Background(), 5, 1, &notes, testTime)
		require.NoError(t, err)
		assert.Equal(t, models.RequestRejected, r.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		s, mock := newMockStorage(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(6)).WillReturnRows(sqlmock.NewRows(requestCols))
		mock.ExpectRollback()

		_, err := s.RejectServiceRequest(context.Background(), 6, 1, nil, testTime)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStorage_PurchaseStatusAggregates(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery("GROUP BY payment_status").
		WillReturnRows(sqlmock.NewRows([]string{"payment_status", "count", "sum"}).
			AddRow("COMPLETED", 2, 150.0).
			AddRow("REFUNDED", 1, 40.0))

	got, err := s.PurchaseStatusAggregates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.StatusAggregate{
		{Status: "COMPLETED", Count: 2, Amount: 150},
		{Status: "REFUNDED", Count: 1, Amount: 40},
	}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListPurchases_ExpiryFilter(t *testing.T) {
	s, mock := newMockStorage(t)
	now := testTime
	f := models.PurchaseFilter{Expiry: models.ExpirySoon, Now: now, PaymentStatus: models.PaymentCompleted}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM purchases pu JOIN users u ON u.id = pu.user_id WHERE pu.payment_status = \$1 AND pu.expires_at >= \$2 AND pu.expires_at <= \$3`).
		WithArgs("COMPLETED", now, now.Add(7*24*time.Hour)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY pu.created_at DESC, pu.id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("COMPLETED", now, now.Add(7*24*time.Hour), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	items, total, err := s.ListPurchases(context.Background(), f, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ConsumePartnerOTP_Used(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectQuery("UPDATE partner_registrations").WithArgs(int64(1), "123456").
		WillReturnError(sql.ErrNoRows)

	_, err := s.ConsumePartnerOTP(context.Background(), 1, "123456")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ResetPassword_CodeAlreadyUsed(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(`UPDATE users .* WHERE id = \$2 AND reset_otp = \$3`).
		WithArgs("hash", int64(2), "123456").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users .* WHERE id = \$2 AND reset_otp = \$3`).
		WithArgs("hash", int64(2), "123456").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.ResetPassword(context.Background(), 2, "123456", "hash"))
	err := s.ResetPassword(context.Background(), 2, "123456", "hash")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_RevokeRefreshToken(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec(`UPDATE users SET refresh_token = NULL, .* WHERE id = \$1 AND refresh_token = \$2`).
		WithArgs(int64(4), "old-token").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET refresh_token = NULL`).
		WithArgs(int64(4), "old-token").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.RevokeRefreshToken(context.Background(), 4, "old-token"))
	err := s.RevokeRefreshToken(context.Background(), 4, "old-token")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_DeleteMissing(t *testing.T) {
	s, mock := newMockStorage(t)
	mock.ExpectExec("DELETE FROM vps_servers").WithArgs(int64(77)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteVPS(context.Background(), 77)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
