package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

type RepoMock struct {
	mock.Mock
}

func (m *RepoMock) FindPurchasesExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiryReminder, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExpiryReminder), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(routingKey string, message any) error {
	return m.Called(routingKey, message).Error(0)
}

func TestReminderWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 23, 59, 0, 0, time.FixedZone("UTC+3", 3*3600))
	from, to := ReminderWindow(now, 7)

	assert.Equal(t, time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), to)
}

func TestSchedulerService_RemindExpiring(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	from := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	reminders := []models.ExpiryReminder{
		{Email: "a@x.com", TransactionID: "TXN-1"},
		{Email: "b@x.com", TransactionID: "TXN-2"},
		{Email: "c@x.com", TransactionID: "TXN-3"},
	}

	tests := []struct {
		name          string
		setupMocks    func(r *RepoMock, p *PublisherMock)
		wantPublished int
		wantErr       bool
	}{
		{
			name: "publishes all",
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("FindPurchasesExpiringBetween", mock.Anything, from, to).Return(reminders, nil).Once()
				p.On("Publish", rabbitmq.PurchaseExpiringKey, mock.Anything).Return(nil).Times(3)
			},
			wantPublished: 3,
		},
		{
			name: "one publish fails",
			setupMocks: func(r *RepoMock, p *PublisherMock) {
				r.On("FindPurchasesExpiringBetween", mock.Anything, from, to).Return(reminders, nil).Once()
				p.On("Publish", rabbitmq.PurchaseExpiringKey, reminders[1]).Return(errors.New("channel closed")).Once()
				p.On("Publish", rabbitmq.PurchaseExpiringKey, mock.Anything).Return(nil).Twice()
			},
			wantPublished: 2,
		},
		{
			name: "nothing expiring",
			setupMocks: func(r *RepoMock, _ *PublisherMock) {
				r.On("FindPurchasesExpiringBetween", mock.Anything, from, to).Return([]models.ExpiryReminder{}, nil).Once()
			},
		},
		{
			name: "repository error",
			setupMocks: func(r *RepoMock, _ *PublisherMock) {
				r.On("FindPurchasesExpiringBetween", mock.Anything, from, to).Return(nil, errors.New("db down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			pub := new(PublisherMock)
			tt.setupMocks(repo, pub)

			svc := NewSchedulerService(repo, pub, 7, slog.New(slog.NewTextHandler(io.Discard, nil)))
			svc.now = func() time.Time { return now }

			n, err := svc.RemindExpiring(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantPublished, n)
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
		})
	}
}
