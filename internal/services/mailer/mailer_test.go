package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/smtp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	return m.Called().String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func expectDelivery(tr *MockTransport, to string) (*MockSMTPClient, *bufferCloser) {
	client := new(MockSMTPClient)
	buf := &bufferCloser{}
	tr.On("Sender").Return("noreply@host.test")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@host.test").Return(nil)
	client.On("Rcpt", to).Return(nil)
	client.On("Data").Return(buf, nil)
	client.On("Quit").Return(nil)
	client.On("Close").Return(nil)
	return client, buf
}

func TestMailer_SendPartnerOTP(t *testing.T) {
	tr := new(MockTransport)
	client, buf := expectDelivery(tr, "a@x.com")

	m := New(tr, "", newNoopLogger())
	require.NoError(t, m.SendPartnerOTP("a@x.com", "012345", 10*time.Minute))

	assert.True(t, buf.closed)
	assert.Contains(t, buf.String(), "Subject: Verify your email")
	assert.Contains(t, buf.String(), "012345")
	assert.Contains(t, buf.String(), "10 minutes")
	client.AssertExpectations(t)
	tr.AssertExpectations(t)
}

func TestMailer_ConnectFailure(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Sender").Return("noreply@host.test")
	tr.On("Connect").Return(nil, smtp.ErrNotConfigured)

	m := New(tr, "", newNoopLogger())
	err := m.SendPasswordResetOTP("a@x.com", "111111", 10*time.Minute)
	assert.ErrorIs(t, err, smtp.ErrNotConfigured)
}

func TestMailer_RcptFailure(t *testing.T) {
	tr := new(MockTransport)
	client := new(MockSMTPClient)
	tr.On("Sender").Return("noreply@host.test")
	tr.On("Connect").Return(client, nil)
	client.On("Mail", "noreply@host.test").Return(nil)
	client.On("Rcpt", "bad@x.com").Return(errors.New("550 mailbox unavailable"))
	client.On("Close").Return(nil)

	m := New(tr, "", newNoopLogger())
	err := m.SendFormAcknowledgement(&models.FormSubmission{Email: "bad@x.com", Type: models.FormDemo})
	assert.Error(t, err)
	client.AssertNotCalled(t, "Data")
}

func TestMailer_NotifyAdminWithoutInbox(t *testing.T) {
	tr := new(MockTransport)
	m := New(tr, "", newNoopLogger())

	assert.NoError(t, m.NotifyAdminPartnerRegistration(&models.PartnerRegistration{Email: "p@x.com"}))
	tr.AssertNotCalled(t, "Connect")
}

func TestMailer_NotifyPartnerStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  models.PartnerStatus
		subject string
	}{
		{name: "approved", status: models.PartnerApproved, subject: "approved"},
		{name: "rejected", status: models.PartnerRejected, subject: "declined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			_, buf := expectDelivery(tr, "p@x.com")

			m := New(tr, "", newNoopLogger())
			require.NoError(t, m.NotifyPartnerStatus(&models.PartnerRegistration{Email: "p@x.com", Status: tt.status}))
			assert.Contains(t, buf.String(), tt.subject)
		})
	}

	t.Run("pending sends nothing", func(t *testing.T) {
		tr := new(MockTransport)
		m := New(tr, "", newNoopLogger())
		require.NoError(t, m.NotifyPartnerStatus(&models.PartnerRegistration{Status: models.PartnerPending}))
		tr.AssertNotCalled(t, "Connect")
	})
}

func TestMailer_SendExpiryReminder(t *testing.T) {
	t.Run("valid message", func(t *testing.T) {
		tr := new(MockTransport)
		_, buf := expectDelivery(tr, "u@x.com")

		body, err := json.Marshal(models.ExpiryReminder{
			Email: "u@x.com", Name: "Ann", ServiceType: "SERVER", ServiceID: "vps-1",
			TransactionID: "TXN-1", ExpiresAt: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)

		m := New(tr, "", newNoopLogger())
		require.NoError(t, m.SendExpiryReminder(body))
		assert.Contains(t, buf.String(), "2024-12-31")
		assert.Contains(t, buf.String(), "Hello Ann")
	})

	t.Run("invalid json", func(t *testing.T) {
		tr := new(MockTransport)
		m := New(tr, "", newNoopLogger())
		assert.ErrorIs(t, m.SendExpiryReminder([]byte("{")), ErrMalformedReminder)
		tr.AssertNotCalled(t, "Connect")
	})
}
