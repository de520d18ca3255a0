package partners

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/mailer"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendPartnerOTP(to, code string, ttl time.Duration) error {
	return m.Called(to, code, ttl).Error(0)
}

func (m *MailerMock) NotifyAdminPartnerRegistration(reg *models.PartnerRegistration) error {
	return m.Called(reg).Error(0)
}

func (m *MailerMock) NotifyPartnerStatus(reg *models.PartnerRegistration) error {
	return m.Called(reg).Error(0)
}

// memRepo повторяет семантику SQL-хранилища заявок в памяти.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]*models.PartnerRegistration
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{byMail: map[string]*models.PartnerRegistration{}}
}

func (r *memRepo) clone(p *models.PartnerRegistration) *models.PartnerRegistration {
	c := *p
	return &c
}

func (r *memRepo) UpsertPartnerOTP(_ context.Context, email, code string, expires time.Time) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.byMail[email]
	if !ok {
		r.nextID++
		p = &models.PartnerRegistration{ID: r.nextID, Email: email, Status: models.PartnerPending}
		r.byMail[email] = p
	}
	p.OTP, p.OTPExpires = &code, &expires
	return r.clone(p), nil
}

func (r *memRepo) GetPartnerRegistration(_ context.Context, id int64) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byMail {
		if p.ID == id {
			return r.clone(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) GetPartnerRegistrationByEmail(_ context.Context, email string) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	p, ok := r.byMail[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.clone(p), nil
}

func (r *memRepo) ConsumePartnerOTP(_ context.Context, id int64, code string) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byMail {
		if p.ID == id && p.OTP != nil && *p.OTP == code {
			p.OTP, p.OTPExpires = nil, nil
			if p.Status == models.PartnerPending {
				p.Status = models.PartnerVerified
			}
			return r.clone(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) SubmitPartnerDetails(_ context.Context, email string, d models.PartnerDetails) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byMail[email]
	if !ok || p.Status == models.PartnerApproved {
		return nil, repository.ErrNotFound
	}
	p.CompanyName, p.ContactName = d.CompanyName, d.ContactName
	p.Status = models.PartnerPending
	return r.clone(p), nil
}

func (r *memRepo) SetPartnerStatus(_ context.Context, id int64, status models.PartnerStatus) (*models.PartnerRegistration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byMail {
		if p.ID == id {
			p.Status = status
			return r.clone(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) ListPartnerRegistrations(_ context.Context, f models.PartnerFilter, _, _ int) ([]*models.PartnerRegistration, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PartnerRegistration
	for _, p := range r.byMail {
		if f.Status == "" || p.Status == f.Status {
			out = append(out, r.clone(p))
		}
	}
	return out, len(out), nil
}

func (r *memRepo) PartnerSummary(_ context.Context) (models.PartnerSummary, error) {
	return models.PartnerSummary{}, errors.New("not implemented")
}

func (r *memRepo) DeletePartnerRegistration(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, p := range r.byMail {
		if p.ID == id {
			delete(r.byMail, email)
			return nil
		}
	}
	return repository.ErrNotFound
}

func newTestService(repo Repository, m Mailer, now time.Time) *PartnerService {
	s := NewPartnerService(repo, m, 10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return now }
	return s
}

func TestOnboardingScenario(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	m := new(MailerMock)

	var code string
	m.On("SendPartnerOTP", "a@x.com", mock.AnythingOfType("string"), 10*time.Minute).
		Run(func(args mock.Arguments) { code = args.String(1) }).Return(nil).Once()
	m.On("NotifyAdminPartnerRegistration", mock.Anything).Return(nil)
	m.On("NotifyPartnerStatus", mock.Anything).Return(nil)

	svc := newTestService(repo, m, t0)
	ctx := context.Background()

	warning, err := svc.RequestOTP(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Empty(t, warning)
	rec := repo.byMail["a@x.com"]
	assert.Equal(t, models.PartnerPending, rec.Status)
	assert.Equal(t, t0.Add(10*time.Minute), *rec.OTPExpires)

	svc.now = func() time.Time { return t0.Add(9 * time.Minute) }
	reg, err := svc.VerifyOTP(ctx, "a@x.com", code)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerVerified, reg.Status)
	assert.Nil(t, repo.byMail["a@x.com"].OTP)

	_, err = svc.VerifyOTP(ctx, "a@x.com", code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)

	reg, warning, err = svc.SubmitRegistration(ctx, "a@x.com", models.PartnerDetails{CompanyName: "ACME"})
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.Equal(t, models.PartnerPending, reg.Status)

	reg, _, err = svc.SetStatus(ctx, reg.ID, models.PartnerApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerApproved, reg.Status)

	_, _, err = svc.SubmitRegistration(ctx, "a@x.com", models.PartnerDetails{CompanyName: "ACME 2"})
	assert.ErrorIs(t, err, ErrPartnerAlreadyApproved)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, models.PartnerApproved, repo.byMail["a@x.com"].Status)
}

func TestPartnerService_VerifyOTP(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		email string
		code  string
		at    time.Time
	}{
		{name: "wrong code", email: "a@x.com", code: "999999", at: t0.Add(time.Minute)},
		{name: "expired", email: "a@x.com", code: "123456", at: t0.Add(10 * time.Minute)},
		{name: "unknown email", email: "b@x.com", code: "123456", at: t0.Add(time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			_, err := repo.UpsertPartnerOTP(context.Background(), "a@x.com", "123456", t0.Add(10*time.Minute))
			require.NoError(t, err)

			svc := newTestService(repo, new(MailerMock), tt.at)
			_, err = svc.VerifyOTP(context.Background(), tt.email, tt.code)
			assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
			assert.Equal(t, "123456", *repo.byMail["a@x.com"].OTP)
		})
	}
}

func TestPartnerService_RequestOTP_Reissue(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newMemRepo()
	m := new(MailerMock)
	var codes []string
	m.On("SendPartnerOTP", "a@x.com", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { codes = append(codes, args.String(1)) }).Return(nil)

	svc := newTestService(repo, m, t0)
	_, err := svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	_, err = svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Len(t, repo.byMail, 1)

	if codes[0] != codes[1] {
		_, err = svc.VerifyOTP(context.Background(), "a@x.com", codes[0])
		assert.ErrorIs(t, err, ErrInvalidOrExpiredOTP)
	}
	_, err = svc.VerifyOTP(context.Background(), "a@x.com", codes[1])
	assert.NoError(t, err)
}

func TestPartnerService_RequestOTP_MailFailure(t *testing.T) {
	repo := newMemRepo()
	m := new(MailerMock)
	m.On("SendPartnerOTP", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	svc := newTestService(repo, m, time.Now())
	warning, err := svc.RequestOTP(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, mailer.Warning, warning)
	assert.Contains(t, repo.byMail, "a@x.com")
}

func TestPartnerService_SubmitRegistration_RequiresRecord(t *testing.T) {
	svc := newTestService(newMemRepo(), new(MailerMock), time.Now())
	_, _, err := svc.SubmitRegistration(context.Background(), "new@x.com", models.PartnerDetails{})
	assert.ErrorIs(t, err, ErrVerificationRequired)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPartnerService_SetStatus(t *testing.T) {
	repo := newMemRepo()
	reg, err := repo.UpsertPartnerOTP(context.Background(), "a@x.com", "1", time.Now())
	require.NoError(t, err)

	m := new(MailerMock)
	m.On("NotifyPartnerStatus", mock.Anything).Return(errors.New("smtp down"))
	svc := newTestService(repo, m, time.Now())

	_, _, err = svc.SetStatus(context.Background(), reg.ID, models.PartnerVerified)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	got, warning, err := svc.SetStatus(context.Background(), reg.ID, models.PartnerRejected)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerRejected, got.Status)
	assert.Equal(t, mailer.Warning, warning)

	got, _, err = svc.SetStatus(context.Background(), reg.ID, models.PartnerApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PartnerApproved, got.Status)

	_, _, err = svc.SetStatus(context.Background(), 404, models.PartnerApproved)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}
