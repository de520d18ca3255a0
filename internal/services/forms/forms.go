// Package forms принимает формы обратной связи и даёт администратору работать с ними.
package forms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/mailer"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки форм.
var (
	ErrFormNotFound    = apperr.NotFound("form submission not found")
	ErrInvalidFormType = apperr.Validation("unknown form type")
	ErrEmptyStatus     = apperr.Validation("status is required")
)

// Repository хранилище форм.
type Repository interface {
	CreateFormSubmission(ctx context.Context, f models.FormSubmission) (*models.FormSubmission, error)
	GetFormSubmission(ctx context.Context, id int64) (*models.FormSubmission, error)
	ListFormSubmissions(ctx context.Context, f models.FormFilter, limit, offset int) ([]*models.FormSubmission, int, error)
	SetFormStatus(ctx context.Context, id int64, status string) (*models.FormSubmission, error)
	DeleteFormSubmission(ctx context.Context, id int64) error
}

// Mailer подтверждает получение формы.
type Mailer interface {
	SendFormAcknowledgement(f *models.FormSubmission) error
}

// FormService бизнес-логика форм.
type FormService struct {
	repo   Repository
	mailer Mailer
	log    *slog.Logger
}

// NewFormService создаёт FormService.
func NewFormService(repo Repository, m Mailer, log *slog.Logger) *FormService {
	return &FormService{
		repo:   repo,
		mailer: m,
		log:    log,
	}
}

// Submit сохраняет форму. userID заполняется, если отправитель вошёл в систему.
// Письмо-подтверждение отправляется после записи; его сбой возвращается как предупреждение.
func (s *FormService) Submit(ctx context.Context, f models.FormSubmission, userID *int64) (*models.FormSubmission, string, error) {
	const op = "services.forms.Submit"
	if !f.Type.Valid() {
		return nil, "", ErrInvalidFormType
	}
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.UserID = userID

	created, err := s.repo.CreateFormSubmission(ctx, f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("form submitted", slog.Int64("id", created.ID), slog.String("type", string(created.Type)))

	if err := s.mailer.SendFormAcknowledgement(created); err != nil {
		s.log.Error("failed to send acknowledgement", slog.Int64("id", created.ID), sl.Err(err))
		return created, mailer.Warning, nil
	}
	return created, "", nil
}

// Get возвращает форму по ID.
func (s *FormService) Get(ctx context.Context, id int64) (*models.FormSubmission, error) {
	const op = "services.forms.Get"
	f, err := s.repo.GetFormSubmission(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return f, nil
}

// List возвращает страницу форм.
func (s *FormService) List(ctx context.Context, f models.FormFilter, page models.PageRequest) (models.Page[*models.FormSubmission], error) {
	const op = "services.forms.List"
	if f.Type != "" && !f.Type.Valid() {
		return models.Page[*models.FormSubmission]{}, ErrInvalidFormType
	}
	items, total, err := s.repo.ListFormSubmissions(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.FormSubmission]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[*models.FormSubmission]{Items: items, Total: total}, nil
}

// Export возвращает все формы, подходящие под фильтр.
func (s *FormService) Export(ctx context.Context, f models.FormFilter) ([]*models.FormSubmission, error) {
	const op = "services.forms.Export"
	if f.Type != "" && !f.Type.Valid() {
		return nil, ErrInvalidFormType
	}
	items, _, err := s.repo.ListFormSubmissions(ctx, f, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// SetStatus записывает произвольный статус обработки.
func (s *FormService) SetStatus(ctx context.Context, id int64, status string) (*models.FormSubmission, error) {
	const op = "services.forms.SetStatus"
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, ErrEmptyStatus
	}
	f, err := s.repo.SetFormStatus(ctx, id, status)
	if err != nil {
		return nil, wrap(op, err)
	}
	return f, nil
}

// Delete удаляет форму.
func (s *FormService) Delete(ctx context.Context, id int64) error {
	const op = "services.forms.Delete"
	if err := s.repo.DeleteFormSubmission(ctx, id); err != nil {
		return wrap(op, err)
	}
	return nil
}

func wrap(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrFormNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
