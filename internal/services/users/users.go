// Package users управляет учётными записями и привязкой пользователей к партнёрам.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/password"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Ошибки операций с пользователями.
var (
	ErrDuplicateEmail      = apperr.Conflict("user with this email already exists")
	ErrPartnerNotFound     = apperr.NotFound("partner not found")
	ErrUserNotFound        = apperr.NotFound("user not found")
	ErrReferenceIncomplete = apperr.Validation("company name, address and tax id are required")
	ErrInvalidRole         = apperr.Validation("role must be one of ADMIN, USER, PARTNER")
	ErrSelfReference       = apperr.Validation("user cannot be its own partner")
	ErrNotAdmin            = apperr.Conflict("email belongs to a non-admin account")
)

// UserRepository хранилище пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, u models.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	ListUsers(ctx context.Context, f models.UserFilter, limit, offset int) ([]*models.User, int, error)
	UpdateUser(ctx context.Context, id int64, p models.UserProfile, role models.Role, partnerID *int64) error
	DeleteUser(ctx context.Context, id int64) error
}

// CreateParams данные нового пользователя. PartnerEmail указывает привлёкшего партнёра.
type CreateParams struct {
	Profile      models.UserProfile
	Password     string
	Role         models.Role
	PartnerEmail string
}

// UpdateParams новые значения профиля. Пустой PartnerEmail снимает привязку к партнёру.
type UpdateParams struct {
	Profile      models.UserProfile
	Role         models.Role
	PartnerEmail string
}

// UserService бизнес-логика пользователей.
type UserService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewUserService создаёт UserService.
func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{
		repo: repo,
		log:  log,
	}
}

// Create создаёт пользователя с указанной ролью.
func (s *UserService) Create(ctx context.Context, p CreateParams) (*models.User, error) {
	const op = "services.users.Create"
	u, err := s.create(ctx, p)
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// EnsureAdmin заводит администратора с email, если его ещё нет. Существующий
// администратор не меняется (created = false). Если email занят пользователем
// другой роли, возвращается ErrNotAdmin.
func (s *UserService) EnsureAdmin(ctx context.Context, email, pass string) (*models.User, bool, error) {
	const op = "services.users.EnsureAdmin"

	existing, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			return nil, false, fmt.Errorf("%s: %w", op, ErrNotAdmin)
		}
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.create(ctx, CreateParams{
		Profile:  models.UserProfile{Email: email, Name: "Administrator"},
		Password: pass,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return nil, false, wrap(op, err)
	}
	return u, true, nil
}

// CreateByPartnerReference создаёт пользователя с ролью USER, привлечённого партнёром.
// В отличие от Create обязательны название компании, адрес и ИНН, а партнёр должен существовать.
func (s *UserService) CreateByPartnerReference(ctx context.Context, p CreateParams) (*models.User, error) {
	const op = "services.users.CreateByPartnerReference"
	if blank(p.Profile.CompanyName) || blank(p.Profile.Address) || blank(p.Profile.TaxID) {
		return nil, ErrReferenceIncomplete
	}
	if blank(p.PartnerEmail) {
		return nil, ErrPartnerNotFound
	}
	p.Role = models.RoleUser
	u, err := s.create(ctx, p)
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

func (s *UserService) create(ctx context.Context, p CreateParams) (*models.User, error) {
	if !p.Role.Valid() {
		return nil, ErrInvalidRole
	}
	p.Profile.Email = normalizeEmail(p.Profile.Email)

	exists, err := s.repo.EmailExists(ctx, p.Profile.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	partnerID, err := s.resolvePartner(ctx, p.PartnerEmail)
	if err != nil {
		return nil, err
	}
	if p.Role == models.RolePartner {
		partnerID = nil
	}

	var hash string
	if p.Password != "" {
		hash, err = password.GetHash(p.Password)
		if err != nil {
			return nil, err
		}
	}

	id, err := s.repo.CreateUser(ctx, models.User{
		Email:        p.Profile.Email,
		PasswordHash: hash,
		Role:         p.Role,
		Name:         p.Profile.Name,
		Phone:        p.Profile.Phone,
		Address:      p.Profile.Address,
		CompanyName:  p.Profile.CompanyName,
		TaxID:        p.Profile.TaxID,
		PartnerID:    partnerID,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("user created", slog.Int64("id", id), slog.String("role", p.Role.String()))

	return s.repo.GetUser(ctx, id)
}

// resolvePartner находит пользователя с ролью ровно PARTNER.
func (s *UserService) resolvePartner(ctx context.Context, email string) (*int64, error) {
	if blank(email) {
		return nil, nil
	}
	partner, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPartnerNotFound
		}
		return nil, err
	}
	if partner.Role != models.RolePartner {
		return nil, ErrPartnerNotFound
	}
	return &partner.ID, nil
}

// Get возвращает пользователя по ID.
func (s *UserService) Get(ctx context.Context, id int64) (*models.User, error) {
	const op = "services.users.Get"
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// List возвращает страницу пользователей.
func (s *UserService) List(ctx context.Context, f models.UserFilter, page models.PageRequest) (models.Page[*models.User], error) {
	const op = "services.users.List"
	items, total, err := s.repo.ListUsers(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.User]{}, wrap(op, err)
	}
	return models.Page[*models.User]{Items: items, Total: total}, nil
}

// ListReferred возвращает только пользователей, привлечённых партнёром partnerID.
func (s *UserService) ListReferred(ctx context.Context, partnerID int64, search string, page models.PageRequest) (models.Page[*models.User], error) {
	const op = "services.users.ListReferred"
	f := models.UserFilter{Search: search, PartnerID: &partnerID}
	items, total, err := s.repo.ListUsers(ctx, f, page.Limit, page.Offset())
	if err != nil {
		return models.Page[*models.User]{}, wrap(op, err)
	}
	return models.Page[*models.User]{Items: items, Total: total}, nil
}

// Export возвращает всех пользователей, подходящих под фильтр.
func (s *UserService) Export(ctx context.Context, f models.UserFilter) ([]*models.User, error) {
	const op = "services.users.Export"
	items, _, err := s.repo.ListUsers(ctx, f, 0, 0)
	if err != nil {
		return nil, wrap(op, err)
	}
	return items, nil
}

// Update меняет профиль, роль и партнёра. Нулевая роль оставляет текущую.
func (s *UserService) Update(ctx context.Context, id int64, p UpdateParams) (*models.User, error) {
	const op = "services.users.Update"

	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	role := p.Role
	if role == models.RoleUnknown {
		role = current.Role
	}

	partnerID, err := s.resolvePartner(ctx, p.PartnerEmail)
	if err != nil {
		return nil, wrap(op, err)
	}
	if partnerID != nil && *partnerID == id {
		return nil, ErrSelfReference
	}
	if role == models.RolePartner {
		partnerID = nil
	}

	p.Profile.Email = normalizeEmail(p.Profile.Email)
	if err := s.repo.UpdateUser(ctx, id, p.Profile, role, partnerID); err != nil {
		return nil, wrap(op, err)
	}
	s.log.Info("user updated", slog.Int64("id", id))

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// UpdateMe меняет профиль пользователя, сохраняя его роль и партнёра.
func (s *UserService) UpdateMe(ctx context.Context, id int64, profile models.UserProfile) (*models.User, error) {
	const op = "services.users.UpdateMe"

	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	if blank(profile.Email) {
		profile.Email = current.Email
	}
	profile.Email = normalizeEmail(profile.Email)
	if err := s.repo.UpdateUser(ctx, id, profile, current.Role, current.PartnerID); err != nil {
		return nil, wrap(op, err)
	}

	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// Delete удаляет пользователя.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	const op = "services.users.Delete"
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return wrap(op, err)
	}
	s.log.Info("user deleted", slog.Int64("id", id))
	return nil
}

// wrap переводит ошибки хранилища в прикладные.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	case errors.Is(err, repository.ErrAlreadyExists):
		return fmt.Errorf("%s: %w", op, ErrDuplicateEmail)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
