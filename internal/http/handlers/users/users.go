// Package users реализует HTTP-обработчики пользователей: администрирование,
// профиль текущего пользователя и пользователи, привлечённые партнёром.
package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/users"
)

// ProfileRequest поля профиля.
type ProfileRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,max=255"`
	Phone       string `json:"phone" validate:"max=50"`
	Address     string `json:"address" validate:"max=500"`
	CompanyName string `json:"companyName" validate:"max=255"`
	TaxID       string `json:"taxId" validate:"max=50"`
}

// CreateRequest создание пользователя администратором.
type CreateRequest struct {
	ProfileRequest
	Password     string `json:"password" validate:"omitempty,min=8,max=72"`
	Role         string `json:"role" validate:"omitempty,oneof=ADMIN USER PARTNER"`
	PartnerEmail string `json:"partnerEmail" validate:"omitempty,email"`
}

// UpdateRequest изменение пользователя администратором.
type UpdateRequest struct {
	ProfileRequest
	Role         string `json:"role" validate:"omitempty,oneof=ADMIN USER PARTNER"`
	PartnerEmail string `json:"partnerEmail" validate:"omitempty,email"`
}

// MeRequest изменение собственного профиля. Email можно не передавать.
type MeRequest struct {
	Email       string `json:"email" validate:"omitempty,email"`
	Name        string `json:"name" validate:"required,max=255"`
	Phone       string `json:"phone" validate:"max=50"`
	Address     string `json:"address" validate:"max=500"`
	CompanyName string `json:"companyName" validate:"max=255"`
	TaxID       string `json:"taxId" validate:"max=50"`
}

var errNoSession = apperr.New(apperr.KindUnauthenticated, "authentication required")

func (p ProfileRequest) profile() models.UserProfile {
	return models.UserProfile{
		Email:       p.Email,
		Name:        p.Name,
		Phone:       p.Phone,
		Address:     p.Address,
		CompanyName: p.CompanyName,
		TaxID:       p.TaxID,
	}
}

func parseRole(raw string, fallback models.Role) models.Role {
	if raw == "" {
		return fallback
	}
	role, err := models.ParseRole(raw)
	if err != nil {
		return models.RoleUnknown
	}
	return role
}

// Handler обрабатывает HTTP-запросы пользователей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func (h *Handler) filter(r *http.Request) (models.UserFilter, error) {
	f := models.UserFilter{Search: request.Search(r)}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			return f, users.ErrInvalidRole
		}
		f.Role = role
	}
	partnerID, err := request.OptionalID(r, "partnerId")
	if err != nil {
		return f, err
	}
	f.PartnerID = partnerID
	return f, nil
}

// List godoc
// @Summary Список пользователей
// @Tags Users
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по email, имени, компании"
// @Param role query string false "ADMIN, USER или PARTNER"
// @Param partnerId query int false "ID партнёра"
// @Success 200 {object} response.Response
// @Router /admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.List"
	log := h.logger(r, op)

	f, err := h.filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	page := request.Page(r)

	res, err := h.service.List(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("users", res.Items, page, res.Total))
}

// Create godoc
// @Summary Создать пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 404 {object} response.ErrorResponse "Партнёр не найден"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /admin/users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Create"
	log := h.logger(r, op)

	var req CreateRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	u, err := h.service.Create(r.Context(), users.CreateParams{
		Profile:      req.profile(),
		Password:     req.Password,
		Role:         parseRole(req.Role, models.RoleUser),
		PartnerEmail: req.PartnerEmail,
	})
	if err != nil {
		log.Info("failed to create user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("user created", slog.Int64("id", u.ID))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"user": u}))
}

// CreateByPartnerReference godoc
// @Summary Создать пользователя по ссылке партнёра
// @Description Роль всегда USER. Обязательны компания, адрес, ИНН и email партнёра.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Партнёр не найден"
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /admin/users/by-partner-reference [post]
func (h *Handler) CreateByPartnerReference(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.CreateByPartnerReference"
	log := h.logger(r, op)

	var req CreateRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	u, err := h.service.CreateByPartnerReference(r.Context(), users.CreateParams{
		Profile:      req.profile(),
		Password:     req.Password,
		PartnerEmail: req.PartnerEmail,
	})
	if err != nil {
		log.Info("failed to create referred user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("referred user created", slog.Int64("id", u.ID))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"user": u}))
}

// Get godoc
// @Summary Получить пользователя
// @Tags Users
// @Produce  json
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Не найден"
// @Router /admin/users/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Get"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Info("failed to get user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"user": u}))
}

// Update godoc
// @Summary Изменить пользователя
// @Description Пустой partnerEmail снимает привязку к партнёру.
// @Tags Users
// @Accept  json
// @Produce  json
// @Param id path int true "ID пользователя"
// @Param request body UpdateRequest true "Новые данные"
// @Success 200 {object} response.Response
// @Router /admin/users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Update"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req UpdateRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	u, err := h.service.Update(r.Context(), id, users.UpdateParams{
		Profile:      req.profile(),
		Role:         parseRole(req.Role, models.RoleUnknown),
		PartnerEmail: req.PartnerEmail,
	})
	if err != nil {
		log.Info("failed to update user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"user": u}))
}

// Delete godoc
// @Summary Удалить пользователя
// @Tags Users
// @Produce  json
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Router /admin/users/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Delete"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Info("failed to delete user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("user deleted"))
}

// Export godoc
// @Summary Выгрузка пользователей в CSV
// @Tags Users
// @Produce  text/csv
// @Router /admin/users/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Export"
	log := h.logger(r, op)

	f, err := h.filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	items, err := h.service.Export(r.Context(), f)
	if err != nil {
		log.Error("failed to export users", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(items))
	for _, u := range items {
		partner := ""
		if u.PartnerEmail != nil {
			partner = *u.PartnerEmail
		}
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10), u.Email, u.Name, u.Role.String(), u.Phone,
			u.CompanyName, u.TaxID, partner, response.Time(u.CreatedAt), response.Time(u.UpdatedAt),
		})
	}
	header := []string{"id", "email", "name", "role", "phone", "companyName", "taxId", "partnerEmail", "createdAt", "updatedAt"}
	if err := response.CSV(w, "users", header, rows); err != nil {
		log.Error("failed to write csv", sl.Err(err))
	}
}

// Me godoc
// @Summary Профиль текущего пользователя
// @Tags Me
// @Produce  json
// @Success 200 {object} response.Response
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Me"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	u, err := h.service.Get(r.Context(), me.ID)
	if err != nil {
		log.Info("failed to load profile", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"user": u}))
}

// UpdateMe godoc
// @Summary Изменить свой профиль
// @Tags Me
// @Accept  json
// @Produce  json
// @Param request body MeRequest true "Профиль"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Router /me [put]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.UpdateMe"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	var req MeRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	u, err := h.service.UpdateMe(r.Context(), me.ID, models.UserProfile{
		Email:       req.Email,
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		CompanyName: req.CompanyName,
		TaxID:       req.TaxID,
	})
	if err != nil {
		log.Info("failed to update profile", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"user": u}))
}

// ListReferred godoc
// @Summary Пользователи, привлечённые текущим партнёром
// @Tags Partner
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск"
// @Success 200 {object} response.Response
// @Router /partner/users [get]
func (h *Handler) ListReferred(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.ListReferred"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	page := request.Page(r)

	res, err := h.service.ListReferred(r.Context(), me.ID, request.Search(r), page)
	if err != nil {
		log.Error("failed to list referred users", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("users", res.Items, page, res.Total))
}

// CreateReferred godoc
// @Summary Создать пользователя от имени текущего партнёра
// @Tags Partner
// @Accept  json
// @Produce  json
// @Param request body ProfileRequest true "Данные пользователя"
// @Success 201 {object} response.Response
// @Router /partner/users [post]
func (h *Handler) CreateReferred(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.CreateReferred"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	var req ProfileRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	u, err := h.service.CreateByPartnerReference(r.Context(), users.CreateParams{
		Profile:      req.profile(),
		PartnerEmail: me.Email,
	})
	if err != nil {
		log.Info("failed to create referred user", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("partner created user", slog.Int64("partner_id", me.ID), slog.Int64("id", u.ID))
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"user": u}))
}
