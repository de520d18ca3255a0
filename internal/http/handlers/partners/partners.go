// Package partners реализует HTTP-обработчики регистрации партнёров:
// публичный поток OTP и анкеты, а также модерацию заявок администратором.
package partners

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// EmailRequest запрос кода подтверждения.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest подтверждение email кодом.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// RegisterRequest анкета партнёра.
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	CompanyName  string `json:"companyName" validate:"required,max=255"`
	ContactName  string `json:"contactName" validate:"required,max=255"`
	Phone        string `json:"phone" validate:"required,max=50"`
	Address      string `json:"address" validate:"max=500"`
	Website      string `json:"website" validate:"max=255"`
	TaxID        string `json:"taxId" validate:"max=50"`
	BusinessType string `json:"businessType" validate:"max=100"`
	Message      string `json:"message" validate:"max=2000"`
}

// StatusRequest решение администратора.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

var errInvalidStatusFilter = apperr.Validation("status must be one of pending, verified, approved, rejected")

// Handler обрабатывает HTTP-запросы регистрации партнёров.
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

func ok(data any, warning string) response.Response {
	if warning != "" {
		return response.OKWithWarning(data, warning)
	}
	return response.OKWithData(data)
}

// RequestOTP godoc
// @Summary Запросить код подтверждения email партнёра
// @Tags Partners
// @Accept  json
// @Produce  json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response "Код отправлен; warning, если письмо не ушло"
// @Failure 409 {object} response.ErrorResponse "Партнёр уже одобрен"
// @Router /partners/request-otp [post]
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.RequestOTP"
	log := h.logger(r, op)

	var req EmailRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	warning, err := h.service.RequestOTP(r.Context(), req.Email)
	if err != nil {
		log.Info("failed to issue otp", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, ok(map[string]any{"email": req.Email}, warning))
}

// VerifyOTP godoc
// @Summary Подтвердить email партнёра кодом
// @Tags Partners
// @Accept  json
// @Produce  json
// @Param request body VerifyRequest true "Email и код"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или просроченный код"
// @Router /partners/verify-otp [post]
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.VerifyOTP"
	log := h.logger(r, op)

	var req VerifyRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	reg, err := h.service.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		log.Info("otp verification failed", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"registration": reg}))
}

// Register godoc
// @Summary Отправить анкету партнёра
// @Description Статус заявки всегда становится pending.
// @Tags Partners
// @Accept  json
// @Produce  json
// @Param request body RegisterRequest true "Анкета"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Email не подтверждён"
// @Failure 409 {object} response.ErrorResponse "Партнёр уже одобрен"
// @Router /partners/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.Register"
	log := h.logger(r, op)

	var req RegisterRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	reg, warning, err := h.service.SubmitRegistration(r.Context(), req.Email, models.PartnerDetails{
		CompanyName:  req.CompanyName,
		ContactName:  req.ContactName,
		Phone:        req.Phone,
		Address:      req.Address,
		Website:      req.Website,
		TaxID:        req.TaxID,
		BusinessType: req.BusinessType,
		Message:      req.Message,
	})
	if err != nil {
		log.Info("failed to submit registration", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	log.Info("partner registration submitted", slog.Int64("id", reg.ID))
	response.JSON(w, r, http.StatusCreated, ok(map[string]any{"registration": reg}, warning))
}

func (h *Handler) filter(r *http.Request) (models.PartnerFilter, error) {
	f := models.PartnerFilter{
		Status: models.PartnerStatus(r.URL.Query().Get("status")),
		Search: request.Search(r),
	}
	if f.Status != "" && !f.Status.Valid() {
		return f, errInvalidStatusFilter
	}
	return f, nil
}

// List godoc
// @Summary Заявки партнёров
// @Tags Partners
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param status query string false "pending, verified, approved, rejected"
// @Param search query string false "Поиск"
// @Success 200 {object} response.Response
// @Router /admin/partner-registrations [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.List"
	log := h.logger(r, op)

	f, err := h.filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	page := request.Page(r)

	res, err := h.service.List(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list registrations", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("registrations", res.Items, page, res.Total))
}

// Summary godoc
// @Summary Количество заявок по статусам
// @Tags Partners
// @Produce  json
// @Success 200 {object} response.Response
// @Router /admin/partner-registrations/summary [get]
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.Summary"
	log := h.logger(r, op)

	sum, err := h.service.Summary(r.Context())
	if err != nil {
		log.Error("failed to count registrations", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"summary": sum}))
}

// Get godoc
// @Summary Заявка партнёра
// @Tags Partners
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Не найдена"
// @Router /admin/partner-registrations/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.Get"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	reg, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Info("failed to get registration", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"registration": reg}))
}

// SetStatus godoc
// @Summary Одобрить или отклонить заявку
// @Tags Partners
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body StatusRequest true "Решение"
// @Success 200 {object} response.Response
// @Router /admin/partner-registrations/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.SetStatus"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req StatusRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}

	reg, warning, err := h.service.SetStatus(r.Context(), id, models.PartnerStatus(req.Status))
	if err != nil {
		log.Info("failed to set status", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	log.Info("registration status changed", slog.Int64("id", id), slog.String("status", req.Status))
	render.JSON(w, r, ok(map[string]any{"registration": reg}, warning))
}

// Delete godoc
// @Summary Удалить заявку партнёра
// @Tags Partners
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} response.Response
// @Router /admin/partner-registrations/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.Delete"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Info("failed to delete registration", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("registration deleted"))
}

// Export godoc
// @Summary Выгрузка заявок партнёров в CSV
// @Tags Partners
// @Produce  text/csv
// @Router /admin/partner-registrations/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.partners.Export"
	log := h.logger(r, op)

	f, err := h.filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	items, err := h.service.Export(r.Context(), f)
	if err != nil {
		log.Error("failed to export registrations", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.Email, p.CompanyName, p.ContactName, p.Phone,
			p.TaxID, p.BusinessType, string(p.Status), response.Time(p.CreatedAt), response.Time(p.UpdatedAt),
		})
	}
	header := []string{"id", "email", "companyName", "contactName", "phone", "taxId", "businessType", "status", "createdAt", "updatedAt"}
	if err := response.CSV(w, "partner-registrations", header, rows); err != nil {
		log.Error("failed to write csv", sl.Err(err))
	}
}
