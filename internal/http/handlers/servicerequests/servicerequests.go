// Package servicerequests реализует HTTP-обработчики заявок партнёров на услуги.
package servicerequests

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// SubmitRequest заявка партнёра на подключение услуги клиенту.
type SubmitRequest struct {
	Name         string  `json:"name" validate:"required,max=255"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        string  `json:"phone" validate:"max=50"`
	CompanyName  string  `json:"companyName" validate:"max=255"`
	ServiceType  string  `json:"serviceType" validate:"required"`
	ServiceID    string  `json:"serviceId" validate:"required,max=100"`
	ServiceName  string  `json:"serviceName" validate:"required,max=255"`
	BillingCycle string  `json:"billingCycle"`
	Amount       float64 `json:"amount" validate:"gte=0"`
	Currency     string  `json:"currency" validate:"omitempty,len=3"`
	Notes        string  `json:"notes"`
}

// DecisionRequest комментарий администратора к решению.
type DecisionRequest struct {
	Notes *string `json:"notes"`
}

var errNoSession = apperr.New(apperr.KindUnauthenticated, "authentication required")

// Handler обрабатывает HTTP-запросы заявок.
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

func filter(r *http.Request) models.ServiceRequestFilter {
	return models.ServiceRequestFilter{
		Status: r.URL.Query().Get("status"),
		Search: request.Search(r),
	}
}

// decisionNotes читает необязательное тело с комментарием. Пустое тело допустимо.
func decisionNotes(r *http.Request) (*string, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	var req DecisionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		return nil, request.ErrInvalidBody
	}
	return req.Notes, nil
}

// Submit godoc
// @Summary Подать заявку на услугу
// @Description Заявка создаётся в статусе PENDING от имени текущего партнёра.
// @Tags Partner
// @Accept  json
// @Produce  json
// @Param request body SubmitRequest true "Заявка"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /partner/service-requests [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.Submit"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	var req SubmitRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	created, err := h.service.Submit(r.Context(), me.ID, models.ServiceRequest{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		CompanyName:  req.CompanyName,
		ServiceType:  req.ServiceType,
		ServiceID:    req.ServiceID,
		ServiceName:  req.ServiceName,
		BillingCycle: req.BillingCycle,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Notes:        req.Notes,
	})
	if err != nil {
		log.Info("failed to submit service request", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"serviceRequest": created}))
}

// ListMine godoc
// @Summary Заявки текущего партнёра
// @Tags Partner
// @Produce  json
// @Param status query string false "PENDING, APPROVED, REJECTED"
// @Success 200 {object} response.Response
// @Router /partner/service-requests [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.ListMine"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	page := request.Page(r)
	res, err := h.service.ListMine(r.Context(), me.ID, filter(r), page)
	if err != nil {
		log.Info("failed to list service requests", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("serviceRequests", res.Items, page, res.Total))
}

// List godoc
// @Summary Все заявки на услуги
// @Tags ServiceRequests
// @Produce  json
// @Param status query string false "PENDING, APPROVED, REJECTED"
// @Param search query string false "Поиск по имени, email, компании, услуге"
// @Success 200 {object} response.Response
// @Router /admin/service-requests [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.List"
	log := h.logger(r, op)

	page := request.Page(r)
	res, err := h.service.List(r.Context(), filter(r), page)
	if err != nil {
		log.Info("failed to list service requests", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("serviceRequests", res.Items, page, res.Total))
}

// Get godoc
// @Summary Заявка на услугу
// @Tags ServiceRequests
// @Produce  json
// @Param id path int true "ID заявки"
// @Success 200 {object} response.Response
// @Router /admin/service-requests/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.Get"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Info("failed to get service request", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"serviceRequest": req}))
}

// Approve godoc
// @Summary Одобрить заявку
// @Description Создаёт покупку в журнале и, при необходимости, пользователя. Повторное решение даёт 409.
// @Tags ServiceRequests
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body DecisionRequest false "Комментарий"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/service-requests/{id}/approve [post]
// @Router /admin/service-requests/{id}/approve [put]
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.Approve"
	log := h.logger(r, op)

	admin, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	notes, err := decisionNotes(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	res, err := h.service.Approve(r.Context(), id, admin.ID, notes)
	if err != nil {
		log.Info("failed to approve service request", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"serviceRequest": res.Request,
		"purchase":       res.Purchase,
		"userCreated":    res.UserCreated,
	}))
}

// Reject godoc
// @Summary Отклонить заявку
// @Tags ServiceRequests
// @Accept  json
// @Produce  json
// @Param id path int true "ID заявки"
// @Param request body DecisionRequest false "Комментарий"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/service-requests/{id}/reject [post]
// @Router /admin/service-requests/{id}/reject [put]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.servicerequests.Reject"
	log := h.logger(r, op)

	admin, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	notes, err := decisionNotes(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	req, err := h.service.Reject(r.Context(), id, admin.ID, notes)
	if err != nil {
		log.Info("failed to reject service request", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"serviceRequest": req}))
}
