// Package purchases реализует HTTP-обработчики журнала покупок:
// администрирование, статистику, выгрузку и покупки клиента.
package purchases

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
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/purchases"
)

// CreateRequest покупка, создаваемая администратором.
type CreateRequest struct {
	UserID        int64   `json:"userId" validate:"required,gt=0"`
	ServiceType   string  `json:"serviceType" validate:"required"`
	ServiceID     string  `json:"serviceId" validate:"required,max=100"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,max=50"`
	PaymentStatus string  `json:"paymentStatus"`
	PlanType      string  `json:"planType"`
}

// CustomerRequest покупка, оформляемая клиентом для себя.
type CustomerRequest struct {
	ServiceType   string  `json:"serviceType" validate:"required"`
	ServiceID     string  `json:"serviceId" validate:"required,max=100"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Currency      string  `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,max=50"`
	PlanType      string  `json:"planType"`
}

// StatusRequest исправление статуса оплаты.
type StatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

var errNoSession = apperr.New(apperr.KindUnauthenticated, "authentication required")

// Handler обрабатывает HTTP-запросы журнала покупок.
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

func filter(r *http.Request) (models.PurchaseFilter, error) {
	q := r.URL.Query()
	userID, err := request.OptionalID(r, "userId")
	if err != nil {
		return models.PurchaseFilter{}, err
	}
	return models.PurchaseFilter{
		PaymentStatus: q.Get("paymentStatus"),
		ServiceType:   q.Get("serviceType"),
		PlanType:      q.Get("planType"),
		UserID:        userID,
		Expiry:        q.Get("expiry"),
		Search:        request.Search(r),
	}, nil
}

// List godoc
// @Summary Журнал покупок
// @Tags Purchases
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по transaction id, услуге, email"
// @Param paymentStatus query string false "COMPLETED, PENDING, FAILED, REFUNDED"
// @Param serviceType query string false "CLOUD или SERVER"
// @Param planType query string false "MONTHLY, QUARTERLY, YEARLY"
// @Param userId query int false "ID пользователя"
// @Param expiry query string false "soon, expired, active"
// @Success 200 {object} response.Response
// @Router /admin/purchases [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.List"
	log := h.logger(r, op)

	f, err := filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	page := request.Page(r)
	res, err := h.service.List(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list purchases", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("purchases", res.Items, page, res.Total))
}

// Create godoc
// @Summary Создать покупку
// @Description Срок действия MONTHLY 31 день, YEARLY 365 дней. Пустой planType означает MONTHLY.
// @Description Другие планы, в том числе QUARTERLY, отклоняются: QUARTERLY появляется только при одобрении заявки.
// @Description Статус по умолчанию COMPLETED.
// @Tags Purchases
// @Accept  json
// @Produce  json
// @Param request body CreateRequest true "Покупка"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверные поля или planType не MONTHLY/YEARLY"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /admin/purchases [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.Create"
	log := h.logger(r, op)

	var req CreateRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), purchases.CreateParams{
		UserID:        req.UserID,
		ServiceType:   req.ServiceType,
		ServiceID:     req.ServiceID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: req.PaymentStatus,
		PlanType:      req.PlanType,
	}, purchases.SourceAdmin)
	if err != nil {
		log.Info("failed to create purchase", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"purchase": p}))
}

// Stats godoc
// @Summary Статистика журнала
// @Description Выручка считается только по COMPLETED.
// @Tags Purchases
// @Produce  json
// @Success 200 {object} response.Response
// @Router /admin/purchases/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.Stats"
	log := h.logger(r, op)

	stats, err := h.service.Stats(r.Context())
	if err != nil {
		log.Error("failed to build stats", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"stats": stats}))
}

// Get godoc
// @Summary Покупка
// @Tags Purchases
// @Produce  json
// @Param id path int true "ID покупки"
// @Success 200 {object} response.Response
// @Router /admin/purchases/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.Get"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Info("failed to get purchase", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"purchase": p}))
}

// SetStatus godoc
// @Summary Исправить статус оплаты
// @Tags Purchases
// @Accept  json
// @Produce  json
// @Param id path int true "ID покупки"
// @Param request body StatusRequest true "Статус"
// @Success 200 {object} response.Response
// @Router /admin/purchases/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.SetStatus"
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
	p, err := h.service.CorrectStatus(r.Context(), id, req.PaymentStatus)
	if err != nil {
		log.Info("failed to correct status", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"purchase": p}))
}

// Export godoc
// @Summary Выгрузка журнала в CSV
// @Tags Purchases
// @Produce  text/csv
// @Router /admin/purchases/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.Export"
	log := h.logger(r, op)

	f, err := filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	items, err := h.service.Export(r.Context(), f)
	if err != nil {
		log.Error("failed to export purchases", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(items))
	for _, p := range items {
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10), p.TransactionID, strconv.FormatInt(p.UserID, 10), p.UserEmail,
			p.ServiceType, p.ServiceID, strconv.FormatFloat(p.Amount, 'f', 2, 64), p.Currency,
			p.PaymentMethod, p.PaymentStatus, p.PlanType, response.Time(p.ExpiresAt), response.Time(p.CreatedAt),
		})
	}
	header := []string{"id", "transactionId", "userId", "userEmail", "serviceType", "serviceId", "amount",
		"currency", "paymentMethod", "paymentStatus", "planType", "expiresAt", "createdAt"}
	if err := response.CSV(w, "purchases", header, rows); err != nil {
		log.Error("failed to write csv", sl.Err(err))
	}
}

// CreateMine godoc
// @Summary Оформить покупку для себя
// @Description Покупка создаётся в статусе PENDING. planType принимает только MONTHLY или YEARLY.
// @Tags Me
// @Accept  json
// @Produce  json
// @Param request body CustomerRequest true "Покупка"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверные поля или planType не MONTHLY/YEARLY"
// @Failure 401 {object} response.ErrorResponse
// @Router /purchases [post]
func (h *Handler) CreateMine(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.CreateMine"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	var req CustomerRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	p, err := h.service.Create(r.Context(), purchases.CreateParams{
		UserID:        me.ID,
		ServiceType:   req.ServiceType,
		ServiceID:     req.ServiceID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		PlanType:      req.PlanType,
	}, purchases.SourceCustomer)
	if err != nil {
		log.Info("failed to create purchase", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"purchase": p}))
}

// ListMine godoc
// @Summary Мои покупки
// @Tags Me
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param expiry query string false "soon, expired, active"
// @Success 200 {object} response.Response
// @Router /me/purchases [get]
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchases.ListMine"
	log := h.logger(r, op)

	me, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	f, err := filter(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	page := request.Page(r)
	res, err := h.service.ListMine(r.Context(), me.ID, f, page)
	if err != nil {
		log.Error("failed to list own purchases", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("purchases", res.Items, page, res.Total))
}
