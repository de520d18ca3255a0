package catalog

import (
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/apperr"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// ServiceBody тело создания и изменения услуги.
type ServiceBody struct {
	Name           string   `json:"name" validate:"required,max=255"`
	Description    string   `json:"description" validate:"max=5000"`
	CategoryID     *int64   `json:"categoryId" validate:"omitempty,gt=0"`
	CategoryTypeID *int64   `json:"categoryTypeId" validate:"omitempty,gt=0"`
	MonthlyPrice   float64  `json:"monthlyPrice" validate:"gte=0"`
	YearlyPrice    float64  `json:"yearlyPrice" validate:"gte=0"`
	Features       []string `json:"features"`
	Status         string   `json:"status" validate:"omitempty,oneof=active inactive"`
	Priority       string   `json:"priority"`
}

func (s ServiceBody) model() models.Service {
	return models.Service{
		Name:           s.Name,
		Description:    s.Description,
		CategoryID:     s.CategoryID,
		CategoryTypeID: s.CategoryTypeID,
		MonthlyPrice:   s.MonthlyPrice,
		YearlyPrice:    s.YearlyPrice,
		Features:       s.Features,
		Status:         s.Status,
		Priority:       s.Priority,
	}
}

var errNoSession = apperr.New(apperr.KindUnauthenticated, "authentication required")

// ListServices godoc
// @Summary Услуги
// @Tags Catalog
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по названию"
// @Param status query string false "active или inactive"
// @Param priority query string false "LOW, MEDIUM, HIGH"
// @Param categoryId query int false "ID категории"
// @Success 200 {object} response.Response
// @Router /admin/services [get]
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListServices"
	log := h.logger(r, op)

	categoryID, err := request.OptionalID(r, "categoryId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	q := r.URL.Query()
	f := models.ServiceFilter{
		Search:     request.Search(r),
		Status:     q.Get("status"),
		Priority:   strings.ToUpper(q.Get("priority")),
		CategoryID: categoryID,
	}
	page := request.Page(r)

	res, err := h.service.ListServices(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list services", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("services", res.Items, page, res.Total))
}

// CreateService godoc
// @Summary Создать услугу
// @Description Владельцем становится текущий администратор.
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param request body ServiceBody true "Услуга"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Категория или тип не найдены"
// @Router /admin/services [post]
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateService"
	log := h.logger(r, op)

	admin, ok := middlewarectx.UserFrom(r.Context())
	if !ok {
		response.FromError(w, r, errNoSession)
		return
	}
	var req ServiceBody
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	svc, err := h.service.CreateService(r.Context(), admin.ID, req.model())
	if err != nil {
		log.Info("failed to create service", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"service": svc}))
}

// GetService godoc
// @Summary Услуга
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID услуги"
// @Success 200 {object} response.Response
// @Router /admin/services/{id} [get]
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.GetService"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	svc, err := h.service.GetService(r.Context(), id)
	if err != nil {
		log.Info("failed to get service", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"service": svc}))
}

// UpdateService godoc
// @Summary Изменить услугу
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path int true "ID услуги"
// @Param request body ServiceBody true "Услуга"
// @Success 200 {object} response.Response
// @Router /admin/services/{id} [put]
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateService"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req ServiceBody
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	svc, err := h.service.UpdateService(r.Context(), id, req.model())
	if err != nil {
		log.Info("failed to update service", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"service": svc}))
}

// DeleteService godoc
// @Summary Удалить услугу
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID услуги"
// @Success 200 {object} response.Response
// @Router /admin/services/{id} [delete]
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteService"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.DeleteService(r.Context(), id); err != nil {
		log.Info("failed to delete service", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("service deleted"))
}
