// Package forms реализует HTTP-обработчики публичных форм и их администрирование.
package forms

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
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// SubmitRequest поля формы. Набор заполняемых полей зависит от типа формы.
type SubmitRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=50"`
	CompanyName string `json:"companyName" validate:"max=255"`
	Subject     string `json:"subject" validate:"max=255"`
	Message     string `json:"message" validate:"max=5000"`
	ServiceName string `json:"serviceName" validate:"max=255"`
}

// StatusRequest статус обработки формы.
type StatusRequest struct {
	Status string `json:"status" validate:"required,max=50"`
}

// Handler обрабатывает HTTP-запросы форм.
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

func filter(r *http.Request) models.FormFilter {
	q := r.URL.Query()
	return models.FormFilter{
		Type:   models.FormType(q.Get("type")),
		Status: q.Get("status"),
		Search: request.Search(r),
	}
}

// Submit godoc
// @Summary Отправить форму
// @Description Публичные эндпоинты demo, contact, get-in-touch и service-request.
// @Description Если пользователь вошёл, форма привязывается к нему. Сбой письма-подтверждения возвращается как warning.
// @Tags Forms
// @Accept  json
// @Produce  json
// @Param request body SubmitRequest true "Форма"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /forms/demo [post]
// @Router /forms/contact [post]
// @Router /forms/get-in-touch [post]
// @Router /forms/service-request [post]
func (h *Handler) Submit(formType models.FormType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.forms.Submit"
		log := h.logger(r, op).With(slog.String("type", string(formType)))

		var req SubmitRequest
		if err := request.Decode(r, h.validate, &req); err != nil {
			response.FromError(w, r, err)
			return
		}
		created, warning, err := h.service.Submit(r.Context(), models.FormSubmission{
			Type:        formType,
			Name:        req.Name,
			Email:       req.Email,
			Phone:       req.Phone,
			CompanyName: req.CompanyName,
			Subject:     req.Subject,
			Message:     req.Message,
			ServiceName: req.ServiceName,
		}, middlewarectx.UserIDFrom(r.Context()))
		if err != nil {
			log.Error("failed to submit form", sl.Err(err))
			response.FromError(w, r, err)
			return
		}

		data := map[string]any{"submission": created}
		if warning != "" {
			response.JSON(w, r, http.StatusCreated, response.OKWithWarning(data, warning))
			return
		}
		response.JSON(w, r, http.StatusCreated, response.OKWithData(data))
	}
}

// List godoc
// @Summary Список форм
// @Tags Forms
// @Produce  json
// @Param type query string false "demo, contact, get_in_touch, service_request"
// @Param status query string false "Статус обработки"
// @Param search query string false "Поиск по имени, email, компании, теме"
// @Success 200 {object} response.Response
// @Router /admin/forms [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.List"
	log := h.logger(r, op)

	page := request.Page(r)
	res, err := h.service.List(r.Context(), filter(r), page)
	if err != nil {
		log.Info("failed to list forms", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("submissions", res.Items, page, res.Total))
}

// Get godoc
// @Summary Форма
// @Tags Forms
// @Produce  json
// @Param id path int true "ID формы"
// @Success 200 {object} response.Response
// @Router /admin/forms/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.Get"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	f, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Info("failed to get form", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"submission": f}))
}

// SetStatus godoc
// @Summary Изменить статус формы
// @Tags Forms
// @Accept  json
// @Produce  json
// @Param id path int true "ID формы"
// @Param request body StatusRequest true "Статус"
// @Success 200 {object} response.Response
// @Router /admin/forms/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.SetStatus"
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
	f, err := h.service.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		log.Info("failed to set form status", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"submission": f}))
}

// Delete godoc
// @Summary Удалить форму
// @Tags Forms
// @Produce  json
// @Param id path int true "ID формы"
// @Success 200 {object} response.Response
// @Router /admin/forms/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.Delete"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		log.Info("failed to delete form", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("form submission deleted"))
}

// Export godoc
// @Summary Выгрузка форм в CSV
// @Tags Forms
// @Produce  text/csv
// @Param type query string false "Тип формы"
// @Router /admin/forms/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.forms.Export"
	log := h.logger(r, op)

	items, err := h.service.Export(r.Context(), filter(r))
	if err != nil {
		log.Info("failed to export forms", sl.Err(err))
		response.FromError(w, r, err)
		return
	}

	rows := make([][]string, 0, len(items))
	for _, f := range items {
		userID := ""
		if f.UserID != nil {
			userID = strconv.FormatInt(*f.UserID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(f.ID, 10), string(f.Type), f.Name, f.Email, f.Phone, f.CompanyName,
			f.Subject, f.Message, f.ServiceName, f.Status, userID, response.Time(f.CreatedAt),
		})
	}
	header := []string{"id", "type", "name", "email", "phone", "companyName", "subject", "message",
		"serviceName", "status", "userId", "createdAt"}
	if err := response.CSV(w, "forms", header, rows); err != nil {
		log.Error("failed to write csv", sl.Err(err))
	}
}
