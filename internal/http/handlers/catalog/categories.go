// Package catalog реализует HTTP-обработчики каталога: категории, типы категорий и услуги.
package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
)

// NamedRequest тело для категорий и типов категорий.
type NamedRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// Handler обрабатывает HTTP-запросы каталога.
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

// ListCategories godoc
// @Summary Категории с количеством типов
// @Tags Catalog
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по названию"
// @Success 200 {object} response.Response
// @Router /admin/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListCategories"
	log := h.logger(r, op)

	page := request.Page(r)
	res, err := h.service.ListCategories(r.Context(), request.Search(r), page)
	if err != nil {
		log.Error("failed to list categories", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("categories", res.Items, page, res.Total))
}

// CreateCategory godoc
// @Summary Создать категорию
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param request body NamedRequest true "Категория"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Название занято"
// @Router /admin/categories [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateCategory"
	log := h.logger(r, op)

	var req NamedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	c, err := h.service.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		log.Info("failed to create category", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"category": c}))
}

// GetCategory godoc
// @Summary Категория
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response
// @Router /admin/categories/{id} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.GetCategory"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	c, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		log.Info("failed to get category", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"category": c}))
}

// UpdateCategory godoc
// @Summary Изменить категорию
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path int true "ID категории"
// @Param request body NamedRequest true "Категория"
// @Success 200 {object} response.Response
// @Router /admin/categories/{id} [put]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateCategory"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req NamedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	c, err := h.service.UpdateCategory(r.Context(), id, req.Name, req.Description)
	if err != nil {
		log.Info("failed to update category", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"category": c}))
}

// DeleteCategory godoc
// @Summary Удалить категорию вместе с типами
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response
// @Router /admin/categories/{id} [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteCategory"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		log.Info("failed to delete category", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("category deleted"))
}

// ListTypes godoc
// @Summary Типы категории
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response
// @Router /admin/categories/{id}/types [get]
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListTypes"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	types, err := h.service.ListTypes(r.Context(), id)
	if err != nil {
		log.Info("failed to list category types", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"types": types, "total": len(types)}))
}

// CreateType godoc
// @Summary Добавить тип в категорию
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path int true "ID категории"
// @Param request body NamedRequest true "Тип"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Категория не найдена"
// @Router /admin/categories/{id}/types [post]
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateType"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req NamedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ct, err := h.service.CreateType(r.Context(), id, req.Name, req.Description)
	if err != nil {
		log.Info("failed to create category type", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"type": ct}))
}

// UpdateType godoc
// @Summary Изменить тип категории
// @Tags Catalog
// @Accept  json
// @Produce  json
// @Param id path int true "ID типа"
// @Param request body NamedRequest true "Тип"
// @Success 200 {object} response.Response
// @Router /admin/category-types/{id} [put]
func (h *Handler) UpdateType(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateType"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req NamedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	ct, err := h.service.UpdateType(r.Context(), id, req.Name, req.Description)
	if err != nil {
		log.Info("failed to update category type", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"type": ct}))
}

// DeleteType godoc
// @Summary Удалить тип категории
// @Tags Catalog
// @Produce  json
// @Param id path int true "ID типа"
// @Success 200 {object} response.Response
// @Router /admin/category-types/{id} [delete]
func (h *Handler) DeleteType(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteType"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.DeleteType(r.Context(), id); err != nil {
		log.Info("failed to delete category type", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("category type deleted"))
}
