// Package inventory реализует HTTP-обработчики VPS и выделенных серверов.
package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/request"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// VPSRequest тело VPS.
type VPSRequest struct {
	Name      string  `json:"name" validate:"required,max=255"`
	OS        string  `json:"os" validate:"required"`
	CPU       string  `json:"cpu" validate:"required,max=100"`
	RAM       string  `json:"ram" validate:"required,max=100"`
	Storage   string  `json:"storage" validate:"required,max=100"`
	Bandwidth string  `json:"bandwidth" validate:"max=100"`
	Location  string  `json:"location" validate:"max=255"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// DedicatedRequest тело выделенного сервера.
type DedicatedRequest struct {
	Name      string  `json:"name" validate:"required,max=255"`
	Chip      string  `json:"chip" validate:"required"`
	Processor string  `json:"processor" validate:"required,max=255"`
	Cores     int     `json:"cores" validate:"gte=1"`
	RAM       string  `json:"ram" validate:"required,max=100"`
	Storage   string  `json:"storage" validate:"required,max=100"`
	Bandwidth string  `json:"bandwidth" validate:"max=100"`
	Location  string  `json:"location" validate:"max=255"`
	Price     float64 `json:"price" validate:"gte=0"`
}

func (v VPSRequest) model() models.VPSServer {
	return models.VPSServer{
		Name: v.Name, OS: v.OS, CPU: v.CPU, RAM: v.RAM, Storage: v.Storage,
		Bandwidth: v.Bandwidth, Location: v.Location, Price: v.Price,
	}
}

func (d DedicatedRequest) model() models.DedicatedServer {
	return models.DedicatedServer{
		Name: d.Name, Chip: d.Chip, Processor: d.Processor, Cores: d.Cores, RAM: d.RAM,
		Storage: d.Storage, Bandwidth: d.Bandwidth, Location: d.Location, Price: d.Price,
	}
}

// Handler обрабатывает HTTP-запросы инвентаря.
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

func filter(r *http.Request) models.ServerFilter {
	q := r.URL.Query()
	return models.ServerFilter{
		Search: request.Search(r),
		OS:     strings.ToUpper(q.Get("os")),
		Chip:   strings.ToUpper(q.Get("chip")),
	}
}

// ListVPS godoc
// @Summary VPS серверы
// @Tags Inventory
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по названию и локации"
// @Param os query string false "LINUX или WINDOWS"
// @Success 200 {object} response.Response
// @Router /admin/vps-servers [get]
func (h *Handler) ListVPS(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.ListVPS"
	log := h.logger(r, op)

	f := filter(r)
	f.Chip = ""
	page := request.Page(r)
	res, err := h.service.ListVPS(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list vps", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("servers", res.Items, page, res.Total))
}

// CreateVPS godoc
// @Summary Добавить VPS
// @Tags Inventory
// @Accept  json
// @Produce  json
// @Param request body VPSRequest true "VPS"
// @Success 201 {object} response.Response
// @Router /admin/vps-servers [post]
func (h *Handler) CreateVPS(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.CreateVPS"
	log := h.logger(r, op)

	var req VPSRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	v, err := h.service.CreateVPS(r.Context(), req.model())
	if err != nil {
		log.Info("failed to create vps", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"server": v}))
}

// GetVPS godoc
// @Summary VPS
// @Tags Inventory
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} response.Response
// @Router /admin/vps-servers/{id} [get]
func (h *Handler) GetVPS(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.GetVPS"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	v, err := h.service.GetVPS(r.Context(), id)
	if err != nil {
		log.Info("failed to get vps", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"server": v}))
}

// UpdateVPS godoc
// @Summary Изменить VPS
// @Tags Inventory
// @Accept  json
// @Produce  json
// @Param id path int true "ID сервера"
// @Param request body VPSRequest true "VPS"
// @Success 200 {object} response.Response
// @Router /admin/vps-servers/{id} [put]
func (h *Handler) UpdateVPS(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.UpdateVPS"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req VPSRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	v, err := h.service.UpdateVPS(r.Context(), id, req.model())
	if err != nil {
		log.Info("failed to update vps", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"server": v}))
}

// DeleteVPS godoc
// @Summary Удалить VPS
// @Tags Inventory
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} response.Response
// @Router /admin/vps-servers/{id} [delete]
func (h *Handler) DeleteVPS(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.DeleteVPS"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.DeleteVPS(r.Context(), id); err != nil {
		log.Info("failed to delete vps", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("server deleted"))
}

// ListDedicated godoc
// @Summary Выделенные серверы
// @Tags Inventory
// @Produce  json
// @Param page query int false "Страница"
// @Param limit query int false "Размер страницы"
// @Param search query string false "Поиск по названию, процессору и локации"
// @Param chip query string false "AMD или INTEL"
// @Success 200 {object} response.Response
// @Router /admin/dedicated-servers [get]
func (h *Handler) ListDedicated(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.ListDedicated"
	log := h.logger(r, op)

	f := filter(r)
	f.OS = ""
	page := request.Page(r)
	res, err := h.service.ListDedicated(r.Context(), f, page)
	if err != nil {
		log.Error("failed to list dedicated servers", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.List("servers", res.Items, page, res.Total))
}

// CreateDedicated godoc
// @Summary Добавить выделенный сервер
// @Tags Inventory
// @Accept  json
// @Produce  json
// @Param request body DedicatedRequest true "Сервер"
// @Success 201 {object} response.Response
// @Router /admin/dedicated-servers [post]
func (h *Handler) CreateDedicated(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.CreateDedicated"
	log := h.logger(r, op)

	var req DedicatedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	d, err := h.service.CreateDedicated(r.Context(), req.model())
	if err != nil {
		log.Info("failed to create dedicated server", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, response.OKWithData(map[string]any{"server": d}))
}

// GetDedicated godoc
// @Summary Выделенный сервер
// @Tags Inventory
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} response.Response
// @Router /admin/dedicated-servers/{id} [get]
func (h *Handler) GetDedicated(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.GetDedicated"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	d, err := h.service.GetDedicated(r.Context(), id)
	if err != nil {
		log.Info("failed to get dedicated server", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"server": d}))
}

// UpdateDedicated godoc
// @Summary Изменить выделенный сервер
// @Tags Inventory
// @Accept  json
// @Produce  json
// @Param id path int true "ID сервера"
// @Param request body DedicatedRequest true "Сервер"
// @Success 200 {object} response.Response
// @Router /admin/dedicated-servers/{id} [put]
func (h *Handler) UpdateDedicated(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.UpdateDedicated"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	var req DedicatedRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	d, err := h.service.UpdateDedicated(r.Context(), id, req.model())
	if err != nil {
		log.Info("failed to update dedicated server", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"server": d}))
}

// DeleteDedicated godoc
// @Summary Удалить выделенный сервер
// @Tags Inventory
// @Produce  json
// @Param id path int true "ID сервера"
// @Success 200 {object} response.Response
// @Router /admin/dedicated-servers/{id} [delete]
func (h *Handler) DeleteDedicated(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.inventory.DeleteDedicated"
	log := h.logger(r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.service.DeleteDedicated(r.Context(), id); err != nil {
		log.Info("failed to delete dedicated server", sl.Err(err))
		response.FromError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKMessage("server deleted"))
}
