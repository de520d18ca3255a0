// Package health отдаёт состояние сервиса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
)

// Pinger проверяет доступность зависимости.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler обрабатывает GET /health.
type Handler struct {
	log     *slog.Logger
	checks  map[string]Pinger
	timeout time.Duration
}

// New создает Handler. checks: имя зависимости -> проверка.
func New(log *slog.Logger, checks map[string]Pinger) *Handler {
	return &Handler{
		log:     log,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// ServeHTTP godoc
// @Summary Состояние сервиса
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.log.Error("health check failed", slog.String("dependency", name), sl.Err(err))
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	resp := response.OKWithData(map[string]any{
		"status":       http.StatusText(status),
		"dependencies": deps,
		"time":         time.Now().UTC(),
	})
	resp.Success = status == http.StatusOK
	render.Status(r, status)
	render.JSON(w, r, resp)
}
