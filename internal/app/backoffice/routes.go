// Package backoffice собирает HTTP API бэк-офиса.
package backoffice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/hosting-backoffice/internal/config"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/forms"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/health"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/inventory"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/partners"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/purchases"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/servicerequests"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/session"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/handlers/users"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/middlewarectx"
	"github.com/magabrotheeeer/hosting-backoffice/internal/http/response"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// Handlers обработчики всех ресурсов API.
type Handlers struct {
	Session         *session.Handler
	Users           *users.Handler
	Partners        *partners.Handler
	Catalog         *catalog.Handler
	Inventory       *inventory.Handler
	Purchases       *purchases.Handler
	ServiceRequests *servicerequests.Handler
	Forms           *forms.Handler
	Health          *health.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, auth middlewarectx.Authenticator, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		metrics.Middleware,
		response.Debug(!cfg.IsProd()),
	)

	limit := middlewarectx.RateLimitMiddleware(cfg.RPS, cfg.Burst, logger)
	authenticate := middlewarectx.Authenticate(auth, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(limit)

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", h.Session.Login)
				r.Post("/admin/login", h.Session.AdminLogin)
				r.Post("/refresh", h.Session.Refresh)
				r.Post("/forgot-password", h.Session.ForgotPassword)
				r.Post("/verify-otp", h.Session.VerifyOTP)
				r.Post("/reset-password", h.Session.ResetPassword)

				r.Group(func(r chi.Router) {
					r.Use(middlewarectx.OptionalAuth(auth))
					r.Post("/logout", h.Session.Logout)
					r.Post("/admin/logout", h.Session.Logout)
				})
			})

			r.Route("/partners", func(r chi.Router) {
				r.Post("/request-otp", h.Partners.RequestOTP)
				r.Post("/verify-otp", h.Partners.VerifyOTP)
				r.Post("/register", h.Partners.Register)
			})

			r.Route("/forms", func(r chi.Router) {
				r.Use(middlewarectx.OptionalAuth(auth))
				r.Post("/demo", h.Forms.Submit(models.FormDemo))
				r.Post("/contact", h.Forms.Submit(models.FormContact))
				r.Post("/get-in-touch", h.Forms.Submit(models.FormGetInTouch))
				r.Post("/service-request", h.Forms.Submit(models.FormServiceRequest))
			})
		})

		// Клиенты и партнёры
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middlewarectx.RequireRoles(models.RoleUser, models.RolePartner))
			r.Get("/me", h.Users.Me)
			r.Put("/me", h.Users.UpdateMe)
			r.Get("/me/purchases", h.Purchases.ListMine)
			r.Post("/purchases", h.Purchases.CreateMine)
		})

		// Кабинет партнёра
		r.Route("/partner", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middlewarectx.RequireRoles(models.RolePartner))
			r.Get("/users", h.Users.ListReferred)
			r.Post("/users", h.Users.CreateReferred)
			r.Get("/service-requests", h.ServiceRequests.ListMine)
			r.Post("/service-requests", h.ServiceRequests.Submit)
		})

		// Администрирование
		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middlewarectx.RequireRoles(models.RoleAdmin))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.Users.List)
				r.Post("/", h.Users.Create)
				r.Post("/by-partner-reference", h.Users.CreateByPartnerReference)
				r.Get("/export", h.Users.Export)
				r.Get("/{id}", h.Users.Get)
				r.Put("/{id}", h.Users.Update)
				r.Delete("/{id}", h.Users.Delete)
			})

			r.Route("/partner-registrations", func(r chi.Router) {
				r.Get("/", h.Partners.List)
				r.Get("/summary", h.Partners.Summary)
				r.Get("/export", h.Partners.Export)
				r.Get("/{id}", h.Partners.Get)
				r.Put("/{id}/status", h.Partners.SetStatus)
				r.Delete("/{id}", h.Partners.Delete)
			})

			r.Route("/services", func(r chi.Router) {
				r.Get("/", h.Catalog.ListServices)
				r.Post("/", h.Catalog.CreateService)
				r.Get("/{id}", h.Catalog.GetService)
				r.Put("/{id}", h.Catalog.UpdateService)
				r.Delete("/{id}", h.Catalog.DeleteService)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.Catalog.ListCategories)
				r.Post("/", h.Catalog.CreateCategory)
				r.Get("/{id}", h.Catalog.GetCategory)
				r.Put("/{id}", h.Catalog.UpdateCategory)
				r.Delete("/{id}", h.Catalog.DeleteCategory)
				r.Get("/{id}/types", h.Catalog.ListTypes)
				r.Post("/{id}/types", h.Catalog.CreateType)
			})
			r.Put("/category-types/{id}", h.Catalog.UpdateType)
			r.Delete("/category-types/{id}", h.Catalog.DeleteType)

			r.Route("/vps-servers", func(r chi.Router) {
				r.Get("/", h.Inventory.ListVPS)
				r.Post("/", h.Inventory.CreateVPS)
				r.Get("/{id}", h.Inventory.GetVPS)
				r.Put("/{id}", h.Inventory.UpdateVPS)
				r.Delete("/{id}", h.Inventory.DeleteVPS)
			})

			r.Route("/dedicated-servers", func(r chi.Router) {
				r.Get("/", h.Inventory.ListDedicated)
				r.Post("/", h.Inventory.CreateDedicated)
				r.Get("/{id}", h.Inventory.GetDedicated)
				r.Put("/{id}", h.Inventory.UpdateDedicated)
				r.Delete("/{id}", h.Inventory.DeleteDedicated)
			})

			r.Route("/purchases", func(r chi.Router) {
				r.Get("/", h.Purchases.List)
				r.Post("/", h.Purchases.Create)
				r.Get("/stats", h.Purchases.Stats)
				r.Get("/export", h.Purchases.Export)
				r.Get("/{id}", h.Purchases.Get)
				r.Put("/{id}/status", h.Purchases.SetStatus)
			})

			r.Route("/service-requests", func(r chi.Router) {
				r.Get("/", h.ServiceRequests.List)
				r.Get("/{id}", h.ServiceRequests.Get)
				r.Post("/{id}/approve", h.ServiceRequests.Approve)
				r.Post("/{id}/reject", h.ServiceRequests.Reject)
				r.Put("/{id}/approve", h.ServiceRequests.Approve)
				r.Put("/{id}/reject", h.ServiceRequests.Reject)
			})

			r.Route("/forms", func(r chi.Router) {
				r.Get("/", h.Forms.List)
				r.Get("/export", h.Forms.Export)
				r.Get("/{id}", h.Forms.Get)
				r.Put("/{id}/status", h.Forms.SetStatus)
				r.Delete("/{id}", h.Forms.Delete)
			})
		})
	})

	r.Handle("/health", h.Health)
	r.Handle("/metrics", metrics.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
