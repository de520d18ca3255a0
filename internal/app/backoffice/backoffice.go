package backoffice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/hosting-backoffice/internal/cache"
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
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/jwt"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/smtp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/migrations"
	authservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/auth"
	catalogservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/catalog"
	formservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/forms"
	inventoryservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/inventory"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/mailer"
	partnerservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/partners"
	purchaseservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/purchases"
	requestservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/servicerequests"
	userservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/users"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP API бэк-офиса со всеми зависимостями.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	users  *userservice.UserService
}

// New подключает хранилища, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.backoffice.New"

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	mail := mailer.New(transport, cfg.AdminInbox, logger)
	maker := jwt.NewJWTMaker(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	authService := authservice.NewAuthService(db, maker, mail, cfg.OTP.TTL, logger)
	userService := userservice.NewUserService(db, logger)
	partnerService := partnerservice.NewPartnerService(db, mail, cfg.OTP.TTL, logger)
	catalogService := catalogservice.NewCatalogService(db, cacheRedis, logger)
	inventoryService := inventoryservice.NewInventoryService(db, logger)
	purchaseService := purchaseservice.NewPurchaseService(db, cacheRedis, logger)
	requestService := requestservice.NewServiceRequestService(db, cacheRedis, logger)
	formService := formservice.NewFormService(db, mail, logger)

	handlers := Handlers{
		Session: session.New(logger, authService, session.CookieConfig{
			Secure:     cfg.Cookies.Secure,
			Domain:     cfg.Cookies.Domain,
			SameSite:   cfg.Cookies.SameSite,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		}),
		Users:           users.New(logger, userService),
		Partners:        partners.New(logger, partnerService),
		Catalog:         catalog.New(logger, catalogService),
		Inventory:       inventory.New(logger, inventoryService),
		Purchases:       purchases.New(logger, purchaseService),
		ServiceRequests: servicerequests.New(logger, requestService),
		Forms:           forms.New(logger, formService),
		Health: health.New(logger, map[string]health.Pinger{
			"postgres": db,
			"redis":    cacheRedis,
		}),
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, authService, handlers)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		users:  userService,
	}, nil
}

// CreateAdmin заводит администратора, если пользователя с таким email ещё нет.
// Email, занятый пользователем другой роли, даёт ошибку.
func (a *App) CreateAdmin(ctx context.Context, email, password string) error {
	const op = "app.backoffice.CreateAdmin"
	if email == "" || password == "" {
		return fmt.Errorf("%s: email and password are required", op)
	}
	u, created, err := a.users.EnsureAdmin(ctx, email, password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !created {
		a.logger.Info("admin already exists", slog.Int64("id", u.ID))
		return nil
	}
	a.logger.Info("admin created", slog.Int64("id", u.ID))
	return nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", slog.Any("err", err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
}
