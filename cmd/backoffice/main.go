// Package main Hosting Back-office API
//
// @title           Hosting Back-office API
// @version         1.0
// @description     Административный API продаж хостинга: пользователи, партнёры, каталог, серверы, покупки и заявки.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name accessToken
// @description Access токен в httpOnly cookie, выдаётся при входе.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/magabrotheeeer/hosting-backoffice/internal/app/backoffice"
	"github.com/magabrotheeeer/hosting-backoffice/internal/config"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
)

func main() {
	createAdmin := flag.Bool("create-admin", false, "create admin from BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD and exit")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting backoffice", slog.String("env", cfg.Env))
	logger.Debug("debug messages are enabled")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := backoffice.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if *createAdmin {
		err := app.CreateAdmin(ctx, os.Getenv("BOOTSTRAP_ADMIN_EMAIL"), os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"))
		if err != nil {
			logger.Error("failed to create admin", sl.Err(err))
			os.Exit(1)
		}
		return
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("backoffice stopped gracefully")
}
