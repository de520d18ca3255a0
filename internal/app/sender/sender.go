// Package sender читает напоминания из RabbitMQ и рассылает письма.
package sender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/hosting-backoffice/internal/config"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/smtp"
	"github.com/magabrotheeeer/hosting-backoffice/internal/services/mailer"
)

// App представляет приложение отправителя.
type App struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	mailer *mailer.Mailer
	logger *slog.Logger
}

// New подключается к брокеру и готовит почтовый транспорт.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:   conn,
		ch:     ch,
		mailer: mailer.New(transport, cfg.AdminInbox, logger),
		logger: logger,
	}, nil
}

// handle отправляет письмо. Неразборчивое сообщение подтверждается,
// чтобы не возвращаться в очередь бесконечно.
func (a *App) handle(body []byte) error {
	err := a.mailer.SendExpiryReminder(body)
	if errors.Is(err, mailer.ErrMalformedReminder) {
		a.logger.Warn("dropping malformed reminder", sl.Err(err))
		return nil
	}
	return err
}

// Run потребляет очередь напоминаний до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.PurchaseExpiringQueue, a.logger, a.handle)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", rabbitmq.PurchaseExpiringQueue), sl.Err(err))
		return err
	}
	a.logger.Info("sender started", slog.String("queue", rabbitmq.PurchaseExpiringQueue))

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
