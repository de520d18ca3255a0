// Package scheduler запускает по расписанию поиск истекающих покупок
// и публикацию напоминаний в RabbitMQ.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/hosting-backoffice/internal/config"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/hosting-backoffice/internal/services/scheduler"
	"github.com/magabrotheeeer/hosting-backoffice/internal/storage/repository"
)

// Reminder ставит напоминания в очередь.
type Reminder interface {
	RemindExpiring(ctx context.Context) (int, error)
}

// App представляет приложение планировщика.
type App struct {
	reminder Reminder
	cronSpec string
	db       *repository.Storage
	conn     *amqp.Connection
	ch       *amqp.Channel
	logger   *slog.Logger
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	if _, err := cron.ParseStandard(cfg.CronSpec); err != nil {
		return nil, fmt.Errorf("%s: invalid cron spec %q: %w", op, cfg.CronSpec, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect RabbitMQ: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("%s: failed to setup RabbitMQ channel: %w", op, err)
	}

	db, err := repository.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: failed to connect storage: %w", op, err)
	}

	service := schedulerservice.NewSchedulerService(db, rabbitmq.NewPublisher(ch), cfg.ReminderDays, logger)

	return &App{
		reminder: service,
		cronSpec: cfg.CronSpec,
		db:       db,
		conn:     conn,
		ch:       ch,
		logger:   logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Schedule регистрирует задачу напоминаний в c. Запуски не перекрываются.
func Schedule(ctx context.Context, c *cron.Cron, cronSpec string, reminder Reminder, logger *slog.Logger) (cron.EntryID, error) {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		n, err := reminder.RemindExpiring(ctx)
		if err != nil {
			logger.Error("reminder run failed", sl.Err(err))
			return
		}
		logger.Info("reminder run finished", slog.Int("published", n))
	}))
	return c.AddJob(cronSpec, job)
}

// Run запускает планировщик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := Schedule(ctx, c, a.cronSpec, a.reminder, a.logger); err != nil {
		closeResources(a.ch, a.conn, a.logger)
		return err
	}
	c.Start()
	a.logger.Info("scheduler started", slog.String("cron_spec", a.cronSpec))

	<-ctx.Done()

	a.logger.Info("shutting down scheduler service")
	<-c.Stop().Done()

	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return nil
}
