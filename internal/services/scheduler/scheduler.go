// Package scheduler находит покупки, срок которых скоро истекает, и ставит
// напоминания в очередь уведомлений.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
	"github.com/magabrotheeeer/hosting-backoffice/internal/metrics"
	"github.com/magabrotheeeer/hosting-backoffice/internal/models"
)

// PurchaseRepository выборка оплаченных покупок по сроку окончания.
type PurchaseRepository interface {
	FindPurchasesExpiringBetween(ctx context.Context, from, to time.Time) ([]models.ExpiryReminder, error)
}

// Publisher публикует сообщение с ключом маршрутизации.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// SchedulerService ставит напоминания об окончании покупок.
type SchedulerService struct {
	repo         PurchaseRepository
	publisher    Publisher
	reminderDays int
	log          *slog.Logger
	now          func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo PurchaseRepository, publisher Publisher, reminderDays int, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:         repo,
		publisher:    publisher,
		reminderDays: reminderDays,
		log:          log,
		now:          time.Now,
	}
}

// ReminderWindow возвращает сутки (UTC), отстоящие от now на days дней.
func ReminderWindow(now time.Time, days int) (time.Time, time.Time) {
	y, m, d := now.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return from, from.AddDate(0, 0, 1)
}

// RemindExpiring публикует напоминания по покупкам, истекающим через reminderDays дней.
// Ошибка публикации одного сообщения не прерывает остальные. Возвращает число опубликованных.
func (s *SchedulerService) RemindExpiring(ctx context.Context) (int, error) {
	const op = "services.scheduler.RemindExpiring"
	log := s.log.With(sl.Op(op))

	from, to := ReminderWindow(s.now(), s.reminderDays)
	log.Info("starting search for expiring purchases", slog.Time("from", from), slog.Time("to", to))

	reminders, err := s.repo.FindPurchasesExpiringBetween(ctx, from, to)
	if err != nil {
		log.Error("failed to find purchases", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(reminders) == 0 {
		log.Info("no expiring purchases found")
		return 0, nil
	}
	log.Info("found expiring purchases", slog.Int("count", len(reminders)))

	published := 0
	for _, r := range reminders {
		if err := s.publisher.Publish(rabbitmq.PurchaseExpiringKey, r); err != nil {
			log.Error("failed to publish message", slog.String("transaction_id", r.TransactionID), sl.Err(err))
			continue
		}
		metrics.ReminderPublished()
		published++
	}
	return published, nil
}
