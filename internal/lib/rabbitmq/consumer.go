package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/hosting-backoffice/internal/lib/sl"
)

const maxInFlight = 10

// ConsumerMessage запускает потребителя очереди. Каждое сообщение обрабатывается
// в отдельной горутине, одновременно не более maxInFlight. Сообщение, которое
// обработчик не смог обработать, не возвращается в очередь, а уходит в её
// dead-letter очередь (см. SetupChannel).
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, log *slog.Logger, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, maxInFlight)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					settle(d, handler(d.Body), queueName, log)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// settle подтверждает обработанное сообщение. При ошибке обработчика сообщение
// отклоняется без повторной доставки и попадает в dead-letter очередь.
func settle(d amqp.Delivery, handleErr error, queueName string, log *slog.Logger) {
	if handleErr != nil {
		log.Error("failed to handle message, moving to dead-letter queue",
			slog.String("queue", queueName), sl.Err(handleErr))
		if err := d.Nack(false, false); err != nil {
			log.Error("failed to nack message", sl.Err(err))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("failed to ack message", sl.Err(err))
	}
}
