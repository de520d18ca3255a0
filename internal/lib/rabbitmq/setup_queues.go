package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

const (
	// NotificationsExchange direct exchange для уведомлений.
	NotificationsExchange = "notifications"
	// PurchaseExpiringQueue очередь напоминаний об окончании покупки.
	PurchaseExpiringQueue = "notifications.purchase_expiring"
	// PurchaseExpiringKey routing key напоминаний об окончании покупки.
	PurchaseExpiringKey = "purchase.expiring"
	// DeadLetterExchange принимает сообщения, которые потребитель не смог обработать.
	DeadLetterExchange = "notifications.dlx"
)

// DeadLetterQueue имя dead-letter очереди для очереди queueName.
func DeadLetterQueue(queueName string) string {
	return queueName + ".dead"
}

// QueueConfig описывает очередь и ключ её привязки к exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые объявляют планировщик и отправитель.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: PurchaseExpiringQueue, RoutingKey: PurchaseExpiringKey},
	}
}

// SetupChannel открывает канал, объявляет exchange и durable очереди с привязками.
// Для каждой очереди объявляется dead-letter очередь с тем же routing key.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		NotificationsExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%s: failed to declare dead-letter exchange: %w", op, err)
	}

	for _, q := range queues {
		dead := DeadLetterQueue(q.QueueName)
		if _, err := ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, dead, err)
		}
		if err := ch.QueueBind(dead, q.RoutingKey, DeadLetterExchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, dead, err)
		}

		args := amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, args); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, NotificationsExchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
