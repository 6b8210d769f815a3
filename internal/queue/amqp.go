package queue

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes events to a RabbitMQ topic exchange, using the topic as routing key.
type AMQPQueue struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// DialAMQP connects and declares the exchange.
func DialAMQP(url, exchange string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RabbitMQ")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to open channel")
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "failed to declare exchange %s", exchange)
	}
	return &AMQPQueue{conn: conn, ch: ch, exchange: exchange}, nil
}

// Publish sends payload as a persistent JSON message.
func (q *AMQPQueue) Publish(topic string, payload any) error {
	msg, err := encode(payload)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Publish(q.exchange, topic, false, false, msg); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", topic)
	}
	return nil
}

// Subscribe binds an exclusive queue to topic and feeds decoded events to handler.
// A handler error nacks the message without requeueing it.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	declared, err := q.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return errors.Wrap(err, "failed to declare queue")
	}
	if err := q.ch.QueueBind(declared.Name, topic, q.exchange, false, nil); err != nil {
		return errors.Wrapf(err, "failed to bind %s", topic)
	}
	deliveries, err := q.ch.Consume(declared.Name, "", false, true, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "failed to consume")
	}

	go func() {
		for d := range deliveries {
			var evt DeliveryEvent
			if err := json.Unmarshal(d.Body, &evt); err != nil {
				slog.Warn("dropping malformed event", "topic", topic, "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := handler(evt); err != nil {
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}()
	return nil
}

// Close shuts the channel and connection.
func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.ch.Close(); err != nil {
		_ = q.conn.Close()
		return errors.Wrap(err, "failed to close channel")
	}
	return errors.Wrap(q.conn.Close(), "failed to close connection")
}

func encode(payload any) (amqp.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, errors.Wrap(err, "failed to marshal event")
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}, nil
}
