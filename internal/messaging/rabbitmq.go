package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// Publisher - отправка отслеженных событий во внешние потребители
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
	Close() error
}

// NoopPublisher используется, когда RabbitMQ выключен
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

// channel - часть *amqp.Channel, нужная публикатору
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	now      func() time.Time
	mu       sync.Mutex // amqp.Channel не потокобезопасен на публикацию
}

func newPublisher(conn *amqp.Connection, ch channel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange, now: time.Now}
}

func Connect(connection string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "messaging.Connect"
	var conn *amqp.Connection
	var err error

	for range retries {
		conn, err = amqp.Dial(connection)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("%s: %w", op, err)
}

// NewRabbitPublisher открывает канал и объявляет topic exchange
func NewRabbitPublisher(url, exchange string, retries int) (*RabbitPublisher, error) {
	const op = "messaging.NewRabbitPublisher"

	conn, err := Connect(url, retries, 2*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return newPublisher(conn, ch, exchange), nil
}

func (p *RabbitPublisher) Publish(_ context.Context, routingKey string, message any) error {
	const op = "messaging.Publish"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish(
		p.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	chErr := p.ch.Close()
	if p.conn == nil {
		return chErr
	}
	if err := p.conn.Close(); err != nil && chErr == nil {
		return err
	}
	return chErr
}
