package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/skillbridge/apiserver/config"
)

// RabbitMQClient publishes to and consumes from durable queues named after
// the channel. Queues are declared once per client.
type RabbitMQClient struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool

	mu       sync.Mutex
	declared map[string]bool
}

// NewRabbitMQClient dials the broker and opens a channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		declared:        map[string]bool{},
	}, nil
}

// Publish sends a persistent JSON message to the named queue.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}
	if err := r.ensureQueue(channel); err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Headers:      attributesToHeaders(attrs),
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// Subscribe consumes the named queue until ctx is cancelled. Handler
// errors requeue the delivery.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}
	if err := r.ensureQueue(channel); err != nil {
		return err
	}

	consumerTag := "skillbridge-" + uuid.NewString()
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) ensureQueue(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.declared[name] {
		return nil
	}
	if _, err := r.channel.QueueDeclare(name, r.queueDurable, r.queueAutoDelete, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	r.declared[name] = true
	return nil
}

func attributesToHeaders(attrs map[string]string) amqp.Table {
	if len(attrs) == 0 {
		return nil
	}
	headers := make(amqp.Table, len(attrs))
	for key, value := range attrs {
		headers[key] = value
	}
	return headers
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}
