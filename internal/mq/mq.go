package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/skillbridge/apiserver/config"
)

// ErrDisabled is returned by Open when no broker is configured.
var ErrDisabled = errors.New("mq backend disabled")

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", config.MQBackendNone:
		return nil, ErrDisabled
	case config.MQBackendRabbitMQ:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case config.MQBackendPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// Topic publishes and consumes JSON documents on a single named channel.
type Topic struct {
	backend Backend
	channel string
}

// NewTopic binds a backend to a channel name.
func NewTopic(backend Backend, channel string) *Topic {
	return &Topic{backend: backend, channel: channel}
}

// Channel returns the bound channel name.
func (t *Topic) Channel() string {
	return t.channel
}

// PublishJSON encodes v and publishes it with the given attributes.
func (t *Topic) PublishJSON(ctx context.Context, v any, attrs map[string]string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode message: %w", err)
	}
	return t.backend.Publish(ctx, t.channel, data, attrs)
}

// Subscribe consumes messages from the bound channel until ctx is done.
func (t *Topic) Subscribe(ctx context.Context, handler Handler) error {
	return t.backend.Subscribe(ctx, t.channel, handler)
}

// Close closes the underlying backend.
func (t *Topic) Close() error {
	return t.backend.Close()
}
