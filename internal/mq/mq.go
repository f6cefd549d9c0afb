package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/todoweb/server/config"
)

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

// Event types published on the events channel.
const (
	EventUserRegistered = "user.registered"
	EventTodoCreated    = "todo.created"
	EventTodoUpdated    = "todo.updated"
	EventTodoDeleted    = "todo.deleted"
)

const (
	attrEventType = "event_type"
	attrUserID    = "user_id"
)

// Event describes a change made through the todo service.
type Event struct {
	Type   string    `json:"type"`
	UserID int       `json:"user_id"`
	TodoID int       `json:"todo_id,omitempty"`
	At     time.Time `json:"at"`
}

// MQ publishes and consumes events on a single channel.
type MQ struct {
	backend Backend
	channel string
}

// New constructs an MQ wrapper for the provided backend and channel.
func New(backend Backend, channel string) *MQ {
	return &MQ{backend: backend, channel: channel}
}

// NewBackend opens the backend selected by cfg.Backend.
func NewBackend(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case config.BackendRabbitMQ:
		return NewRabbitMQClient(cfg.RabbitMQ)
	case config.BackendPubSub:
		return NewPubSubClient(ctx, cfg.PubSub)
	case config.BackendNone, "":
		return NopBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}

// PublishEvent encodes ev as JSON and publishes it.
func (m *MQ) PublishEvent(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	attrs := map[string]string{
		attrEventType: ev.Type,
		attrUserID:    strconv.Itoa(ev.UserID),
	}
	if _, err := m.backend.Publish(ctx, m.channel, data, attrs); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// SubscribeEvents decodes every message on the channel and hands it to fn.
// Messages that are not valid events are acknowledged and dropped.
func (m *MQ) SubscribeEvents(ctx context.Context, fn func(ctx context.Context, ev Event) error) error {
	return m.backend.Subscribe(ctx, m.channel, func(ctx context.Context, msg Message) error {
		var ev Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return nil
		}
		return fn(ctx, ev)
	})
}

// Close closes the underlying backend.
func (m *MQ) Close() error {
	return m.backend.Close()
}

// NopBackend drops published messages. Subscribe blocks until ctx is done.
type NopBackend struct{}

func (NopBackend) Publish(context.Context, string, []byte, map[string]string) (string, error) {
	return "", nil
}

func (NopBackend) Subscribe(ctx context.Context, _ string, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NopBackend) Close() error { return nil }
