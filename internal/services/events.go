package services

import (
	"context"

	"github.com/todoweb/server/internal/logging"
	"github.com/todoweb/server/internal/mq"
)

// EventPublisher receives change notifications.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev mq.Event) error
}

// notifier publishes events best-effort: a broker failure is logged and
// never fails the operation that triggered it.
type notifier struct {
	events EventPublisher
	log    logging.Logger
}

func (n notifier) publish(ctx context.Context, ev mq.Event) {
	if n.events == nil {
		return
	}
	if err := n.events.PublishEvent(ctx, ev); err != nil && n.log != nil {
		n.log.Warn(ctx, "event publish failed", "type", ev.Type, "user_id", ev.UserID, "todo_id", ev.TodoID, "error", err)
	}
}
