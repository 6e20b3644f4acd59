package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/car-marketplace/internal/events"
	"github.com/spec-kit/car-marketplace/internal/service"
)

const queueSize = 128

// NotificationWorker moves mail delivery off the request path. Event handlers
// only enqueue; a pool of goroutines performs the SMTP round trips. Mail is
// best effort, so a full queue drops the event with a log line instead of
// blocking the account operation.
type NotificationWorker struct {
	jobs          chan events.Event
	notifications *service.NotificationService
	logger        *zap.Logger
}

// StartNotificationWorker subscribes the worker to the notification service's
// event types and starts the delivery pool. The pool drains until ctx ends.
func StartNotificationWorker(ctx context.Context, dispatcher events.Dispatcher, notifications *service.NotificationService, logger *zap.Logger, workers int) *NotificationWorker {
	if notifications == nil || dispatcher == nil {
		return nil
	}
	if workers <= 0 {
		workers = 2
	}

	w := &NotificationWorker{
		jobs:          make(chan events.Event, queueSize),
		notifications: notifications,
		logger:        logger,
	}

	for _, eventType := range notifications.EventTypes() {
		dispatcher.Subscribe(eventType, w.enqueue)
	}

	for i := 0; i < workers; i++ {
		go w.run(ctx)
	}
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case w.jobs <- event:
	default:
		w.logger.Warn("notification queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("credential_id", event.CredentialID))
	}
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-w.jobs:
			// Handlers log their own delivery outcomes.
			_ = w.notifications.Handle(ctx, event)
		}
	}
}
