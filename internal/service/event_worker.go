// internal/service/event_worker.go
package service

import (
	"context"
	"fmt"

	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/metrics"
	"github.com/unclebandit/coldreach-backend/internal/queue"
)

// EventWorker consumes delivery and tracking events and writes them to the audit log.
type EventWorker struct {
	Queue queue.Queue
}

// NewWorker builds an EventWorker on q.
func NewWorker(q queue.Queue) *EventWorker {
	return &EventWorker{Queue: q}
}

// Start subscribes to both event topics.
func (w *EventWorker) Start(ctx context.Context) error {
	for _, topic := range []string{queue.TopicDelivery, queue.TopicTracking} {
		if err := w.Queue.Subscribe(topic, func(payload any) error {
			return w.Handle(ctx, payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

// Handle processes one event. Anything but a DeliveryEvent is rejected.
func (w *EventWorker) Handle(ctx context.Context, payload any) error {
	var evt queue.DeliveryEvent
	switch p := payload.(type) {
	case queue.DeliveryEvent:
		evt = p
	case *queue.DeliveryEvent:
		evt = *p
	default:
		return fmt.Errorf("unexpected event payload %T", payload)
	}

	metrics.EventsConsumedTotal.WithLabelValues(evt.Type).Inc()

	log := logger.FromContext(ctx).With(
		"event", evt.Type,
		"delivery_id", evt.DeliveryID,
		"user_id", evt.UserID,
		"campaign", evt.CampaignName,
	)
	switch evt.Type {
	case queue.EventFailed:
		log.Warn("delivery failed", "error", evt.Error)
	case queue.EventClicked:
		log.Info("link clicked", "url", evt.URL)
	default:
		log.Info("delivery event")
	}
	return nil
}
