package queue

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// TopicDelivery carries the outcome of each send attempt.
	TopicDelivery = "delivery.outcome"
	// TopicTracking carries first opens and first clicks.
	TopicTracking = "delivery.tracking"
)

// Event types.
const (
	EventSent    = "sent"
	EventFailed  = "failed"
	EventOpened  = "opened"
	EventClicked = "clicked"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// DeliveryEvent is published for send outcomes and tracking hits.
type DeliveryEvent struct {
	Type         string    `json:"type"`
	DeliveryID   int64     `json:"delivery_id"`
	UserID       int64     `json:"user_id"`
	CampaignName string    `json:"campaign_name,omitempty"`
	Error        string    `json:"error,omitempty"`
	URL          string    `json:"url,omitempty"`
	At           time.Time `json:"at"`
}

// InMemoryQueue fans events out to in-process subscribers.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// Publish hands payload to every subscriber of topic, each in its own goroutine.
// Topics without subscribers drop the event.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]func(payload any) error(nil), q.handlers[topic]...)
	q.mu.Unlock()

	for _, handler := range handlers {
		q.wg.Add(1)
		go func(h func(payload any) error) {
			defer q.wg.Done()
			if err := h(payload); err != nil {
				slog.Warn("event handler failed", "topic", topic, "error", err)
			}
		}(handler)
	}
	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every handler started so far has returned.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// Close waits for in-flight handlers.
func (q *InMemoryQueue) Close() error {
	q.Wait()
	return nil
}
