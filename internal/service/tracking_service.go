// internal/service/tracking_service.go
package service

import (
	"context"
	"time"

	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/metrics"
	"github.com/unclebandit/coldreach-backend/internal/queue"
	"github.com/unclebandit/coldreach-backend/internal/repository"
	"github.com/unclebandit/coldreach-backend/internal/tracking"
)

// TrackingService records opens and clicks. It never returns errors: tracking hits come
// from mail clients that only care about the pixel or the redirect.
type TrackingService struct {
	Deliveries repository.DeliveryRepositoryInterface
	Queue      queue.Queue
	Now        func() time.Time
}

// RecordOpen stamps opened_at on the first open of the token's record. Unknown or
// malformed tokens are ignored.
func (s *TrackingService) RecordOpen(ctx context.Context, token string) {
	s.record(ctx, token, queue.EventOpened, "")
}

// RecordClick stamps clicked_at on the first click.
func (s *TrackingService) RecordClick(ctx context.Context, token, target string) {
	s.record(ctx, token, queue.EventClicked, target)
}

func (s *TrackingService) record(ctx context.Context, token, event, target string) {
	id, ok := tracking.Decode(token)
	if !ok {
		return
	}
	log := logger.FromContext(ctx).With("delivery_id", id, "event", event)

	rec, err := s.Deliveries.GetByID(ctx, id)
	if err != nil {
		log.Debug("tracking hit for unknown delivery", "error", err)
		return
	}
	if (event == queue.EventOpened && rec.Opened) || (event == queue.EventClicked && rec.Clicked) {
		metrics.TrackingEventsTotal.WithLabelValues(event, "false").Inc()
		return
	}

	at := time.Now()
	if s.Now != nil {
		at = s.Now()
	}
	var changed bool
	if event == queue.EventOpened {
		changed, err = s.Deliveries.MarkOpened(ctx, id, at)
	} else {
		changed, err = s.Deliveries.MarkClicked(ctx, id, at)
	}
	if err != nil {
		logger.WithErr(ctx, err).Error("failed to record tracking event", "delivery_id", id, "event", event)
		return
	}
	if !changed {
		metrics.TrackingEventsTotal.WithLabelValues(event, "false").Inc()
		return
	}
	metrics.TrackingEventsTotal.WithLabelValues(event, "true").Inc()

	if s.Queue == nil {
		return
	}
	evt := queue.DeliveryEvent{
		Type:         event,
		DeliveryID:   id,
		UserID:       rec.UserID,
		CampaignName: rec.CampaignName,
		URL:          target,
		At:           at,
	}
	if err := s.Queue.Publish(queue.TopicTracking, evt); err != nil {
		log.Warn("failed to publish tracking event", "error", err)
	}
}
