// internal/service/delivery_service.go
package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/metrics"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/queue"
	"github.com/unclebandit/coldreach-backend/internal/repository"
	"github.com/unclebandit/coldreach-backend/internal/tracking"
)

// Sender delivers one message through an SMTP profile.
type Sender interface {
	Send(ctx context.Context, profile *model.SMTPProfile, recipient, subject, html string) (bool, string)
	TestConnection(ctx context.Context, profile *model.SMTPProfile) (bool, string)
}

// DeliveryService runs bulk and single sends synchronously, one recipient at a time.
type DeliveryService struct {
	Deliveries repository.DeliveryRepositoryInterface
	Profiles   repository.SMTPProfileRepositoryInterface
	Users      repository.UserRepositoryInterface
	Sender     Sender
	Queue      queue.Queue

	DefaultDelay time.Duration
	MaxDelay     time.Duration

	// Sleep pauses between recipients. nil means time.Sleep.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// SendBatch validates req, creates one pending record per entry, then sends them in order with
// pacing. Only request errors abort the batch; per-recipient failures end up in the result.
// The batch runs to completion even if the caller's context is cancelled.
func (s *DeliveryService) SendBatch(ctx context.Context, userID int64, baseURL string, req model.BatchRequest) (*model.BatchResult, error) {
	ctx = context.WithoutCancel(ctx)
	log := logger.FromContext(ctx)
	started := time.Now()

	if err := validateBatch(req); err != nil {
		return nil, err
	}
	profile, err := s.resolveProfile(ctx, userID, req.SMTPConfigID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, userID, len(req.Emails)); err != nil {
		return nil, err
	}

	records := make([]*model.DeliveryRecord, len(req.Emails))
	for i, e := range req.Emails {
		records[i] = &model.DeliveryRecord{
			UserID:       userID,
			SMTPConfigID: profile.ID,
			Recipient:    strings.TrimSpace(e.Recipient),
			Subject:      e.Subject,
			Content:      e.Content,
			CampaignName: req.CampaignName,
			Status:       model.StatusPending,
		}
	}
	if err := s.Deliveries.CreateMany(ctx, records); err != nil {
		return nil, errors.Wrap(err, "failed to create delivery records")
	}

	result := &model.BatchResult{Success: true, Total: len(records)}
	delay := s.pacing(req.Delay)
	for i, rec := range records {
		if ok, reason := s.attempt(ctx, profile, rec, baseURL); ok {
			result.Sent++
		} else {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to send to %s: %s", rec.Recipient, reason))
		}

		if delay > 0 && i < len(records)-1 {
			s.sleep(delay)
		}
	}

	// Records stay pending if this fails; nothing reconciles them later.
	if err := s.Deliveries.UpdateMany(ctx, records); err != nil {
		logger.WithErr(ctx, err).Error("failed to persist delivery statuses", "campaign", req.CampaignName, "total", len(records))
	}
	if err := s.Users.RecordBulkCampaign(ctx, userID, result.Total); err != nil {
		logger.WithErr(ctx, err).Error("failed to record bulk campaign usage", "user_id", userID)
	}

	metrics.BatchSize.Observe(float64(result.Total))
	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	log.Info("bulk send finished",
		"campaign", req.CampaignName, "total", result.Total, "sent", result.Sent, "failed", result.Failed)

	return result, nil
}

// SendOne sends a single message. A zero SMTPConfigID uses the user's default profile.
func (s *DeliveryService) SendOne(ctx context.Context, userID int64, baseURL string, req model.SingleSendRequest) (*model.DeliveryRecord, error) {
	ctx = context.WithoutCancel(ctx)

	if strings.TrimSpace(req.Recipient) == "" {
		return nil, appErrors.NewRequestError("Recipient is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, appErrors.NewRequestError("Email content is required")
	}
	profile, err := s.resolveProfile(ctx, userID, req.SMTPConfigID)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, userID, 1); err != nil {
		return nil, err
	}

	rec := &model.DeliveryRecord{
		UserID:       userID,
		SMTPConfigID: profile.ID,
		Recipient:    strings.TrimSpace(req.Recipient),
		Subject:      req.Subject,
		Content:      req.Content,
		Status:       model.StatusPending,
	}
	if err := s.Deliveries.CreateMany(ctx, []*model.DeliveryRecord{rec}); err != nil {
		return nil, errors.Wrap(err, "failed to create delivery record")
	}

	ok, _ := s.attempt(ctx, profile, rec, baseURL)

	if err := s.Deliveries.UpdateMany(ctx, []*model.DeliveryRecord{rec}); err != nil {
		logger.WithErr(ctx, err).Error("failed to persist delivery status", "delivery_id", rec.ID)
	}
	if ok {
		if err := s.Users.IncrementEmailsSent(ctx, userID, 1); err != nil {
			logger.WithErr(ctx, err).Error("failed to record usage", "user_id", userID)
		}
	}
	return rec, nil
}

// attempt decorates and sends one record and stores the outcome on it. A panic anywhere in
// the attempt counts as a failure of this recipient only.
func (s *DeliveryService) attempt(ctx context.Context, profile *model.SMTPProfile, rec *model.DeliveryRecord, baseURL string) (ok bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			ok, reason = false, fmt.Sprint(r)
		}
		s.finish(ctx, rec, ok, reason)
	}()

	// the stored record keeps the content as submitted
	body := tracking.Decorate(rec.Content, rec.ID, baseURL)
	return s.Sender.Send(ctx, profile, rec.Recipient, rec.Subject, body)
}

func (s *DeliveryService) finish(ctx context.Context, rec *model.DeliveryRecord, ok bool, reason string) {
	at := s.now()
	evt := queue.DeliveryEvent{DeliveryID: rec.ID, UserID: rec.UserID, CampaignName: rec.CampaignName, At: at}
	if ok {
		rec.MarkSent(at)
		evt.Type = queue.EventSent
	} else {
		rec.MarkFailed(at, reason)
		evt.Type = queue.EventFailed
		evt.Error = reason
		logger.FromContext(ctx).Warn("send failed",
			"delivery_id", rec.ID, "recipient", logger.RedactEmail(rec.Recipient), "reason", reason)
	}
	metrics.DeliveriesTotal.WithLabelValues(rec.Status).Inc()

	if s.Queue != nil {
		if err := s.Queue.Publish(queue.TopicDelivery, evt); err != nil {
			logger.WithErr(ctx, err).Warn("failed to publish delivery event", "delivery_id", rec.ID)
		}
	}
}

func (s *DeliveryService) resolveProfile(ctx context.Context, userID, profileID int64) (*model.SMTPProfile, error) {
	var (
		profile *model.SMTPProfile
		err     error
	)
	if profileID == 0 {
		profile, err = s.Profiles.GetDefault(ctx, userID)
	} else {
		profile, err = s.Profiles.GetByIDForUser(ctx, profileID, userID)
	}
	if err != nil {
		var notFound *appErrors.ErrSMTPProfileNotFound
		if errors.As(err, &notFound) {
			return nil, appErrors.NewRequestError("SMTP configuration not found")
		}
		return nil, errors.Wrap(err, "failed to load smtp configuration")
	}
	return profile, nil
}

// checkQuota compares the persisted monthly usage against the user's tier.
func (s *DeliveryService) checkQuota(ctx context.Context, userID int64, n int) error {
	if err := s.Users.ResetMonthlyUsageIfDue(ctx, userID, s.now()); err != nil {
		return err
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	remaining, limited := u.RemainingQuota()
	if limited && n > remaining {
		limit, _ := u.MonthlyLimit()
		return &appErrors.QuotaExceededError{Limit: limit, Used: u.CurrentMonthUsage, Requested: n}
	}
	return nil
}

func validateBatch(req model.BatchRequest) error {
	var missing []string
	if req.SMTPConfigID <= 0 {
		missing = append(missing, "smtp_config_id")
	}
	if len(req.Emails) == 0 {
		missing = append(missing, "emails")
	}
	if strings.TrimSpace(req.CampaignName) == "" {
		missing = append(missing, "campaign_name")
	}
	if len(missing) > 0 {
		return appErrors.NewRequestError("Missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// pacing resolves the pause between recipients: the requested seconds, or the default,
// never negative and never above MaxDelay.
const maxDelaySeconds = math.MaxInt64 / int64(time.Second)

func (s *DeliveryService) pacing(requested *int) time.Duration {
	d := s.DefaultDelay
	if requested != nil {
		secs := int64(*requested)
		switch {
		case secs < 0:
			secs = 0
		case s.MaxDelay > 0 && secs > int64(s.MaxDelay/time.Second):
			return s.MaxDelay
		case secs > maxDelaySeconds:
			secs = maxDelaySeconds
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		d = 0
	}
	if s.MaxDelay > 0 && d > s.MaxDelay {
		d = s.MaxDelay
	}
	return d
}

func (s *DeliveryService) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

func (s *DeliveryService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ListDeliveries pages through a user's delivery history.
func (s *DeliveryService) ListDeliveries(ctx context.Context, userID int64, page, pageSize int, campaign, status string) ([]*model.DeliveryRecord, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	records, total, err := s.Deliveries.List(ctx, userID, offset, pageSize, campaign, status)
	if err != nil {
		return nil, nil, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}
	return records, pagination, nil
}

func (s *DeliveryService) CampaignStats(ctx context.Context, userID int64, campaign string) (*model.CampaignStats, error) {
	if strings.TrimSpace(campaign) == "" {
		return nil, appErrors.NewRequestError("campaign name is required")
	}
	return s.Deliveries.CampaignStats(ctx, userID, campaign)
}

// Usage returns the persisted usage counters after applying any due monthly reset.
func (s *DeliveryService) Usage(ctx context.Context, userID int64) (*model.User, error) {
	if err := s.Users.ResetMonthlyUsageIfDue(ctx, userID, s.now()); err != nil {
		return nil, err
	}
	return s.Users.GetByID(ctx, userID)
}
