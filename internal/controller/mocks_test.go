package controller_test

import (
	"context"
	"sync"
	"time"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

// --- Mock Repositories ---

type MockDeliveryRepo struct {
	mu      sync.Mutex
	records []*model.DeliveryRecord
}

func (m *MockDeliveryRepo) CreateMany(_ context.Context, records []*model.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		r.ID = int64(len(m.records) + 1)
		m.records = append(m.records, r)
	}
	return nil
}

func (m *MockDeliveryRepo) UpdateMany(context.Context, []*model.DeliveryRecord) error { return nil }

func (m *MockDeliveryRepo) GetByID(_ context.Context, id int64) (*model.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id < 1 || int(id) > len(m.records) {
		return nil, appErrors.NewDeliveryNotFound(id)
	}
	return m.records[id-1], nil
}

func (m *MockDeliveryRepo) MarkOpened(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id-1]
	if r.Opened {
		return false, nil
	}
	r.Opened, r.OpenedAt = true, &at
	return true, nil
}

func (m *MockDeliveryRepo) MarkClicked(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.records[id-1]
	if r.Clicked {
		return false, nil
	}
	r.Clicked, r.ClickedAt = true, &at
	return true, nil
}

func (m *MockDeliveryRepo) List(_ context.Context, userID int64, offset, limit int, _, _ string) ([]*model.DeliveryRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if offset >= len(m.records) {
		return []*model.DeliveryRecord{}, len(m.records), nil
	}
	end := offset + limit
	if end > len(m.records) {
		end = len(m.records)
	}
	return m.records[offset:end], len(m.records), nil
}

func (m *MockDeliveryRepo) CampaignStats(_ context.Context, _ int64, campaign string) (*model.CampaignStats, error) {
	return &model.CampaignStats{CampaignName: campaign, Total: len(m.records)}, nil
}

type MockProfileRepo struct{}

func (m *MockProfileRepo) GetByIDForUser(_ context.Context, id, userID int64) (*model.SMTPProfile, error) {
	if id != 1 || userID != 1 {
		return nil, appErrors.NewSMTPProfileNotFound(id)
	}
	return &model.SMTPProfile{ID: 1, UserID: 1, Host: "smtp.example.com", Port: 587, IsDefault: true}, nil
}

func (m *MockProfileRepo) GetDefault(ctx context.Context, userID int64) (*model.SMTPProfile, error) {
	return m.GetByIDForUser(ctx, 1, userID)
}

func (m *MockProfileRepo) ListByUser(context.Context, int64) ([]*model.SMTPProfile, error) {
	return nil, nil
}

func (m *MockProfileRepo) Create(_ context.Context, p *model.SMTPProfile) error {
	p.ID = 2
	p.IsDefault = true
	return nil
}

func (m *MockProfileRepo) Update(context.Context, *model.SMTPProfile) error { return nil }
func (m *MockProfileRepo) Delete(context.Context, int64, int64) error       { return nil }
func (m *MockProfileRepo) SetDefault(context.Context, int64, int64) error   { return nil }

type MockUserRepo struct {
	users map[int64]*model.User
}

func (m *MockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, appErrors.NewUserNotFound(id)
	}
	return u, nil
}

func (m *MockUserRepo) ResetMonthlyUsageIfDue(context.Context, int64, time.Time) error { return nil }
func (m *MockUserRepo) RecordBulkCampaign(context.Context, int64, int) error          { return nil }
func (m *MockUserRepo) IncrementEmailsSent(context.Context, int64, int) error         { return nil }
func (m *MockUserRepo) IncrementEmailsGenerated(context.Context, int64, int) error    { return nil }

type MockTemplateRepo struct{}

func (m *MockTemplateRepo) ListByUser(context.Context, int64) ([]*model.EmailTemplate, error) {
	return nil, nil
}

func (m *MockTemplateRepo) GetByIDForUser(_ context.Context, id, _ int64) (*model.EmailTemplate, error) {
	return nil, appErrors.NewTemplateNotFound(id)
}

func (m *MockTemplateRepo) Create(_ context.Context, t *model.EmailTemplate) error {
	t.ID = 1
	return nil
}

func (m *MockTemplateRepo) Delete(_ context.Context, id, _ int64) error {
	return appErrors.NewTemplateNotFound(id)
}

type MockSender struct {
	fail   map[string]string
	bodies []string
}

func (m *MockSender) Send(_ context.Context, _ *model.SMTPProfile, recipient, _, html string) (bool, string) {
	m.bodies = append(m.bodies, html)
	if reason, ok := m.fail[recipient]; ok {
		return false, reason
	}
	return true, "Email sent successfully"
}

func (m *MockSender) TestConnection(context.Context, *model.SMTPProfile) (bool, string) {
	return true, "SMTP connection successful"
}
