package service_test

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

// Mock repositories

type MockDeliveryRepo struct {
	mu        sync.Mutex
	nextID    int64
	records   map[int64]*model.DeliveryRecord
	createErr error
	updateErr error

	creates int
	updates int
}

func NewMockDeliveryRepo() *MockDeliveryRepo {
	return &MockDeliveryRepo{records: map[int64]*model.DeliveryRecord{}}
}

func (m *MockDeliveryRepo) CreateMany(_ context.Context, records []*model.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.creates++
	for _, r := range records {
		m.nextID++
		r.ID = m.nextID
		r.CreatedAt = time.Now()
		if r.Status == "" {
			r.Status = model.StatusPending
		}
		cp := *r
		m.records[r.ID] = &cp
	}
	return nil
}

func (m *MockDeliveryRepo) UpdateMany(_ context.Context, records []*model.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	for _, r := range records {
		stored, ok := m.records[r.ID]
		if !ok {
			continue
		}
		stored.Status = r.Status
		stored.ErrorMessage = r.ErrorMessage
		stored.SentAt = r.SentAt
		stored.Content = r.Content
	}
	return nil
}

func (m *MockDeliveryRepo) GetByID(_ context.Context, id int64) (*model.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return nil, appErrors.NewDeliveryNotFound(id)
	}
	cp := *r
	return &cp, nil
}

func (m *MockDeliveryRepo) MarkOpened(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Opened {
		return false, nil
	}
	r.Opened = true
	r.OpenedAt = &at
	return true, nil
}

func (m *MockDeliveryRepo) MarkClicked(_ context.Context, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Clicked {
		return false, nil
	}
	r.Clicked = true
	r.ClickedAt = &at
	return true, nil
}

func (m *MockDeliveryRepo) List(_ context.Context, userID int64, offset, limit int, campaign, status string) ([]*model.DeliveryRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*model.DeliveryRecord
	for _, r := range m.records {
		if r.UserID != userID || (campaign != "" && r.CampaignName != campaign) || (status != "" && r.Status != status) {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return []*model.DeliveryRecord{}, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *MockDeliveryRepo) CampaignStats(_ context.Context, userID int64, campaign string) (*model.CampaignStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &model.CampaignStats{CampaignName: campaign}
	for _, r := range m.records {
		if r.UserID != userID || r.CampaignName != campaign {
			continue
		}
		st.Total++
		switch r.Status {
		case model.StatusPending:
			st.Pending++
		case model.StatusSent:
			st.Sent++
		case model.StatusFailed:
			st.Failed++
		}
		if r.Opened {
			st.Opened++
		}
		if r.Clicked {
			st.Clicked++
		}
	}
	return st, nil
}

func (m *MockDeliveryRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockDeliveryRepo) Stored(id int64) *model.DeliveryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.records[id]
	return &cp
}

type MockProfileRepo struct {
	profiles map[int64]*model.SMTPProfile
}

func NewMockProfileRepo(profiles ...*model.SMTPProfile) *MockProfileRepo {
	m := &MockProfileRepo{profiles: map[int64]*model.SMTPProfile{}}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *MockProfileRepo) GetByIDForUser(_ context.Context, id, userID int64) (*model.SMTPProfile, error) {
	p, ok := m.profiles[id]
	if !ok || p.UserID != userID {
		return nil, appErrors.NewSMTPProfileNotFound(id)
	}
	return p, nil
}

func (m *MockProfileRepo) GetDefault(_ context.Context, userID int64) (*model.SMTPProfile, error) {
	for _, p := range m.profiles {
		if p.UserID == userID && p.IsDefault {
			return p, nil
		}
	}
	return nil, appErrors.NewSMTPProfileNotFound(0)
}

func (m *MockProfileRepo) ListByUser(_ context.Context, userID int64) ([]*model.SMTPProfile, error) {
	var out []*model.SMTPProfile
	for _, p := range m.profiles {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockProfileRepo) Create(_ context.Context, p *model.SMTPProfile) error {
	p.ID = int64(len(m.profiles) + 1)
	m.profiles[p.ID] = p
	return nil
}

func (m *MockProfileRepo) Update(_ context.Context, p *model.SMTPProfile) error {
	m.profiles[p.ID] = p
	return nil
}

func (m *MockProfileRepo) Delete(_ context.Context, id, userID int64) error {
	delete(m.profiles, id)
	return nil
}

func (m *MockProfileRepo) SetDefault(_ context.Context, id, userID int64) error { return nil }

type MockUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User
}

func NewMockUserRepo(users ...*model.User) *MockUserRepo {
	m := &MockUserRepo{users: map[int64]*model.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, appErrors.NewUserNotFound(id)
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) ResetMonthlyUsageIfDue(context.Context, int64, time.Time) error { return nil }

func (m *MockUserRepo) RecordBulkCampaign(_ context.Context, id int64, recipients int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.BulkCampaigns++
	u.EmailsSent += recipients
	u.CurrentMonthUsage += recipients
	return nil
}

func (m *MockUserRepo) IncrementEmailsSent(_ context.Context, id int64, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].EmailsSent += n
	m.users[id].CurrentMonthUsage += n
	return nil
}

func (m *MockUserRepo) IncrementEmailsGenerated(_ context.Context, id int64, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].EmailsGenerated += n
	return nil
}

type MockTemplateRepo struct {
	templates map[int64]*model.EmailTemplate
}

func (m *MockTemplateRepo) ListByUser(_ context.Context, userID int64) ([]*model.EmailTemplate, error) {
	var out []*model.EmailTemplate
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *MockTemplateRepo) GetByIDForUser(_ context.Context, id, userID int64) (*model.EmailTemplate, error) {
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return nil, appErrors.NewTemplateNotFound(id)
	}
	return t, nil
}

func (m *MockTemplateRepo) Create(_ context.Context, t *model.EmailTemplate) error {
	if m.templates == nil {
		m.templates = map[int64]*model.EmailTemplate{}
	}
	t.ID = int64(len(m.templates) + 1)
	m.templates[t.ID] = t
	return nil
}

func (m *MockTemplateRepo) Delete(_ context.Context, id, userID int64) error {
	if _, err := m.GetByIDForUser(context.Background(), id, userID); err != nil {
		return err
	}
	delete(m.templates, id)
	return nil
}

// MockSender records every call. fail maps a recipient to a failure reason;
// panicOn makes the send for that recipient panic.
type MockSender struct {
	mu      sync.Mutex
	fail    map[string]string
	panicOn string
	sent    []string
	bodies  []string
}

func (m *MockSender) Send(_ context.Context, _ *model.SMTPProfile, recipient, _, html string) (bool, string) {
	m.mu.Lock()
	m.sent = append(m.sent, recipient)
	m.bodies = append(m.bodies, html)
	m.mu.Unlock()

	if recipient == m.panicOn {
		panic(fmt.Sprintf("transport exploded for %s", recipient))
	}
	if reason, ok := m.fail[recipient]; ok {
		return false, reason
	}
	return true, "Email sent successfully"
}

func (m *MockSender) TestConnection(_ context.Context, p *model.SMTPProfile) (bool, string) {
	if strings.Contains(p.Host, "bad") {
		return false, "SMTP connection failed: dial refused"
	}
	return true, "SMTP connection successful"
}

func (m *MockSender) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

func (m *MockSender) Bodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.bodies...)
}
