// internal/service/smtp_profile_service.go
package service

import (
	"context"
	"strings"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/repository"
)

type SMTPProfileService struct {
	Profiles repository.SMTPProfileRepositoryInterface
	Sender   Sender
}

func (s *SMTPProfileService) List(ctx context.Context, userID int64) ([]*model.SMTPProfile, error) {
	return s.Profiles.ListByUser(ctx, userID)
}

// Create stores a new profile for userID. The first profile a user saves becomes the default.
func (s *SMTPProfileService) Create(ctx context.Context, userID int64, p *model.SMTPProfile) error {
	p.UserID = userID
	if err := validateProfile(p, true); err != nil {
		return err
	}
	return s.Profiles.Create(ctx, p)
}

// Update replaces a profile's settings. An empty password keeps the stored one.
func (s *SMTPProfileService) Update(ctx context.Context, userID, id int64, p *model.SMTPProfile) error {
	if _, err := s.Profiles.GetByIDForUser(ctx, id, userID); err != nil {
		return err
	}
	p.ID = id
	p.UserID = userID
	if err := validateProfile(p, false); err != nil {
		return err
	}
	return s.Profiles.Update(ctx, p)
}

func (s *SMTPProfileService) Delete(ctx context.Context, userID, id int64) error {
	return s.Profiles.Delete(ctx, id, userID)
}

func (s *SMTPProfileService) SetDefault(ctx context.Context, userID, id int64) error {
	return s.Profiles.SetDefault(ctx, id, userID)
}

// Test opens a connection with a saved profile and authenticates, without sending.
func (s *SMTPProfileService) Test(ctx context.Context, userID, id int64) (bool, string, error) {
	p, err := s.Profiles.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return false, "", err
	}
	ok, msg := s.Sender.TestConnection(ctx, p)
	return ok, msg, nil
}

// TestUnsaved checks settings the user has not stored yet.
func (s *SMTPProfileService) TestUnsaved(ctx context.Context, p *model.SMTPProfile) (bool, string, error) {
	if err := validateProfile(p, true); err != nil {
		return false, "", err
	}
	ok, msg := s.Sender.TestConnection(ctx, p)
	return ok, msg, nil
}

func validateProfile(p *model.SMTPProfile, needPassword bool) error {
	if p == nil {
		return appErrors.NewRequestError("SMTP configuration is required")
	}
	p.Name = strings.TrimSpace(p.Name)
	p.Host = strings.TrimSpace(p.Host)
	p.Username = strings.TrimSpace(p.Username)
	p.FromEmail = strings.TrimSpace(p.FromEmail)

	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.Host == "" {
		missing = append(missing, "host")
	}
	if p.Username == "" {
		missing = append(missing, "username")
	}
	if needPassword && p.Password == "" {
		missing = append(missing, "password")
	}
	if p.FromEmail == "" {
		missing = append(missing, "from_email")
	}
	if len(missing) > 0 {
		return appErrors.NewRequestError("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if p.Port <= 0 || p.Port > 65535 {
		return appErrors.NewRequestError("Invalid port %d", p.Port)
	}
	if !strings.Contains(p.FromEmail, "@") {
		return appErrors.NewRequestError("Invalid from_email %q", p.FromEmail)
	}
	return nil
}
