// internal/service/template_service.go
package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/csvimport"
	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/model"
	"github.com/unclebandit/coldreach-backend/internal/repository"
	"github.com/unclebandit/coldreach-backend/internal/templates"
)

// TemplateView is one entry of the template listing. Built-in templates have no ID.
type TemplateView struct {
	ID             int64  `json:"id,omitempty"`
	Key            string `json:"key"`
	Name           string `json:"name"`
	Subject        string `json:"subject,omitempty"`
	Body           string `json:"body"`
	RequiredFields string `json:"required_fields"`
	BuiltIn        bool   `json:"built_in"`
}

// TemplateService renders emails from built-in layouts or user templates.
type TemplateService struct {
	Generator *templates.Generator
	Templates repository.TemplateRepositoryInterface
	Users     repository.UserRepositoryInterface
}

// ListTemplates returns the built-in layouts followed by the user's own templates.
func (s *TemplateService) ListTemplates(ctx context.Context, userID int64) ([]TemplateView, error) {
	var views []TemplateView
	for _, k := range templates.Kinds() {
		subject, body := templates.SplitSubject(templates.Source(k))
		views = append(views, TemplateView{
			Key:            k.String(),
			Name:           strings.ReplaceAll(k.String(), "_", " "),
			Subject:        subject,
			Body:           body,
			RequiredFields: strings.Join(csvimport.DefaultRequired, ","),
			BuiltIn:        true,
		})
	}

	custom, err := s.Templates.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, t := range custom {
		views = append(views, TemplateView{
			ID:             t.ID,
			Key:            strconv.FormatInt(t.ID, 10),
			Name:           t.Name,
			Subject:        t.Subject,
			Body:           t.Body,
			RequiredFields: strings.Join(t.Required(), ","),
		})
	}
	return views, nil
}

// CreateTemplate stores a user-authored template. Only professional and enterprise tiers may create one.
func (s *TemplateService) CreateTemplate(ctx context.Context, userID int64, t *model.EmailTemplate) error {
	t.UserID = userID
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || strings.TrimSpace(t.Body) == "" {
		return appErrors.NewRequestError("Template name and body are required")
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.CanCreateCustomTemplates() {
		return &appErrors.TierRestrictedError{Tier: user.Tier(), Feature: "Custom templates"}
	}
	t.RequiredFields = strings.Join(t.Required(), ",")
	return s.Templates.Create(ctx, t)
}

func (s *TemplateService) DeleteTemplate(ctx context.Context, userID, id int64) error {
	return s.Templates.Delete(ctx, id, userID)
}

// ProcessCSV validates an uploaded recipient list and renders one email per valid row.
// ref is a built-in kind tag or the numeric id of one of the user's templates.
// Row level problems are reported in the result; only lookups fail the call.
func (s *TemplateService) ProcessCSV(ctx context.Context, userID int64, csvData, ref string) (*csvimport.Result, error) {
	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sender := user.Sender()

	required := csvimport.DefaultRequired
	var render csvimport.RenderFunc

	if id, convErr := strconv.ParseInt(strings.TrimSpace(ref), 10, 64); convErr == nil {
		tpl, err := s.Templates.GetByIDForUser(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		required = tpl.Required()
		render = func(r model.Recipient) (string, error) {
			body := templates.Render(tpl.Body, r, sender)
			if tpl.Subject == "" {
				return body, nil
			}
			return "Subject: " + templates.Render(tpl.Subject, r, sender) + "\n\n" + body, nil
		}
	} else {
		kind, _ := templates.ParseKind(ref)
		render = func(r model.Recipient) (string, error) {
			return s.Generator.Generate(kind, r, sender)
		}
	}

	res := csvimport.Parse(csvData, required, render)
	if res.SuccessfulRecipients > 0 {
		if err := s.Users.IncrementEmailsGenerated(ctx, userID, res.SuccessfulRecipients); err != nil {
			logger.WithErr(ctx, err).Error("failed to record generated emails", "user_id", userID)
		}
	}
	return res, nil
}

// GeneratedEmail is a single rendered email.
type GeneratedEmail struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Email   string `json:"email"`
}

// GenerateEmail renders one built-in kind for one recipient.
func (s *TemplateService) GenerateEmail(ctx context.Context, userID int64, kindTag string, r model.Recipient) (*GeneratedEmail, error) {
	normalized := make(model.Recipient, len(r))
	for k, v := range r {
		normalized[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	if m := normalized.Missing([]string{"name", "company"}); len(m) > 0 {
		return nil, appErrors.NewRequestError("Missing required fields: %s", strings.Join(m, ", "))
	}

	user, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	kind, _ := templates.ParseKind(kindTag)
	text, err := s.Generator.Generate(kind, normalized, user.Sender())
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate email")
	}
	if err := s.Users.IncrementEmailsGenerated(ctx, userID, 1); err != nil {
		logger.WithErr(ctx, err).Error("failed to record generated email", "user_id", userID)
	}

	subject, body := templates.SplitSubject(text)
	return &GeneratedEmail{Subject: subject, Body: body, Email: text}, nil
}
