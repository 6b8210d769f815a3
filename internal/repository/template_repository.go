package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

type TemplateRepositoryInterface interface {
	ListByUser(ctx context.Context, userID int64) ([]*model.EmailTemplate, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*model.EmailTemplate, error)
	Create(ctx context.Context, t *model.EmailTemplate) error
	Delete(ctx context.Context, id, userID int64) error
}

type TemplateRepository struct {
	DB *sqlx.DB
}

const templateColumns = `id, user_id, name, subject, body, required_fields, created_at`

func (r *TemplateRepository) ListByUser(ctx context.Context, userID int64) ([]*model.EmailTemplate, error) {
	templates := []*model.EmailTemplate{}
	err := r.DB.SelectContext(ctx, &templates, `SELECT `+templateColumns+` FROM email_templates WHERE user_id=$1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	return templates, nil
}

func (r *TemplateRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*model.EmailTemplate, error) {
	var t model.EmailTemplate
	err := r.DB.GetContext(ctx, &t, `SELECT `+templateColumns+` FROM email_templates WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewTemplateNotFound(id)
		}
		return nil, errors.Wrap(err, "failed to get template")
	}
	return &t, nil
}

func (r *TemplateRepository) Create(ctx context.Context, t *model.EmailTemplate) error {
	query := `
        INSERT INTO email_templates (user_id, name, subject, body, required_fields)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at
    `
	err := r.DB.QueryRowxContext(ctx, query, t.UserID, t.Name, t.Subject, t.Body, t.RequiredFields).Scan(&t.ID, &t.CreatedAt)
	return errors.Wrap(err, "failed to insert template")
}

func (r *TemplateRepository) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM email_templates WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete template")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewTemplateNotFound(id)
	}
	return nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
