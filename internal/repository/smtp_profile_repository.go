package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

type SMTPProfileRepositoryInterface interface {
	GetByIDForUser(ctx context.Context, id, userID int64) (*model.SMTPProfile, error)
	GetDefault(ctx context.Context, userID int64) (*model.SMTPProfile, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.SMTPProfile, error)
	Create(ctx context.Context, p *model.SMTPProfile) error
	Update(ctx context.Context, p *model.SMTPProfile) error
	Delete(ctx context.Context, id, userID int64) error
	SetDefault(ctx context.Context, id, userID int64) error
}

type SMTPProfileRepository struct {
	DB *sqlx.DB
}

const profileColumns = `id, user_id, name, host, port, username, password, use_tls, from_email, from_name,
    reply_to, is_default, created_at, updated_at`

// GetByIDForUser only returns profiles owned by userID.
func (r *SMTPProfileRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*model.SMTPProfile, error) {
	var p model.SMTPProfile
	err := r.DB.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM smtp_configs WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewSMTPProfileNotFound(id)
		}
		return nil, errors.Wrap(err, "failed to get smtp configuration")
	}
	return &p, nil
}

func (r *SMTPProfileRepository) GetDefault(ctx context.Context, userID int64) (*model.SMTPProfile, error) {
	var p model.SMTPProfile
	err := r.DB.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM smtp_configs WHERE user_id=$1 AND is_default`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewSMTPProfileNotFound(0)
		}
		return nil, errors.Wrap(err, "failed to get default smtp configuration")
	}
	return &p, nil
}

func (r *SMTPProfileRepository) ListByUser(ctx context.Context, userID int64) ([]*model.SMTPProfile, error) {
	profiles := []*model.SMTPProfile{}
	err := r.DB.SelectContext(ctx, &profiles,
		`SELECT `+profileColumns+` FROM smtp_configs WHERE user_id=$1 ORDER BY is_default DESC, id DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list smtp configurations")
	}
	return profiles, nil
}

// Create inserts p. The user's first profile always becomes the default, and a new default
// clears the previous one.
func (r *SMTPProfileRepository) Create(ctx context.Context, p *model.SMTPProfile) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM smtp_configs WHERE user_id=$1`, p.UserID); err != nil {
		return errors.Wrap(err, "failed to count smtp configurations")
	}
	if existing == 0 {
		p.IsDefault = true
	}
	if p.IsDefault {
		if err := clearDefault(ctx, tx, p.UserID); err != nil {
			return err
		}
	}

	query := `
        INSERT INTO smtp_configs (user_id, name, host, port, username, password, use_tls, from_email, from_name, reply_to, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at
    `
	err = tx.QueryRowxContext(ctx, query,
		p.UserID, p.Name, p.Host, p.Port, p.Username, p.Password, p.UseTLS, p.FromEmail, p.FromName, p.ReplyTo, p.IsDefault,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to insert smtp configuration")
	}

	return errors.Wrap(tx.Commit(), "failed to commit smtp configuration")
}

// Update overwrites p. An empty password keeps the stored one.
func (r *SMTPProfileRepository) Update(ctx context.Context, p *model.SMTPProfile) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if p.IsDefault {
		if err := clearDefault(ctx, tx, p.UserID); err != nil {
			return err
		}
	}

	query := `
        UPDATE smtp_configs
        SET name=$1, host=$2, port=$3, username=$4, password=COALESCE(NULLIF($5, ''), password), use_tls=$6,
            from_email=$7, from_name=$8, reply_to=$9, is_default=(is_default OR $10), updated_at=NOW()
        WHERE id=$11 AND user_id=$12
    `
	res, err := tx.ExecContext(ctx, query,
		p.Name, p.Host, p.Port, p.Username, p.Password, p.UseTLS, p.FromEmail, p.FromName, p.ReplyTo, p.IsDefault, p.ID, p.UserID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update smtp configuration")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewSMTPProfileNotFound(p.ID)
	}

	return errors.Wrap(tx.Commit(), "failed to commit smtp configuration")
}

// Delete removes a profile. When it was the default, the newest remaining profile takes over.
func (r *SMTPProfileRepository) Delete(ctx context.Context, id, userID int64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	var wasDefault bool
	err = tx.GetContext(ctx, &wasDefault, `DELETE FROM smtp_configs WHERE id=$1 AND user_id=$2 RETURNING is_default`, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewSMTPProfileNotFound(id)
		}
		return errors.Wrap(err, "failed to delete smtp configuration")
	}

	if wasDefault {
		_, err := tx.ExecContext(ctx, `
            UPDATE smtp_configs SET is_default=TRUE
            WHERE id = (SELECT id FROM smtp_configs WHERE user_id=$1 ORDER BY id DESC LIMIT 1)
        `, userID)
		if err != nil {
			return errors.Wrap(err, "failed to promote default smtp configuration")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit smtp configuration delete")
}

func (r *SMTPProfileRepository) SetDefault(ctx context.Context, id, userID int64) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if err := clearDefault(ctx, tx, userID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `UPDATE smtp_configs SET is_default=TRUE, updated_at=NOW() WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to set default smtp configuration")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return appErrors.NewSMTPProfileNotFound(id)
	}

	return errors.Wrap(tx.Commit(), "failed to commit default smtp configuration")
}

func clearDefault(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE smtp_configs SET is_default=FALSE WHERE user_id=$1 AND is_default`, userID); err != nil {
		return errors.Wrap(err, "failed to clear default smtp configuration")
	}
	return nil
}

var _ SMTPProfileRepositoryInterface = (*SMTPProfileRepository)(nil)
