package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

// UserRepositoryInterface exposes the sender identity and the persisted usage counters.
type UserRepositoryInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	ResetMonthlyUsageIfDue(ctx context.Context, id int64, now time.Time) error
	RecordBulkCampaign(ctx context.Context, id int64, recipients int) error
	IncrementEmailsSent(ctx context.Context, id int64, n int) error
	IncrementEmailsGenerated(ctx context.Context, id int64, n int) error
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sqlx.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
        SELECT id, username, email, position, contact_info, subscription_tier, emails_generated, emails_sent,
               bulk_campaigns, current_month_usage, usage_reset_at, created_at
        FROM users
        WHERE id = $1
    `
	var u model.User
	if err := r.DB.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewUserNotFound(id)
		}
		return nil, errors.Wrap(err, "failed to get user")
	}
	return &u, nil
}

// ResetMonthlyUsageIfDue zeroes current_month_usage once per calendar month.
func (r *UserRepository) ResetMonthlyUsageIfDue(ctx context.Context, id int64, now time.Time) error {
	query := `
        UPDATE users SET current_month_usage=0, usage_reset_at=$2
        WHERE id=$1 AND (usage_reset_at IS NULL OR usage_reset_at < date_trunc('month', $2::timestamptz))
    `
	_, err := r.DB.ExecContext(ctx, query, id, now)
	return errors.Wrap(err, "failed to reset monthly usage")
}

// RecordBulkCampaign counts one campaign and its attempted recipients.
func (r *UserRepository) RecordBulkCampaign(ctx context.Context, id int64, recipients int) error {
	query := `
        UPDATE users
        SET bulk_campaigns=bulk_campaigns+1, emails_sent=emails_sent+$2, current_month_usage=current_month_usage+$2
        WHERE id=$1
    `
	return r.exec(ctx, query, id, recipients)
}

func (r *UserRepository) IncrementEmailsSent(ctx context.Context, id int64, n int) error {
	query := `UPDATE users SET emails_sent=emails_sent+$2, current_month_usage=current_month_usage+$2 WHERE id=$1`
	return r.exec(ctx, query, id, n)
}

func (r *UserRepository) IncrementEmailsGenerated(ctx context.Context, id int64, n int) error {
	return r.exec(ctx, `UPDATE users SET emails_generated=emails_generated+$2 WHERE id=$1`, id, n)
}

func (r *UserRepository) exec(ctx context.Context, query string, id int64, n int) error {
	res, err := r.DB.ExecContext(ctx, query, id, n)
	if err != nil {
		return errors.Wrap(err, "failed to update usage")
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return appErrors.NewUserNotFound(id)
	}
	return nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
