package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
	"github.com/unclebandit/coldreach-backend/internal/model"
)

type DeliveryRepositoryInterface interface {
	// Batch lifecycle
	CreateMany(ctx context.Context, records []*model.DeliveryRecord) error
	UpdateMany(ctx context.Context, records []*model.DeliveryRecord) error

	// Tracking
	GetByID(ctx context.Context, id int64) (*model.DeliveryRecord, error)
	MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error)
	MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error)

	// History
	List(ctx context.Context, userID int64, offset, limit int, campaign, status string) ([]*model.DeliveryRecord, int, error)
	CampaignStats(ctx context.Context, userID int64, campaign string) (*model.CampaignStats, error)
}

type DeliveryRepository struct {
	DB *sqlx.DB
}

const deliveryColumns = `id, user_id, smtp_config_id, recipient, subject, content, campaign_name, status,
    error_message, sent_at, opened, opened_at, clicked, clicked_at, created_at`

// CreateMany inserts all records in one transaction and fills in their ids.
func (r *DeliveryRepository) CreateMany(ctx context.Context, records []*model.DeliveryRecord) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
        INSERT INTO delivery_records (user_id, smtp_config_id, recipient, subject, content, campaign_name, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
	for _, rec := range records {
		if rec.Status == "" {
			rec.Status = model.StatusPending
		}
		err := tx.QueryRowxContext(ctx, query,
			rec.UserID, rec.SMTPConfigID, rec.Recipient, rec.Subject, rec.Content, rec.CampaignName, rec.Status,
		).Scan(&rec.ID, &rec.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, "failed to insert delivery record for %s", rec.Recipient)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit delivery records")
}

// UpdateMany writes the outcome of every record in one transaction.
func (r *DeliveryRepository) UpdateMany(ctx context.Context, records []*model.DeliveryRecord) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	query := `UPDATE delivery_records SET status=$1, error_message=$2, sent_at=$3 WHERE id=$4`
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, query, rec.Status, rec.ErrorMessage, rec.SentAt, rec.ID); err != nil {
			return errors.Wrapf(err, "failed to update delivery record %d", rec.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit delivery statuses")
}

func (r *DeliveryRepository) GetByID(ctx context.Context, id int64) (*model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	err := r.DB.GetContext(ctx, &rec, `SELECT `+deliveryColumns+` FROM delivery_records WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewDeliveryNotFound(id)
		}
		return nil, errors.Wrap(err, "failed to get delivery record")
	}
	return &rec, nil
}

// MarkOpened sets opened_at on the first open only. It reports whether this call changed the row.
func (r *DeliveryRepository) MarkOpened(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, `UPDATE delivery_records SET opened=TRUE, opened_at=$2 WHERE id=$1 AND opened=FALSE`, id, at)
}

// MarkClicked sets clicked_at on the first click only.
func (r *DeliveryRepository) MarkClicked(ctx context.Context, id int64, at time.Time) (bool, error) {
	return r.markOnce(ctx, `UPDATE delivery_records SET clicked=TRUE, clicked_at=$2 WHERE id=$1 AND clicked=FALSE`, id, at)
}

func (r *DeliveryRepository) markOnce(ctx context.Context, query string, id int64, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, errors.Wrapf(err, "failed to update tracking state of %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n > 0, nil
}

func (r *DeliveryRepository) List(ctx context.Context, userID int64, offset, limit int, campaign, status string) ([]*model.DeliveryRecord, int, error) {
	where := ` WHERE user_id=$1`
	args := []interface{}{userID}
	argPos := 2

	if campaign != "" {
		where += fmt.Sprintf(" AND campaign_name=$%d", argPos)
		args = append(args, campaign)
		argPos++
	}
	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.DB.GetContext(ctx, &total, `SELECT COUNT(*) FROM delivery_records`+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count delivery records")
	}

	query := `SELECT ` + deliveryColumns + ` FROM delivery_records` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	records := []*model.DeliveryRecord{}
	if err := r.DB.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "failed to list delivery records")
	}
	return records, total, nil
}

func (r *DeliveryRepository) CampaignStats(ctx context.Context, userID int64, campaign string) (*model.CampaignStats, error) {
	query := `
        SELECT $2::text AS campaign_name,
               COUNT(*) AS total,
               COUNT(*) FILTER (WHERE status='pending') AS pending,
               COUNT(*) FILTER (WHERE status='sent') AS sent,
               COUNT(*) FILTER (WHERE status='failed') AS failed,
               COUNT(*) FILTER (WHERE opened) AS opened,
               COUNT(*) FILTER (WHERE clicked) AS clicked
        FROM delivery_records
        WHERE user_id=$1 AND campaign_name=$2
    `
	var stats model.CampaignStats
	if err := r.DB.GetContext(ctx, &stats, query, userID, campaign); err != nil {
		return nil, errors.Wrap(err, "failed to compute campaign stats")
	}
	return &stats, nil
}

var _ DeliveryRepositoryInterface = (*DeliveryRepository)(nil)
