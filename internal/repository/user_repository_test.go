package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/coldreach-backend/internal/errors"
)

func TestUserRepository_RecordBulkCampaign(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := &UserRepository{DB: db}

	mock.ExpectExec(regexp.QuoteMeta("SET bulk_campaigns=bulk_campaigns+1")).
		WithArgs(int64(1), 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordBulkCampaign(context.Background(), 1, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UnknownUser(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := &UserRepository{DB: db}

	mock.ExpectExec("UPDATE users SET emails_generated").WithArgs(int64(9), 1).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementEmailsGenerated(context.Background(), 9, 1)
	var notFound *appErrors.ErrUserNotFound
	assert.True(t, errors.As(err, &notFound))
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := &UserRepository{DB: db}
	now := time.Now()

	mock.ExpectQuery("FROM users").WithArgs(int64(1)).WillReturnRows(sqlmock.NewRows([]string{
		"id", "username", "email", "position", "contact_info", "subscription_tier", "emails_generated", "emails_sent",
		"bulk_campaigns", "current_month_usage", "usage_reset_at", "created_at",
	}).AddRow(1, "sam", "sam@example.com", "Founder", "", "professional", 4, 12, 2, 12, now, now))

	u, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "sam", u.Sender().Username)
	remaining, limited := u.RemainingQuota()
	assert.True(t, limited)
	assert.Equal(t, 988, remaining)
}

func TestUserRepository_ResetMonthlyUsageIfDue(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := &UserRepository{DB: db}
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("date_trunc('month', $2::timestamptz)")).WithArgs(int64(1), now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.ResetMonthlyUsageIfDue(context.Background(), 1, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}
