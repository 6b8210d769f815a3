// internal/db/db.go
package db

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/config"
)

//go:embed schema.sql
var schema string

// DSN builds the lib/pq connection string.
func DSN(c config.DB) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// Connect opens the pool and pings the server.
func Connect(ctx context.Context, c config.DB) (*sqlx.DB, error) {
	conn, err := sqlx.Open("postgres", DSN(c))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if c.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(c.MaxOpenConns)
		conn.SetMaxIdleConns(c.MaxOpenConns)
	}
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	slog.Info("connected to database", "host", c.Host, "name", c.Name)
	return conn, nil
}

// Migrate creates the tables the service needs. Statements are idempotent.
func Migrate(ctx context.Context, conn *sqlx.DB) error {
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
