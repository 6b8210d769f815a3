// cmd/seeder/main.go
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/config"
	"github.com/unclebandit/coldreach-backend/internal/db"
	"github.com/unclebandit/coldreach-backend/internal/logger"
)

// Applies the schema, then every SQL file given as argument (seed/demo.sql when none).
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.InitDefault(cfg.Log)
	ctx := logger.NewContext(context.Background(), log)

	seedFiles := os.Args[1:]
	if len(seedFiles) == 0 {
		seedFiles = []string{"seed/demo.sql"}
	}

	if err := seed(ctx, cfg.DB, seedFiles); err != nil {
		logger.WithErr(ctx, err).Error("seeding failed")
		os.Exit(1)
	}
	log.Info("database seeding completed")
}

func seed(ctx context.Context, c config.DB, files []string) error {
	conn, err := db.Connect(ctx, c)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", file)
		}
		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			return errors.Wrapf(err, "failed to execute %s", file)
		}
		logger.FromContext(ctx).Info("seeded", "file", file)
	}
	return nil
}
