// cmd/worker/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/config"
	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/metrics"
	"github.com/unclebandit/coldreach-backend/internal/queue"
	"github.com/unclebandit/coldreach-backend/internal/service"
)

// The worker consumes delivery and tracking events from RabbitMQ and writes the audit log.
// It is only needed when the server publishes to AMQP_URL.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.InitDefault(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.NewContext(ctx, log.With("component", "event-worker"))

	if cfg.AMQP.URL == "" {
		log.Error("AMQP_URL is required")
		os.Exit(1)
	}
	q, err := queue.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Exchange)
	if err != nil {
		logger.WithErr(ctx, err).Error("failed to connect to RabbitMQ")
		os.Exit(1)
	}
	defer q.Close()

	go func() {
		// metrics on the port after the API's
		addr := ":" + strconv.Itoa(cfg.HTTP.Port+1)
		if err := http.ListenAndServe(addr, metrics.Handler()); err != nil {
			logger.WithErr(ctx, err).Warn("metrics listener stopped")
		}
	}()

	if err := run(ctx, q); err != nil {
		logger.WithErr(ctx, err).Error("worker stopped")
		os.Exit(1)
	}
}

// run subscribes the event worker and blocks until ctx is done.
func run(ctx context.Context, q queue.Queue) error {
	if err := service.NewWorker(q).Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start event worker")
	}
	logger.FromContext(ctx).Info("waiting for events")
	<-ctx.Done()
	return nil
}
