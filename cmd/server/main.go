// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/unclebandit/coldreach-backend/internal/config"
	"github.com/unclebandit/coldreach-backend/internal/controller"
	"github.com/unclebandit/coldreach-backend/internal/db"
	"github.com/unclebandit/coldreach-backend/internal/handler"
	"github.com/unclebandit/coldreach-backend/internal/logger"
	"github.com/unclebandit/coldreach-backend/internal/mailer"
	"github.com/unclebandit/coldreach-backend/internal/metrics"
	"github.com/unclebandit/coldreach-backend/internal/middleware"
	"github.com/unclebandit/coldreach-backend/internal/queue"
	"github.com/unclebandit/coldreach-backend/internal/repository"
	"github.com/unclebandit/coldreach-backend/internal/service"
	"github.com/unclebandit/coldreach-backend/internal/templates"
)

// smtpTestLimit caps connection tests per user per minute; each one opens a real SMTP session.
const smtpTestLimit = 5

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.InitDefault(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		logger.WithErr(ctx, err).Error("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	conn, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}

	q, closeQueue, err := openQueue(ctx, cfg.AMQP)
	if err != nil {
		return err
	}
	defer closeQueue()

	gen, err := templates.NewGenerator()
	if err != nil {
		return err
	}

	deliveryRepo := &repository.DeliveryRepository{DB: conn}
	profileRepo := &repository.SMTPProfileRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}
	templateRepo := &repository.TemplateRepository{DB: conn}
	transport := mailer.NewTransport(cfg.SMTP.Timeout)

	deliveryService := &service.DeliveryService{
		Deliveries:   deliveryRepo,
		Profiles:     profileRepo,
		Users:        userRepo,
		Sender:       transport,
		Queue:        q,
		DefaultDelay: cfg.Delivery.DefaultDelay,
		MaxDelay:     cfg.Delivery.MaxDelay,
	}
	templateService := &service.TemplateService{Generator: gen, Templates: templateRepo, Users: userRepo}
	profileService := &service.SMTPProfileService{Profiles: profileRepo, Sender: transport}
	trackingService := &service.TrackingService{Deliveries: deliveryRepo, Queue: q}

	emailController := &controller.EmailController{
		Deliveries:    deliveryService,
		Templates:     templateService,
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
	}
	smtpController := &controller.SMTPController{Profiles: profileService}
	templateController := &controller.TemplateController{Templates: templateService}
	trackingHandler := handler.NewTrackingHandler(trackingService)
	healthHandler := &handler.HealthHandler{DB: conn}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimw.Recoverer)

	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Tracking routes are hit by mail clients and carry no identity.
	r.Get("/track/open/{file}", trackingHandler.OpenPixel)
	r.Get("/track/click/{token}", trackingHandler.Click)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit.Requests, cfg.RateLimit.Window))

		r.Post("/email/process-bulk-emails", emailController.ProcessBulkEmails)
		r.Post("/email/send", emailController.SendEmail)
		r.Post("/email/process-csv", emailController.ProcessCSV)
		r.Post("/email/generate-email", emailController.GenerateEmail)
		r.Get("/email/history", emailController.History)
		r.Get("/email/campaigns/{name}/stats", emailController.CampaignStats)
		r.Get("/usage", emailController.Usage)

		r.Get("/smtp/configs", smtpController.List)
		r.Post("/smtp/configs", smtpController.Create)
		r.Put("/smtp/configs/{id}", smtpController.Update)
		r.Delete("/smtp/configs/{id}", smtpController.Delete)
		r.Post("/smtp/configs/{id}/default", smtpController.SetDefault)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimiter(ctx, smtpTestLimit, time.Minute))
			r.Post("/smtp/configs/{id}/test", smtpController.Test)
			r.Post("/smtp/test", smtpController.TestUnsaved)
		})

		r.Get("/templates", templateController.List)
		r.Post("/templates", templateController.Create)
		r.Delete("/templates/{id}", templateController.Delete)
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:           r,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	// bulk sends run synchronously inside requests, so give them time to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Delivery.MaxDelay+time.Minute)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openQueue publishes to RabbitMQ when AMQP_URL is set. Otherwise events stay in process
// and the event worker runs inside the server.
func openQueue(ctx context.Context, c config.AMQP) (queue.Queue, func(), error) {
	if c.URL != "" {
		q, err := queue.DialAMQP(c.URL, c.Exchange)
		if err != nil {
			return nil, nil, err
		}
		return q, func() { _ = q.Close() }, nil
	}

	q := queue.NewInMemoryQueue()
	if err := service.NewWorker(q).Start(ctx); err != nil {
		return nil, nil, err
	}
	return q, func() { _ = q.Close() }, nil
}

// requestLogger puts a request scoped logger in the context and logs each request.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			l := log.With("request_id", chimw.GetReqID(r.Context()))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.NewContext(r.Context(), l)))

			l.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start))
		})
	}
}
