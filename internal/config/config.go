// internal/config/config.go
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/unclebandit/coldreach-backend/internal/logger"
)

const DefaultEnvFile = ".env"

type Config struct {
	HTTP      HTTP
	DB        DB
	AMQP      AMQP
	Delivery  Delivery
	RateLimit RateLimit
	Log       logger.Config
	SMTP      SMTP
}

type HTTP struct {
	Port         int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"0s"`
	// PublicBaseURL prefixes tracking links. Empty means derive it from the incoming request.
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
}

type DB struct {
	Host         string `envconfig:"DB_HOST" default:"localhost"`
	Port         int    `envconfig:"DB_PORT" default:"5432"`
	User         string `envconfig:"DB_USER" default:"postgres"`
	Password     string `envconfig:"DB_PASSWORD"`
	Name         string `envconfig:"DB_NAME" default:"coldreach"`
	SSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
}

type AMQP struct {
	// URL enables the RabbitMQ event publisher. Empty keeps events in process.
	URL      string `envconfig:"AMQP_URL"`
	Exchange string `envconfig:"AMQP_EXCHANGE" default:"coldreach.events"`
}

type Delivery struct {
	DefaultDelay time.Duration `envconfig:"DELIVERY_DEFAULT_DELAY" default:"2s"`
	MaxDelay     time.Duration `envconfig:"DELIVERY_MAX_DELAY" default:"60s"`
}

type SMTP struct {
	Timeout time.Duration `envconfig:"SMTP_TIMEOUT" default:"30s"`
}

type RateLimit struct {
	Requests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"60"`
	Window   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// .env is optional, the process environment wins
	_ = godotenv.Load(DefaultEnvFile)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to envconfig.Process")
	}
	if cfg.Delivery.DefaultDelay < 0 {
		cfg.Delivery.DefaultDelay = 0
	}
	return &cfg, nil
}
