package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	RedisURL    string `env:"REDIS_URL"`

	JWT            JWTConfig
	Casdoor        CasdoorConfig
	Email          EmailConfig
	Payment        PaymentConfig
	Events         EventsConfig
	Cache          CacheConfig
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

type JWTConfig struct {
	Secret        string        `env:"JWT_SECRET,required,notEmpty"`
	ExpiresIn     time.Duration `env:"JWT_EXPIRES_IN" envDefault:"72h"`
	CookieExpires time.Duration `env:"JWT_COOKIE_EXPIRES_IN" envDefault:"72h"`
	Issuer        string        `env:"JWT_ISSUER" envDefault:"eduhub"`
}

// CasdoorConfig enables single sign-on tokens alongside local sessions when Endpoint is set.
type CasdoorConfig struct {
	Endpoint     string `env:"CASDOOR_ENDPOINT"`
	ClientID     string `env:"CASDOOR_CLIENT_ID"`
	ClientSecret string `env:"CASDOOR_CLIENT_SECRET"`
	Cert         string `env:"CASDOOR_CERTIFICATE"`
	Organization string `env:"CASDOOR_ORGANIZATION"`
	Application  string `env:"CASDOOR_APPLICATION"`
}

func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.Cert != ""
}

type EmailConfig struct {
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`
	SenderEmail    string `env:"SENDER_EMAIL" envDefault:"no-reply@eduhub.local"`
	SenderName     string `env:"SENDER_NAME" envDefault:"EduHub"`
}

type PaymentConfig struct {
	StripeSecretKey     string  `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string  `env:"STRIPE_WEBHOOK_SECRET"`
	Currency            string  `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	TaxPercent          float64 `env:"PAYMENT_TAX_PERCENT" envDefault:"0"`
}

type EventsConfig struct {
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"course-service"`
}

type CacheConfig struct {
	CourseTTL    time.Duration `env:"COURSE_CACHE_TTL" envDefault:"5m"`
	ResetCodeTTL time.Duration `env:"RESET_CODE_TTL" envDefault:"15m"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) validate() error {
	if len(c.JWT.Secret) < 32 && c.IsProduction() {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.JWT.ExpiresIn <= 0 {
		return errors.New("JWT_EXPIRES_IN must be positive")
	}
	if c.Payment.TaxPercent < 0 || c.Payment.TaxPercent > 100 {
		return errors.New("PAYMENT_TAX_PERCENT must be between 0 and 100")
	}
	if c.Payment.StripeSecretKey != "" && c.Payment.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}
