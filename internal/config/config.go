package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Log    LogConfig
	Auth   AuthConfig
	Coupon CouponConfig
	Mail   MailConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       int    `envconfig:"DB_PORT" default:"5432"`
	User       string `envconfig:"DB_USER" default:"postgres"`
	Password   string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name       string `envconfig:"DB_NAME" default:"hivex"`
	SSLMode    string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns   int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns   int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
	Migrate    bool   `envconfig:"DB_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AuthConfig holds token signing configuration.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
}

// CouponConfig holds the coupon lifecycle tunables.
// CodeLength must be sized against the total number of coupons the
// deployment will ever mint: 4 alphanumeric characters give ~14.7M codes.
type CouponConfig struct {
	CodeLength     int    `envconfig:"COUPON_CODE_LENGTH" default:"4"`
	CodeCharset    string `envconfig:"COUPON_CODE_CHARSET" default:"alphanumeric"`
	CodeMaxRetries int    `envconfig:"COUPON_CODE_MAX_RETRIES" default:"10"`
	MaxPerMember   int    `envconfig:"CLAIM_MAX_PER_MEMBER" default:"6"`
	QREnabled      bool   `envconfig:"COUPON_QR_ENABLED" default:"true"`
	QRSize         int    `envconfig:"COUPON_QR_SIZE" default:"256"`
}

// MailConfig holds outgoing mail configuration.
// An empty SMTPHost disables SMTP and mails are only logged.
type MailConfig struct {
	SMTPHost     string `envconfig:"SMTP_HOST"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	From         string `envconfig:"MAIL_FROM" default:"deals@hivex.local"`
	Workers      int    `envconfig:"MAIL_WORKERS" default:"2"`
	QueueSize    int    `envconfig:"MAIL_QUEUE_SIZE" default:"256"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Coupon.CodeLength < 1 {
		return nil, fmt.Errorf("COUPON_CODE_LENGTH must be positive, got %d", cfg.Coupon.CodeLength)
	}
	if cfg.Coupon.MaxPerMember < 1 {
		return nil, fmt.Errorf("CLAIM_MAX_PER_MEMBER must be positive, got %d", cfg.Coupon.MaxPerMember)
	}
	return &cfg, nil
}
