package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env string `env:"APP_ENV" env-default:"local"`

	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"postify"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"require"`

	// Apply embedded migrations on startup.
	DBMigrate bool `env:"DB_MIGRATE" env-default:"true"`

	ServerPort     string   `env:"SERVER_PORT" env-default:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`

	// Requests per second and burst for the public rate-limited endpoints.
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" env-default:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" env-default:"10"`

	JWTSecret string `env:"JWT_SECRET"`

	AccessTokenMaxAge  int `env:"ACCESS_TOKEN_MAX_AGE" env-default:"900"`
	RefreshTokenMaxAge int `env:"REFRESH_TOKEN_MAX_AGE" env-default:"2592000"`

	RedisURL      string        `env:"REDIS_URL" env-default:"redis://localhost:6379/0"`
	BlogCacheTTL  time.Duration `env:"BLOG_CACHE_TTL" env-default:"2m"`
	WorkerCount   int           `env:"WORKER_COUNT" env-default:"2"`
	WorkerEnabled bool          `env:"WORKER_ENABLED" env-default:"true"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicURL       string `env:"R2_PUBLIC_URL"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	FrontendURL         string `env:"FRONTEND_URL" env-default:"http://localhost:3000"`

	// Monthly price in cents per paid plan.
	BasicPriceCents   int64 `env:"STRIPE_BASIC_PRICE_CENTS" env-default:"999"`
	PremiumPriceCents int64 `env:"STRIPE_PREMIUM_PRICE_CENTS" env-default:"1999"`

	QuotaResetEnabled  bool   `env:"QUOTA_RESET_ENABLED" env-default:"true"`
	QuotaResetSchedule string `env:"QUOTA_RESET_SCHEDULE" env-default:"0 0 1 * *"`

	ViewFlushSchedule  string        `env:"VIEW_FLUSH_SCHEDULE" env-default:"@every 1m"`
	TokenPurgeSchedule string        `env:"TOKEN_PURGE_SCHEDULE" env-default:"30 3 * * *"`
	TokenPurgeGrace    time.Duration `env:"TOKEN_PURGE_GRACE" env-default:"168h"`
}

// LoadConfig reads an optional .env file and binds the environment onto Config.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AccessTokenMaxAge <= 0 {
		c.AccessTokenMaxAge = 900
	}
	if c.RefreshTokenMaxAge <= 0 {
		c.RefreshTokenMaxAge = 2592000
	}
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("unknown APP_ENV %q", c.Env)
	}
	return nil
}

// DSN builds the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// StorageConfigured reports whether all R2 settings are present.
func (c *Config) StorageConfigured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}
