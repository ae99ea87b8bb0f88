package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Env        string `envconfig:"APP_ENV" default:"development"`
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	Storage    string `envconfig:"STORAGE" default:"postgres"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"litrevu"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMigrate  bool   `envconfig:"DB_MIGRATE" default:"true"`

	// RedisURL is optional; without it feeds are composed on every request
	// and no events are streamed.
	RedisURL string `envconfig:"REDIS_URL"`

	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenMaxAge  int    `envconfig:"ACCESS_TOKEN_MAX_AGE" default:"900"`
	RefreshTokenMaxAge int    `envconfig:"REFRESH_TOKEN_MAX_AGE" default:"2592000"`

	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `envconfig:"R2_BUCKET_NAME"`
	R2PublicURL       string `envconfig:"R2_PUBLIC_URL"`

	WorkerCount  int           `envconfig:"WORKER_COUNT" default:"2"`
	FeedCacheTTL time.Duration `envconfig:"FEED_CACHE_TTL" default:"10m"`

	LoginRatePerMinute int `envconfig:"LOGIN_RATE_PER_MINUTE" default:"10"`
	LoginBurst         int `envconfig:"LOGIN_BURST" default:"5"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// The logger is not configured yet at this point.
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, cfg.Storage)
	}
	if cfg.AccessTokenMaxAge <= 0 {
		cfg.AccessTokenMaxAge = 900
	}
	if cfg.RefreshTokenMaxAge <= 0 {
		cfg.RefreshTokenMaxAge = 2592000
	}

	return &cfg, nil
}

// DSN renders the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// MediaEnabled reports whether every R2 setting is present.
func (c *Config) MediaEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
