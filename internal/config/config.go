// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"GAVEL_PORT" envDefault:"8080"`
	DBPath   string `env:"GAVEL_DB_PATH" envDefault:"gavel.db"`
	LogLevel string `env:"GAVEL_LOG_LEVEL" envDefault:"info"`
	// TrustProxy honours CF-Connecting-IP and X-Forwarded-For. Enable only
	// behind a proxy that sets them.
	TrustProxy bool `env:"GAVEL_TRUST_PROXY" envDefault:"false"`

	AI     AIConfig
	Push   PushConfig
	Backup BackupConfig
}

// AIConfig configures the optional rule and punishment suggester.
type AIConfig struct {
	APIKey  string `env:"GAVEL_AI_API_KEY"`
	BaseURL string `env:"GAVEL_AI_BASE_URL"`
	Model   string `env:"GAVEL_AI_MODEL" envDefault:"gpt-4o-mini"`
}

type PushConfig struct {
	VAPIDPublicKey  string `env:"GAVEL_VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string `env:"GAVEL_VAPID_PRIVATE_KEY"`
	Subscriber      string `env:"GAVEL_VAPID_SUBSCRIBER" envDefault:"mailto:noreply@gavel.local"`
}

type BackupConfig struct {
	S3Endpoint  string        `env:"GAVEL_S3_ENDPOINT"`
	S3Bucket    string        `env:"GAVEL_S3_BUCKET"`
	S3Region    string        `env:"GAVEL_S3_REGION" envDefault:"auto"`
	S3AccessKey string        `env:"GAVEL_S3_ACCESS_KEY"`
	S3SecretKey string        `env:"GAVEL_S3_SECRET_KEY"`
	Passphrase  string        `env:"GAVEL_BACKUP_PASSPHRASE"`
	Interval    time.Duration `env:"GAVEL_BACKUP_INTERVAL" envDefault:"0s"`
}

// Load reads an optional .env file in the working directory, then parses
// the environment into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
