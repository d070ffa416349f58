// Package config loads runtime settings from the environment and an optional
// dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultJWTSecret is the development signing secret. Load reports it in
// Config.Warnings so it never goes unnoticed.
const DefaultJWTSecret = "dev-secret-change-me"

// Config holds every setting of the storefront server.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	Database DatabaseConfig
	Admin    AdminConfig
	SMTP     SMTPConfig

	UploadDir          string
	StaticDir          string
	RabbitMQURL        string
	CORSAllowLocalhost bool

	// Warnings collects insecure or surprising settings; main logs them once
	// the logger exists.
	Warnings []string
}

type DatabaseConfig struct {
	Driver string // sqlite, postgres, mysql or memory
	DSN    string
	Seed   bool
}

type AdminConfig struct {
	Email        string
	PasswordHash string
	Password     string
	JWTSecret    string
	TokenFormat  string
	SessionTTL   time.Duration
	CookieSecure bool
}

type SMTPConfig struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Secure bool
	From   string
	// NotifyEmail receives order and contact notifications.
	NotifyEmail string
}

// Configured reports whether outbound mail credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.User != "" && c.Pass != ""
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the configuration. Environment variables take precedence over
// the dotenv file named by CONFIG_FILE (".env" by default); a missing file is
// not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := readDotenv(v, v.GetString("CONFIG_FILE")); err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:     v.GetString("APP_PORT"),
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:    v.GetString("DATABASE_DSN"),
			Seed:   v.GetBool("DB_SEED"),
		},
		Admin: AdminConfig{
			Email:        v.GetString("ADMIN_EMAIL"),
			PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
			Password:     v.GetString("ADMIN_PASSWORD"),
			JWTSecret:    v.GetString("JWT_SECRET"),
			TokenFormat:  strings.ToLower(v.GetString("TOKEN_FORMAT")),
			SessionTTL:   v.GetDuration("SESSION_TTL"),
		},
		SMTP: SMTPConfig{
			Host:        v.GetString("SMTP_HOST"),
			Port:        v.GetInt("SMTP_PORT"),
			User:        v.GetString("SMTP_USER"),
			Pass:        v.GetString("SMTP_PASS"),
			Secure:      v.GetBool("SMTP_SECURE"),
			From:        v.GetString("MAIL_FROM"),
			NotifyEmail: v.GetString("NOTIFY_EMAIL"),
		},
		UploadDir:          v.GetString("UPLOAD_DIR"),
		StaticDir:          v.GetString("STATIC_DIR"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		CORSAllowLocalhost: v.GetBool("CORS_ALLOW_LOCALHOST"),
	}

	if v.IsSet("COOKIE_SECURE") && v.GetString("COOKIE_SECURE") != "" {
		cfg.Admin.CookieSecure = v.GetBool("COOKIE_SECURE")
	} else {
		cfg.Admin.CookieSecure = cfg.IsProduction()
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.User
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "no-reply@veloce.store"
	}
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CONFIG_FILE", ".env")
	v.SetDefault("APP_PORT", ":3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "veloce.db")
	v.SetDefault("DB_SEED", true)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("TOKEN_FORMAT", "hmac")
	v.SetDefault("SESSION_TTL", 2*time.Hour)
	v.SetDefault("COOKIE_SECURE", "")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_SECURE", false)
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("NOTIFY_EMAIL", "orders@veloce.store")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("CORS_ALLOW_LOCALHOST", true)
}

// readDotenv merges KEY=VALUE pairs from path. Keys already present in the
// environment are left untouched because AutomaticEnv lookups win over
// config values.
func readDotenv(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres", "mysql", "memory":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Admin.TokenFormat {
	case "hmac", "jwt":
	default:
		return fmt.Errorf("unsupported TOKEN_FORMAT %q", c.Admin.TokenFormat)
	}
	if c.Admin.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Admin.SessionTTL)
	}

	if c.Admin.JWTSecret == DefaultJWTSecret {
		c.Warnings = append(c.Warnings, "JWT_SECRET not set, using the development secret. PLEASE SET JWT_SECRET IN PRODUCTION!")
	}
	if c.Admin.Email == "" || (c.Admin.PasswordHash == "" && c.Admin.Password == "") {
		c.Warnings = append(c.Warnings, "ADMIN_EMAIL and ADMIN_PASSWORD(_HASH) not set, admin login is disabled")
	}
	if !c.SMTP.Configured() {
		c.Warnings = append(c.Warnings, "SMTP_USER/SMTP_PASS not set, notification emails will only be logged")
	}
	return nil
}
