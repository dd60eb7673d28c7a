// Package config handles application configuration loading from environment
// variables and an optional YAML file. It provides a centralized Config struct
// used across the application.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration values.
type Config struct {
	// Server settings
	Host    string
	Port    string
	Env     string // "development", "production", "testing"
	BaseURL string // used to build links in outgoing mail

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	CacheTTL       time.Duration

	// One-time account tokens (verification, password reset)
	TokenSecret string
	TokenTTL    time.Duration

	// Outgoing mail. An empty SMTPHost logs messages instead of sending them.
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
	MailWorkers  int

	// S3-compatible object storage for post images
	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3BucketPublic string
	S3PublicURL    string

	// Auth rate limiting: requests per second and burst per client IP.
	AuthRateLimit float64
	AuthRateBurst int

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Only enable it behind a reverse proxy that overwrites those headers.
	TrustProxy bool
}

// defaults maps every configuration key to its development default.
var defaults = map[string]any{
	"app_host":     "0.0.0.0",
	"app_port":     "8080",
	"app_env":      "development",
	"app_base_url": "http://localhost:8080",

	"postgres_host":     "localhost",
	"postgres_port":     "5432",
	"postgres_user":     "quillpress",
	"postgres_password": "changeme",
	"postgres_db":       "quillpress",

	"valkey_host":     "localhost",
	"valkey_port":     "6379",
	"valkey_password": "",
	"cache_ttl":       "2m",

	"token_secret": "dev-secret-change-me",
	"token_ttl":    "72h",

	"smtp_host":     "",
	"smtp_port":     "587",
	"smtp_user":     "",
	"smtp_password": "",
	"mail_from":     "QuillPress <no-reply@quillpress.local>",
	"mail_workers":  2,

	"s3_endpoint":      "",
	"s3_region":        "us-east-1",
	"s3_access_key":    "",
	"s3_secret_key":    "",
	"s3_bucket_public": "quillpress-public",
	"s3_public_url":    "",

	"auth_rate_limit": 0.5,
	"auth_rate_burst": 10,
	"trust_proxy":     false,
}

// Load reads configuration from the environment, applying defaults for
// development where appropriate. If CONFIG_FILE is set, that YAML file is
// read first and environment variables override its values. Returns an error
// if critical values are missing in production mode.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("config_file", "CONFIG_FILE"); err != nil {
		return nil, fmt.Errorf("bind config_file: %w", err)
	}
	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Host:    v.GetString("app_host"),
		Port:    v.GetString("app_port"),
		Env:     v.GetString("app_env"),
		BaseURL: strings.TrimRight(v.GetString("app_base_url"), "/"),

		DBHost:     v.GetString("postgres_host"),
		DBPort:     v.GetString("postgres_port"),
		DBUser:     v.GetString("postgres_user"),
		DBPassword: v.GetString("postgres_password"),
		DBName:     v.GetString("postgres_db"),

		ValkeyHost:     v.GetString("valkey_host"),
		ValkeyPort:     v.GetString("valkey_port"),
		ValkeyPassword: v.GetString("valkey_password"),
		CacheTTL:       v.GetDuration("cache_ttl"),

		TokenSecret: v.GetString("token_secret"),
		TokenTTL:    v.GetDuration("token_ttl"),

		SMTPHost:     v.GetString("smtp_host"),
		SMTPPort:     v.GetString("smtp_port"),
		SMTPUser:     v.GetString("smtp_user"),
		SMTPPassword: v.GetString("smtp_password"),
		MailFrom:     v.GetString("mail_from"),
		MailWorkers:  v.GetInt("mail_workers"),

		S3Endpoint:     v.GetString("s3_endpoint"),
		S3Region:       v.GetString("s3_region"),
		S3AccessKey:    v.GetString("s3_access_key"),
		S3SecretKey:    v.GetString("s3_secret_key"),
		S3BucketPublic: v.GetString("s3_bucket_public"),
		S3PublicURL:    v.GetString("s3_public_url"),

		AuthRateLimit: v.GetFloat64("auth_rate_limit"),
		AuthRateBurst: v.GetInt("auth_rate_burst"),

		TrustProxy: v.GetBool("trust_proxy"),
	}

	if cfg.MailWorkers < 1 {
		cfg.MailWorkers = 1
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if len(cfg.TokenSecret) < 32 || cfg.TokenSecret == defaults["token_secret"] {
			return nil, fmt.Errorf("TOKEN_SECRET must be at least 32 characters in production")
		}
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// SMTPAddr returns the SMTP server address, or "" when mail is not configured.
func (c *Config) SMTPAddr() string {
	if c.SMTPHost == "" {
		return ""
	}
	return c.SMTPHost + ":" + c.SMTPPort
}
