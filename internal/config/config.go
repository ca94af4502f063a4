// Package config loads service configuration from defaults, an optional
// YAML file, .env and the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chatapp/realtime-chat/internal/utils"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names the variable pointing at an optional YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	JWT       JWTConfig       `koanf:"jwt"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	Redis     RedisConfig     `koanf:"redis"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Google    GoogleConfig    `koanf:"google"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port        string `koanf:"port"`
	Env         string `koanf:"env"`
	CORSOrigin  string `koanf:"cors_origin"`
	FrontendURL string `koanf:"frontend_url"`
	BaseURL     string `koanf:"base_url"`
	UploadDir   string `koanf:"upload_dir"`
}

type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type JWTConfig struct {
	Secret           string        `koanf:"secret"`
	RefreshSecret    string        `koanf:"refresh_secret"`
	ExpiresIn        time.Duration `koanf:"expires_in"`
	RefreshExpiresIn time.Duration `koanf:"refresh_expires_in"`
}

type RateLimitConfig struct {
	Window      time.Duration `koanf:"window"`
	MaxRequests int           `koanf:"max_requests"`
}

// RedisConfig is optional; an empty URL keeps rate limit counters in memory.
type RedisConfig struct {
	URL string `koanf:"url"`
}

type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type GoogleConfig struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	CallbackURL  string `koanf:"callback_url"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3001",
			Env:         "development",
			CORSOrigin:  "http://localhost:3000",
			FrontendURL: "http://localhost:3000",
			UploadDir:   "uploads",
		},
		JWT: JWTConfig{
			ExpiresIn:        15 * time.Minute,
			RefreshExpiresIn: 7 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Window:      15 * time.Minute,
			MaxRequests: 100,
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"port":                   "server.port",
	"node_env":               "server.env",
	"app_env":                "server.env",
	"cors_origin":            "server.cors_origin",
	"frontend_url":           "server.frontend_url",
	"base_url":               "server.base_url",
	"upload_dir":             "server.upload_dir",
	"database_url":           "database.url",
	"jwt_secret":             "jwt.secret",
	"jwt_refresh_secret":     "jwt.refresh_secret",
	"jwt_expires_in":         "jwt.expires_in",
	"jwt_refresh_expires_in": "jwt.refresh_expires_in",
	"rate_limit_window":      "rate_limit.window",
	"rate_limit_max":         "rate_limit.max_requests",
	"redis_url":              "redis.url",
	"gemini_api_key":         "gemini.api_key",
	"gemini_model":           "gemini.model",
	"google_client_id":       "google.client_id",
	"google_client_secret":   "google.client_secret",
	"google_callback_url":    "google.callback_url",
	"log_level":              "log.level",
	"log_format":             "log.format",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration: defaults < config file < .env < environment.
func Load() (*Config, error) {
	utils.LoadEnv()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = postgresURLFromParts()
	}
	if cfg.JWT.RefreshSecret == "" {
		cfg.JWT.RefreshSecret = cfg.JWT.Secret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// postgresURLFromParts builds a DSN from the individual POSTGRES_* variables.
func postgresURLFromParts() string {
	return "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
		utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
		utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
		utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
		utils.GetEnv("POSTGRES_DB", "chatdb") + "?sslmode=disable"
}

// Validate checks settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.ExpiresIn <= 0 || c.JWT.RefreshExpiresIn <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0 {
		errs = append(errs, errors.New("rate limit window and max must be positive"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs with a production environment name.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GoogleCallbackURL returns the configured OAuth redirect or the local default.
func (c *Config) GoogleCallbackURL() string {
	if c.Google.CallbackURL != "" {
		return c.Google.CallbackURL
	}
	if c.Server.BaseURL != "" {
		return strings.TrimRight(c.Server.BaseURL, "/") + "/api/auth/google/callback"
	}
	return "http://localhost:" + c.Server.Port + "/api/auth/google/callback"
}
