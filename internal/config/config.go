package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/brk3/habitkit/pkg/calendar"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	APIBaseURL    string               `yaml:"api_base_url"`
	ListenAddr    string               `yaml:"listen_addr"`
	DBPath        string               `yaml:"db_path"`
	StorageDriver string               `yaml:"storage_driver"`
	Timezone      string               `yaml:"timezone"`
	AuthEnabled   bool                 `yaml:"auth_enabled"`
	AuthToken     string               `yaml:"auth_token"`
	OIDCProviders []OIDCProviderConfig `yaml:"oidc_providers"`
	RateLimit     RateLimitConfig      `yaml:"rate_limit"`
	Nudge         NudgeConfig          `yaml:"nudge"`
}

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

// RateLimitConfig caps requests per client IP. A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type NudgeConfig struct {
	ResendAPIKey string `yaml:"resend_api_key"`
	From         string `yaml:"from"`
	Email        string `yaml:"email"`
	// RiskAfter ("HH:mm") is the earliest time of day at-risk streak
	// warnings are sent. Empty means any time.
	RiskAfter string `yaml:"risk_after"`
}

func defaults() Config {
	return Config{
		APIBaseURL:    "http://localhost:8080",
		ListenAddr:    ":8080",
		DBPath:        "habits.db",
		StorageDriver: "bolt",
		RateLimit:     RateLimitConfig{RPS: 10, Burst: 20},
		Nudge:         NudgeConfig{From: "onboarding@resend.dev"},
	}
}

// Load reads an optional .env file, then the YAML file named by
// HABITS_CONFIG, then applies HABITS_* environment overrides. A missing
// config.yaml is only an error when HABITS_CONFIG names it explicitly.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := defaults()

	path := os.Getenv("HABITS_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.APIBaseURL = getenv("HABITS_API_BASE", cfg.APIBaseURL)
	cfg.ListenAddr = getenv("HABITS_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getenv("HABITS_DB_PATH", cfg.DBPath)
	cfg.StorageDriver = getenv("HABITS_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.Timezone = getenv("HABITS_TIMEZONE", cfg.Timezone)
	cfg.AuthToken = getenv("HABITS_AUTH_TOKEN", cfg.AuthToken)
	cfg.Nudge.ResendAPIKey = getenv("HABITS_RESEND_API_KEY", cfg.Nudge.ResendAPIKey)
	cfg.Nudge.Email = getenv("HABITS_NOTIFY_EMAIL", cfg.Nudge.Email)
	cfg.Nudge.RiskAfter = getenv("HABITS_NUDGE_RISK_AFTER", cfg.Nudge.RiskAfter)
	if v := os.Getenv("HABITS_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("HABITS_AUTH_ENABLED: %w", err)
		}
		cfg.AuthEnabled = enabled
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.StorageDriver {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown storage_driver %q", c.StorageDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit.burst must be positive when rps is set")
	}
	if c.Nudge.RiskAfter != "" {
		if _, _, err := calendar.ParseClock(c.Nudge.RiskAfter); err != nil {
			return fmt.Errorf("nudge.risk_after: %w", err)
		}
	}
	if c.AuthEnabled && len(c.OIDCProviders) == 0 {
		return fmt.Errorf("auth_enabled requires at least one oidc provider")
	}
	seen := make(map[string]bool)
	for i, p := range c.OIDCProviders {
		if p.Id == "" || p.IssuerURL == "" || p.ClientID == "" {
			return fmt.Errorf("oidc_providers[%d]: id, issuer_url and client_id are required", i)
		}
		if seen[p.Id] {
			return fmt.Errorf("oidc_providers[%d]: duplicate id %q", i, p.Id)
		}
		seen[p.Id] = true
	}
	return nil
}

// Location is the zone calendar days are evaluated in. An empty timezone
// means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
