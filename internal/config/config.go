package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Capacity policies.
const (
	CapacityAdvisory = "advisory"
	CapacityStrict   = "strict"

	UnknownUnlimited = "unlimited"
	UnknownZero      = "zero"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	AuthIssuer      string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey  string        `mapstructure:"AUTH_SIGNING_KEY"`
	DefaultTenant   string        `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	CapacityPolicy  string        `mapstructure:"CAPACITY_POLICY"`
	CapacityUnknown string        `mapstructure:"CAPACITY_UNKNOWN"`
	MigrationsDir   string        `mapstructure:"MIGRATIONS_DIR"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY",
	"DEFAULT_TENANT", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "CAPACITY_POLICY", "CAPACITY_UNKNOWN", "MIGRATIONS_DIR",
}

// Load reads .env when present, then the environment. DATABASE_URL is required.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("CAPACITY_POLICY", CapacityAdvisory)
	v.SetDefault("CAPACITY_UNKNOWN", UnknownUnlimited)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Unmarshal only sees env vars that are bound.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// StrictCapacity reports whether bookings over the clinic's daily ceiling are refused.
func (c *Config) StrictCapacity() bool {
	return c.CapacityPolicy == CapacityStrict
}

// UnknownCapacityIsZero reports whether a clinic without a ceiling is treated as full.
func (c *Config) UnknownCapacityIsZero() bool {
	return c.CapacityUnknown == UnknownZero
}

// Validate checks that the configuration is safe to run. Outside development
// some way of verifying tokens must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthIssuer == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("ENV=%q requires AUTH_SIGNING_KEY, AUTH_JWKS_URL or AUTH_ISSUER", c.Env)
	}
	if !c.IsDev() && c.AuthSigningKey == "" && c.AuthJWKSURL == "" {
		return fmt.Errorf("AUTH_JWKS_URL is required when verifying tokens from %q", c.AuthIssuer)
	}
	switch c.CapacityPolicy {
	case CapacityAdvisory, CapacityStrict:
	default:
		return fmt.Errorf("CAPACITY_POLICY must be %q or %q, got %q", CapacityAdvisory, CapacityStrict, c.CapacityPolicy)
	}
	switch c.CapacityUnknown {
	case UnknownUnlimited, UnknownZero:
	default:
		return fmt.Errorf("CAPACITY_UNKNOWN must be %q or %q, got %q", UnknownUnlimited, UnknownZero, c.CapacityUnknown)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	return nil
}
