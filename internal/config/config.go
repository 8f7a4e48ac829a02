// Package config loads runtime configuration from TASKGATE_* environment variables.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "TASKGATE"

// Config holds runtime configuration for the API server and migration tool.
type Config struct {
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080"`
	HTTPReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`

	PGDSN string `envconfig:"PG_DSN"`

	JWTSecret  string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL     time.Duration `envconfig:"JWT_TTL" default:"168h"`
	JWTIssuer  string        `envconfig:"JWT_ISSUER" default:"taskgate"`
	BcryptCost int           `envconfig:"BCRYPT_COST" default:"10"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	LoginRate        float64  `envconfig:"LOGIN_RATE" default:"1"`
	LoginBurst       int      `envconfig:"LOGIN_BURST" default:"5"`
	APIRatePerMinute int      `envconfig:"API_RATE_PER_MINUTE" default:"600"`
	MaxBodyBytes     int64    `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	CORSOrigins      []string `envconfig:"CORS_ORIGINS"`
	TrustProxy       bool     `envconfig:"TRUST_PROXY"`

	SeedOnStart              bool   `envconfig:"SEED_ON_START" default:"true"`
	SeedSuperAdminEmail      string `envconfig:"SEED_SUPER_ADMIN_EMAIL" default:"superadmin@platform.com"`
	SeedSuperAdminPassword   string `envconfig:"SEED_SUPER_ADMIN_PASSWORD"`
	SeedDefaultOrganizations bool   `envconfig:"SEED_DEFAULT_ORGANIZATIONS" default:"true"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("jwt secret must be provided")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("jwt secret must be at least 16 characters")
	}
	if c.JWTTTL <= 0 {
		return errors.New("jwt ttl must be positive")
	}
	if c.LoginRate <= 0 || c.LoginBurst <= 0 {
		return errors.New("login rate and burst must be positive")
	}
	if c.APIRatePerMinute < 0 {
		return errors.New("api rate must not be negative")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	return nil
}

// UsesDatabase reports whether a PostgreSQL DSN is configured.
func (c *Config) UsesDatabase() bool {
	return c != nil && strings.TrimSpace(c.PGDSN) != ""
}
