// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"token-launchpad/internal/domain"
)

// Config holds every setting of the launchpad server.
type Config struct {
	HTTPAddr        string        `env:"LAUNCHPAD_HTTP_ADDR" envDefault:":8080"`
	MetricsAddr     string        `env:"LAUNCHPAD_METRICS_ADDR" envDefault:":9090"`
	ShutdownTimeout time.Duration `env:"LAUNCHPAD_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LockWaitTimeout is how long a lock may be waited on before it is
	// reported as a potential deadlock. Zero disables the check.
	LockWaitTimeout time.Duration `env:"LAUNCHPAD_LOCK_WAIT_TIMEOUT" envDefault:"2m"`

	UseMemory     bool   `env:"LAUNCHPAD_USE_MEMORY" envDefault:"false"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	ClickhouseDSN string `env:"CLICKHOUSE_DSN"`

	// TokenRPCEndpoint is the token contract JSON-RPC endpoint. Empty selects
	// the in-memory token contract, allowed only with UseMemory.
	TokenRPCEndpoint string        `env:"LAUNCHPAD_TOKEN_RPC"`
	TokenRPCTimeout  time.Duration `env:"LAUNCHPAD_TOKEN_RPC_TIMEOUT" envDefault:"30s"`

	Owner          domain.Identity `env:"LAUNCHPAD_OWNER,required"`
	Self           domain.Identity `env:"LAUNCHPAD_SELF,required"`
	FeeRecipient   domain.Identity `env:"LAUNCHPAD_FEE_RECIPIENT"` // defaults to Owner
	FeeBasisPoints uint16          `env:"LAUNCHPAD_FEE_BPS" envDefault:"200"`

	RequireTokenDeposit bool `env:"LAUNCHPAD_REQUIRE_DEPOSIT" envDefault:"true"`
	StrictIdentities    bool `env:"LAUNCHPAD_STRICT_IDENTITIES" envDefault:"false"`

	// Block clock: height = (now - Genesis) / BlockInterval.
	Genesis       time.Time     `env:"LAUNCHPAD_GENESIS"`
	BlockInterval time.Duration `env:"LAUNCHPAD_BLOCK_INTERVAL" envDefault:"1s"`

	ArchiveBatch         int           `env:"LAUNCHPAD_ARCHIVE_BATCH" envDefault:"100"`
	ArchiveFlushInterval time.Duration `env:"LAUNCHPAD_ARCHIVE_FLUSH_INTERVAL" envDefault:"5s"`
	StreamBuffer         int           `env:"LAUNCHPAD_STREAM_BUFFER" envDefault:"64"`

	LogLevel  string `env:"LAUNCHPAD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LAUNCHPAD_LOG_FORMAT" envDefault:"json"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	LoadEnvFile(".env")

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.FeeRecipient.IsZero() {
		c.FeeRecipient = c.Owner
	}
	if c.Genesis.IsZero() {
		c.Genesis = time.Now().UTC()
	}
}

// Validate checks settings that cannot be expressed as env tags.
func (c *Config) Validate() error {
	var errs []error
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		errs = append(errs, errors.New("POSTGRES_DSN and CLICKHOUSE_DSN are required (set LAUNCHPAD_USE_MEMORY=true for in-memory storage)"))
	}
	if !c.UseMemory && c.TokenRPCEndpoint == "" {
		errs = append(errs, errors.New("LAUNCHPAD_TOKEN_RPC is required outside memory mode"))
	}
	if c.Owner.IsZero() {
		errs = append(errs, errors.New("LAUNCHPAD_OWNER must not be the zero identity"))
	}
	if c.Self.IsZero() {
		errs = append(errs, errors.New("LAUNCHPAD_SELF must not be the zero identity"))
	}
	if c.FeeBasisPoints > domain.MaxBasisPoints {
		errs = append(errs, fmt.Errorf("LAUNCHPAD_FEE_BPS %d exceeds %d", c.FeeBasisPoints, domain.MaxBasisPoints))
	}
	if c.BlockInterval <= 0 {
		errs = append(errs, errors.New("LAUNCHPAD_BLOCK_INTERVAL must be positive"))
	}
	if c.LockWaitTimeout < 0 {
		errs = append(errs, errors.New("LAUNCHPAD_LOCK_WAIT_TIMEOUT must not be negative"))
	}
	if c.ArchiveFlushInterval <= 0 {
		errs = append(errs, errors.New("LAUNCHPAD_ARCHIVE_FLUSH_INTERVAL must be positive"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LAUNCHPAD_LOG_FORMAT %q: want json or console", c.LogFormat))
	}
	return errors.Join(errs...)
}

// LoadEnvFile loads environment variables from path if it exists.
// Variables already set are not overridden.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
