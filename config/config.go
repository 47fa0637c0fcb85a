package config

import (
	"context"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/arigato/aubridge/bridge"
	"github.com/arigato/aubridge/errors"
	"github.com/arigato/aubridge/resource"
	"github.com/arigato/aubridge/runtime"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the host configuration read from ARIGATO_* variables.
type Config struct {
	Ownership        bridge.Ownership `env:"ARIGATO_OWNERSHIP, default=non-owning"`
	LogFormat        string           `env:"ARIGATO_LOG_FORMAT, default=console"`
	MaxHandles       int              `env:"ARIGATO_MAX_HANDLES, default=1024"`
	MemoryLimitPages uint32           `env:"ARIGATO_MEMORY_LIMIT_PAGES"`
	LogLevel         zapcore.Level    `env:"ARIGATO_LOG_LEVEL, default=info"`
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// skipped. With no paths it reads ".env".
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "load "+p)
		}
	}
	return nil
}

// NewFromEnv reads the configuration from the process environment.
func NewFromEnv(ctx context.Context) (*Config, error) {
	return NewFromLookuper(ctx, envconfig.OsLookuper())
}

// NewFromLookuper reads the configuration from l.
func NewFromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "process environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges envconfig cannot express.
func (c *Config) Validate() error {
	if c.MaxHandles <= 0 {
		return errors.InvalidInput(errors.PhaseConfig, "ARIGATO_MAX_HANDLES must be positive")
	}
	switch strings.ToLower(c.LogFormat) {
	case FormatConsole, FormatJSON:
	default:
		return errors.InvalidInput(errors.PhaseConfig, "ARIGATO_LOG_FORMAT must be console or json, got "+c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger: production JSON output for the json
// format, human-readable development output otherwise.
func (c *Config) NewLogger() (*zap.Logger, error) {
	var zc zap.Config
	if strings.ToLower(c.LogFormat) == FormatJSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	zc.OutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "build logger")
	}
	return l, nil
}

// TableOptions returns the object table options for c.
func (c *Config) TableOptions() []resource.Option {
	return []resource.Option{resource.WithCapacity(c.MaxHandles)}
}

// BridgeOptions returns the bridge options for c, logging through l.
func (c *Config) BridgeOptions(l *zap.Logger) []bridge.Option {
	return []bridge.Option{
		bridge.WithOwnership(c.Ownership),
		bridge.WithLogger(l),
	}
}

// RuntimeConfig returns the guest runtime configuration for c.
func (c *Config) RuntimeConfig() *runtime.Config {
	return &runtime.Config{MemoryLimitPages: c.MemoryLimitPages}
}
