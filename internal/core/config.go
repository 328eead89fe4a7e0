package core

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Config holds runtime configuration for a bridge runtime.
type Config struct {
	// MemoryLimitMB caps each isolate's heap. 0 keeps the engine default.
	MemoryLimitMB int `validate:"gte=0"`
	// MaxConversionDepth limits nesting for Go <-> script conversion.
	MaxConversionDepth int `validate:"gte=1,lte=1024"`
	// MaxExportNodes caps the values visited by one script to Go export,
	// array elements included. Larger structures export as absent.
	MaxExportNodes int `validate:"gte=1"`
	// MinTimerInterval is the floor for setInterval periods.
	MinTimerInterval time.Duration `validate:"gte=0"`
	// PoolSize is the number of runtimes per Pool.
	PoolSize int `validate:"gte=0,lte=256"`

	EnableConsole bool // install the zap-backed console global
	EnableTimers  bool // install setTimeout/setInterval

	// Logger receives runtime and console output. nil falls back to Logger().
	Logger *zap.Logger `validate:"-"`
}

// DefaultConfig returns a configuration with console and timers enabled and
// no memory limit.
func DefaultConfig() Config {
	return Config{
		MaxConversionDepth: 64,
		MaxExportNodes:     100_000,
		MinTimerInterval:   10 * time.Millisecond,
		PoolSize:           4,
		EnableConsole:      true,
		EnableTimers:       true,
	}
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the config field constraints.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
