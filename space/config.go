// ABOUTME: Space configuration loaded from YAML
// ABOUTME: Controls the address range, verification passes and log level

package space

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prateek/gcdesc/gc"
)

// ErrInvalidConfig is returned for configurations that fail validation.
var ErrInvalidConfig = errors.New("invalid space config")

// Config controls a space and its collector.
type Config struct {
	// Base is the first address handed out; compaction slides objects back to it.
	Base uint64 `yaml:"base"`
	// Limit caps the bytes in use. Zero means unbounded.
	Limit uint64 `yaml:"limit"`
	// VerifyPasses is the number of extra enumeration passes run over every
	// marked object to check the descriptors enumerate deterministically.
	VerifyPasses int `yaml:"verify_passes"`
	// LogLevel is passed to the logger when the space creates its own.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Base:         0x1000,
		VerifyPasses: 1,
		LogLevel:     "INFO",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Base == 0 {
		return fmt.Errorf("%w: base must be non-zero", ErrInvalidConfig)
	}
	if c.Base%gc.WordSize != 0 {
		return fmt.Errorf("%w: base %#x is not %d-byte aligned", ErrInvalidConfig, c.Base, gc.WordSize)
	}
	if c.VerifyPasses < 0 {
		return fmt.Errorf("%w: verify_passes %d is negative", ErrInvalidConfig, c.VerifyPasses)
	}
	if c.LogLevel == "" {
		return fmt.Errorf("%w: log_level is empty", ErrInvalidConfig)
	}
	return nil
}

// ParseConfig decodes YAML over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return ParseConfig(data)
}
