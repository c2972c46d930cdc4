// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/paqkit/paqkit/lib/method"
)

// EnvironmentVariable names the config file when no --config flag is
// given.
const EnvironmentVariable = "PAQ_CONFIG"

// Config holds the paq command defaults. Every field can be overridden
// by a command-line flag.
type Config struct {
	// Method is the default method descriptor.
	// Default: 2
	Method string `yaml:"method" json:"method"`

	// Threads is the number of compression workers. 0 means one per CPU.
	Threads int `yaml:"threads" json:"threads"`

	// Checksum stores a SHA-1 in every segment trailer.
	// Default: true
	Checksum bool `yaml:"checksum" json:"checksum"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level" json:"log_level"`

	// PassphraseFile is read by encrypt and decrypt when no passphrase
	// is given interactively. ${HOME} and ${VAR:-default} are expanded.
	PassphraseFile string `yaml:"passphrase_file" json:"passphrase_file"`

	// Profile selects one entry of Profiles to apply over the base
	// values.
	Profile  string                      `yaml:"profile" json:"profile"`
	Profiles map[string]ProfileOverrides `yaml:"profiles,omitempty" json:"profiles,omitempty"`
}

// ProfileOverrides contains the fields a profile can change. Empty
// fields keep the base value.
type ProfileOverrides struct {
	Method   string `yaml:"method,omitempty" json:"method,omitempty"`
	Threads  *int   `yaml:"threads,omitempty" json:"threads,omitempty"`
	Checksum *bool  `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// Default returns the configuration used when no file is named.
func Default() *Config {
	return &Config{
		Method:   "2",
		Checksum: true,
		LogLevel: "info",
	}
}

// Load loads the file named by PAQ_CONFIG. It fails if the variable is
// not set.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your paq config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(path)
}

// Resolve picks the config source for a command: the flag path if
// set, then PAQ_CONFIG, then Default.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if os.Getenv(EnvironmentVariable) != "" {
		return Load()
	}
	return Default(), nil
}

// LoadFile loads a YAML file, or a JSON file with comments when the
// extension is .json or .jsonc, over the defaults. The selected profile
// is applied and paths are expanded.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if err := cfg.applyProfile(); err != nil {
		return nil, err
	}
	cfg.PassphraseFile = expandVars(cfg.PassphraseFile)
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return json.Unmarshal(jsonc.ToJSON(data), c)
	default:
		return yaml.Unmarshal(data, c)
	}
}

func (c *Config) applyProfile() error {
	if c.Profile == "" {
		return nil
	}
	overrides, ok := c.Profiles[c.Profile]
	if !ok {
		return fmt.Errorf("profile %q is not defined", c.Profile)
	}
	if overrides.Method != "" {
		c.Method = overrides.Method
	}
	if overrides.Threads != nil {
		c.Threads = *overrides.Threads
	}
	if overrides.Checksum != nil {
		c.Checksum = *overrides.Checksum
	}
	return nil
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if _, err := method.Parse(c.Method); err != nil {
		errs = append(errs, fmt.Errorf("method: %w", err))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("threads must not be negative, got %d", c.Threads))
	}
	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}
	for name, profile := range c.Profiles {
		if profile.Method == "" {
			continue
		}
		if _, err := method.Parse(profile.Method); err != nil {
			errs = append(errs, fmt.Errorf("profiles.%s.method: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// WorkerCount returns Threads, or the CPU count when Threads is 0.
func (c *Config) WorkerCount() int {
	if c.Threads > 0 {
		return c.Threads
	}
	return runtime.NumCPU()
}

// SlogLevel converts LogLevel for a slog handler. Unknown values map
// to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
