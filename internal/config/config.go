package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"blockerday/internal/model"
)

const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultSeed        = "default-seed"
	DefaultName        = "Blocker.day"
	DefaultTimezone    = "America/Toronto"
	DefaultRedirect    = "http://github.com/andesco/blocker.day"
	DefaultDigestCron  = "0 0 * * *"
	DefaultDays        = 14
	DefaultProbability = 0.5

	MinDays        = 1
	MaxDays        = 21
	MinProbability = 0.01
	MaxProbability = 0.99

	// DigestOff disables the daily digest job.
	DigestOff = "off"
)

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Redirect is where / and /index.html send visitors.
	Redirect string `yaml:"redirect"`

	// DigestCron is the UTC cron schedule of the daily digest log, or "off".
	DigestCron string `yaml:"digest_cron"`

	// Seed is the default seed salt.
	Seed string `yaml:"seed"`

	// SeedViaURL allows the ?seed= query parameter to replace Seed.
	SeedViaURL bool `yaml:"seed_via_url"`

	// Days is the default number of days after today, within [1,21].
	Days int `yaml:"days"`

	// Hours is the default block size, one of model.AllowedBlockHours.
	Hours float64 `yaml:"hours"`

	// Probability is the default busy probability, within [0.01,0.99].
	Probability float64 `yaml:"probability"`

	// Name is the calendar title and event summary.
	Name string `yaml:"name"`

	// Timezone is the TZID written into the feed.
	Timezone string `yaml:"timezone"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      DefaultListen,
		LogLevel:    "info",
		Redirect:    DefaultRedirect,
		DigestCron:  DefaultDigestCron,
		Seed:        DefaultSeed,
		SeedViaURL:  false,
		Days:        DefaultDays,
		Hours:       model.DefaultBlockHours,
		Probability: DefaultProbability,
		Name:        DefaultName,
		Timezone:    DefaultTimezone,
	}
}

// Normalize fills zero values with defaults and forces every generation
// parameter into its allowed range.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Redirect == "" {
		c.Redirect = DefaultRedirect
	}
	if c.DigestCron == "" {
		c.DigestCron = DefaultDigestCron
	}
	if c.Seed == "" {
		c.Seed = DefaultSeed
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}

	// Zero means unset in YAML, as with the other fields.
	if c.Days == 0 {
		c.Days = DefaultDays
	}
	c.Days = ClampDays(c.Days)

	if c.Probability == 0 || math.IsNaN(c.Probability) {
		c.Probability = DefaultProbability
	}
	c.Probability = ClampProbability(c.Probability)

	c.Hours = model.ResolveBlockHours(c.Hours)
}

// DigestEnabled reports whether the daily digest job should run.
func (c *Config) DigestEnabled() bool {
	return !strings.EqualFold(strings.TrimSpace(c.DigestCron), DigestOff)
}

// ClampDays keeps a day count within [MinDays, MaxDays].
func ClampDays(n int) int {
	return max(MinDays, min(n, MaxDays))
}

// ClampProbability keeps p within [MinProbability, MaxProbability]. NaN
// maps to the minimum.
func ClampProbability(p float64) float64 {
	if math.IsNaN(p) {
		return MinProbability
	}
	return math.Max(MinProbability, math.Min(p, MaxProbability))
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. Missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (if path is non-empty), then environment overrides.
//
// Behavior for a non-empty path:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - If the file exists:
//   - read YAML and unmarshal into Config
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// First run: create default config file.
			if err := Save(path, cfg); err != nil {
				return nil, fmt.Errorf("write default config: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)
	cfg.Normalize()
	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".blockerday-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Generation returns the feed parameters before any request overrides.
func (c *Config) Generation() model.GenerationConfig {
	return model.GenerationConfig{
		SeedSalt:         c.Seed,
		BlockProbability: c.Probability,
		CalendarName:     c.Name,
		Timezone:         c.Timezone,
		BlockHours:       c.Hours,
		TotalDays:        c.Days,
	}
}
