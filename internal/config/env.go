package config

import (
	"math"
	"os"
	"strconv"
	"strings"

	"blockerday/internal/model"
)

// applyEnv overrides cfg with the service's environment variables. Values
// that do not parse leave the current setting in place.
func applyEnv(cfg *Config) {
	cfg.Listen = getenvDefault("LISTEN", cfg.Listen)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Redirect = getenvDefault("REDIRECT", cfg.Redirect)
	cfg.DigestCron = getenvDefault("DIGEST_CRON", cfg.DigestCron)
	cfg.Seed = getenvDefault("SEED", cfg.Seed)
	cfg.SeedViaURL = getenvBool("SEED_VIA_URL", cfg.SeedViaURL)
	// Explicit numbers are clamped here so that 0 is not mistaken for unset.
	cfg.Days = ClampDays(getenvInt("DAYS", cfg.Days))
	cfg.Hours = model.ResolveBlockHours(getenvFloat("HOURS", cfg.Hours))
	cfg.Probability = ClampProbability(getenvFloat("PROBABILITY", cfg.Probability))
	cfg.Name = getenvDefault("NAME", cfg.Name)
	cfg.Timezone = getenvDefault("TIMEZONE", cfg.Timezone)
}

func getenvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return parseFlag(value)
}

func getenvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, ok := parseNumber(value)
	if !ok {
		return fallback
	}
	return f
}

// parseFlag accepts true, 1 and yes in any case; everything else is false.
func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// parseNumber parses a float and rejects NaN.
func parseNumber(v string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
