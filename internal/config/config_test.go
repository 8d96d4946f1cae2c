package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"LISTEN", "LOG_LEVEL", "REDIRECT", "DIGEST_CRON", "SEED", "SEED_VIA_URL",
	"DAYS", "HOURS", "PROBABILITY", "NAME", "TIMEZONE",
}

// clearEnv unsets every variable Load reads; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	gc := cfg.Generation()
	require.Equal(t, "default-seed", gc.SeedSalt)
	require.Equal(t, 14, gc.TotalDays)
	require.Equal(t, 3.0, gc.BlockHours)
	require.Equal(t, 0.5, gc.BlockProbability)
	require.Equal(t, "Blocker.day", gc.CalendarName)
	require.Equal(t, "America/Toronto", gc.Timezone)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEED", "team-a")
	t.Setenv("SEED_VIA_URL", "YES")
	t.Setenv("DAYS", "30")
	t.Setenv("HOURS", "0.5")
	t.Setenv("PROBABILITY", "0")
	t.Setenv("NAME", "Focus")
	t.Setenv("TIMEZONE", "Europe/Paris")
	t.Setenv("DIGEST_CRON", "off")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "team-a", cfg.Seed)
	require.True(t, cfg.SeedViaURL)
	require.Equal(t, 21, cfg.Days)
	require.Equal(t, 0.5, cfg.Hours)
	require.Equal(t, 0.01, cfg.Probability)
	require.Equal(t, "Focus", cfg.Name)
	require.Equal(t, "Europe/Paris", cfg.Timezone)
	require.False(t, cfg.DigestEnabled())
}

func TestLoadInvalidEnvFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("DAYS", "many")
	t.Setenv("HOURS", "5")
	t.Setenv("PROBABILITY", "NaN")
	t.Setenv("SEED_VIA_URL", "sure")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 14, cfg.Days)
	require.Equal(t, 3.0, cfg.Hours)
	require.Equal(t, 0.5, cfg.Probability)
	require.False(t, cfg.SeedViaURL)
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "seed: from-file\ndays: 3\nhours: 8\nprobability: 1.5\nname: File Cal\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("NAME", "Env Cal")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Seed)
	require.Equal(t, 3, cfg.Days)
	require.Equal(t, 8.0, cfg.Hours)
	require.Equal(t, 0.99, cfg.Probability)
	require.Equal(t, "Env Cal", cfg.Name)
	require.Equal(t, DefaultTimezone, cfg.Timezone)
}

func TestLoadBadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("days: [1, 2"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveValidation(t *testing.T) {
	require.Error(t, Save("", DefaultConfig()))
	require.Error(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil))
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Seed = "saved"
	cfg.Days = 99
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "saved", loaded.Seed)
	require.Equal(t, 21, loaded.Days)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEED=dotenv-seed\n"), 0o600))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "dotenv-seed", os.Getenv("SEED"))
}

func TestClamps(t *testing.T) {
	require.Equal(t, 1, ClampDays(-4))
	require.Equal(t, 1, ClampDays(0))
	require.Equal(t, 7, ClampDays(7))
	require.Equal(t, 21, ClampDays(22))

	require.Equal(t, 0.01, ClampProbability(0))
	require.Equal(t, 0.01, ClampProbability(-1))
	require.Equal(t, 0.42, ClampProbability(0.42))
	require.Equal(t, 0.99, ClampProbability(1))
}

func TestResolveQueryOverrides(t *testing.T) {
	cfg := DefaultConfig()
	q := url.Values{"days": {"0"}, "hours": {"12"}, "probability": {"0.75"}, "seed": {"ignored"}}

	gc := cfg.Resolve(q)
	require.Equal(t, "default-seed", gc.SeedSalt)
	require.Equal(t, 1, gc.TotalDays)
	require.Equal(t, 12.0, gc.BlockHours)
	require.Equal(t, 0.75, gc.BlockProbability)
}

func TestResolveSeedViaURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeedViaURL = true

	require.Equal(t, "mine", cfg.Resolve(url.Values{"seed": {"mine"}}).SeedSalt)
	require.Equal(t, "default-seed", cfg.Resolve(url.Values{"seed": {""}}).SeedSalt)
}

func TestResolveInvalidValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Days = 5

	gc := cfg.Resolve(url.Values{"days": {"soon"}, "hours": {"abc"}, "probability": {"NaN"}})
	require.Equal(t, 5, gc.TotalDays)
	require.Equal(t, 3.0, gc.BlockHours)
	require.Equal(t, 0.5, gc.BlockProbability)

	// out-of-enumeration block size falls back to 3 hours
	require.Equal(t, 3.0, cfg.Resolve(url.Values{"hours": {"5"}}).BlockHours)
	require.Equal(t, 0.99, cfg.Resolve(url.Values{"probability": {"Inf"}}).BlockProbability)
	require.Equal(t, 21, cfg.Resolve(url.Values{"days": {"100"}}).TotalDays)
}
