package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_RejectsInvertedPacing(t *testing.T) {
	cfg := Default()
	cfg.Scheduler.MinDelaySeconds = 60
	cfg.Scheduler.MaxDelaySeconds = 30
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsBadWindowAndAccount(t *testing.T) {
	cfg := Default()
	cfg.Browser.WindowSize = "wide"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Platforms["tumblr"] = PlatformConfig{}
	assert.Error(t, cfg.Validate())
}

func TestParseWindowSize(t *testing.T) {
	w, h, err := ParseWindowSize("1280, 800")
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 800, h)

	for _, bad := range []string{"", "1280", "a,b", "0,800", "1280,800,1"} {
		_, _, err := ParseWindowSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseSleepRange(t *testing.T) {
	lo, hi, err := ParseSleepRange("3,9.5")
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, lo)
	assert.Equal(t, 9500*time.Millisecond, hi)

	for _, bad := range []string{"3", "x,1", "5,1", "-1,2"} {
		_, _, err := ParseSleepRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadOrCreate_WritesDefaultsThenReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Default(), cfg)

	cfg, created, err = LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "ghost01", cfg.Platforms["tumblr"].Account)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[scheduler]\nqueue_path = \"q.csv\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "q.csv", cfg.Scheduler.QueuePath)
	assert.Equal(t, "logs/posted.sqlite", cfg.Scheduler.LedgerPath)
	assert.Equal(t, 50, cfg.Poster.TimeoutSeconds)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[poster]\ntimeout = 3\n"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "poster.timeout")
}
