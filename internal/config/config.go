package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds all application configuration
type Config struct {
	Version   int                       `toml:"version"`
	Log       LogConfig                 `toml:"log"`
	Browser   BrowserConfig             `toml:"browser"`
	Poster    PosterConfig              `toml:"poster"`
	Scheduler SchedulerConfig           `toml:"scheduler"`
	Platforms map[string]PlatformConfig `toml:"platforms"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

type BrowserConfig struct {
	Headless   bool   `toml:"headless"`
	Proxy      string `toml:"proxy"` // http://host:port or socks5://host:port
	UserAgent  string `toml:"user_agent"`
	ProfileDir string `toml:"profile_dir"`
	WindowSize string `toml:"window_size"`
	Lang       string `toml:"lang"`
	ExecPath   string `toml:"exec_path"`
}

type PosterConfig struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	PrePostSleep   string `toml:"pre_post_sleep"` // "min,max" in seconds
	DryRun         bool   `toml:"dry_run"`
	ArtifactsDir   string `toml:"artifacts_dir"`
	KeystrokeMinMS int    `toml:"keystroke_min_ms"`
	KeystrokeMaxMS int    `toml:"keystroke_max_ms"`
	TagDelayMS     int    `toml:"tag_delay_ms"`
}

type SchedulerConfig struct {
	QueuePath       string `toml:"queue_path"`
	LedgerPath      string `toml:"ledger_path"`
	MinDelaySeconds int    `toml:"min_delay_seconds"`
	MaxDelaySeconds int    `toml:"max_delay_seconds"`
	Schedule        string `toml:"schedule"` // cron expression; empty runs a single cycle
	Timezone        string `toml:"timezone"`
}

// PlatformConfig binds a platform name to the account and poster used for it
type PlatformConfig struct {
	Account     string   `toml:"account"`
	CookiesPath string   `toml:"cookies_path"`
	Command     []string `toml:"command"` // poster argv prefix; empty means "<self> post --platform <name>"
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Browser: BrowserConfig{
			Headless:   false,
			WindowSize: "1280,800",
			Lang:       "fr-FR",
		},
		Poster: PosterConfig{
			TimeoutSeconds: 50,
			PrePostSleep:   "0,0",
			ArtifactsDir:   "logs/artifacts",
			KeystrokeMinMS: 20,
			KeystrokeMaxMS: 80,
			TagDelayMS:     200,
		},
		Scheduler: SchedulerConfig{
			QueuePath:       "data/queue.csv",
			LedgerPath:      "logs/posted.sqlite",
			MinDelaySeconds: 30,
			MaxDelaySeconds: 60,
			Timezone:        "UTC",
		},
		Platforms: map[string]PlatformConfig{
			"tumblr": {
				Account:     "ghost01",
				CookiesPath: "cookies/tumblr_ghost01.json",
			},
		},
	}
}

// Validate reports configuration values that would break a run
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Log),
		validation.Field(&c.Browser),
		validation.Field(&c.Poster),
		validation.Field(&c.Scheduler),
	)
	if err != nil {
		return err
	}
	for name, p := range c.Platforms {
		if strings.TrimSpace(p.Account) == "" {
			return fmt.Errorf("platforms.%s: account: cannot be blank", name)
		}
	}
	return nil
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("", "debug", "info", "warn", "warning", "error")),
		validation.Field(&l.Format, validation.In("", "text", "json")),
	)
}

func (b BrowserConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.WindowSize, validation.By(func(interface{}) error {
			if b.WindowSize == "" {
				return nil
			}
			_, _, err := ParseWindowSize(b.WindowSize)
			return err
		})),
	)
}

func (p PosterConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.TimeoutSeconds, validation.Min(0)),
		validation.Field(&p.KeystrokeMinMS, validation.Min(0)),
		validation.Field(&p.KeystrokeMaxMS, validation.Min(p.KeystrokeMinMS)),
		validation.Field(&p.TagDelayMS, validation.Min(0)),
		validation.Field(&p.PrePostSleep, validation.By(func(interface{}) error {
			if p.PrePostSleep == "" {
				return nil
			}
			_, _, err := ParseSleepRange(p.PrePostSleep)
			return err
		})),
	)
}

func (s SchedulerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.QueuePath, validation.Required),
		validation.Field(&s.LedgerPath, validation.Required),
		validation.Field(&s.MinDelaySeconds, validation.Min(0)),
		validation.Field(&s.MaxDelaySeconds, validation.Min(s.MinDelaySeconds)),
	)
}

// Timeout returns the poster's element wait timeout
func (p PosterConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ParseWindowSize parses "width,height"
func ParseWindowSize(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid window size %q: want width,height", s)
	}
	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid window width in %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid window height in %q", s)
	}
	return w, h, nil
}

// ParseSleepRange parses "min,max" in (fractional) seconds
func ParseSleepRange(s string) (time.Duration, time.Duration, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid sleep range %q: want min,max", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sleep range %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sleep range %q: %w", s, err)
	}
	if lo < 0 || hi < lo {
		return 0, 0, fmt.Errorf("invalid sleep range %q: need 0 <= min <= max", s)
	}
	return time.Duration(lo * float64(time.Second)), time.Duration(hi * float64(time.Second)), nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "ghostpost"), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from disk. Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadOrCreate loads path, writing the defaults there first if it does not exist.
// The returned bool reports whether the file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	cfg = Default()
	if err := cfg.Save(path); err != nil {
		return cfg, false, err
	}
	return cfg, true, nil
}

// Save writes config to disk
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
