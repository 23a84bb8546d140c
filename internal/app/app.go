package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/browser"
	"github.com/sirupsen/logrus"

	"github.com/ghostpost/ghostpost/internal/auth"
	browseropts "github.com/ghostpost/ghostpost/internal/browser"
	"github.com/ghostpost/ghostpost/internal/config"
	"github.com/ghostpost/ghostpost/internal/logging"
	"github.com/ghostpost/ghostpost/internal/poster"
	"github.com/ghostpost/ghostpost/internal/probe"
	"github.com/ghostpost/ghostpost/internal/scheduler"
	"github.com/ghostpost/ghostpost/internal/store"
	"github.com/ghostpost/ghostpost/internal/tumblr"
	"github.com/ghostpost/ghostpost/internal/types"
)

// ErrUnknownPlatform is returned for a platform with no built-in poster
var ErrUnknownPlatform = errors.New("unknown platform")

// sites lists the platforms with a built-in browser poster
var sites = map[string]types.Site{
	tumblr.Site.Name: tumblr.Site,
}

// App holds the application state.
type App struct {
	mu          sync.RWMutex
	authManager *auth.Manager // immutable after creation
	log         logrus.FieldLogger
	configPath  string
	self        string // executable used as the default poster command
	overrides   func(*config.Config)

	// Mutable - use getConfig() for concurrent access.
	config *config.Config
}

// New creates a new App instance. configPath may be empty when the config was
// not read from disk.
func New(cfg *config.Config, configPath string, authManager *auth.Manager, log logrus.FieldLogger) *App {
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	return &App{
		config:      cfg,
		configPath:  configPath,
		authManager: authManager,
		log:         logging.Component(log, "app"),
		self:        self,
	}
}

// getConfig returns the current config under read lock.
func (a *App) getConfig() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// SetOverrides registers command-line overrides, applied now and after every reload
func (a *App) SetOverrides(fn func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.overrides = fn
	if fn != nil {
		fn(a.config)
	}
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig() error {
	if a.configPath == "" {
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	if a.overrides != nil {
		a.overrides(cfg)
	}
	a.config = cfg
	a.mu.Unlock()

	a.log.Debug("Configuration reloaded")
	return nil
}

func lookupSite(platform string) (types.Site, error) {
	site, ok := sites[platform]
	if !ok {
		return types.Site{}, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return site, nil
}

// cookieStore returns the cookie file for platform, override taking precedence
func (a *App) cookieStore(platform, override string) *auth.CookieStore {
	path := override
	if path == "" {
		path = a.getConfig().Platforms[platform].CookiesPath
	}
	return auth.NewCookieStore(path)
}

// Login opens a visible browser on the platform's login page and saves the
// session cookies once the operator has logged in.
func (a *App) Login(ctx context.Context, platform, out string) error {
	site, err := lookupSite(platform)
	if err != nil {
		return err
	}
	cs := a.cookieStore(platform, out)
	if cs.Path() == "" {
		return fmt.Errorf("no cookie path configured for %s", platform)
	}

	bc := a.getConfig().Browser
	bc.Headless = false // the operator logs in by hand

	a.log.WithField("platform", platform).Info("Login triggered - opening browser")
	sess, err := browseropts.NewSession(ctx, bc)
	if err != nil {
		return err
	}
	defer sess.Close()

	return a.authManager.Capture(ctx, sess, site, cs)
}

// Check reports whether the stored session is still accepted by the platform
func (a *App) Check(ctx context.Context, platform, cookiesPath string) (bool, error) {
	site, err := lookupSite(platform)
	if err != nil {
		return false, err
	}

	sess, err := browseropts.NewSession(ctx, a.getConfig().Browser)
	if err != nil {
		return false, err
	}
	defer sess.Close()

	return a.authManager.Check(sess, site, a.cookieStore(platform, cookiesPath))
}

// PostOptions is one post request from the command line
type PostOptions struct {
	Platform    string
	ImagePath   string
	Caption     string
	Tags        string
	CookiesPath string
}

// Post publishes one image in a fresh browser session. Browser and poster
// settings come from the current config. On failure the page HTML and a
// screenshot are saved for `probe`.
func (a *App) Post(ctx context.Context, opts PostOptions) error {
	site, err := lookupSite(opts.Platform)
	if err != nil {
		return err
	}
	cfg := a.getConfig()
	log := a.log.WithField("platform", opts.Platform)

	if cfg.Poster.PrePostSleep != "" {
		lo, hi, err := config.ParseSleepRange(cfg.Poster.PrePostSleep)
		if err != nil {
			return err
		}
		if pause := poster.RandomDuration(lo, hi); pause > 0 {
			log.WithField("pause", pause.Round(time.Millisecond)).Info("Waiting before posting")
			if err := poster.Sleep(ctx, pause); err != nil {
				return err
			}
		}
	}

	sess, err := browseropts.NewSession(ctx, cfg.Browser)
	if err != nil {
		return err
	}
	defer sess.Close()

	switch cs := a.cookieStore(opts.Platform, opts.CookiesPath); {
	case cfg.Browser.ProfileDir != "":
		log.WithField("profile", cfg.Browser.ProfileDir).Info("Using persistent browser profile")
	case cs.Path() != "":
		if err := a.authManager.Inject(sess, site, cs); err != nil {
			return err
		}
	default:
		log.Warn("No profile and no cookies: posting will most likely hit the login page")
	}

	page := tumblr.NewPage(sess, tumblr.Options{
		Timeout: cfg.Poster.Timeout(),
		Typist: poster.Typist{
			MinDelay: time.Duration(cfg.Poster.KeystrokeMinMS) * time.Millisecond,
			MaxDelay: time.Duration(cfg.Poster.KeystrokeMaxMS) * time.Millisecond,
		},
		TagDelay: time.Duration(cfg.Poster.TagDelayMS) * time.Millisecond,
	}, log)

	err = poster.New(page, log).Post(ctx, poster.Request{
		ImagePath: opts.ImagePath,
		Caption:   opts.Caption,
		Tags:      poster.ParseTags(opts.Tags),
		DryRun:    cfg.Poster.DryRun,
	})
	if err != nil && !errors.Is(err, poster.ErrImageNotFound) {
		a.saveFailure(context.WithoutCancel(ctx), page, opts.Platform, cfg.Poster.ArtifactsDir)
	}
	return err
}

// saveFailure stores the page state of a failed post
func (a *App) saveFailure(ctx context.Context, page *tumblr.Page, platform, dir string) {
	html, png, err := page.Snapshot(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Failed to capture failure snapshot")
	}
	if html != "" {
		if path, err := store.SaveArtifact(dir, platform+"-fail", ".html", []byte(html)); err != nil {
			a.log.WithError(err).Warn("Failed to save page HTML")
		} else {
			a.log.WithField("path", path).Info("Saved page HTML")
		}
	}
	if len(png) > 0 {
		if path, err := store.SaveArtifact(dir, platform+"-fail", ".png", png); err != nil {
			a.log.WithError(err).Warn("Failed to save screenshot")
		} else {
			a.log.WithField("path", path).Info("Saved screenshot")
		}
	}
}

// posterCommands maps each configured platform to the argv prefix that posts to
// it. Built-in platforms default to this executable's post command.
func (a *App) posterCommands(cfg *config.Config) map[string][]string {
	cmds := make(map[string][]string, len(cfg.Platforms))
	for name, pc := range cfg.Platforms {
		if len(pc.Command) > 0 {
			cmds[name] = pc.Command
			continue
		}
		if _, ok := sites[name]; !ok {
			continue
		}
		argv := []string{a.self, "post", "--platform", name}
		if a.configPath != "" {
			argv = append(argv, "--config", a.configPath)
		}
		cmds[name] = argv
	}
	return cmds
}

// RunCycle runs one pass over the queue
func (a *App) RunCycle(ctx context.Context) (scheduler.CycleStats, error) {
	cfg := a.getConfig()

	ledger, err := store.New(cfg.Scheduler.LedgerPath)
	if err != nil {
		return scheduler.CycleStats{}, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()

	log := logging.Component(a.log, "cycle")
	d := &scheduler.Driver{
		QueuePath: cfg.Scheduler.QueuePath,
		Ledger:    ledger,
		Invoker:   &scheduler.ExecInvoker{Commands: a.posterCommands(cfg), Log: log},
		Platforms: cfg.Platforms,
		MinDelay:  time.Duration(cfg.Scheduler.MinDelaySeconds) * time.Second,
		MaxDelay:  time.Duration(cfg.Scheduler.MaxDelaySeconds) * time.Second,
		Log:       log,
		DryRun:    cfg.Poster.DryRun,
	}
	if d.DryRun {
		log.Warn("Dry run: posters stop before publishing and nothing is recorded")
	}
	return d.RunCycle(ctx)
}

// RunScheduled runs cycles on schedule until ctx is cancelled. The config is
// reloaded before every cycle so queue and pacing edits apply without a restart.
func (a *App) RunScheduled(ctx context.Context, schedule string) error {
	s, err := scheduler.New(a.getConfig().Scheduler.Timezone, logging.Component(a.log, "scheduler"))
	if err != nil {
		return err
	}

	err = s.AddJob("cycle", schedule, func(ctx context.Context) error {
		if err := a.ReloadConfig(); err != nil {
			a.log.WithError(err).Warn("Config reload failed, keeping the previous config")
		}
		_, err := a.RunCycle(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.Start(ctx)
	for _, job := range s.ListJobs() {
		a.log.WithFields(logrus.Fields{"job": job.Name, "next": job.NextRun.Format(time.RFC3339)}).Info("Waiting for next run")
	}

	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}

// History returns the newest ledger rows, all of them when limit <= 0
func (a *App) History(limit int) ([]store.Row, error) {
	ledger, err := store.New(a.getConfig().Scheduler.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()
	return ledger.History(limit)
}

// Probe checks the built-in selector cascades against a saved page. An empty
// path probes the most recent failure artifact.
func (a *App) Probe(path string) (string, probe.Report, error) {
	if path == "" {
		latest, err := store.LatestArtifact(a.getConfig().Poster.ArtifactsDir, ".html")
		if err != nil {
			return "", probe.Report{}, err
		}
		path = latest
	}

	html, err := os.ReadFile(path)
	if err != nil {
		return path, probe.Report{}, err
	}
	report, err := probe.Run(html, tumblr.Cascades())
	return path, report, err
}

// Open opens the config file, the data directory or the artifacts directory
// with the system's default handler.
func (a *App) Open(target string) error {
	cfg := a.getConfig()

	var path string
	switch target {
	case "config":
		path = a.configPath
		if path == "" {
			p, err := config.ConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
	case "data":
		path = filepath.Dir(cfg.Scheduler.LedgerPath)
	case "artifacts":
		path = cfg.Poster.ArtifactsDir
	default:
		return fmt.Errorf("unknown target %q: want config, data or artifacts", target)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	a.log.WithField("path", abs).Info("Opening")
	return browser.OpenFile(abs)
}
