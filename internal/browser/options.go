// Package browser provides shared chromedp configuration and the session handle
// every browser-driving component receives.
package browser

import (
	"fmt"
	"os"

	"github.com/chromedp/chromedp"

	"github.com/ghostpost/ghostpost/internal/config"
)

// Options returns chromedp allocator options for the configured browser.
// All browser instances should use this so the fingerprint stays consistent
// between the login capture and later posting sessions.
func Options(cfg config.BrowserConfig) ([]chromedp.ExecAllocatorOption, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),

		// Prevent navigator.webdriver = true detection
		chromedp.Flag("disable-blink-features", "AutomationControlled"),

		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)

	if cfg.WindowSize != "" {
		w, h, err := config.ParseWindowSize(cfg.WindowSize)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.WindowSize(w, h))
	}

	if cfg.Lang != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.Lang))
	}

	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}

	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	if cfg.ProfileDir != "" {
		if err := os.MkdirAll(cfg.ProfileDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create profile dir: %w", err)
		}
		opts = append(opts, chromedp.UserDataDir(cfg.ProfileDir))
	}

	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	return opts, nil
}
