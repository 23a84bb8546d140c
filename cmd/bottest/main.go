// Command bottest opens bot.sannysoft.com in a browser using the same
// options as the poster, allowing you to audit the browser fingerprint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/chromedp/chromedp"

	"github.com/ghostpost/ghostpost/internal/browser"
	"github.com/ghostpost/ghostpost/internal/config"
	"github.com/ghostpost/ghostpost/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file (default: user config dir)")
	flag.Parse()

	cfg := config.Default()
	path := *configPath
	if path == "" {
		if p, err := config.ConfigPath(); err == nil {
			path = p
		}
	}
	if loaded, err := config.Load(path); err == nil {
		cfg = loaded
	}

	log := logging.New(cfg.Log, os.Stderr)
	log.Info("Opening bot.sannysoft.com with the configured browser options...")
	log.Info("Close the browser window when done inspecting.")

	bc := cfg.Browser
	bc.Headless = false // so you can see it

	sess, err := browser.NewSession(context.Background(), bc)
	if err != nil {
		log.WithError(err).Fatal("Failed to start browser")
	}
	defer sess.Close()

	err = sess.Run(
		chromedp.Navigate("https://bot.sannysoft.com"),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err != nil {
		log.WithError(err).Error("Failed to navigate")
		return
	}

	fmt.Println("Press Enter to close the browser...")
	fmt.Scanln()

	log.Info("Done.")
}
