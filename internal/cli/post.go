package cli

import (
	"github.com/spf13/cobra"

	"github.com/ghostpost/ghostpost/internal/app"
	"github.com/ghostpost/ghostpost/internal/config"
)

type postFlags struct {
	opts app.PostOptions

	profile   string
	proxy     string
	headless  bool
	userAgent string
	window    string
	lang      string
	timeout   int
	sleep     string
	dryRun    bool
	artifacts string
}

// apply copies the flags the user set onto cfg
func (f *postFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("profile") {
		cfg.Browser.ProfileDir = f.profile
	}
	if changed("proxy") {
		cfg.Browser.Proxy = f.proxy
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("ua") {
		cfg.Browser.UserAgent = f.userAgent
	}
	if changed("window") {
		cfg.Browser.WindowSize = f.window
	}
	if changed("lang") {
		cfg.Browser.Lang = f.lang
	}
	if changed("timeout") {
		cfg.Poster.TimeoutSeconds = f.timeout
	}
	if changed("sleep") {
		cfg.Poster.PrePostSleep = f.sleep
	}
	if changed("dry-run") {
		cfg.Poster.DryRun = f.dryRun
	}
	if changed("artifacts") {
		cfg.Poster.ArtifactsDir = f.artifacts
	}
}

func newPostCmd(e *env) *cobra.Command {
	f := &postFlags{}

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish one image",
		Long: `Publish one image with an optional caption and tags. Exits 0 once the platform
confirms the post (or a dry run reached the publish step) and 2 on failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e.app.SetOverrides(func(cfg *config.Config) { f.apply(cmd, cfg) })
			if err := e.cfg.Validate(); err != nil {
				return &ExitError{Code: ExitPostFailed, Err: err}
			}
			if err := e.app.Post(cmd.Context(), f.opts); err != nil {
				return &ExitError{Code: ExitPostFailed, Err: err}
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.opts.Platform, "platform", "tumblr", "platform to post to")
	fl.StringVar(&f.opts.ImagePath, "image", "", "image or video file to upload")
	fl.StringVar(&f.opts.Caption, "caption", "", "caption text")
	fl.StringVar(&f.opts.Tags, "tags", "", `tags, comma or space separated ("a,b" or "#a #b")`)
	fl.StringVar(&f.opts.CookiesPath, "cookies", "", "cookie file (default: the platform's cookies_path)")
	fl.StringVar(&f.profile, "profile", "", "persistent browser profile dir, used instead of cookies")
	fl.StringVar(&f.proxy, "proxy", "", "proxy server, http://host:port or socks5://host:port")
	fl.BoolVar(&f.headless, "headless", false, "run the browser without a window")
	fl.StringVar(&f.userAgent, "ua", "", "user agent override")
	fl.StringVar(&f.window, "window", "", "window size as width,height")
	fl.StringVar(&f.lang, "lang", "", "browser language")
	fl.IntVar(&f.timeout, "timeout", 0, "element wait timeout in seconds")
	fl.StringVar(&f.sleep, "sleep", "", "random pause before posting, min,max in seconds")
	fl.BoolVar(&f.dryRun, "dry-run", false, "do everything except pressing publish")
	fl.StringVar(&f.artifacts, "artifacts", "", "directory for failure HTML and screenshots")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}
