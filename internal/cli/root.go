// Package cli is the ghostpost command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ghostpost/ghostpost/internal/app"
	"github.com/ghostpost/ghostpost/internal/auth"
	"github.com/ghostpost/ghostpost/internal/config"
	"github.com/ghostpost/ghostpost/internal/logging"
)

// Exit codes
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitPostFailed = 2
)

// ExitError carries the process exit code of a failed command
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// env is what every subcommand gets once the root has loaded the config
type env struct {
	configPath string
	logLevel   string

	stderr io.Writer
	cfg    *config.Config
	log    *logrus.Logger
	app    *app.App
}

// NewRootCmd builds the command tree. Logs go to stderr.
func NewRootCmd(stderr io.Writer) *cobra.Command {
	e := &env{stderr: stderr}

	root := &cobra.Command{
		Use:   "ghostpost",
		Short: "Post queued media to social platforms through a real browser",
		Long: `ghostpost drives a real browser to publish images with captions and tags.
Sessions are captured once with "login" and restored from cookie files; "run" works
through a CSV queue and records every published (platform, image) pair in a ledger.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return e.load()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default: user config dir)")
	root.PersistentFlags().StringVar(&e.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newLoginCmd(e),
		newCheckCmd(e),
		newPostCmd(e),
		newRunCmd(e),
		newHistoryCmd(e),
		newProbeCmd(e),
		newOpenCmd(e),
	)
	return root
}

// load reads the config, writing a default one on first run, and wires the app
func (e *env) load() error {
	path := e.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	e.cfg = cfg
	e.log = logging.New(cfg.Log, e.stderr)
	if created {
		e.log.WithField("path", path).Info("Created default config")
	}

	prompter := auth.TerminalPrompter{In: os.Stdin, Out: e.stderr}
	authManager := auth.NewManager(logging.Component(e.log, "auth"), prompter)
	e.app = app.New(cfg, path, authManager, e.log)
	return nil
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd(os.Stderr).ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
