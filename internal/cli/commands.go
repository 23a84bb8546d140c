package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ghostpost/ghostpost/internal/config"
)

func newLoginCmd(e *env) *cobra.Command {
	var platform, out string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in by hand and save the session cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := e.app.Login(cmd.Context(), platform, out); err != nil {
				return &ExitError{Code: ExitFailure, Err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "tumblr", "platform to log in to")
	cmd.Flags().StringVar(&out, "out", "", "cookie file to write (default: the platform's cookies_path)")
	return cmd
}

func newCheckCmd(e *env) *cobra.Command {
	var platform, cookies string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that the saved session is still logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ok, err := e.app.Check(cmd.Context(), platform, cookies)
			if err != nil {
				return err
			}
			if !ok {
				return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%s session is not logged in, run login again", platform)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s session is logged in\n", platform)
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "tumblr", "platform to check")
	cmd.Flags().StringVar(&cookies, "cookies", "", "cookie file (default: the platform's cookies_path)")
	return cmd
}

func newRunCmd(e *env) *cobra.Command {
	var queuePath, ledgerPath, schedule string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Post everything in the queue that has not been posted yet",
		Long: `Run one pass over the queue, or keep running passes on a cron schedule
("@every 6h", "0 9 * * *"). A pass never starts while the previous one is running.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			changed := cmd.Flags().Changed
			e.app.SetOverrides(func(cfg *config.Config) {
				if changed("queue") {
					cfg.Scheduler.QueuePath = queuePath
				}
				if changed("ledger") {
					cfg.Scheduler.LedgerPath = ledgerPath
				}
				if changed("schedule") {
					cfg.Scheduler.Schedule = schedule
				}
			})

			if s := e.cfg.Scheduler.Schedule; s != "" {
				return e.app.RunScheduled(cmd.Context(), s)
			}

			stats, err := e.app.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "posted %d, failed %d, already posted %d, skipped %d\n",
				stats.Posted, stats.Failed, stats.AlreadyDone, stats.Unconfigured)
			if stats.DryRuns > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "dry runs %d, not recorded\n", stats.DryRuns)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&queuePath, "queue", "", "queue CSV (default: scheduler.queue_path)")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "ledger database (default: scheduler.ledger_path)")
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule for recurring passes")
	return cmd
}

func newHistoryCmd(e *env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := e.app.History(limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing posted yet")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POSTED\tPLATFORM\tACCOUNT\tIMAGE")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(r.PostedAt), r.Platform, r.Account, r.Image)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "rows to show, 0 for all")
	return cmd
}

func newProbeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "probe [page.html]",
		Short: "Check the selectors against a saved page",
		Long: `Report which selectors still match a saved page. Without an argument the most
recent failure page from the artifacts directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			path, report, err := e.app.Probe(path)
			if err != nil {
				return err
			}
			e.log.WithFields(logrus.Fields{"path": path, "broken": len(report.Broken())}).Debug("Probed page")
			return report.Write(cmd.OutOrStdout())
		},
	}
}

func newOpenCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "open <config|data|artifacts>",
		Short:     "Open the config file or a data directory",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"config", "data", "artifacts"},
		RunE: func(_ *cobra.Command, args []string) error {
			return e.app.Open(args[0])
		},
	}
}
