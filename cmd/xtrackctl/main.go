// Package main implements xtrackctl, the operator CLI for the weekly loan tracking jobs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan9191/loan-xtrack/internal/app"
	"github.com/Dan9191/loan-xtrack/internal/config"
	"github.com/Dan9191/loan-xtrack/internal/risk"
)

var notifyFlag bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "xtrackctl",
	Short: "Run loan tracking jobs by hand",
	Long: `xtrackctl runs the scheduled loan tracking jobs on demand and prints
their results as JSON. Configuration is read from the environment and .env,
the same way the API server reads it.`,
	SilenceUsage: true,
}

func init() {
	mustContactCmd.Flags().BoolVar(&notifyFlag, "notify", false, "deliver the rendered report to the configured notifiers")
	reportCmd.AddCommand(takeActionCmd, mustContactCmd)
	rootCmd.AddCommand(ensureCmd, downloadCmd, runWeeklyCmd, reportCmd, historyCmd, summaryCmd, hashPasswordCmd)
}

// ensureCmd creates this week's ledger
var ensureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create this week's ledger from the latest snapshot if it is missing",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		loans, err := a.Loans.Loans(ctx)
		if err != nil {
			a.Log.WithError(err).Warn("Loan snapshot unavailable")
		}
		l, created, err := a.Store.EnsureCurrent(ctx, loans)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]interface{}{
			"week":    l.WeekTag(),
			"created": created,
			"entries": len(l.Entries),
			"version": l.Version,
		})
	}),
}

// downloadCmd runs the snapshot export
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download a fresh loan snapshot with the configured export command",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		return a.Pipeline.DailyDownload(ctx)
	}),
}

// runWeeklyCmd runs the Friday job
var runWeeklyCmd = &cobra.Command{
	Use:   "run-weekly",
	Short: "Ensure the ledger, then render the take-action and must-contact reports",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		return printJSON(out, a.Pipeline.WeeklyReports(ctx))
	}),
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render a single report",
}

// takeActionCmd renders the collector worksheet
var takeActionCmd = &cobra.Command{
	Use:   "take-action",
	Short: "Render the take-action report for the latest week",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		return printPath(out, a.Reports.TakeAction(ctx))
	}),
}

// mustContactCmd renders the executive report
var mustContactCmd = &cobra.Command{
	Use:   "must-contact",
	Short: "Render the CEO must-contact report for the latest week",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		return printPath(out, a.Reports.MustContact(ctx, notifyFlag))
	}),
}

// historyCmd dumps every recorded entry
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print every recorded action entry, oldest week first",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		entries, err := a.Store.History(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, entries)
	}),
}

// summaryCmd prints snapshot statistics
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print dashboard statistics for the latest snapshot",
	RunE: withApp(func(ctx context.Context, a *app.App, out io.Writer) error {
		loans, err := a.Loans.Loans(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, risk.Summarize(loans))
	}),
}

// hashPasswordCmd prints a bcrypt hash for OPERATOR_PASSWORD_HASH
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash suitable for OPERATOR_PASSWORD_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return err
	},
}

func withApp(run func(ctx context.Context, a *app.App, out io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := app.NewLogger(os.Getenv("LOG_LEVEL"))
		logger.SetOutput(cmd.ErrOrStderr())

		cfg, err := config.NewConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		a, err := app.New(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd.Context(), a, cmd.OutOrStdout())
	}
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPath(out io.Writer, path string) error {
	if path == "" {
		return fmt.Errorf("report skipped, see log for details")
	}
	_, err := fmt.Fprintln(out, path)
	return err
}
