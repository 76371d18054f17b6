package commands

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"casefeed/lib/restyutil"
	"casefeed/lib/scrapers/orthobullets/core"
	"casefeed/lib/serviceutil"
	"casefeed/lib/telemetry"
	"casefeed/lib/timezone"
	"casefeed/services/casefeed"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--config <path/to/config.json5>] [--verbose]",
	Short: "Fetches recent cases and writes the feed, the structured document and the identity store.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		config, err := casefeed.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if config.Verbose && !verbose {
			telemetry.InitSlog(true)
		}
		err = timezone.SetLocation(config.Timezone)
		if err != nil {
			return err
		}

		tel, err := telemetry.SetupFromEnv(ctx, "casefeed")
		if err != nil {
			slog.Warn("failed to set up telemetry export", "err", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				slog.Warn("failed to flush telemetry", "err", err)
			}
		}()

		opts := config.ClientOptions()
		if config.DebugHttpDir != "" {
			output, err := restyutil.NewFilesystemOutput(filepath.Clean(config.DebugHttpDir))
			if err != nil {
				slog.Warn("failed to prepare http dump directory", "dir", config.DebugHttpDir, "err", err)
			} else {
				opts.DebugOutput = output
			}
		}

		client, err := core.NewClient(opts)
		if err != nil {
			return err
		}
		defer client.Close()

		store, err := casefeed.OpenStore(config.State)
		if err != nil {
			return err
		}
		defer store.Close()

		service, err := casefeed.NewService(config, client, store)
		if err != nil {
			return err
		}

		start := time.Now()
		report, err := service.Run(ctx)
		slog.Info(
			"run finished",
			"candidates", report.Candidates,
			"failed", report.Failed,
			"emitted", len(report.Records),
			"new", len(report.NewRecords()),
			"seconds", time.Since(start).Seconds(),
		)
		if errors.Is(err, casefeed.ErrNothingRetained) && !hasOtherError(err) {
			slog.Warn("no cases within the recency window", "window", config.Window.String())
			return &serviceutil.ExitError{Code: 2, Err: err}
		}
		return err
	},
}

// hasOtherError reports whether err carries more than ErrNothingRetained,
// e.g. a failed output write joined to it.
func hasOtherError(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return false
	}
	for _, e := range joined.Unwrap() {
		if !errors.Is(e, casefeed.ErrNothingRetained) {
			return true
		}
	}
	return false
}
