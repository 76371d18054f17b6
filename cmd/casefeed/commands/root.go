package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"casefeed/lib/serviceutil"
	"casefeed/lib/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "casefeed",
	Short:         "casefeed turns the Orthobullets case listing into an RSS feed.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load .env", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

// ExecuteContext runs the cli and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	code := serviceutil.ExitCode(err)
	if err != nil && code == 1 {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
