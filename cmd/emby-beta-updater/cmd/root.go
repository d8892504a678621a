package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/emby-beta-updater/internal/service/updater"
	"github.com/oshokin/emby-beta-updater/internal/version"
)

var (
	// configPath to the configuration YAML file; empty means the optional default.
	configPath string

	// debug and dryRun both switch the run into simulation mode.
	debug, dryRun bool

	// runUpdater performs one update run.
	runUpdater = updater.Run

	// rootCmd checks the installed Emby Server against the newest beta and updates it.
	rootCmd = &cobra.Command{
		Use:   version.Name,
		Short: "Keep Emby Server on the newest beta release",
		Long: "Compares the installed emby-server package with the newest pre-release published on GitHub\n" +
			"and installs the beta .deb when it is newer. Requires root on Debian or Ubuntu.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// The failure has already been logged by the updater.
			_, err := runUpdater(ctx, newOptions())

			return err
		},
	}
)

// Execute runs the emby-beta-updater CLI and exits with non-zero status on error.
func Execute() {
	if code := exitCode(rootCmd.Execute()); code != 0 {
		os.Exit(code)
	}
}

// newOptions maps the command line flags to updater options.
func newOptions() *updater.Options {
	return &updater.Options{
		ConfigPath: configPath,
		Simulate:   debug || dryRun,
	}
}

// exitCode is 0 for success, including an up-to-date install, and 1 for any failure.
func exitCode(err error) int {
	if err != nil {
		return 1
	}

	return 0
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default "+defaultConfigHint+")")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "simulate the update with verbose output")
	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "same as --debug")
}
