package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/emby-beta-updater/internal/config"
	"github.com/oshokin/emby-beta-updater/internal/logger"
)

const (
	defaultConfigHint = config.DefaultConfigPath + " if present"
	redactedToken     = "<redacted>"
)

var (
	// writePath receives the effective configuration instead of stdout.
	writePath string

	// configCmd prints the configuration a run would use.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: "Loads defaults, the configuration file and EMBY_UPDATER_* environment variables\n" +
			"and prints the result, or saves it with --write.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := printConfig(cmd)
			if err != nil {
				logger.ErrorKV(cmd.Context(), "Configuration command failed", "error", err)
			}

			return err
		},
	}
)

// printConfig loads the configuration and either saves it or prints it with the token masked.
func printConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if writePath != "" {
		if err = config.Save(writePath, cfg); err != nil {
			return err
		}

		logger.InfoKV(cmd.Context(), "Configuration saved", "path", writePath)

		return nil
	}

	if cfg.GitHubToken != "" {
		cfg.GitHubToken = redactedToken
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))

	return err
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.Flags().StringVarP(&writePath, "write", "w", "", "save the effective configuration to this path")
	rootCmd.AddCommand(configCmd)
}
