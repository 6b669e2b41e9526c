// Adax is a command-line client for Adax cloud-connected heaters.
//
// It lists homes, rooms and heaters, sets room target temperatures, shows a
// live room view in the terminal, and can run a local bridge that exposes
// one account over HTTP, WebSocket and Prometheus metrics.
//
// Usage:
//
//	adax [command] [flags]
//
// The account password is read from ADAX_PASSWORD or prompted for.
// See 'adax --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/adax/internal/config"
	"github.com/muurk/adax/internal/logging"
	"github.com/muurk/adax/internal/ui"
	"github.com/muurk/adax/internal/urls"
	"github.com/muurk/adax/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	outputFormat string
	logLevel     string
	accountID    string
	baseURL      string
)

// Loaded once by the root command before any subcommand runs
var (
	registry *config.Registry
	format   ui.Format
)

var rootCmd = &cobra.Command{
	Use:   "adax",
	Short: "Adax heater command-line client",
	Long: `A command-line client for Adax cloud-connected heaters.

Lists homes, rooms and heaters, sets room target temperatures, shows a live
room view, and runs a local bridge for other programs on the network.

The Adax API allows one request every ten seconds per account. Reads inside
that window show the last known state and setpoints are sent together once
the window has passed.

Documentation: ` + urls.Documentation,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}

		reg, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if accountID != "" {
			reg.Account.ID = accountID
		}
		if baseURL != "" {
			reg.API.BaseURL = baseURL
		}
		registry = reg

		f := outputFormat
		if !cmd.Flags().Changed("format") && reg.Preferences.Format != "" {
			f = reg.Preferences.Format
		}
		format, err = ui.ParseFormat(f)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $ADAX_LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&accountID, "account", "", "Adax account id (overrides config and $ADAX_ACCOUNT_ID)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL (overrides config and $ADAX_BASE_URL)")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adax %s\n", version.Full())
	},
}
