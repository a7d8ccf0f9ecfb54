package app

import (
	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/logging"
)

var (
	stateDir string
	verbose  bool

	// RootCmd is the root command for appdock
	RootCmd = &cobra.Command{
		Use:   "appdock",
		Short: "Install, update, and manage AppImage bundles",
		Long: `appdock manages AppImage bundles through their whole lifecycle:
install, trust, launch, update, and uninstall.

Bundles are copied into a managed apps directory, given a desktop entry,
and recorded in a local index. Each app carries per-app configuration
(website, update URL, launch arguments, environment variables) and an
explicit trust flag that gates launching.

Quick Start:
  1. appdock install ./MyApp-1.2.0-x86_64.AppImage --trust
  2. appdock config set-update-url MyApp https://example.org/myapp.json
  3. appdock check
  4. appdock update MyApp

Examples:
  # Install and trust a bundle
  appdock install ./MyApp.AppImage --trust

  # List installed apps with their status
  appdock list

  # Poll configured update URLs
  appdock check

  # Watch the apps directory for external changes
  appdock watch --daemon`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Setup(verbose)
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "state directory (default: ~/.appdock)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2

	// Register subcommands
	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(removeCmd)
	RootCmd.AddCommand(launchCmd)
	RootCmd.AddCommand(trustCmd)
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(checkCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(envCmd)
	RootCmd.AddCommand(watchCmd)
	RootCmd.AddCommand(statusCmd)
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
