package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/config"
	"github.com/stillwater-systems/appdock/internal/update"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and edit per-app configuration",
	Long: `Show and edit the per-app configuration record: website, update URL,
and launch arguments.

Records live in a single JSON store keyed by app identity. Fields
written by other tools are preserved untouched.

Examples:
  appdock config show MyApp
  appdock config set-website MyApp https://example.org
  appdock config set-update-url MyApp https://example.org/myapp.json
  appdock config set-args MyApp "--profile work --no-sandbox"`,
}

var configShowCmd = &cobra.Command{
	Use:   "show <app>",
	Short: "Show an app's configuration record",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigShow,
}

var configSetWebsiteCmd = &cobra.Command{
	Use:   "set-website <app> <url>",
	Short: "Set the app's website",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetWebsite,
}

var configSetUpdateURLCmd = &cobra.Command{
	Use:   "set-update-url <app> <url>",
	Short: "Set the app's update URL",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetUpdateURL,
}

var configSetArgsCmd = &cobra.Command{
	Use:   "set-args <app> <args>",
	Short: "Set the app's launch arguments",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSetArgs,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetWebsiteCmd)
	configCmd.AddCommand(configSetUpdateURLCmd)
	configCmd.AddCommand(configSetArgsCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}

	store, err := openConfigStore()
	if err != nil {
		return err
	}
	record, err := store.RecordFor(app.Name)
	if err != nil {
		return err
	}

	fmt.Printf("App:        %s\n", app.Name)
	fmt.Printf("Version:    %s\n", orDash(app.Version))
	fmt.Printf("Bundle:     %s\n", app.Path)
	fmt.Printf("Website:    %s\n", orDash(record.Website()))
	fmt.Printf("Update URL: %s\n", orDash(record.UpdateURL()))
	fmt.Printf("Launch args: %s\n", orDash(strings.Join(app.ExecArgs, " ")))
	return nil
}

func runConfigSetWebsite(cmd *cobra.Command, args []string) error {
	return mutateRecord(args[0], func(record *config.Record) {
		record.SetWebsite(args[1])
	})
}

func runConfigSetUpdateURL(cmd *cobra.Command, args []string) error {
	url := args[1]

	// Validate before saving. An unrecognized URL is still stored; the
	// user may be configuring a host that is temporarily down.
	if resolver := update.NewChecker().CheckURL(cmd.Context(), url); resolver == nil {
		fmt.Printf("Warning: %s is not recognized as an update source right now; saving anyway.\n", url)
	} else {
		if err := resolver.Cleanup(); err == nil {
			fmt.Printf("Update source recognized.\n")
		}
	}

	return mutateRecord(args[0], func(record *config.Record) {
		record.SetUpdateURL(url)
	})
}

func runConfigSetArgs(cmd *cobra.Command, args []string) error {
	execArgs, err := parseExecArgs(args[1])
	if err != nil {
		return err
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}
	app.ExecArgs = execArgs

	if err := idx.Upsert(app); err != nil {
		return err
	}
	provider, err := newProvider(idx)
	if err != nil {
		return err
	}
	if err := provider.UpdateDesktopFile(app); err != nil {
		return err
	}

	fmt.Printf("✓ Launch arguments for %s updated\n", app.Name)
	return nil
}

// mutateRecord resolves the app and applies fn to its config record.
func mutateRecord(name string, fn func(*config.Record)) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, name)
	if err != nil {
		return err
	}

	store, err := openConfigStore()
	if err != nil {
		return err
	}
	if err := store.Mutate(app.Name, fn); err != nil {
		return err
	}

	fmt.Printf("✓ Configuration for %s updated\n", app.Name)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
