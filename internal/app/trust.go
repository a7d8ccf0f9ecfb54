package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust <app>",
	Short: "Mark an app as trusted",
	Long: `Mark an app as trusted, allowing it to be launched.

Trust is one-way: once granted it cannot be revoked. To withdraw trust,
remove the app and reinstall it.

Examples:
  appdock trust MyApp`,
	Args: cobra.ExactArgs(1),
	RunE: runTrust,
}

func runTrust(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}
	if app.Trusted {
		fmt.Printf("%s is already trusted.\n", app.Name)
		return nil
	}

	app.SetTrusted()
	if err := idx.SetTrusted(app.StorageName, true); err != nil {
		return err
	}

	fmt.Printf("✓ %s is now trusted\n", app.Name)
	return nil
}
