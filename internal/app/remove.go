package app

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/lifecycle"
)

var (
	removeFlagYes bool

	removeCmd = &cobra.Command{
		Use:   "remove <app>",
		Short: "Uninstall an app",
		Long: `Uninstall an app: delete its bundle, desktop entry, index row, and
per-app configuration.

The app's records are always cleaned up, even when deleting the bundle
fails; a partial failure is reported but never leaves the app half
registered.

Examples:
  # Remove with confirmation
  appdock remove MyApp

  # Remove without prompting
  appdock remove MyApp --yes`,
		Args: cobra.ExactArgs(1),
		RunE: runRemove,
	}
)

func init() {
	removeCmd.Flags().BoolVarP(&removeFlagYes, "yes", "y", false, "skip confirmation prompt")
}

func runRemove(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}

	if !removeFlagYes && !confirmRemoval(app.Name) {
		fmt.Println("Removal cancelled.")
		return nil
	}

	machine, _, err := newMachine(idx, lifecycle.FixedResolver{Resolution: lifecycle.ResolutionCancel})
	if err != nil {
		return err
	}

	if err := machine.Uninstall(cmd.Context(), app); err != nil {
		return err
	}

	fmt.Printf("✓ Removed %s\n", app.Name)
	return nil
}

// confirmRemoval prompts the user to confirm removal.
func confirmRemoval(name string) bool {
	fmt.Printf("Remove %s? [y/N]: ", name)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
