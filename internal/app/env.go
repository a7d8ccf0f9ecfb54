package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/appimage"
	"github.com/stillwater-systems/appdock/internal/envedit"
	"github.com/stillwater-systems/appdock/internal/index"
	"github.com/stillwater-systems/appdock/internal/output"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage an app's launch environment variables",
	Long: `Manage the environment variables applied when an app is launched.

Variables are stored per app and injected through the desktop entry's
Exec line and on direct launches. Values are shell-quoted as needed
when written to the desktop entry.

Examples:
  appdock env list MyApp
  appdock env set MyApp QT_SCALE_FACTOR 1.5
  appdock env unset MyApp QT_SCALE_FACTOR`,
}

var envListCmd = &cobra.Command{
	Use:   "list <app>",
	Short: "List an app's environment variables",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnvList,
}

var envSetCmd = &cobra.Command{
	Use:   "set <app> <key> <value>",
	Short: "Set an environment variable",
	Args:  cobra.ExactArgs(3),
	RunE:  runEnvSet,
}

var envUnsetCmd = &cobra.Command{
	Use:   "unset <app> <key>",
	Short: "Remove an environment variable",
	Args:  cobra.ExactArgs(2),
	RunE:  runEnvUnset,
}

func init() {
	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envSetCmd)
	envCmd.AddCommand(envUnsetCmd)
}

func runEnvList(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}

	editor := envedit.New(app.EnvVars)
	fmt.Print(output.RenderEnvRows(editor.Rows()))
	return nil
}

func runEnvSet(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[1])
	if key == "" {
		return fmt.Errorf("environment variable key cannot be empty")
	}

	return editEnv(args[0], func(editor *envedit.Editor) error {
		editor.Set(key, args[2])
		return nil
	})
}

func runEnvUnset(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[1])

	return editEnv(args[0], func(editor *envedit.Editor) error {
		if !editor.DeleteKey(key) {
			return fmt.Errorf("%s is not set", key)
		}
		return nil
	})
}

// editEnv loads the app, applies fn to its env editor, and commits the
// result back to the index and the desktop entry.
func editEnv(name string, fn func(*envedit.Editor) error) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, name)
	if err != nil {
		return err
	}

	editor := envedit.New(app.EnvVars)
	if err := fn(editor); err != nil {
		return err
	}
	if editor.HasInvalid() {
		return fmt.Errorf("environment for %s has conflicting keys; fix them before saving", app.Name)
	}

	app.EnvVars = editor.Commit()
	if err := saveEnv(idx, app); err != nil {
		return err
	}

	fmt.Printf("✓ Environment for %s updated\n", app.Name)
	return nil
}

func saveEnv(idx *index.Store, app *appimage.App) error {
	if err := idx.Upsert(app); err != nil {
		return err
	}
	provider, err := newProvider(idx)
	if err != nil {
		return err
	}
	return provider.UpdateDesktopFile(app)
}
