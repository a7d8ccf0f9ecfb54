package app

import (
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/lifecycle"
	"github.com/stillwater-systems/appdock/internal/update"
)

var updateCmd = &cobra.Command{
	Use:   "update <app>",
	Short: "Download and apply a pending update",
	Long: `Download the newer revision published at the app's update URL and swap
it in place of the installed bundle.

The installed bundle is only replaced after the download completes; a
failed download leaves the app exactly as it was.

Examples:
  appdock update MyApp`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	app, err := findApp(idx, args[0])
	if err != nil {
		return err
	}

	machine, store, err := newMachine(idx, lifecycle.FixedResolver{Resolution: lifecycle.ResolutionCancel})
	if err != nil {
		return err
	}

	record, err := store.RecordFor(app.Name)
	if err != nil {
		return err
	}
	if record.UpdateURL() == "" {
		return fmt.Errorf("no update URL configured for %s; set one with 'appdock config set-update-url'", app.Name)
	}

	// Fresh availability check so a stale flag never triggers a
	// pointless download.
	poller := update.NewPoller(update.NewChecker())
	updatable, err := poller.Poll(cmd.Context(), app, record.UpdateURL())
	if err != nil {
		return fmt.Errorf("failed to check %s for updates: %w", app.Name, err)
	}
	if !updatable {
		fmt.Printf("%s is already up to date.\n", app.Name)
		return nil
	}

	bar := progressbar.NewOptions(1000,
		progressbar.OptionSetDescription(fmt.Sprintf("Updating %s", app.Name)),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
	)
	progress := func(fraction float64) {
		bar.Set(int(fraction * 1000))
	}

	oldVersion := app.Version
	if err := machine.ApplyUpdate(cmd.Context(), app, progress); err != nil {
		bar.Clear()
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return fmt.Errorf("%s has no pending update", app.Name)
		}
		return err
	}
	bar.Finish()

	if oldVersion != "" && oldVersion != app.Version {
		fmt.Printf("✓ Updated %s %s → %s\n", app.Name, oldVersion, app.Version)
	} else {
		fmt.Printf("✓ Updated %s to %s\n", app.Name, app.Version)
	}
	return nil
}
