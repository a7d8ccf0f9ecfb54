package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/appimage"
	"github.com/stillwater-systems/appdock/internal/update"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Poll configured update URLs for newer revisions",
	Long: `Poll each app's configured update URL and report which apps have a
newer revision published.

Polls run concurrently and never block on a single slow host. Apps
without an update URL are skipped; unreachable or unrecognized URLs are
reported without failing the command.

Examples:
  appdock check`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	store, err := openConfigStore()
	if err != nil {
		return err
	}

	apps, err := idx.List()
	if err != nil {
		return err
	}

	poller := update.NewPoller(update.NewChecker())

	type pending struct {
		app *appimage.App
		ch  <-chan update.Result
	}
	var polls []pending
	skipped := 0

	for _, app := range apps {
		record, err := store.RecordFor(app.Name)
		if err != nil {
			return err
		}
		url := record.UpdateURL()
		if url == "" {
			skipped++
			continue
		}
		polls = append(polls, pending{app: app, ch: poller.PollAsync(cmd.Context(), app, url)})
	}

	if len(polls) == 0 {
		fmt.Println("No apps have an update URL configured.")
		fmt.Println("Set one with: appdock config set-update-url <app> <url>")
		return nil
	}

	available := 0
	failed := 0
	for _, poll := range polls {
		result := <-poll.ch
		result.Apply(poll.app)

		switch {
		case result.Err != nil:
			failed++
			fmt.Printf("? %-24s check failed: %v\n", poll.app.Name, result.Err)
		case result.Updatable:
			available++
			fmt.Printf("↑ %-24s update available\n", poll.app.Name)
		default:
			fmt.Printf("✓ %-24s up to date\n", poll.app.Name)
		}
	}

	fmt.Println()
	fmt.Printf("Checked %d apps: %d with updates, %d failed, %d without update URL\n",
		len(polls), available, failed, skipped)
	if available > 0 {
		fmt.Println("Apply with: appdock update <app>")
	}
	return nil
}
