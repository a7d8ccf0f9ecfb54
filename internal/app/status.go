package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/output"
	"github.com/stillwater-systems/appdock/internal/watcher"
)

var (
	statusFlagEvents bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show appdock's overall state",
		Long: `Display an overview of the managed apps and the watch daemon.

Shows:
  • Installed app count and how many are trusted
  • Watch daemon status and PID
  • Journal size and recent activity
  • Storage paths in use

With --events the recent journal entries are listed per app.`,
		Example: `  # Check status
  appdock status

  # Include the recent event journal
  appdock status --events`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVar(&statusFlagEvents, "events", false, "show recent journal entries")
}

func runStatus(cmd *cobra.Command, args []string) error {
	pidFile, err := getDefaultPIDFile()
	if err != nil {
		return fmt.Errorf("failed to get PID file path: %w", err)
	}

	daemonRunning, err := watcher.IsDaemonRunning(pidFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	var pid int
	if daemonRunning {
		if pidData, err := os.ReadFile(pidFile); err == nil {
			pid, _ = strconv.Atoi(strings.TrimSpace(string(pidData)))
		}
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	apps, err := idx.List()
	if err != nil {
		return err
	}
	trusted := 0
	for _, app := range apps {
		if app.Trusted {
			trusted++
		}
	}

	eventCount, err := idx.EventCount()
	if err != nil {
		return err
	}

	appsDir, err := getAppsDir()
	if err != nil {
		return err
	}
	store, err := openConfigStore()
	if err != nil {
		return err
	}

	const label = "%-10s"

	fmt.Println()
	fmt.Printf(label+"%d installed · %d trusted\n", "Apps:", len(apps), trusted)

	if daemonRunning {
		fmt.Printf(label+"running (PID %d)\n", "Watcher:", pid)
	} else {
		fmt.Printf(label+"stopped  (run 'appdock watch --daemon')\n", "Watcher:")
	}

	fmt.Printf(label+"%d recorded events\n", "Journal:", eventCount)
	fmt.Printf(label+"%s\n", "Bundles:", appsDir)
	fmt.Printf(label+"%s\n", "Config:", store.Path())
	fmt.Println()

	if statusFlagEvents {
		since := time.Now().AddDate(0, -1, 0)
		for _, app := range apps {
			events, err := idx.Events(app.Name, since)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				continue
			}
			fmt.Printf("%s:\n", app.Name)
			fmt.Print(output.RenderEventTable(events))
			fmt.Println()
		}
	}

	return nil
}
