package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stillwater-systems/appdock/internal/logging"
	"github.com/stillwater-systems/appdock/internal/watcher"
)

var (
	watchDaemon      bool
	watchDaemonChild bool
	watchPIDFile     string
	watchLogFile     string
	watchStop        bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Watch the apps directory for external changes",
		Long: `Watch the apps directory and reconcile the index when bundles change
behind appdock's back.

Bundles deleted or moved by other tools are dropped from the index and
journaled as external removals. Unmanaged bundles appearing in the
directory are reported.

Watch modes:
  • Foreground (default): run in the current terminal, Ctrl+C to stop
  • Daemon: run as a background process with a PID file
  • Stop: stop a running daemon`,
		Example: `  # Run in foreground (Ctrl+C to stop)
  appdock watch

  # Run as background daemon
  appdock watch --daemon

  # Stop running daemon
  appdock watch --stop`,
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchDaemon, "daemon", false, "run as background daemon")
	watchCmd.Flags().BoolVar(&watchDaemonChild, "daemon-child", false, "internal flag for daemon child process")
	watchCmd.Flags().StringVar(&watchPIDFile, "pid-file", "", "PID file path (default: ~/.appdock/watch.pid)")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "log file path (default: ~/.appdock/watch.log)")
	watchCmd.Flags().BoolVar(&watchStop, "stop", false, "stop running daemon")

	// Hide the internal daemon-child flag from help
	watchCmd.Flags().MarkHidden("daemon-child")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchPIDFile == "" {
		defaultPID, err := getDefaultPIDFile()
		if err != nil {
			return fmt.Errorf("failed to get default PID file path: %w", err)
		}
		watchPIDFile = defaultPID
	}

	if watchLogFile == "" {
		defaultLog, err := getDefaultLogFile()
		if err != nil {
			return fmt.Errorf("failed to get default log file path: %w", err)
		}
		watchLogFile = defaultLog
	}

	if watchStop {
		return stopWatchDaemon()
	}

	idx, err := openIndex()
	if err != nil {
		return err
	}
	defer idx.Close()

	appsDir, err := getAppsDir()
	if err != nil {
		return err
	}

	w, err := watcher.New(appsDir, idx)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if watchDaemon {
		return startWatchDaemon(w)
	}

	if watchDaemonChild {
		return runWatchDaemonChild(w)
	}

	return runWatchForeground(w, appsDir)
}

func stopWatchDaemon() error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if !running {
		fmt.Println("Daemon is not running")
		return nil
	}

	if err := watcher.StopDaemon(watchPIDFile); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	fmt.Println("✓ Daemon stopped")

	return nil
}

func startWatchDaemon(w *watcher.Watcher) error {
	running, err := watcher.IsDaemonRunning(watchPIDFile)
	if err != nil {
		return fmt.Errorf("failed to check daemon status: %w", err)
	}

	if running {
		return fmt.Errorf("daemon already running (PID file: %s)", watchPIDFile)
	}

	if err := w.StartDaemon(watchPIDFile, watchLogFile); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Println("✓ Watch daemon started")
	fmt.Printf("  PID file: %s\n", watchPIDFile)
	fmt.Printf("  Log file: %s\n", watchLogFile)
	fmt.Printf("\nTo stop: appdock watch --stop\n")

	return nil
}

func runWatchDaemonChild(w *watcher.Watcher) error {
	// Runs as the daemon child; stdout and stderr go to the log file.
	if err := logging.SetupFile(watchLogFile, verbose); err != nil {
		return err
	}
	return w.RunDaemon(watchPIDFile)
}

func runWatchForeground(w *watcher.Watcher, appsDir string) error {
	fmt.Printf("Watching %s (press Ctrl+C to stop)...\n", appsDir)

	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigCh
	fmt.Printf("\nReceived signal %v, shutting down...\n", sig)

	if err := w.Stop(); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}

	fmt.Println("Watcher stopped")
	return nil
}
