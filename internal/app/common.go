package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/stillwater-systems/appdock/internal/appimage"
	"github.com/stillwater-systems/appdock/internal/config"
	"github.com/stillwater-systems/appdock/internal/index"
	"github.com/stillwater-systems/appdock/internal/lifecycle"
	"github.com/stillwater-systems/appdock/internal/update"
)

// getStateDir returns the state directory, creating it if needed.
// Uses the --state-dir flag or ~/.appdock by default.
func getStateDir() (string, error) {
	dir := stateDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dir = filepath.Join(home, ".appdock")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// getAppsDir returns the managed bundle directory.
func getAppsDir() (string, error) {
	dir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "apps"), nil
}

// getDesktopDir returns where desktop entries are written. Follows the
// XDG user data layout so launchers pick the entries up.
func getDesktopDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "applications"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "applications"), nil
}

// getDefaultPIDFile returns the default PID file path
func getDefaultPIDFile() (string, error) {
	dir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.pid"), nil
}

// getDefaultLogFile returns the default log file path
func getDefaultLogFile() (string, error) {
	dir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "watch.log"), nil
}

// openIndex opens the install index, creating the schema if needed.
func openIndex() (*index.Store, error) {
	dir, err := getStateDir()
	if err != nil {
		return nil, err
	}
	idx, err := index.New(filepath.Join(dir, "appdock.db"))
	if err != nil {
		return nil, err
	}
	if err := idx.CreateSchema(); err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// openConfigStore opens the per-app config store. The --state-dir flag
// relocates it alongside the index; otherwise it lives in the XDG
// config directory.
func openConfigStore() (*config.Store, error) {
	if stateDir != "" {
		return config.NewStore(filepath.Join(stateDir, "apps.json")), nil
	}
	return config.Default()
}

// newProvider builds the directory provider over the index.
func newProvider(idx *index.Store) (*appimage.DirProvider, error) {
	appsDir, err := getAppsDir()
	if err != nil {
		return nil, err
	}
	desktopDir, err := getDesktopDir()
	if err != nil {
		return nil, err
	}
	return appimage.NewDirProvider(appsDir, desktopDir, idx), nil
}

// newMachine wires the full lifecycle machine for a command.
func newMachine(idx *index.Store, resolver lifecycle.ConflictResolver) (*lifecycle.Machine, *config.Store, error) {
	provider, err := newProvider(idx)
	if err != nil {
		return nil, nil, err
	}
	store, err := openConfigStore()
	if err != nil {
		return nil, nil, err
	}
	return lifecycle.NewMachine(provider, store, resolver, update.NewChecker()), store, nil
}

// findApp resolves a name argument to an installed app. Exact storage
// name wins; otherwise the identity must match exactly one install.
func findApp(idx *index.Store, name string) (*appimage.App, error) {
	if app, err := idx.Get(name); err == nil {
		return app, nil
	}

	matches, err := idx.FindByName(name)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("app %s not found", name)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.StorageName
		}
		return nil, fmt.Errorf("app %s is installed %d times; use a storage name: %v", name, len(matches), names)
	}
}
