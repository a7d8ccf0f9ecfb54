// Package lifecycle drives apps through the install, update, and
// uninstall state machine and enforces the trust gate on launches.
package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stillwater-systems/appdock/internal/appimage"
	"github.com/stillwater-systems/appdock/internal/config"
	"github.com/stillwater-systems/appdock/internal/update"
)

var (
	// ErrInvalidTransition is returned when an operation is requested
	// from a state it cannot start in.
	ErrInvalidTransition = errors.New("operation not valid in current state")

	// ErrLaunchBlocked is returned when a launch is refused by the trust
	// gate.
	ErrLaunchBlocked = errors.New("launch blocked: app is untrusted or terminal-only")

	// ErrConflictCanceled is returned when the user cancels an install
	// at the conflict prompt.
	ErrConflictCanceled = errors.New("install canceled")
)

// Machine coordinates the provider, the config store, and the update
// checker. It owns all status transitions; nothing else writes
// App.Status.
type Machine struct {
	provider  appimage.Provider
	store     *config.Store
	conflicts ConflictResolver
	checker   update.URLChecker
	log       *zap.SugaredLogger
}

// NewMachine wires a lifecycle machine. A nil checker disables
// URL-based updates.
func NewMachine(provider appimage.Provider, store *config.Store, conflicts ConflictResolver, checker update.URLChecker) *Machine {
	return &Machine{
		provider:  provider,
		store:     store,
		conflicts: conflicts,
		checker:   checker,
		log:       zap.L().Sugar(),
	}
}

// Install moves app from not-installed to installed. When the identity
// is already installed from a different source, the conflict resolver
// decides between replacing it, keeping both, or canceling; cancel
// aborts before any file is touched.
func (m *Machine) Install(ctx context.Context, app *appimage.App) error {
	if app.Status != appimage.StatusNotInstalled {
		return fmt.Errorf("cannot install %s: %w", app.Name, ErrInvalidTransition)
	}

	app.Status = appimage.StatusInstalling
	// The resolution only steers this one install.
	defer func() { app.UpdateLogic = appimage.LogicNone }()

	conflicting, err := m.findConflict(app)
	if err != nil {
		app.Status = appimage.StatusNotInstalled
		return err
	}
	if conflicting != nil {
		resolution, err := m.conflicts.Resolve(app.Name, conflicting.Provenance, app.Provenance)
		if err != nil {
			app.Status = appimage.StatusNotInstalled
			return err
		}
		switch resolution {
		case ResolutionCancel:
			app.Status = appimage.StatusNotInstalled
			return ErrConflictCanceled
		case ResolutionReplace:
			app.UpdateLogic = appimage.LogicReplace
			app.UpdatingFrom = conflicting.Provenance
			if err := m.replaceExisting(conflicting); err != nil {
				app.Status = appimage.StatusNotInstalled
				return err
			}
		case ResolutionKeepBoth:
			app.UpdateLogic = appimage.LogicKeepBoth
		}
	}

	if err := m.provider.InstallFile(app); err != nil {
		app.Status = appimage.StatusError
		return err
	}

	app.Status = appimage.StatusInstalled
	m.log.Infow("installed app", "name", app.Name, "version", app.Version, "storage", app.StorageName)
	return nil
}

// replaceExisting tears down the superseded install, including its
// config record. The new install starts from a clean slate.
func (m *Machine) replaceExisting(old *appimage.App) error {
	old.Status = appimage.StatusUninstalling
	if err := m.provider.Uninstall(old); err != nil {
		old.Status = appimage.StatusError
		return fmt.Errorf("failed to replace %s: %w", old.Name, err)
	}
	old.Status = appimage.StatusNotInstalled
	if err := m.store.Delete(old.Name); err != nil {
		m.log.Warnw("failed to drop config record of replaced app", "name", old.Name, "error", err)
	}
	return nil
}

// findConflict returns an installed app that would collide with
// installing app, or nil.
func (m *Machine) findConflict(app *appimage.App) (*appimage.App, error) {
	updatable, err := m.provider.IsUpdatable(app)
	if err != nil {
		return nil, err
	}
	if !updatable {
		return nil, nil
	}

	installed, err := m.provider.ListInstalled()
	if err != nil {
		return nil, err
	}
	for _, other := range installed {
		if other.Name == app.Name && other.StorageName != app.StorageName && other.Provenance != app.Provenance {
			return other, nil
		}
	}
	return nil, nil
}

// Uninstall removes app. Provider failures are logged but never leave
// the app half-removed in bookkeeping: the config record is dropped and
// the app ends not-installed regardless.
func (m *Machine) Uninstall(ctx context.Context, app *appimage.App) error {
	switch app.EffectiveStatus() {
	case appimage.StatusInstalled, appimage.StatusUpdateAvailable, appimage.StatusError:
	default:
		return fmt.Errorf("cannot uninstall %s: %w", app.Name, ErrInvalidTransition)
	}

	app.Status = appimage.StatusUninstalling

	if err := m.provider.Uninstall(app); err != nil {
		m.log.Warnw("provider failed during uninstall, dropping records anyway", "name", app.Name, "error", err)
	}
	err := m.store.Delete(app.Name)

	app.Status = appimage.StatusNotInstalled
	app.UpdatableFromURL = nil
	if err != nil {
		return fmt.Errorf("uninstalled %s but failed to drop its config record: %w", app.Name, err)
	}
	m.log.Infow("uninstalled app", "name", app.Name)
	return nil
}

// Launch starts app detached. The trust gate refuses untrusted apps and
// terminal-only apps; in-flight states refuse launches outright.
func (m *Machine) Launch(app *appimage.App) error {
	switch app.Status {
	case appimage.StatusInstalling, appimage.StatusUninstalling, appimage.StatusUpdating:
		return fmt.Errorf("cannot launch %s while %s: %w", app.Name, app.Status, ErrInvalidTransition)
	case appimage.StatusNotInstalled:
		return fmt.Errorf("cannot launch %s: %w", app.Name, ErrInvalidTransition)
	}
	if !app.Trusted || app.Terminal {
		return fmt.Errorf("cannot launch %s: %w", app.Name, ErrLaunchBlocked)
	}
	return m.provider.Run(app)
}

// CheckUpdates polls each app's configured update URL and returns how
// many have a newer revision published. Apps without an update URL are
// skipped; poll failures are logged and leave the app's flag untouched.
func (m *Machine) CheckUpdates(ctx context.Context, apps []*appimage.App) (int, error) {
	if m.checker == nil {
		return 0, update.ErrUnresolvedDescriptor
	}
	poller := update.NewPoller(m.checker)

	available := 0
	for _, app := range apps {
		url, err := m.updateURL(app)
		if err != nil {
			return available, err
		}
		if url == "" {
			continue
		}
		updatable, err := poller.Poll(ctx, app, url)
		if err != nil {
			m.log.Warnw("update check failed", "name", app.Name, "url", url, "error", err)
			continue
		}
		if updatable {
			available++
		}
	}
	return available, nil
}

// ApplyUpdate downloads the newer revision and swaps it in. The app
// returns to installed whether the update succeeds or fails; a failed
// fetch leaves the old bundle in place. After a successful swap the
// update URL is polled again, so the availability flag tracks the
// freshly installed version.
func (m *Machine) ApplyUpdate(ctx context.Context, app *appimage.App, progress func(float64)) error {
	if app.EffectiveStatus() != appimage.StatusUpdateAvailable {
		return fmt.Errorf("no update pending for %s: %w", app.Name, ErrInvalidTransition)
	}
	if m.checker == nil {
		return update.ErrUnresolvedDescriptor
	}

	url, err := m.updateURL(app)
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("no update URL configured for %s: %w", app.Name, update.ErrUnresolvedDescriptor)
	}

	resolver := m.checker.CheckURL(ctx, url)
	if resolver == nil {
		return fmt.Errorf("cannot resolve update for %s: %w", app.Name, update.ErrUnresolvedDescriptor)
	}
	defer func() {
		if err := resolver.Cleanup(); err != nil {
			m.log.Warnw("resolver cleanup failed", "name", app.Name, "error", err)
		}
	}()

	app.Status = appimage.StatusUpdating
	err = m.provider.UpdateFromURL(ctx, resolver, app, progress)
	app.Status = appimage.StatusInstalled
	if err != nil {
		return err
	}

	// The old flag describes the replaced version; re-poll so the app
	// reflects whether anything newer than the fresh install exists.
	app.UpdatableFromURL = nil
	if _, err := update.NewPoller(m.checker).Poll(ctx, app, url); err != nil {
		m.log.Warnw("post-update availability check failed", "name", app.Name, "error", err)
	}
	m.log.Infow("updated app", "name", app.Name, "version", app.Version)
	return nil
}

// updateURL reads the app's configured update URL from the config
// store.
func (m *Machine) updateURL(app *appimage.App) (string, error) {
	record, err := m.store.RecordFor(app.Name)
	if err != nil {
		return "", err
	}
	return record.UpdateURL(), nil
}
