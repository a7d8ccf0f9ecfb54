package appimage

import "time"

// Status is the installed-state of a bundle. Transitions happen only
// through the lifecycle machine; no other component writes it.
type Status int

const (
	StatusNotInstalled Status = iota
	StatusInstalling
	StatusInstalled
	StatusUninstalling
	StatusUpdateAvailable
	StatusUpdating
	StatusError
)

// String returns the human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusNotInstalled:
		return "not installed"
	case StatusInstalling:
		return "installing"
	case StatusInstalled:
		return "installed"
	case StatusUninstalling:
		return "uninstalling"
	case StatusUpdateAvailable:
		return "update available"
	case StatusUpdating:
		return "updating"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// UpdateLogic records how a name conflict was resolved for the current
// install attempt. It is set once a resolution is obtained and cleared
// after the attempt completes.
type UpdateLogic int

const (
	LogicNone UpdateLogic = iota
	LogicReplace
	LogicKeepBoth
)

// App represents one AppImage bundle under management. The value is
// owned by the caller; the lifecycle machine mutates Status, and the
// trust flag only ever moves from false to true.
type App struct {
	// Name is the unique display name (the identity). Must be non-empty;
	// the config store key is derived from it.
	Name string

	// Version may be empty for bundles that do not encode one.
	Version string

	Status  Status
	Trusted bool

	// Terminal marks apps whose desktop metadata declares a terminal
	// program. Terminal apps are never launched by appdock.
	Terminal bool

	// Path is the bundle location: the source file before installation,
	// the managed copy afterwards.
	Path string

	// Provenance is the origin that produced this bundle (source
	// directory or URL). Two installs of the same Name with different
	// Provenance are a conflict.
	Provenance string

	// StorageName is the provider-assigned file name under the apps
	// directory. Unique even when two installs share a Name.
	StorageName string

	ExecArgs []string
	// EnvVars holds committed KEY=value pairs with unique keys.
	EnvVars []string

	// UpdateLogic caches the conflict resolution for the install attempt
	// in flight.
	UpdateLogic UpdateLogic

	// UpdatableFromURL is the last update-poll result. nil until the
	// first successful poll; soft poll failures leave it untouched.
	UpdatableFromURL *bool

	// UpdatingFrom is the identity of the install this one superseded,
	// kept as a plain back-reference for bookkeeping.
	UpdatingFrom string

	InstalledAt time.Time
}

// SetTrusted unlocks the app. There is no way back to untrusted.
func (a *App) SetTrusted() {
	a.Trusted = true
}

// EffectiveStatus folds the update-poll result into the status: an
// installed app with a positive poll result presents as update
// available. The stored Status itself is never mutated by polling.
func (a *App) EffectiveStatus() Status {
	if a.Status == StatusInstalled && a.UpdatableFromURL != nil && *a.UpdatableFromURL {
		return StatusUpdateAvailable
	}
	return a.Status
}
