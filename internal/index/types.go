package index

import "time"

// Event records one lifecycle action applied to an app: install,
// uninstall, update, launch, or an external change spotted by the
// watcher.
type Event struct {
	ID        int64
	App       string
	Action    string
	Detail    string
	Timestamp time.Time
}

// Lifecycle event actions.
const (
	ActionInstall        = "install"
	ActionUninstall      = "uninstall"
	ActionUpdate         = "update"
	ActionLaunch         = "launch"
	ActionExternalRemove = "external-remove"
)
