// Package watcher keeps the install index honest about the apps
// directory.
//
// Bundles can disappear behind appdock's back: deleted from a file
// manager, moved to another disk, cleaned up by other tooling. The
// watcher listens for filesystem events on the apps directory,
// debounces them, and reconciles the index against what is actually on
// disk, journaling every externally removed bundle.
//
// It can run inline (appdock watch) or as a background daemon with a
// PID file (appdock watch --daemon).
package watcher
