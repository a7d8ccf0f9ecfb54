package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// Watcher observes the apps directory for changes made outside of
// appdock: bundles deleted by hand, moved away, or dropped in by other
// tools. Filesystem events are debounced, then the index is reconciled
// against what is actually on disk.
type Watcher struct {
	appsDir  string
	idx      appimage.Index
	debounce time.Duration

	fsw    *fsnotify.Watcher
	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *zap.SugaredLogger
}

// New creates a watcher over appsDir backed by the given index.
func New(appsDir string, idx appimage.Index) (*Watcher, error) {
	if idx == nil {
		return nil, fmt.Errorf("index cannot be nil")
	}
	return &Watcher{
		appsDir:  appsDir,
		idx:      idx,
		debounce: 2 * time.Second,
		stopCh:   make(chan struct{}),
		log:      zap.L().Sugar(),
	}, nil
}

// Start reconciles once, then begins watching for filesystem events.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.appsDir, 0755); err != nil {
		return fmt.Errorf("failed to create apps directory: %w", err)
	}
	if _, err := w.Sync(); err != nil {
		w.log.Warnf("initial reconcile failed: %v", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	if err := fsw.Add(w.appsDir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.appsDir, err)
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run()
	return nil
}

// run collects events until they go quiet for the debounce window, then
// reconciles. External tools often touch a bundle several times in a
// row; one reconcile covers the whole burst.
func (w *Watcher) run() {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !isBundleEvent(event) {
				continue
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warnf("filesystem watcher error: %v", err)

		case <-timer.C:
			pending = false
			if _, err := w.Sync(); err != nil {
				w.log.Warnf("reconcile failed: %v", err)
			}

		case <-w.stopCh:
			if pending {
				if _, err := w.Sync(); err != nil {
					w.log.Warnf("final reconcile failed: %v", err)
				}
			}
			return
		}
	}
}

// isBundleEvent filters for events that can change which bundles exist.
func isBundleEvent(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".appimage") {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0
}

// Sync reconciles the index against the apps directory. Indexed bundles
// whose file is gone are dropped from the index with an external-remove
// journal entry. Returns how many rows were dropped.
func (w *Watcher) Sync() (int, error) {
	apps, err := w.idx.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, app := range apps {
		if _, err := os.Stat(app.Path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			w.log.Warnf("cannot stat %s: %v", app.Path, err)
			continue
		}

		w.log.Infow("bundle removed externally", "name", app.Name, "path", app.Path)
		if err := w.idx.Delete(app.StorageName); err != nil {
			w.log.Warnf("failed to drop index row for %s: %v", app.Name, err)
			continue
		}
		if err := w.idx.RecordEvent(app.Name, "external-remove", app.Path); err != nil {
			w.log.Warnf("failed to journal external removal of %s: %v", app.Name, err)
		}
		removed++
	}

	w.logUnmanaged(apps)
	return removed, nil
}

// logUnmanaged notes bundles on disk that the index does not know
// about. They are reported, never adopted; installing is explicit.
func (w *Watcher) logUnmanaged(apps []*appimage.App) {
	known := make(map[string]bool, len(apps))
	for _, app := range apps {
		known[app.StorageName] = true
	}

	entries, err := os.ReadDir(w.appsDir)
	if err != nil {
		w.log.Warnf("cannot read apps directory: %v", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".appimage") {
			continue
		}
		if !known[entry.Name()] {
			w.log.Infow("unmanaged bundle in apps directory", "file", entry.Name())
		}
	}
}

// Stop halts the watcher, running one last reconcile if events were
// still pending.
func (w *Watcher) Stop() error {
	close(w.stopCh)
	w.wg.Wait()
	if w.fsw != nil {
		return w.fsw.Close()
	}
	return nil
}
