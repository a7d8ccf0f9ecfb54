package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// fakeIndex is a minimal in-memory appimage.Index for watcher tests.
type fakeIndex struct {
	mu     sync.Mutex
	apps   map[string]*appimage.App
	events []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{apps: make(map[string]*appimage.App)}
}

func (f *fakeIndex) Upsert(app *appimage.App) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[app.StorageName] = app
	return nil
}

func (f *fakeIndex) Get(storageName string) (*appimage.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[storageName]
	if !ok {
		return nil, os.ErrNotExist
	}
	return app, nil
}

func (f *fakeIndex) FindByName(name string) ([]*appimage.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []*appimage.App
	for _, app := range f.apps {
		if app.Name == name {
			matches = append(matches, app)
		}
	}
	return matches, nil
}

func (f *fakeIndex) List() ([]*appimage.App, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var apps []*appimage.App
	for _, app := range f.apps {
		apps = append(apps, app)
	}
	return apps, nil
}

func (f *fakeIndex) Delete(storageName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.apps, storageName)
	return nil
}

func (f *fakeIndex) RecordEvent(app, action, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, app+":"+action)
	return nil
}

func (f *fakeIndex) has(storageName string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.apps[storageName]
	return ok
}

func seedBundle(t *testing.T, dir, storage string, idx *fakeIndex) string {
	t.Helper()
	path := filepath.Join(dir, storage)
	if err := os.WriteFile(path, []byte("payload"), 0755); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	if err := idx.Upsert(&appimage.App{
		Name:        storage,
		StorageName: storage,
		Path:        path,
	}); err != nil {
		t.Fatalf("failed to seed index: %v", err)
	}
	return path
}

func TestSync_DropsExternallyRemovedBundles(t *testing.T) {
	dir := t.TempDir()
	idx := newFakeIndex()

	seedBundle(t, dir, "keep.appimage", idx)
	gonePath := seedBundle(t, dir, "gone.appimage", idx)
	if err := os.Remove(gonePath); err != nil {
		t.Fatalf("failed to remove bundle: %v", err)
	}

	w, err := New(dir, idx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	removed, err := w.Sync()
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if idx.has("gone.appimage") {
		t.Error("externally removed bundle still indexed")
	}
	if !idx.has("keep.appimage") {
		t.Error("surviving bundle dropped from index")
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(idx.events) != 1 || idx.events[0] != "gone.appimage:external-remove" {
		t.Errorf("events = %v, want one external-remove entry", idx.events)
	}
}

func TestSync_NoChanges(t *testing.T) {
	dir := t.TempDir()
	idx := newFakeIndex()
	seedBundle(t, dir, "steady.appimage", idx)

	w, err := New(dir, idx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	removed, err := w.Sync()
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestWatcher_ReactsToExternalRemoval(t *testing.T) {
	dir := t.TempDir()
	idx := newFakeIndex()
	path := seedBundle(t, dir, "doomed.appimage", idx)

	w, err := New(dir, idx)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	w.debounce = 50 * time.Millisecond

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove bundle: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if !idx.has("doomed.appimage") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("index row not dropped after external removal")
}

func TestIsBundleEvent(t *testing.T) {
	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/apps/x.appimage", fsnotify.Remove, true},
		{"/apps/x.AppImage", fsnotify.Create, true},
		{"/apps/x.appimage", fsnotify.Chmod, false},
		{"/apps/notes.txt", fsnotify.Remove, false},
	}
	for _, tt := range tests {
		event := fsnotify.Event{Name: tt.name, Op: tt.op}
		if got := isBundleEvent(event); got != tt.want {
			t.Errorf("isBundleEvent(%s %v) = %v, want %v", tt.name, tt.op, got, tt.want)
		}
	}
}
