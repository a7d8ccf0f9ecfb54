package appimage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeIndex is an in-memory Index for provider tests.
type fakeIndex struct {
	apps   map[string]*App
	events []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{apps: make(map[string]*App)}
}

func (f *fakeIndex) Upsert(app *App) error {
	clone := *app
	f.apps[app.StorageName] = &clone
	return nil
}

func (f *fakeIndex) Get(storageName string) (*App, error) {
	app, ok := f.apps[storageName]
	if !ok {
		return nil, os.ErrNotExist
	}
	return app, nil
}

func (f *fakeIndex) FindByName(name string) ([]*App, error) {
	var matches []*App
	for _, app := range f.apps {
		if app.Name == name {
			matches = append(matches, app)
		}
	}
	return matches, nil
}

func (f *fakeIndex) List() ([]*App, error) {
	var apps []*App
	for _, app := range f.apps {
		apps = append(apps, app)
	}
	return apps, nil
}

func (f *fakeIndex) Delete(storageName string) error {
	delete(f.apps, storageName)
	return nil
}

func (f *fakeIndex) RecordEvent(app, action, detail string) error {
	f.events = append(f.events, app+":"+action)
	return nil
}

func newTestProvider(t *testing.T) (*DirProvider, *fakeIndex) {
	t.Helper()
	idx := newFakeIndex()
	base := t.TempDir()
	return NewDirProvider(filepath.Join(base, "apps"), filepath.Join(base, "applications"), idx), idx
}

func writeBundle(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("bundle payload"), 0644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	return path
}

func TestNewFromFile_ParsesNameAndVersion(t *testing.T) {
	provider, _ := newTestProvider(t)
	src := writeBundle(t, t.TempDir(), "My-App-1.2.0-x86_64.AppImage")

	app, err := provider.NewFromFile(src, src)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if app.Name != "My App" {
		t.Errorf("name = %q, want \"My App\"", app.Name)
	}
	if app.Version != "1.2.0" {
		t.Errorf("version = %q, want 1.2.0", app.Version)
	}
	if app.Status != StatusNotInstalled {
		t.Errorf("status = %v, want not installed", app.Status)
	}
}

func TestNewFromFile_RejectsNonBundle(t *testing.T) {
	provider, _ := newTestProvider(t)
	src := writeBundle(t, t.TempDir(), "archive.tar.gz")

	if _, err := provider.NewFromFile(src, src); err == nil {
		t.Error("expected rejection of non-AppImage file")
	}
}

func TestNewFromFile_MissingFile(t *testing.T) {
	provider, _ := newTestProvider(t)

	if _, err := provider.NewFromFile("/nope/ghost.AppImage", "x"); err == nil {
		t.Error("expected error for missing bundle")
	}
}

func TestParseBundleName(t *testing.T) {
	tests := []struct {
		base        string
		wantName    string
		wantVersion string
	}{
		{"MyApp-1.2.0-x86_64.AppImage", "MyApp", "1.2.0"},
		{"my-cool-app-2.0.AppImage", "my cool app", "2.0"},
		{"Plain.AppImage", "Plain", ""},
		{"tool-aarch64.AppImage", "tool", ""},
	}
	for _, tt := range tests {
		name, version := parseBundleName(tt.base)
		if name != tt.wantName || version != tt.wantVersion {
			t.Errorf("parseBundleName(%q) = (%q, %q), want (%q, %q)",
				tt.base, name, version, tt.wantName, tt.wantVersion)
		}
	}
}

func TestInstallFile(t *testing.T) {
	provider, idx := newTestProvider(t)
	src := writeBundle(t, t.TempDir(), "MyApp-1.0.0.AppImage")

	app, err := provider.NewFromFile(src, src)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if err := provider.InstallFile(app); err != nil {
		t.Fatalf("InstallFile failed: %v", err)
	}

	if app.StorageName != "myapp.appimage" {
		t.Errorf("storage name = %q, want myapp.appimage", app.StorageName)
	}
	info, err := os.Stat(app.Path)
	if err != nil {
		t.Fatalf("installed bundle missing: %v", err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Error("installed bundle must be executable")
	}
	if _, err := os.Stat(filepath.Join(provider.DesktopDir, "appdock-myapp.desktop")); err != nil {
		t.Errorf("desktop entry missing: %v", err)
	}
	if _, ok := idx.apps["myapp.appimage"]; !ok {
		t.Error("index row missing after install")
	}
}

func TestInstallFile_KeepBothGetsDistinctStorageName(t *testing.T) {
	provider, _ := newTestProvider(t)
	srcDir := t.TempDir()

	first, err := provider.NewFromFile(writeBundle(t, srcDir, "MyApp-1.0.0.AppImage"), "a")
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if err := provider.InstallFile(first); err != nil {
		t.Fatalf("first install failed: %v", err)
	}

	second, err := provider.NewFromFile(writeBundle(t, srcDir, "MyApp-2.0.0.AppImage"), "b")
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	second.UpdateLogic = LogicKeepBoth
	if err := provider.InstallFile(second); err != nil {
		t.Fatalf("second install failed: %v", err)
	}

	if first.StorageName == second.StorageName {
		t.Errorf("keep-both installs share a storage name: %q", first.StorageName)
	}
	if !strings.HasPrefix(second.StorageName, "myapp-") {
		t.Errorf("suffixed storage name = %q", second.StorageName)
	}
}

func TestUninstall_RemovesEverything(t *testing.T) {
	provider, idx := newTestProvider(t)
	src := writeBundle(t, t.TempDir(), "MyApp-1.0.0.AppImage")

	app, err := provider.NewFromFile(src, src)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if err := provider.InstallFile(app); err != nil {
		t.Fatalf("InstallFile failed: %v", err)
	}

	if err := provider.Uninstall(app); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if _, err := os.Stat(app.Path); !os.IsNotExist(err) {
		t.Error("bundle file still present")
	}
	if _, err := os.Stat(filepath.Join(provider.DesktopDir, "appdock-myapp.desktop")); !os.IsNotExist(err) {
		t.Error("desktop entry still present")
	}
	if _, ok := idx.apps["myapp.appimage"]; ok {
		t.Error("index row still present")
	}
}

func TestUninstall_ProceedsPastMissingBundle(t *testing.T) {
	provider, idx := newTestProvider(t)
	src := writeBundle(t, t.TempDir(), "MyApp-1.0.0.AppImage")

	app, err := provider.NewFromFile(src, src)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}
	if err := provider.InstallFile(app); err != nil {
		t.Fatalf("InstallFile failed: %v", err)
	}

	// Simulate an external deletion before uninstall runs.
	if err := os.Remove(app.Path); err != nil {
		t.Fatalf("failed to remove bundle: %v", err)
	}

	if err := provider.Uninstall(app); err != nil {
		t.Fatalf("Uninstall should tolerate a missing bundle, got %v", err)
	}
	if _, ok := idx.apps["myapp.appimage"]; ok {
		t.Error("index row must be dropped even when the bundle is gone")
	}
}

func TestIsUpdatable(t *testing.T) {
	provider, idx := newTestProvider(t)

	existing := &App{Name: "MyApp", StorageName: "myapp.appimage", Provenance: "/old/source"}
	if err := idx.Upsert(existing); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	conflicting := &App{Name: "MyApp", Provenance: "/new/source"}
	updatable, err := provider.IsUpdatable(conflicting)
	if err != nil {
		t.Fatalf("IsUpdatable failed: %v", err)
	}
	if !updatable {
		t.Error("same identity from another source must be a conflict")
	}

	sameSource := &App{Name: "MyApp", Provenance: "/old/source"}
	updatable, err = provider.IsUpdatable(sameSource)
	if err != nil {
		t.Fatalf("IsUpdatable failed: %v", err)
	}
	if updatable {
		t.Error("reinstall from the same source is not a conflict")
	}

	unrelated := &App{Name: "OtherApp", Provenance: "/new/source"}
	updatable, err = provider.IsUpdatable(unrelated)
	if err != nil {
		t.Fatalf("IsUpdatable failed: %v", err)
	}
	if updatable {
		t.Error("different identity is never a conflict")
	}
}

func TestExecLine(t *testing.T) {
	app := &App{
		Name:     "MyApp",
		Path:     "/apps/myapp.appimage",
		ExecArgs: []string{"--profile", "work"},
		EnvVars:  []string{"KEY='two words'", "PLAIN=1"},
	}

	line := execLine(app)
	want := `env KEY='two words' PLAIN=1 "/apps/myapp.appimage" --profile work`
	if line != want {
		t.Errorf("execLine = %q, want %q", line, want)
	}
}

func TestExecLine_NoEnv(t *testing.T) {
	app := &App{Name: "MyApp", Path: "/apps/myapp.appimage"}
	if line := execLine(app); line != `"/apps/myapp.appimage"` {
		t.Errorf("execLine = %q", line)
	}
}

func TestRawEnv_StripsQuoting(t *testing.T) {
	env := rawEnv([]string{"KEY='two words'", "PLAIN=1", "malformed"})
	if len(env) != 2 {
		t.Fatalf("rawEnv returned %d entries, want 2", len(env))
	}
	if env[0] != "KEY=two words" {
		t.Errorf("env[0] = %q, want KEY=two words", env[0])
	}
	if env[1] != "PLAIN=1" {
		t.Errorf("env[1] = %q, want PLAIN=1", env[1])
	}
}

func TestStorageSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MyApp", "myapp"},
		{"My App 2", "my-app-2"},
		{"***", "app"},
		{"app.v2", "app.v2"},
	}
	for _, tt := range tests {
		if got := storageSlug(tt.in); got != tt.want {
			t.Errorf("storageSlug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestReadDesktopComment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.desktop")
	content := "[Desktop Entry]\nName=MyApp\nComment=A fine app\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write desktop entry: %v", err)
	}

	comment, err := readDesktopComment(path)
	if err != nil {
		t.Fatalf("readDesktopComment failed: %v", err)
	}
	if comment != "A fine app" {
		t.Errorf("comment = %q, want \"A fine app\"", comment)
	}
}
