package appimage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stillwater-systems/appdock/internal/envedit"
)

// Provider performs the bundle I/O the lifecycle machine delegates to.
type Provider interface {
	InstallFile(app *App) error
	Uninstall(app *App) error
	Run(app *App) error
	ListInstalled() ([]*App, error)
	IsUpdatable(app *App) (bool, error)
	UpdateFromURL(ctx context.Context, fetcher Fetcher, app *App, progress func(float64)) error
	UpdateDesktopFile(app *App) error
	ReloadMetadata(app *App) error
	RefreshTitle(app *App) error
	Icon(app *App) string
	Description(app *App) string
}

// Fetcher hands the provider a new bundle revision. Implemented by the
// update resolvers.
type Fetcher interface {
	Fetch(ctx context.Context, dest string, progress func(float64)) (version string, err error)
}

// Index is the persisted record of installed bundles the provider
// maintains.
type Index interface {
	Upsert(app *App) error
	Get(storageName string) (*App, error)
	FindByName(name string) ([]*App, error)
	List() ([]*App, error)
	Delete(storageName string) error
	RecordEvent(app, action, detail string) error
}

// DirProvider manages bundles as plain files in a single apps
// directory, with desktop entries written alongside in a second one.
type DirProvider struct {
	AppsDir    string
	DesktopDir string

	idx Index
}

// NewDirProvider creates a provider rooted at appsDir. Both directories
// are created on demand.
func NewDirProvider(appsDir, desktopDir string, idx Index) *DirProvider {
	return &DirProvider{AppsDir: appsDir, DesktopDir: desktopDir, idx: idx}
}

// NewFromFile builds an App from a local bundle file without installing
// it. The file must look like an AppImage; name and version are derived
// from the file name.
func (p *DirProvider) NewFromFile(path, provenance string) (*App, error) {
	if !strings.EqualFold(filepath.Ext(path), ".appimage") {
		return nil, fmt.Errorf("%s is not an AppImage bundle", path)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}

	name, version := parseBundleName(filepath.Base(path))
	return &App{
		Name:       name,
		Version:    version,
		Status:     StatusNotInstalled,
		Path:       path,
		Provenance: provenance,
	}, nil
}

// InstallFile copies the bundle into the apps directory, marks it
// executable, writes its desktop entry, and records it in the index.
// KeepBoth installs get a uuid-suffixed storage name so two installs of
// the same identity never collide.
func (p *DirProvider) InstallFile(app *App) error {
	if err := os.MkdirAll(p.AppsDir, 0755); err != nil {
		return fmt.Errorf("failed to create apps directory: %w", err)
	}

	storage := storageSlug(app.Name)
	if app.UpdateLogic == LogicKeepBoth {
		storage = fmt.Sprintf("%s-%s", storage, uuid.NewString()[:8])
	}
	storage += ".appimage"

	dest := filepath.Join(p.AppsDir, storage)
	if err := copyFile(app.Path, dest, 0755); err != nil {
		return fmt.Errorf("failed to install %s: %w", app.Name, err)
	}

	app.StorageName = storage
	app.Path = dest
	app.InstalledAt = time.Now().UTC()

	if err := p.UpdateDesktopFile(app); err != nil {
		os.Remove(dest)
		return err
	}
	if err := p.idx.Upsert(app); err != nil {
		os.Remove(dest)
		os.Remove(p.desktopPath(app))
		return err
	}
	if err := p.idx.RecordEvent(app.Name, "install", app.Provenance); err != nil {
		zap.L().Sugar().Warnf("failed to journal install of %s: %v", app.Name, err)
	}
	return nil
}

// Uninstall removes the bundle, its desktop entry, and its index row.
// Each cleanup step runs even when an earlier one fails.
func (p *DirProvider) Uninstall(app *App) error {
	var errs []error

	if app.Path != "" {
		if err := os.Remove(app.Path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to remove bundle: %w", err))
		}
	}
	if err := os.Remove(p.desktopPath(app)); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove desktop entry: %w", err))
	}
	if app.StorageName != "" {
		if err := p.idx.Delete(app.StorageName); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.idx.RecordEvent(app.Name, "uninstall", ""); err != nil {
		zap.L().Sugar().Warnf("failed to journal uninstall of %s: %v", app.Name, err)
	}
	return errors.Join(errs...)
}

// Run launches the bundle detached, with the app's arguments and
// environment applied.
func (p *DirProvider) Run(app *App) error {
	cmd := exec.Command(app.Path, app.ExecArgs...)
	cmd.Env = append(os.Environ(), rawEnv(app.EnvVars)...)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", app.Name, err)
	}
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to detach %s: %w", app.Name, err)
	}
	if err := p.idx.RecordEvent(app.Name, "launch", app.Path); err != nil {
		zap.L().Sugar().Warnf("failed to journal launch of %s: %v", app.Name, err)
	}
	return nil
}

// ListInstalled returns every bundle recorded in the index.
func (p *DirProvider) ListInstalled() ([]*App, error) {
	return p.idx.List()
}

// IsUpdatable reports whether installing app would collide with an
// existing install: same identity, different provenance.
func (p *DirProvider) IsUpdatable(app *App) (bool, error) {
	existing, err := p.idx.FindByName(app.Name)
	if err != nil {
		return false, err
	}
	for _, other := range existing {
		if other.StorageName != app.StorageName && other.Provenance != app.Provenance {
			return true, nil
		}
	}
	return false, nil
}

// UpdateFromURL fetches the latest revision through the resolver and
// swaps it over the installed bundle. The old file survives any fetch
// failure untouched.
func (p *DirProvider) UpdateFromURL(ctx context.Context, fetcher Fetcher, app *App, progress func(float64)) error {
	part := app.Path + ".part"
	version, err := fetcher.Fetch(ctx, part, progress)
	if err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to fetch update for %s: %w", app.Name, err)
	}
	if err := os.Chmod(part, 0755); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to mark update executable: %w", err)
	}
	if err := os.Rename(part, app.Path); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to swap in update for %s: %w", app.Name, err)
	}

	app.Version = version
	if err := p.idx.Upsert(app); err != nil {
		return err
	}
	if err := p.idx.RecordEvent(app.Name, "update", version); err != nil {
		zap.L().Sugar().Warnf("failed to journal update of %s: %v", app.Name, err)
	}
	return p.UpdateDesktopFile(app)
}

// ReloadMetadata re-derives name and version from the stored bundle
// file and persists the result.
func (p *DirProvider) ReloadMetadata(app *App) error {
	name, version := parseBundleName(filepath.Base(app.Path))
	app.Name = name
	if version != "" {
		app.Version = version
	}
	if app.StorageName == "" {
		return nil
	}
	return p.idx.Upsert(app)
}

// RefreshTitle re-reads the display name from the bundle file name.
// Only sensible before installation; installed apps keep their
// recorded identity.
func (p *DirProvider) RefreshTitle(app *App) error {
	if app.Status == StatusInstalled {
		return nil
	}
	name, _ := parseBundleName(filepath.Base(app.Path))
	app.Name = name
	return nil
}

// Icon returns the icon reference for the desktop entry. Bundle icon
// extraction is out of scope; everything gets the generic executable
// glyph.
func (p *DirProvider) Icon(app *App) string {
	return "application-x-executable"
}

// Description reads the Comment line of the app's desktop entry, if one
// exists.
func (p *DirProvider) Description(app *App) string {
	comment, err := readDesktopComment(p.desktopPath(app))
	if err != nil {
		return ""
	}
	return comment
}

// rawEnv strips the shell quoting that Commit applied so values reach
// the child process verbatim.
func rawEnv(quoted []string) []string {
	env := make([]string, 0, len(quoted))
	for _, kv := range quoted {
		idx := strings.IndexByte(kv, '=')
		if idx <= 0 {
			continue
		}
		env = append(env, kv[:idx]+"="+envedit.Unquote(kv[idx+1:]))
	}
	return env
}

// storageSlug turns an identity into a safe file name stem.
func storageSlug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "app"
	}
	return slug
}

// parseBundleName splits an AppImage file name into display name and
// version. Version is the first dash-separated segment starting with a
// digit; architecture tags are dropped.
func parseBundleName(base string) (name, version string) {
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	segments := strings.Split(stem, "-")

	var nameParts []string
	for i, seg := range segments {
		if i > 0 && version == "" && seg != "" && seg[0] >= '0' && seg[0] <= '9' {
			version = seg
			continue
		}
		if isArchTag(seg) {
			continue
		}
		if version == "" {
			nameParts = append(nameParts, seg)
		}
	}
	if len(nameParts) == 0 {
		nameParts = []string{stem}
	}
	return strings.Join(nameParts, " "), version
}

func isArchTag(seg string) bool {
	switch strings.ToLower(seg) {
	case "x86_64", "amd64", "aarch64", "arm64", "armhf", "i386", "i686":
		return true
	}
	return false
}

// copyFile copies src to dst with the given mode, through a temp file
// so a failed copy never leaves a partial bundle behind.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".appdock-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
