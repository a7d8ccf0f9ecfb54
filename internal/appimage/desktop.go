package appimage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// desktopPath returns where the app's desktop entry lives.
func (p *DirProvider) desktopPath(app *App) string {
	stem := strings.TrimSuffix(app.StorageName, filepath.Ext(app.StorageName))
	if stem == "" {
		stem = storageSlug(app.Name)
	}
	return filepath.Join(p.DesktopDir, "appdock-"+stem+".desktop")
}

// UpdateDesktopFile rewrites the app's desktop entry from its current
// metadata. Environment variables are injected through an env prefix on
// the Exec line; values are already shell-quoted.
func (p *DirProvider) UpdateDesktopFile(app *App) error {
	if err := os.MkdirAll(p.DesktopDir, 0755); err != nil {
		return fmt.Errorf("failed to create desktop entry directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", app.Name)
	fmt.Fprintf(&b, "Exec=%s\n", execLine(app))
	fmt.Fprintf(&b, "Icon=%s\n", p.Icon(app))
	fmt.Fprintf(&b, "Terminal=%t\n", app.Terminal)
	if app.Version != "" {
		fmt.Fprintf(&b, "X-AppImage-Version=%s\n", app.Version)
	}

	path := p.desktopPath(app)
	tmp, err := os.CreateTemp(p.DesktopDir, ".desktop-*")
	if err != nil {
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write desktop entry: %w", err)
	}
	return nil
}

// execLine builds the Exec value: an env prefix when variables are set,
// the quoted bundle path, then any launch arguments.
func execLine(app *App) string {
	parts := make([]string, 0, len(app.EnvVars)+len(app.ExecArgs)+2)
	if len(app.EnvVars) > 0 {
		parts = append(parts, "env")
		parts = append(parts, app.EnvVars...)
	}
	parts = append(parts, fmt.Sprintf("%q", app.Path))
	parts = append(parts, app.ExecArgs...)
	return strings.Join(parts, " ")
}

// readDesktopComment extracts the Comment value from a desktop entry
// file.
func readDesktopComment(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if value, ok := strings.CutPrefix(line, "Comment="); ok {
			return value, nil
		}
	}
	return "", scanner.Err()
}
