package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stillwater-systems/appdock/internal/appimage"
)

// App operations

// Upsert inserts or replaces an app row keyed by storage name.
func (s *Store) Upsert(app *appimage.App) error {
	execArgsJSON, err := json.Marshal(app.ExecArgs)
	if err != nil {
		return fmt.Errorf("failed to marshal exec args: %w", err)
	}
	envVarsJSON, err := json.Marshal(app.EnvVars)
	if err != nil {
		return fmt.Errorf("failed to marshal env vars: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO apps
		(storage_name, name, version, provenance, file_path, trusted, terminal, exec_args, env_vars, installed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		app.StorageName,
		app.Name,
		app.Version,
		app.Provenance,
		app.Path,
		app.Trusted,
		app.Terminal,
		string(execArgsJSON),
		string(envVarsJSON),
		app.InstalledAt.Format(time.RFC3339),
	)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to upsert app %s", app.Name), err)
	}
	return nil
}

const appColumns = `storage_name, name, version, provenance, file_path, trusted, terminal, exec_args, env_vars, installed_at`

// scanApp reads one app row. Loaded apps always carry the installed
// status; anything else is runtime-only state.
func scanApp(scan func(dest ...any) error) (*appimage.App, error) {
	var app appimage.App
	var installedAt string
	var execArgsJSON, envVarsJSON string

	err := scan(
		&app.StorageName,
		&app.Name,
		&app.Version,
		&app.Provenance,
		&app.Path,
		&app.Trusted,
		&app.Terminal,
		&execArgsJSON,
		&envVarsJSON,
		&installedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Status = appimage.StatusInstalled

	app.InstalledAt, err = time.Parse(time.RFC3339, installedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse installed_at for %s: %w", app.Name, err)
	}
	if err := json.Unmarshal([]byte(execArgsJSON), &app.ExecArgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exec args for %s: %w", app.Name, err)
	}
	if err := json.Unmarshal([]byte(envVarsJSON), &app.EnvVars); err != nil {
		return nil, fmt.Errorf("failed to unmarshal env vars for %s: %w", app.Name, err)
	}
	return &app, nil
}

// Get retrieves an app by storage name.
func (s *Store) Get(storageName string) (*appimage.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps WHERE storage_name = ?`

	row := s.db.QueryRow(query, storageName)
	app, err := scanApp(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("app %s not found", storageName)
	}
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get app %s", storageName), err)
	}
	return app, nil
}

// FindByName returns every installed app with the given identity.
// KeepBoth installs make more than one row share a name.
func (s *Store) FindByName(name string) ([]*appimage.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps WHERE name = ? ORDER BY installed_at`

	rows, err := s.db.Query(query, name)
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to find app %s", name), err)
	}
	defer rows.Close()

	return collectApps(rows)
}

// List returns all installed apps ordered by name.
func (s *Store) List() ([]*appimage.App, error) {
	query := `SELECT ` + appColumns + ` FROM apps ORDER BY name, installed_at`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, wrapQueryErr("failed to list apps", err)
	}
	defer rows.Close()

	return collectApps(rows)
}

func collectApps(rows *sql.Rows) ([]*appimage.App, error) {
	var apps []*appimage.App
	for rows.Next() {
		app, err := scanApp(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating apps: %w", err)
	}
	return apps, nil
}

// Delete removes an app row by storage name.
func (s *Store) Delete(storageName string) error {
	result, err := s.db.Exec(`DELETE FROM apps WHERE storage_name = ?`, storageName)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to delete app %s", storageName), err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("app %s not found", storageName)
	}
	return nil
}

// SetTrusted flips the persisted trust flag. The gate is one-way:
// requests to clear it are ignored.
func (s *Store) SetTrusted(storageName string, trusted bool) error {
	if !trusted {
		return nil
	}
	_, err := s.db.Exec(`UPDATE apps SET trusted = ? WHERE storage_name = ?`, trusted, storageName)
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to set trust for %s", storageName), err)
	}
	return nil
}

// Event operations

// RecordEvent appends a lifecycle event to the journal.
func (s *Store) RecordEvent(app, action, detail string) error {
	query := `INSERT INTO events (app, action, detail, timestamp) VALUES (?, ?, ?, ?)`

	_, err := s.db.Exec(query, app, action, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return wrapQueryErr(fmt.Sprintf("failed to record %s event for %s", action, app), err)
	}
	return nil
}

// Events returns the journal entries for an app since the given time,
// newest first.
func (s *Store) Events(app string, since time.Time) ([]*Event, error) {
	query := `
		SELECT id, app, action, detail, timestamp
		FROM events
		WHERE app = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := s.db.Query(query, app, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, wrapQueryErr(fmt.Sprintf("failed to get events for %s", app), err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var event Event
		var timestamp string
		if err := rows.Scan(&event.ID, &event.App, &event.Action, &event.Detail, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// EventCount returns the total number of journal entries.
func (s *Store) EventCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count)
	if err != nil {
		return 0, wrapQueryErr("failed to count events", err)
	}
	return count, nil
}
