package index

const schema = `
CREATE TABLE IF NOT EXISTS apps (
    storage_name TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    version TEXT,
    provenance TEXT,
    file_path TEXT NOT NULL,
    trusted BOOLEAN,
    terminal BOOLEAN,
    exec_args TEXT,
    env_vars TEXT,
    installed_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    app TEXT NOT NULL,
    action TEXT NOT NULL,
    detail TEXT,
    timestamp TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_apps_name ON apps(name);
CREATE INDEX IF NOT EXISTS idx_events_app ON events(app);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events(timestamp);
`
