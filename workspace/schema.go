package workspace

// migrations are applied in order and tracked by PRAGMA user_version.
var migrations = []string{
	`
-- Key/value settings: default_library_path, last_map_path
CREATE TABLE IF NOT EXISTS settings (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);

-- Maps saved or loaded, most recent first
CREATE TABLE IF NOT EXISTS recent_maps (
    path        TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    opened_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recent_maps_opened ON recent_maps(opened_at DESC);

-- Asset libraries opened, most recent first, capped by the application
CREATE TABLE IF NOT EXISTS recent_libraries (
    path        TEXT PRIMARY KEY,
    used_at     INTEGER NOT NULL
);
`,
	`
-- Save/load history
CREATE TABLE IF NOT EXISTS map_events (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL,
    path        TEXT NOT NULL,
    ok          INTEGER NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_map_events_created ON map_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_map_events_path ON map_events(path);
`,
}
