package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS statuses (
    merchant_id          TEXT NOT NULL,
    merchant_key         TEXT NOT NULL,
    indicator            TEXT NOT NULL,
    status               TEXT NOT NULL,
    row_num              INTEGER NOT NULL,
    source_path          TEXT NOT NULL,
    imported_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    skipped_rows         INTEGER NOT NULL DEFAULT 0,
    layout               TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_statuses_key ON statuses(merchant_key);
`

// layoutColumnSQL upgrades file_tracker tables created before the layout
// column existed. Their rows keep an empty layout and so re-import once.
const layoutColumnSQL = `ALTER TABLE file_tracker ADD COLUMN layout TEXT NOT NULL DEFAULT ''`
