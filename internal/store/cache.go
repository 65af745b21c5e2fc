// Package store provides a SQLite-backed cache of the merchant status sheet.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed status caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func migrate(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('file_tracker') WHERE name = 'layout'`).Scan(&n)
	if err != nil || n > 0 {
		return err
	}
	_, err = db.Exec(layoutColumnSQL)
	return err
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
	Skipped   int    // rows rejected on import
	Layout    string // sheet and column mapping the rows were parsed with
}

// Matches reports whether info describes the same file contents as fi.
func (fi FileInfo) Matches(info os.FileInfo) bool {
	return fi.MtimeNs == info.ModTime().UnixNano() && fi.SizeBytes == info.Size()
}

// TrackedFile returns the tracking info stored for path.
func (c *Cache) TrackedFile(path string) (FileInfo, bool, error) {
	var fi FileInfo
	err := c.db.QueryRow("SELECT mtime_ns, size_bytes, skipped_rows, layout FROM file_tracker WHERE file_path = ?", path).
		Scan(&fi.MtimeNs, &fi.SizeBytes, &fi.Skipped, &fi.Layout)
	if err == sql.ErrNoRows {
		return FileInfo{}, false, nil
	}
	if err != nil {
		return FileInfo{}, false, err
	}
	return fi, true, nil
}

// ReplaceStatuses swaps the cached statuses for those read from path and
// records the file's tracking info. The cache holds one status file at a
// time.
func (c *Cache) ReplaceStatuses(path string, records []model.StatusRecord, fi FileInfo) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM statuses"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM file_tracker"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO statuses
		(merchant_id, merchant_key, indicator, status, row_num, source_path, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, r := range records {
		_, err := stmt.Exec(r.MerchantID, strings.ToLower(r.MerchantID), r.Indicator,
			r.Status.String(), i, path, now)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker (file_path, mtime_ns, size_bytes, skipped_rows, layout)
		VALUES (?, ?, ?, ?, ?)`, path, fi.MtimeNs, fi.SizeBytes, fi.Skipped, fi.Layout)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Lookup returns the statuses of every merchant whose id contains query,
// ignoring case, in sheet order. An empty query returns nothing.
func (c *Cache) Lookup(query string) ([]model.StatusRecord, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	rows, err := c.db.Query(`SELECT merchant_id, indicator, status FROM statuses
		WHERE instr(merchant_key, ?) > 0 ORDER BY row_num`, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.StatusRecord
	for rows.Next() {
		var r model.StatusRecord
		var status string
		if err := rows.Scan(&r.MerchantID, &r.Indicator, &status); err != nil {
			return nil, err
		}
		if r.Status, err = model.ParseStatus(status); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusCount returns the number of cached status rows.
func (c *Cache) StatusCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM statuses").Scan(&count)
	return count, err
}

// MerchantCount returns the number of distinct cached merchants.
func (c *Cache) MerchantCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(DISTINCT merchant_id) FROM statuses").Scan(&count)
	return count, err
}
