package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/source"
	"github.com/theirongolddev/kpicast/internal/store"
)

// StatusLookup finds the future statuses of merchants whose id contains a
// query string, ignoring case.
type StatusLookup interface {
	Lookup(query string) ([]model.StatusRecord, error)
}

// StatusList is an in-memory StatusLookup.
type StatusList []model.StatusRecord

// Lookup implements StatusLookup.
func (l StatusList) Lookup(query string) ([]model.StatusRecord, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	var out []model.StatusRecord
	for _, r := range l {
		if strings.Contains(strings.ToLower(r.MerchantID), query) {
			out = append(out, r)
		}
	}
	return out, nil
}

// StatusLoadResult describes how the status sheet was obtained.
type StatusLoadResult struct {
	Lookup   StatusLookup
	Skipped  int  // rows rejected on import
	CacheHit bool // served from the cache without re-reading the file
}

// StatusSource locates the per-merchant status sheet.
type StatusSource struct {
	Path    string
	Sheet   string
	Columns source.StatusColumns
}

// layout identifies how rows are read from the file. A cached import is
// only reused under the same layout.
func (s StatusSource) layout() string {
	return strings.Join([]string{s.Sheet, s.Columns.MerchantID, s.Columns.Indicator, s.Columns.Status}, "\x1f")
}

// DefaultStatusColumns returns the column names of the upstream status export.
func DefaultStatusColumns() source.StatusColumns {
	return source.StatusColumns{MerchantID: "가맹점", Indicator: "지표", Status: "미래상태"}
}

// LoadStatuses reads the status sheet. With a cache, the file is re-imported
// only when its mtime or size, or the sheet and columns it is read with,
// changed since the last import; lookups are then served from the cache. A nil cache reads the file directly.
func LoadStatuses(src StatusSource, cache *store.Cache) (*StatusLoadResult, error) {
	info, err := os.Stat(src.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || src.Path == "" {
			return nil, &MissingFileError{Role: "status", Path: src.Path}
		}
		return nil, fmt.Errorf("checking status file: %w", err)
	}

	if cache != nil {
		tracked, ok, err := cache.TrackedFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("reading cache: %w", err)
		}
		if ok && tracked.Matches(info) && tracked.Layout == src.layout() {
			return &StatusLoadResult{Lookup: cache, Skipped: tracked.Skipped, CacheHit: true}, nil
		}
	}

	t, err := source.ReadTable(src.Path, src.Sheet)
	if err != nil {
		return nil, fmt.Errorf("reading status table: %w", err)
	}
	parsed, err := source.ParseStatuses(t, src.Columns)
	if err != nil {
		return nil, fmt.Errorf("parsing status table: %w", err)
	}

	if cache == nil {
		return &StatusLoadResult{Lookup: StatusList(parsed.Records), Skipped: parsed.Skipped}, nil
	}

	fi := store.FileInfo{
		MtimeNs:   info.ModTime().UnixNano(),
		SizeBytes: info.Size(),
		Skipped:   parsed.Skipped,
		Layout:    src.layout(),
	}
	if err := cache.ReplaceStatuses(src.Path, parsed.Records, fi); err != nil {
		return nil, fmt.Errorf("caching statuses: %w", err)
	}
	return &StatusLoadResult{Lookup: cache, Skipped: parsed.Skipped}, nil
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "kpicast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "kpicast")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "status.db")
}
