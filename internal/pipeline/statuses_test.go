package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
	"github.com/theirongolddev/kpicast/internal/store"
)

const statusCSV = "가맹점,지표,미래상태\n" +
	"ABC123,매출안정성지표,안전\n" +
	"ABC123,경쟁우위 지표,위험\n" +
	"abd777,고객 충성도 지표,경고\n" +
	"XYZ,매출안정성지표,???\n"

func TestStatusListLookup(t *testing.T) {
	l := StatusList{
		{MerchantID: "ABC123", Indicator: "a", Status: model.StatusSafe},
		{MerchantID: "abd777", Indicator: "b", Status: model.StatusWarning},
	}
	got, _ := l.Lookup("AB")
	if len(got) != 2 {
		t.Errorf("Lookup(AB) = %d, want 2", len(got))
	}
	got, _ = l.Lookup("c12")
	if len(got) != 1 || got[0].MerchantID != "ABC123" {
		t.Errorf("Lookup(c12) = %+v", got)
	}
}

func TestLoadStatusesDirect(t *testing.T) {
	p := writeFile(t, t.TempDir(), "status.csv", statusCSV)
	res, err := LoadStatuses(StatusSource{Path: p, Columns: DefaultStatusColumns()}, nil)
	if err != nil {
		t.Fatalf("LoadStatuses: %v", err)
	}
	if res.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", res.Skipped)
	}
	got, _ := res.Lookup.Lookup("abc")
	if len(got) != 2 || got[1].Status != model.StatusDanger {
		t.Errorf("Lookup(abc) = %+v", got)
	}
}

func TestLoadStatusesCached(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "status.csv", statusCSV)
	cache, err := store.Open(filepath.Join(dir, "status.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	src := StatusSource{Path: p, Columns: DefaultStatusColumns()}
	first, err := LoadStatuses(src, cache)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.CacheHit {
		t.Error("first load should not be a cache hit")
	}

	second, err := LoadStatuses(src, cache)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !second.CacheHit || second.Skipped != 1 {
		t.Errorf("second load = %+v, want cache hit with 1 skipped", second)
	}
	got, _ := second.Lookup.Lookup("ABD")
	if len(got) != 1 || got[0].Status != model.StatusWarning {
		t.Errorf("Lookup(ABD) = %+v", got)
	}

	// Rewriting the file invalidates the cache.
	if err := os.WriteFile(p, []byte("가맹점,지표,미래상태\nNEW1,매출안정성지표,safe\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	_ = os.Chtimes(p, later, later)

	third, err := LoadStatuses(src, cache)
	if err != nil {
		t.Fatalf("third load: %v", err)
	}
	if third.CacheHit {
		t.Error("changed file served from cache")
	}
	if got, _ := third.Lookup.Lookup("abc"); len(got) != 0 {
		t.Errorf("stale rows after re-import: %+v", got)
	}
}

func TestLoadStatusesColumnChangeReimports(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "status.csv", "가맹점,지점,지표,미래상태\nHQ1,BR9,매출안정성지표,위험\n")
	cache, err := store.Open(filepath.Join(dir, "status.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cache.Close() }()

	src := StatusSource{Path: p, Columns: DefaultStatusColumns()}
	if _, err := LoadStatuses(src, cache); err != nil {
		t.Fatalf("first load: %v", err)
	}

	src.Columns.MerchantID = "지점"
	res, err := LoadStatuses(src, cache)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if res.CacheHit {
		t.Error("changed column mapping served from cache")
	}
	if got, _ := res.Lookup.Lookup("br9"); len(got) != 1 || got[0].MerchantID != "BR9" {
		t.Errorf("Lookup(br9) = %+v, want the row keyed by the new column", got)
	}
	if got, _ := res.Lookup.Lookup("hq1"); len(got) != 0 {
		t.Errorf("rows parsed under the old mapping remain: %+v", got)
	}

	again, err := LoadStatuses(src, cache)
	if err != nil {
		t.Fatal(err)
	}
	if !again.CacheHit {
		t.Error("unchanged file and mapping should hit the cache")
	}
}

func TestLoadStatusesMissing(t *testing.T) {
	_, err := LoadStatuses(StatusSource{Path: filepath.Join(t.TempDir(), "none.csv")}, nil)
	var mf *MissingFileError
	if !errors.As(err, &mf) || mf.Role != "status" {
		t.Fatalf("err = %v, want status MissingFileError", err)
	}
}
