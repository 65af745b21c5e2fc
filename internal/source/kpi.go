package source

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
)

// ErrMissingColumn is returned when a sheet with data lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// KPITable is the parsed per-merchant KPI sheet.
type KPITable struct {
	Records []model.KPIRecord
	Columns []string // every trimmed header, in sheet order
	Dropped int      // rows skipped for an unreadable id, month or closure flag
}

// HasColumn reports whether column is an exact header of the table.
func (k *KPITable) HasColumn(column string) bool {
	for _, c := range k.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ParseKPI converts a raw table into KPI records. Every column other than the
// fixed ones is parsed as a numeric indicator; unreadable cells become nil.
func ParseKPI(t *Table, cols KPIColumns) (*KPITable, error) {
	out := &KPITable{Columns: append([]string(nil), t.Header...)}
	if len(t.Rows) == 0 {
		return out, nil
	}

	idIdx := t.ColumnIndex(cols.MerchantID)
	ymIdx := t.ColumnIndex(cols.YearMonth)
	flagIdx := t.ColumnIndex(cols.ClosureFlag)
	for name, idx := range map[string]int{
		cols.MerchantID:  idIdx,
		cols.YearMonth:   ymIdx,
		cols.ClosureFlag: flagIdx,
	} {
		if idx < 0 {
			return nil, fmt.Errorf("%s: %w %q", t.Path, ErrMissingColumn, name)
		}
	}

	out.Records = make([]model.KPIRecord, 0, len(t.Rows))
	for i := range t.Rows {
		id := strings.TrimSpace(t.Cell(i, idIdx))
		month, okMonth := ParseYearMonth(t.Cell(i, ymIdx))
		closed, okFlag := parseFlag(t.Cell(i, flagIdx))
		if id == "" || !okMonth || !okFlag {
			out.Dropped++
			continue
		}

		rec := model.KPIRecord{
			MerchantID: id,
			Month:      month,
			Closed:     closed,
			Values:     make(map[string]*float64, max(len(t.Header)-3, 0)),
		}
		for j, h := range t.Header {
			if j == idIdx || j == ymIdx || j == flagIdx || h == "" {
				continue
			}
			if v, ok := ParseNumber(t.Cell(i, j)); ok {
				rec.Values[h] = &v
			} else {
				rec.Values[h] = nil
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// ParseYearMonth parses YYYYMM (optionally with a trailing ".0" from a numeric
// cell), YYYY-MM or YYYY-MM-DD into the first day of that month in UTC.
func ParseYearMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".0")

	for _, layout := range []string{"200601", "2006-01", "2006-01-02", "2006/01"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseNumber parses a numeric cell, tolerating thousands separators and
// surrounding whitespace. Empty, NaN and non-numeric cells report false.
func ParseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(Norm(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func parseFlag(s string) (closed bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "0.0", "false", "n":
		return false, true
	case "1", "1.0", "true", "y":
		return true, true
	}
	return false, false
}
