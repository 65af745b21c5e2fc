package source

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/model"
)

// ThresholdTable is the per-indicator threshold sheet, indexed by indicator.
type ThresholdTable struct {
	keys []string                     // index labels in sheet order
	rows map[string]map[string]string // index label -> header -> raw cell

	idxMap map[string]string // Norm(index label) -> index label
	colMap map[string]string // Norm(header) -> header

	warnCol   string
	dangerCol string
}

// ParseThresholds builds the threshold index. Index labels have plain spaces
// removed and are trimmed; the first occurrence of a duplicate label wins.
func ParseThresholds(t *Table, cols ThresholdColumns) (*ThresholdTable, error) {
	tt := &ThresholdTable{
		rows:   make(map[string]map[string]string),
		idxMap: make(map[string]string),
		colMap: make(map[string]string),
	}
	for _, h := range t.Header {
		tt.colMap[Norm(h)] = h
	}
	tt.warnCol = tt.Column(cols.Warning)
	tt.dangerCol = tt.Column(cols.Danger)

	if len(t.Rows) == 0 {
		return tt, nil
	}

	idx := t.ColumnIndex(cols.Indicator)
	if idx < 0 {
		return nil, fmt.Errorf("%s: %w %q", t.Path, ErrMissingColumn, cols.Indicator)
	}

	for i := range t.Rows {
		key := strings.TrimSpace(strings.ReplaceAll(t.Cell(i, idx), " ", ""))
		if key == "" {
			continue
		}
		if _, dup := tt.rows[key]; dup {
			continue
		}
		row := make(map[string]string, len(t.Header))
		for j, h := range t.Header {
			row[h] = t.Cell(i, j)
		}
		tt.keys = append(tt.keys, key)
		tt.rows[key] = row
		if _, taken := tt.idxMap[Norm(key)]; !taken {
			tt.idxMap[Norm(key)] = key
		}
	}
	return tt, nil
}

// Column resolves a header name through the normalized header map, falling
// back to name itself when nothing matches.
func (tt *ThresholdTable) Column(name string) string {
	if h, ok := tt.colMap[Norm(name)]; ok {
		return h
	}
	return name
}

// Resolve maps an indicator name to its index label.
func (tt *ThresholdTable) Resolve(indicator string) (string, bool) {
	key, ok := tt.idxMap[Norm(indicator)]
	return key, ok
}

// Keys returns the index labels in sheet order.
func (tt *ThresholdTable) Keys() []string {
	return append([]string(nil), tt.keys...)
}

// Len returns the number of indexed indicators.
func (tt *ThresholdTable) Len() int {
	return len(tt.keys)
}

// Threshold parses the warning and danger cells of the row at key.
func (tt *ThresholdTable) Threshold(key string) (model.Threshold, error) {
	row, ok := tt.rows[key]
	if !ok {
		return model.Threshold{}, fmt.Errorf("no threshold row %q", key)
	}

	warn, ok := ParseNumber(row[tt.warnCol])
	if !ok {
		return model.Threshold{}, fmt.Errorf("warning level %q for %q is not numeric", row[tt.warnCol], key)
	}
	danger, ok := ParseNumber(row[tt.dangerCol])
	if !ok {
		return model.Threshold{}, fmt.Errorf("danger level %q for %q is not numeric", row[tt.dangerCol], key)
	}
	return model.Threshold{Indicator: key, Warning: warn, Danger: danger}, nil
}
