package source

// Table is a sheet read from disk: a trimmed header row plus raw string cells.
// Rows may be shorter than Header when trailing cells are empty.
type Table struct {
	Path   string
	Sheet  string
	Header []string
	Rows   [][]string
}

// Cell returns the cell at row i, column j, or "" when out of range.
func (t *Table) Cell(i, j int) string {
	if i < 0 || i >= len(t.Rows) || j < 0 || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// ColumnIndex returns the position of the header equal to name, falling back
// to a normalized comparison. It returns -1 when no header matches.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	key := Norm(name)
	for i, h := range t.Header {
		if Norm(h) == key {
			return i
		}
	}
	return -1
}

// KPIColumns names the fixed columns of the KPI sheet.
type KPIColumns struct {
	MerchantID  string
	YearMonth   string
	ClosureFlag string
}

// ThresholdColumns names the columns of the threshold sheet.
type ThresholdColumns struct {
	Indicator string
	Warning   string
	Danger    string
}

// StatusColumns names the columns of the per-merchant status sheet.
type StatusColumns struct {
	MerchantID string
	Indicator  string
	Status     string
}
