package source

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/kpicast/internal/model"
)

// StatusResult holds the parsed per-merchant status sheet.
type StatusResult struct {
	Records []model.StatusRecord
	Skipped int // rows with an empty id or an unrecognised status label
}

// ParseStatuses reads the merchant/indicator/status table produced outside
// this tool.
func ParseStatuses(t *Table, cols StatusColumns) (*StatusResult, error) {
	res := &StatusResult{}
	if len(t.Rows) == 0 {
		return res, nil
	}

	idIdx := t.ColumnIndex(cols.MerchantID)
	indIdx := t.ColumnIndex(cols.Indicator)
	stIdx := t.ColumnIndex(cols.Status)
	for name, idx := range map[string]int{
		cols.MerchantID: idIdx,
		cols.Indicator:  indIdx,
		cols.Status:     stIdx,
	} {
		if idx < 0 {
			return nil, fmt.Errorf("%s: %w %q", t.Path, ErrMissingColumn, name)
		}
	}

	for i := range t.Rows {
		id := strings.TrimSpace(t.Cell(i, idIdx))
		st, err := model.ParseStatus(t.Cell(i, stIdx))
		if id == "" || err != nil {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, model.StatusRecord{
			MerchantID: id,
			Indicator:  strings.TrimSpace(t.Cell(i, indIdx)),
			Status:     st,
		})
	}
	return res, nil
}
