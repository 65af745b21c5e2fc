package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/theirongolddev/kpicast/internal/source"
)

// DefaultIndicators is the ordered list of indicators forecast by default.
var DefaultIndicators = []string{"매출안정성지표", "경쟁우위 지표", "고객 충성도 지표"}

var englishLabels = map[string]string{
	"매출안정성지표": "Sales Stability Index",
	"경쟁우위지표":  "Competitive Advantage Index",
	"고객충성도지표": "Customer Loyalty Index",
}

// EnglishLabel returns the English display name of an indicator, or the name
// itself when none is known.
func EnglishLabel(indicator string) string {
	if l, ok := englishLabels[source.Norm(indicator)]; ok {
		return l
	}
	return indicator
}

// Paths locates the input sheets. An empty sheet name selects the first sheet.
type Paths struct {
	KPI            string
	KPISheet       string
	Thresholds     string
	ThresholdSheet string
}

// Columns names the fixed columns of both input sheets.
type Columns struct {
	KPI       source.KPIColumns
	Threshold source.ThresholdColumns
}

// DefaultColumns returns the column names used by the upstream KPI exports.
func DefaultColumns() Columns {
	return Columns{
		KPI: source.KPIColumns{
			MerchantID:  "가맹점구분번호",
			YearMonth:   "기준년월",
			ClosureFlag: "폐업여부",
		},
		Threshold: source.ThresholdColumns{
			Indicator: "지표",
			Warning:   "경고임계치",
			Danger:    "위험임계치",
		},
	}
}

// Inputs is everything a run needs, built once by the caller.
type Inputs struct {
	KPI        *source.KPITable
	Thresholds *source.ThresholdTable
	Indicators []string
}

// MissingFileError reports an input file that does not exist.
type MissingFileError struct {
	Role string // "kpi" or "thresholds"
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s file not found: %s", e.Role, e.Path)
}

// Unwrap lets errors.Is(err, fs.ErrNotExist) match.
func (e *MissingFileError) Unwrap() error { return fs.ErrNotExist }

// LoadInputs reads and indexes the KPI and threshold sheets. Both files are
// checked before either is parsed; a missing one yields *MissingFileError.
// A nil or empty indicators list selects DefaultIndicators.
func LoadInputs(paths Paths, cols Columns, indicators []string) (*Inputs, error) {
	for _, f := range []struct{ role, path string }{
		{"kpi", paths.KPI},
		{"thresholds", paths.Thresholds},
	} {
		if _, err := os.Stat(f.path); err != nil {
			if errors.Is(err, fs.ErrNotExist) || f.path == "" {
				return nil, &MissingFileError{Role: f.role, Path: f.path}
			}
			return nil, fmt.Errorf("checking %s file: %w", f.role, err)
		}
	}

	kt, err := source.ReadTable(paths.KPI, paths.KPISheet)
	if err != nil {
		return nil, fmt.Errorf("reading kpi table: %w", err)
	}
	kpi, err := source.ParseKPI(kt, cols.KPI)
	if err != nil {
		return nil, fmt.Errorf("parsing kpi table: %w", err)
	}

	tt, err := source.ReadTable(paths.Thresholds, paths.ThresholdSheet)
	if err != nil {
		return nil, fmt.Errorf("reading threshold table: %w", err)
	}
	thresholds, err := source.ParseThresholds(tt, cols.Threshold)
	if err != nil {
		return nil, fmt.Errorf("parsing threshold table: %w", err)
	}

	if len(indicators) == 0 {
		indicators = DefaultIndicators
	}
	return &Inputs{
		KPI:        kpi,
		Thresholds: thresholds,
		Indicators: append([]string(nil), indicators...),
	}, nil
}
