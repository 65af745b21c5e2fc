// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/kpicast/internal/model"
)

// FormatMetric formats an indicator value or error metric to two decimals.
// Non-finite values render as "n/a".
func FormatMetric(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPercent formats a value already expressed in percent.
// Very large values (MAPE against near-zero actuals) switch to exponent form.
func FormatPercent(pct float64) string {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return "n/a"
	}
	if math.Abs(pct) >= 1e6 {
		return fmt.Sprintf("%.2e%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatMonth formats a month-start date as YYYY-MM.
func FormatMonth(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01")
}

// FormatStatus renders a status label in its tier color.
func FormatStatus(s model.Status, lang string) string {
	return StatusStyle(s).Render(s.Label(lang))
}

// FormatSkipReason returns a human-readable skip reason.
func FormatSkipReason(r model.SkipReason) string {
	switch r {
	case model.SkipThresholdMissing:
		return "no threshold row"
	case model.SkipThresholdInvalid:
		return "threshold not numeric"
	case model.SkipColumnMissing:
		return "no KPI column"
	case model.SkipInsufficientData:
		return "too few observations"
	case model.SkipFitFailed:
		return "model fit failed"
	}
	return string(r)
}
