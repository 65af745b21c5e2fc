// Package model defines the core data types for KPI forecasting.
package model

import "time"

// KPIRecord is one merchant-month row of the KPI table.
type KPIRecord struct {
	MerchantID string
	Month      time.Time // first day of the YYYYMM month, UTC
	Closed     bool

	// Values maps the trimmed column header to the cell value.
	// A nil entry means the cell was empty or not numeric.
	Values map[string]*float64
}

// Value returns the value for column and whether it is present.
func (r KPIRecord) Value(column string) (float64, bool) {
	v, ok := r.Values[column]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// Threshold holds the warning and danger cutoffs for one indicator.
type Threshold struct {
	Indicator string // original (trimmed) label from the threshold sheet
	Warning   float64
	Danger    float64
}

// Point is a single observation of an indicator series.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
