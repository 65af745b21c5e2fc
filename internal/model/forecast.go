package model

import "time"

// Columns is the canonical output schema of a forecast table, in order.
var Columns = []string{
	"Model", "Indicator", "Forecast Mean", "MAE", "RMSE", "MAPE(%)",
	"Warning Threshold", "Danger Threshold",
}

// ColumnsKorean is the Korean rendering of Columns.
var ColumnsKorean = []string{
	"모델", "지표", "예측 평균", "MAE", "RMSE", "MAPE(%)",
	"경고임계치", "위험임계치",
}

// ColumnLabels returns the header set for lang ("en" or "ko").
func ColumnLabels(lang string) []string {
	if lang == "ko" {
		return ColumnsKorean
	}
	return Columns
}

// Chart is a rendered visualization of a forecast.
type Chart struct {
	Title string
	Body  string
}

// ForecastRow is the evaluated forecast for one indicator.
type ForecastRow struct {
	Model     string    `json:"model"`
	Indicator string    `json:"indicator"`
	Label     string    `json:"label"` // English display name
	Column    string    `json:"column"`
	Forecast  []Point   `json:"forecast"`
	History   []Point   `json:"-"`
	Horizon   time.Time `json:"horizon_start"` // first forecast month beyond the data

	ForecastMean float64 `json:"forecast_mean"`
	MAE          float64 `json:"mae"`
	RMSE         float64 `json:"rmse"`
	MAPE         float64 `json:"mape_pct"`

	Warning float64 `json:"warning_threshold"`
	Danger  float64 `json:"danger_threshold"`
	Status  Status  `json:"forecast_status"`

	Chart *Chart `json:"-"`
}

// SkipReason explains why an indicator produced no forecast.
type SkipReason string

const (
	SkipThresholdMissing SkipReason = "threshold_missing"
	SkipThresholdInvalid SkipReason = "threshold_invalid"
	SkipColumnMissing    SkipReason = "column_missing"
	SkipInsufficientData SkipReason = "insufficient_data"
	SkipFitFailed        SkipReason = "fit_failed"
)

// Outcome records what happened to one indicator during a run.
type Outcome struct {
	Indicator string     `json:"indicator"`
	Skipped   bool       `json:"skipped"`
	Reason    SkipReason `json:"reason,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	Points    int        `json:"points"`
}
