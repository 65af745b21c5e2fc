package pipeline

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// mapeFloor keeps MAPE finite when an observed value is zero.
const mapeFloor = 1e-8

// Metrics are the error statistics of a forecast against observed values.
type Metrics struct {
	MAE  float64
	RMSE float64
	MAPE float64 // percent
}

// Evaluate compares the last n observed values with the last n predicted
// values, where n = min(horizon, len(observed), len(predicted)). It returns
// the metrics and the mean of the compared predictions.
func Evaluate(observed, predicted []float64, horizon int) (Metrics, float64) {
	n := min(horizon, len(observed), len(predicted))
	if n <= 0 {
		return Metrics{}, math.NaN()
	}
	yTrue := observed[len(observed)-n:]
	yPred := predicted[len(predicted)-n:]

	diff := make([]float64, n)
	floats.SubTo(diff, yTrue, yPred)

	abs := make([]float64, n)
	sq := make([]float64, n)
	pct := make([]float64, n)
	for i, d := range diff {
		abs[i] = math.Abs(d)
		sq[i] = d * d
		pct[i] = abs[i] / math.Max(math.Abs(yTrue[i]), mapeFloor)
	}

	m := Metrics{
		MAE:  stat.Mean(abs, nil),
		RMSE: math.Sqrt(stat.Mean(sq, nil)),
		MAPE: stat.Mean(pct, nil) * 100,
	}
	return m, stat.Mean(yPred, nil)
}
