package schema

// ForecastMetrics holds holdout accuracy. Fields are nil when the holdout is empty.
type ForecastMetrics struct {
	MAE  *float64 `json:"mae"`
	RMSE *float64 `json:"rmse"`
	MAPE *float64 `json:"mape"` // percent, so 12.5 means 12.5%
}

// Backtest pairs observed and predicted values over the holdout tail.
type Backtest struct {
	X     []string  `json:"x"`
	YTrue []float64 `json:"y_true"`
	YHat  []float64 `json:"y_hat"`
}

// Projection holds predicted values for future periods.
type Projection struct {
	X    []string  `json:"x"`
	YHat []float64 `json:"y_hat"`
}

// ForecastResult is a fitted trend and seasonal forecast for one target.
type ForecastResult struct {
	Target      string          `json:"target"`
	DateCol     string          `json:"dateCol"`
	Horizon     int             `json:"horizon"`
	Frequency   Frequency       `json:"frequency"`
	Aggregation Aggregation     `json:"aggregation"`
	Metrics     ForecastMetrics `json:"metrics"`
	Backtest    Backtest        `json:"backtest"`
	Forecast    Projection      `json:"forecast"`
}

// Total sums the projected values.
func (f *ForecastResult) Total() float64 {
	var s float64
	for _, v := range f.Forecast.YHat {
		s += v
	}
	return s
}
