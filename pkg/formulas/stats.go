// Package formulas holds the pure numeric calculations used by the portfolio
// trend and fund analytics. Everything here is side-effect free.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns × sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(252)
}

// CalculateReturns converts a value series to percentage returns
// Returns[i] = (Value[i] - Value[i-1]) / Value[i-1]
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return returns
}

// Correlation calculates the Pearson correlation coefficient between two series
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
