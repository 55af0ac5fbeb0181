package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio from periodic
// returns.
//
//	Sharpe = (Mean Return - Periodic Risk-free Rate) / Std Dev of Returns
//	Annualized: Sharpe × sqrt(periodsPerYear)
//
// Returns nil when there are too few returns or zero volatility.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (Mean(returns) - periodicRiskFree) / stdDev
	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// CalculateSharpeFromValues calculates the Sharpe ratio directly from a daily
// value series.
func CalculateSharpeFromValues(values []float64, riskFreeRate float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	return CalculateSharpeRatio(CalculateReturns(values), riskFreeRate, 252)
}
