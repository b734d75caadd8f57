package formulas

import (
	"math"
)

// SharpeRatio calculates the annualized Sharpe ratio from daily returns.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (mean(returns)×252 − riskFreeRate) / (std(returns)×sqrt(252))
//
// Zero-variance policy: a series with zero standard deviation has no
// defined Sharpe ratio; this returns 0 rather than NaN. The same policy
// applies to SortinoRatio below.
//
// Args:
//
//	returns: Daily fractional returns (0.01 = 1%)
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.02 for 2%)
//
// Returns:
//
//	Annualized Sharpe ratio, or 0 for empty or zero-variance series
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return 0
	}

	annualReturn := Mean(returns) * TradingDaysPerYear
	annualVol := stdDev * math.Sqrt(TradingDaysPerYear)

	return (annualReturn - riskFreeRate) / annualVol
}

// SortinoRatio calculates the annualized Sortino ratio from daily returns.
// Like Sharpe, but the denominator is downside deviation: the standard
// deviation of returns below zero, annualized.
//
// Returns 0 when there are no negative returns (zero downside deviation).
func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}

	downsideDev := StdDev(downside)
	if downsideDev == 0 {
		return 0
	}

	annualReturn := Mean(returns) * TradingDaysPerYear
	annualDownside := downsideDev * math.Sqrt(TradingDaysPerYear)

	return (annualReturn - riskFreeRate) / annualDownside
}

// Beta calculates the CAPM beta of a return series against a benchmark:
// Cov(returns, benchmark) / Var(benchmark).
//
// Both series must be aligned on the same date index (equal length, same
// order); misaligned inputs are a caller contract violation and return 0.
func Beta(returns, benchmarkReturns []float64) float64 {
	if len(returns) != len(benchmarkReturns) || len(returns) < 2 {
		return 0
	}

	benchVar := Variance(benchmarkReturns)
	if benchVar == 0 {
		return 0
	}

	return Covariance(returns, benchmarkReturns) / benchVar
}

// Alpha calculates the annualized CAPM residual:
//
//	alpha = mean(returns)×252 − [rf + beta×(mean(benchmark)×252 − rf)]
func Alpha(returns, benchmarkReturns []float64, riskFreeRate float64) float64 {
	if len(returns) != len(benchmarkReturns) || len(returns) < 2 {
		return 0
	}

	beta := Beta(returns, benchmarkReturns)
	annualReturn := Mean(returns) * TradingDaysPerYear
	annualBench := Mean(benchmarkReturns) * TradingDaysPerYear

	return annualReturn - (riskFreeRate + beta*(annualBench-riskFreeRate))
}
