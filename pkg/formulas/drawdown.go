package formulas

// MaxDrawdown calculates the maximum drawdown from a price series.
//
// Drawdown Formula:
//
//	Drawdown[t] = price[t] / running_max(price[0..t]) − 1
//	Max Drawdown = minimum of all drawdowns (always ≤ 0)
//
// Args:
//
//	prices: Array of prices (daily, adjusted close)
//
// Returns:
//
//	Maximum drawdown as a non-positive fraction (−0.25 = 25% loss from peak)
func MaxDrawdown(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			drawdown := price/peak - 1
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return maxDrawdown
}

// DrawdownMetrics represents drawdown analysis results
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // Non-positive fraction
	CurrentDrawdown float64 `json:"current_drawdown"` // Current drawdown from peak
	DaysInDrawdown  int     `json:"days_in_drawdown"` // Days since peak
	PeakValue       float64 `json:"peak_value"`
	CurrentValue    float64 `json:"current_value"`
}

// CalculateDrawdownMetrics calculates comprehensive drawdown metrics
// including current drawdown, days in drawdown, and peak values
func CalculateDrawdownMetrics(prices []float64) *DrawdownMetrics {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]
	peakIndex := 0
	currentValue := prices[len(prices)-1]

	for i, price := range prices {
		if price > peak {
			peak = price
			peakIndex = i
		}
		if peak > 0 {
			drawdown := price/peak - 1
			if drawdown < maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = currentValue/peak - 1
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDrawdown,
		CurrentDrawdown: currentDrawdown,
		DaysInDrawdown:  len(prices) - 1 - peakIndex,
		PeakValue:       peak,
		CurrentValue:    currentValue,
	}
}

// High52Week finds the 52-week high price (last 252 trading days)
func High52Week(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	startIdx := 0
	if len(prices) > TradingDaysPerYear {
		startIdx = len(prices) - TradingDaysPerYear
	}

	relevant := prices[startIdx:]
	high := relevant[0]
	for _, price := range relevant {
		if price > high {
			high = price
		}
	}

	return &high
}

// Low52Week finds the 52-week low price (last 252 trading days)
func Low52Week(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	startIdx := 0
	if len(prices) > TradingDaysPerYear {
		startIdx = len(prices) - TradingDaysPerYear
	}

	relevant := prices[startIdx:]
	low := relevant[0]
	for _, price := range relevant {
		if price < low {
			low = price
		}
	}

	return &low
}
