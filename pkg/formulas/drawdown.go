package formulas

// DrawdownMetrics represents drawdown analysis for a portfolio value series.
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // worst peak-to-trough loss (0.25 = 25%)
	CurrentDrawdown float64 `json:"current_drawdown"` // drawdown from peak at the series end
	DaysInDrawdown  int     `json:"days_in_drawdown"` // points since the peak
	PeakValue       float64 `json:"peak_value"`
	CurrentValue    float64 `json:"current_value"`
}

// CalculateMaxDrawdown calculates the maximum drawdown of a value series.
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//
// Returns nil when the series is too short to have a drawdown.
func CalculateMaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CalculateDrawdownMetrics calculates full drawdown metrics including the
// current drawdown and how long the series has been below its peak.
func CalculateDrawdownMetrics(values []float64) *DrawdownMetrics {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]
	peakIndex := 0
	currentValue := values[len(values)-1]

	for i, v := range values {
		if v > peak {
			peak = v
			peakIndex = i
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = (peak - currentValue) / peak
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDrawdown,
		CurrentDrawdown: currentDrawdown,
		DaysInDrawdown:  len(values) - 1 - peakIndex,
		PeakValue:       peak,
		CurrentValue:    currentValue,
	}
}
