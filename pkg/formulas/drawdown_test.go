package formulas

import (
	"math"
	"testing"
)

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name      string
		prices    []float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "too short",
			prices:    []float64{100},
			expected:  0.0,
			tolerance: 0.0,
		},
		{
			name:      "monotonic rise has no drawdown",
			prices:    []float64{100, 110, 120, 130},
			expected:  0.0,
			tolerance: 0.0,
		},
		{
			name:      "single crash",
			prices:    []float64{100, 120, 60, 80},
			expected:  -0.5, // 60 from peak 120
			tolerance: 1e-9,
		},
		{
			name:      "later deeper trough",
			prices:    []float64{100, 90, 110, 55},
			expected:  -0.5, // 55 from peak 110
			tolerance: 1e-9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaxDrawdown(tt.prices)
			if result > 0 {
				t.Fatalf("MaxDrawdown() = %v, must be <= 0", result)
			}
			if math.Abs(result-tt.expected) > tt.tolerance {
				t.Errorf("MaxDrawdown() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCalculateDrawdownMetrics(t *testing.T) {
	prices := []float64{100, 120, 60, 80}

	m := CalculateDrawdownMetrics(prices)
	if m == nil {
		t.Fatal("CalculateDrawdownMetrics() returned nil")
	}

	if math.Abs(m.MaxDrawdown-(-0.5)) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want -0.5", m.MaxDrawdown)
	}
	if m.PeakValue != 120 {
		t.Errorf("PeakValue = %v, want 120", m.PeakValue)
	}
	if m.DaysInDrawdown != 2 {
		t.Errorf("DaysInDrawdown = %v, want 2", m.DaysInDrawdown)
	}
	if math.Abs(m.CurrentDrawdown-(80.0/120.0-1)) > 1e-9 {
		t.Errorf("CurrentDrawdown = %v, want %v", m.CurrentDrawdown, 80.0/120.0-1)
	}
}
