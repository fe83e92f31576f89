package stats

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if got := Percentile(sorted, 50); got != 6 {
		t.Errorf("Percentile(50) = %f, want 6", got)
	}
	if got := Percentile(sorted, 0); got != 1 {
		t.Errorf("Percentile(0) = %f, want 1", got)
	}
	if got := Percentile(sorted, 100); got != 10 {
		t.Errorf("Percentile(100) = %f, want 10", got)
	}
	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil) = %f, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"odd", []float64{5, 1, 3}, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.xs); got != tt.want {
				t.Errorf("Median(%v) = %f, want %f", tt.xs, got, tt.want)
			}
		})
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Mean = %f, want 2.5", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %f, want 0", got)
	}
}

func TestSampleStd(t *testing.T) {
	// Sample (n-1) convention: std of {1,3,5} is 2.
	if got := SampleStd([]float64{1, 3, 5}); math.Abs(got-2) > 1e-12 {
		t.Errorf("SampleStd = %f, want 2", got)
	}
	if got := SampleStd([]float64{4}); !math.IsNaN(got) {
		t.Errorf("SampleStd of one value = %f, want NaN", got)
	}
	if got := SampleStd([]float64{3, 3, 3}); got != 0 {
		t.Errorf("SampleStd of constant values = %f, want 0", got)
	}
}

func TestSampleVariance(t *testing.T) {
	if got := SampleVariance([]float64{1, 3, 5}); math.Abs(got-4) > 1e-12 {
		t.Errorf("SampleVariance = %f, want 4", got)
	}
	if got := SampleVariance([]float64{1}); !math.IsNaN(got) {
		t.Errorf("SampleVariance of one value = %f, want NaN", got)
	}
}
