package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

// For k=2 the studentized range reduces to a folded t statistic:
// P(Q <= q) = 2*F_t(q/sqrt(2)) - 1 with df degrees of freedom. This pins
// the quadrature against an independent closed-form reference.
func TestStudentizedRangeCDFMatchesStudentT(t *testing.T) {
	dfs := []int{4, 10, 30, 120}
	qs := []float64{0.5, 1.5, 2.77, 4.0}

	for _, df := range dfs {
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}
		for _, q := range qs {
			got := StudentizedRangeCDF(q, 2, df)
			want := 2*dist.CDF(q/math.Sqrt2) - 1
			if math.Abs(got-want) > 1e-4 {
				t.Errorf("CDF(q=%g, k=2, df=%d) = %.6f, want %.6f", q, df, got, want)
			}
		}
	}
}

func TestStudentizedRangeQuantile(t *testing.T) {
	tests := []struct {
		p    float64
		k    int
		df   int
		want float64
		tol  float64
	}{
		// Standard upper 5% critical values.
		{0.95, 3, 10, 3.877, 0.02},
		{0.95, 3, 100000, 3.314, 0.02},
		{0.95, 2, 100000, 2.772, 0.02},
		{0.95, 4, 20, 3.958, 0.02},
	}

	for _, tt := range tests {
		got := StudentizedRangeQuantile(tt.p, tt.k, tt.df)
		if math.Abs(got-tt.want) > tt.tol {
			t.Errorf("Quantile(p=%g, k=%d, df=%d) = %.4f, want %.4f (tol %.3f)",
				tt.p, tt.k, tt.df, got, tt.want, tt.tol)
		}
	}
}

func TestStudentizedRangeCDFMonotone(t *testing.T) {
	prev := -1.0
	for q := 0.1; q <= 8.0; q += 0.5 {
		cur := StudentizedRangeCDF(q, 4, 12)
		if cur < prev {
			t.Fatalf("CDF not monotone: CDF(%g) = %f < %f", q, cur, prev)
		}
		if cur < 0 || cur > 1 {
			t.Fatalf("CDF(%g) = %f outside [0, 1]", q, cur)
		}
		prev = cur
	}
}

func TestStudentizedRangeRoundTrip(t *testing.T) {
	for _, p := range []float64{0.5, 0.9, 0.95, 0.99} {
		q := StudentizedRangeQuantile(p, 3, 15)
		got := StudentizedRangeCDF(q, 3, 15)
		if math.Abs(got-p) > 1e-6 {
			t.Errorf("CDF(Quantile(%g)) = %.8f, want %.8f", p, got, p)
		}
	}
}

func TestStudentizedRangeCDFEdges(t *testing.T) {
	if got := StudentizedRangeCDF(0, 3, 10); got != 0 {
		t.Errorf("CDF(0) = %f, want 0", got)
	}
	if got := StudentizedRangeCDF(-1, 3, 10); got != 0 {
		t.Errorf("CDF(-1) = %f, want 0", got)
	}
	if got := StudentizedRangeCDF(2.0, 1, 10); got != 0 {
		t.Errorf("CDF with k=1 = %f, want 0", got)
	}
	if got := StudentizedRangeCDF(50, 3, 10); got < 1-1e-6 {
		t.Errorf("CDF(50) = %f, want ~1", got)
	}
}
