package metrics

import (
	"math"
	"testing"

	"montecarlo-lab/internal/domain"
)

func TestPercentileInterpolation(t *testing.T) {
	sorted := []float64{10, 20, 30, 40, 50}

	tests := []struct {
		p    float64
		want float64
	}{
		{0.0, 10},
		{0.25, 20},
		{0.50, 30},
		{0.75, 40},
		{1.0, 50},
		{0.125, 15}, // between first two values
	}

	for _, tt := range tests {
		got := Percentile(sorted, tt.p)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileSingleValue(t *testing.T) {
	if got := Percentile([]float64{42}, 0.95); got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty input, got %v", got)
	}
}

func TestMeanAndStddev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	mean := Mean(values)
	if mean != 5.0 {
		t.Errorf("Mean = %v, want 5.0", mean)
	}

	// Sample stddev with n-1 denominator.
	std := Stddev(values, mean)
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(std-want) > 1e-9 {
		t.Errorf("Stddev = %v, want %v", std, want)
	}
}

func TestStddevDegenerate(t *testing.T) {
	if got := Stddev([]float64{1}, 1); got != 0 {
		t.Errorf("expected 0 for single value, got %v", got)
	}
	if got := Stddev([]float64{3, 3, 3}, 3); got != 0 {
		t.Errorf("expected 0 for constant values, got %v", got)
	}
}

func TestComputeDistributionOrdering(t *testing.T) {
	values := []float64{0.5, -0.2, 0.1, 0.9, -0.7, 0.3, 0.0, 0.4, -0.1, 0.2}

	d := ComputeDistribution(values)

	if !(d.P5 <= d.P25 && d.P25 <= d.Median && d.Median <= d.P75 && d.P75 <= d.P95) {
		t.Errorf("percentiles not ordered: %+v", d)
	}
	if d.Mean != Mean(values) {
		t.Errorf("Mean mismatch: %v", d.Mean)
	}
}

func TestComputeDistributionDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	ComputeDistribution(values)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}

func TestComputeDistributionEmpty(t *testing.T) {
	d := ComputeDistribution(nil)
	if d != (domain.MetricsDistribution{}) {
		t.Errorf("expected zero distribution, got %+v", d)
	}
}

func TestComputeEnvelopeTruncatesToShortest(t *testing.T) {
	curves := []*domain.EquityCurve{
		{Values: []float64{1.0, 1.1, 1.2, 1.3}},
		{Values: []float64{1.0, 0.9, 0.8}},
		{Values: []float64{1.0, 1.05, 1.1, 1.15, 1.2}},
	}

	env := ComputeEnvelope(curves)
	if env == nil {
		t.Fatal("expected envelope")
	}
	if len(env.Timestamps) != 3 {
		t.Fatalf("expected truncation to 3 steps, got %d", len(env.Timestamps))
	}
	for step := 0; step < 3; step++ {
		if !(env.P5[step] <= env.P25[step] && env.P25[step] <= env.Median[step] &&
			env.Median[step] <= env.P75[step] && env.P75[step] <= env.P95[step]) {
			t.Errorf("step %d: bands not ordered", step)
		}
	}
	// All curves share the starting value, so the bands collapse there.
	if env.P5[0] != 1.0 || env.P95[0] != 1.0 {
		t.Errorf("expected tight bands at step 0: p5=%v p95=%v", env.P5[0], env.P95[0])
	}
}

func TestComputeEnvelopeSyntheticOrdinals(t *testing.T) {
	curves := []*domain.EquityCurve{
		{Values: []float64{1.0, 1.1}},
		{Values: []float64{1.0, 0.95}},
	}

	env := ComputeEnvelope(curves)
	if env.Timestamps[0] != "0" || env.Timestamps[1] != "1" {
		t.Errorf("expected ordinal timestamps for unindexed curves, got %v", env.Timestamps)
	}
}

func TestComputeEnvelopeDateTimestamps(t *testing.T) {
	day := int64(86400000)
	curves := []*domain.EquityCurve{
		{TimestampsMs: []int64{19723 * day, 19724 * day}, Values: []float64{1.0, 1.1}},
		{Values: []float64{1.0, 0.95}},
	}

	env := ComputeEnvelope(curves)
	if env.Timestamps[0] != "2024-01-01" {
		t.Errorf("expected formatted date, got %q", env.Timestamps[0])
	}
}

func TestComputeEnvelopeNilOnNoCurves(t *testing.T) {
	if env := ComputeEnvelope(nil); env != nil {
		t.Errorf("expected nil envelope, got %+v", env)
	}
}
