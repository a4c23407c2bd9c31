package perturb

import (
	"errors"
	"math/rand"
	"testing"

	"montecarlo-lab/internal/domain"
)

func testSeries(n int) *domain.PriceSeries {
	prices := make([]float64, n)
	timestamps := make([]int64, n)
	for i := range prices {
		prices[i] = 100 + float64(i)
		timestamps[i] = int64(i+1) * 86400000
	}
	return &domain.PriceSeries{TimestampsMs: timestamps, Prices: prices}
}

func TestFromConfigUnsupportedMethod(t *testing.T) {
	_, err := FromConfig(domain.MethodConfig{Method: "jackknife"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
}

func TestFromParamsUnknownKey(t *testing.T) {
	_, err := FromParams(domain.MethodBootstrap, map[string]float64{"fraction": 0.5})
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestFromParamsInvalidValues(t *testing.T) {
	if _, err := FromParams(domain.MethodBootstrap, map[string]float64{"sample_fraction": 0}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for zero sample_fraction, got %v", err)
	}
	if _, err := FromParams(domain.MethodGaussian, map[string]float64{"gaussian_scale": -1}); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter for negative gaussian_scale, got %v", err)
	}
}

func TestBootstrapDeterminism(t *testing.T) {
	gen, err := FromParams(domain.MethodBootstrap, nil)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}
	series := testSeries(50)

	first, err := gen.Perturb(series, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	second, err := gen.Perturb(series, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}

	if len(first.Prices) != len(second.Prices) {
		t.Fatalf("lengths differ: %d vs %d", len(first.Prices), len(second.Prices))
	}
	for i := range first.Prices {
		if first.Prices[i] != second.Prices[i] {
			t.Fatalf("same seed produced different price at %d: %v vs %v", i, first.Prices[i], second.Prices[i])
		}
	}
}

func TestBootstrapDifferentSeedsDiffer(t *testing.T) {
	gen, err := FromParams(domain.MethodBootstrap, nil)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}
	series := testSeries(50)

	a, _ := gen.Perturb(series, rand.New(rand.NewSource(1)))
	b, _ := gen.Perturb(series, rand.New(rand.NewSource(2)))

	same := true
	for i := range a.Prices {
		if a.Prices[i] != b.Prices[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical paths")
	}
}

func TestBootstrapLengthInvariant(t *testing.T) {
	series := testSeries(101) // 100 returns

	tests := []struct {
		fraction float64
		wantLen  int
	}{
		{1.0, 101},
		{0.5, 51},
		{0.25, 26},
		{2.0, 201},
	}

	for _, tt := range tests {
		fraction := tt.fraction
		gen, err := FromConfig(domain.MethodConfig{Method: domain.MethodBootstrap, SampleFraction: &fraction})
		if err != nil {
			t.Fatalf("FromConfig failed: %v", err)
		}
		out, err := gen.Perturb(series, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("Perturb failed: %v", err)
		}
		if len(out.Prices) != tt.wantLen {
			t.Errorf("fraction %v: got length %d, want %d", tt.fraction, len(out.Prices), tt.wantLen)
		}
	}
}

func TestBootstrapAnchorsFirstPrice(t *testing.T) {
	gen, _ := FromParams(domain.MethodBootstrap, nil)
	series := testSeries(30)

	out, err := gen.Perturb(series, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	if out.Prices[0] != series.Prices[0] {
		t.Errorf("synthetic path must start at the original first price: got %v, want %v", out.Prices[0], series.Prices[0])
	}
}

func TestBootstrapKeepsTimestampsWhenCovered(t *testing.T) {
	gen, _ := FromParams(domain.MethodBootstrap, nil)
	series := testSeries(30)

	out, err := gen.Perturb(series, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	if !out.Indexed() {
		t.Fatal("expected timestamps preserved at sample_fraction 1.0")
	}
	if out.TimestampsMs[0] != series.TimestampsMs[0] {
		t.Errorf("timestamps not carried over: %v", out.TimestampsMs[0])
	}
}

func TestBootstrapSeriesTooShort(t *testing.T) {
	gen, _ := FromParams(domain.MethodBootstrap, nil)
	_, err := gen.Perturb(&domain.PriceSeries{Prices: []float64{100}}, rand.New(rand.NewSource(1)))
	if !errors.Is(err, ErrSeriesTooShort) {
		t.Fatalf("expected ErrSeriesTooShort, got %v", err)
	}
}

func TestGaussianDeterminism(t *testing.T) {
	gen, err := FromParams(domain.MethodGaussian, nil)
	if err != nil {
		t.Fatalf("FromParams failed: %v", err)
	}
	series := testSeries(40)

	first, _ := gen.Perturb(series, rand.New(rand.NewSource(11)))
	second, _ := gen.Perturb(series, rand.New(rand.NewSource(11)))

	for i := range first.Prices {
		if first.Prices[i] != second.Prices[i] {
			t.Fatalf("same seed produced different price at %d", i)
		}
	}
}

func TestGaussianLengthInvariant(t *testing.T) {
	gen, _ := FromParams(domain.MethodGaussian, map[string]float64{"gaussian_scale": 2.0})

	for _, n := range []int{2, 10, 101} {
		series := testSeries(n)
		out, err := gen.Perturb(series, rand.New(rand.NewSource(5)))
		if err != nil {
			t.Fatalf("Perturb failed for n=%d: %v", n, err)
		}
		if len(out.Prices) != n {
			t.Errorf("n=%d: got length %d", n, len(out.Prices))
		}
	}
}

func TestGaussianZeroScaleReproducesSeries(t *testing.T) {
	scale := 0.0
	gen, err := FromConfig(domain.MethodConfig{Method: domain.MethodGaussian, GaussianScale: &scale})
	if err != nil {
		t.Fatalf("FromConfig failed: %v", err)
	}
	series := testSeries(20)

	out, err := gen.Perturb(series, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Perturb failed: %v", err)
	}
	for i := range out.Prices {
		diff := out.Prices[i] - series.Prices[i]
		if diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("zero scale changed price at %d: %v vs %v", i, out.Prices[i], series.Prices[i])
		}
	}
}

func TestMethodNames(t *testing.T) {
	boot, _ := FromParams(domain.MethodBootstrap, nil)
	gauss, _ := FromParams(domain.MethodGaussian, nil)

	if boot.Method() != domain.MethodBootstrap {
		t.Errorf("bootstrap method name %q", boot.Method())
	}
	if gauss.Method() != domain.MethodGaussian {
		t.Errorf("gaussian method name %q", gauss.Method())
	}
}
