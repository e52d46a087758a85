package signal

import (
	"math"
	"testing"

	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/imagery"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/trace"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return c
}

func sineTrace(n int, panelWidth float64) *trace.RawTrace {
	rt := &trace.RawTrace{}
	for i := 0; i < n; i++ {
		x := float64(i) / float64(n-1) * panelWidth
		y := 50 + 10*math.Sin(float64(i)/float64(n)*2*math.Pi)
		rt.X = append(rt.X, x)
		rt.Y = append(rt.Y, y)
		rt.Confidence = append(rt.Confidence, 1)
	}
	return rt
}

func TestReconstructProducesExpectedLength(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg)

	grid := imagery.GridInfo{PxPerMm: 8}
	calib := imagery.Calibration{GainMmPerMv: 10, PaperSpeedMmPs: 25}
	panel := imagery.Panel{Bounds: imagery.Rect{X: 0, Y: 0, W: 800, H: 100}, BaselineY: 50, EndSec: 3.2}

	traces := []LeadTrace{
		{Lead: leadset.I, Panel: panel, Raw: sineTrace(320, 800)},
	}

	sig, err := r.Reconstruct(traces, grid, calib)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	want := sig.ExpectedLength()
	if len(sig.Leads[leadset.I]) != want {
		t.Errorf("len(Leads[I]) = %d, want %d", len(sig.Leads[leadset.I]), want)
	}
}

func TestReconstructOmitsFailedLeads(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg)
	grid := imagery.GridInfo{PxPerMm: 8}
	calib := imagery.Calibration{GainMmPerMv: 10, PaperSpeedMmPs: 25}
	panel := imagery.Panel{Bounds: imagery.Rect{X: 0, Y: 0, W: 800, H: 100}, BaselineY: 50, EndSec: 3.2}

	traces := []LeadTrace{
		{Lead: leadset.I, Panel: panel, Raw: sineTrace(320, 800)},
		{Lead: leadset.II, Panel: panel, Raw: nil},
	}

	sig, err := r.Reconstruct(traces, grid, calib)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if sig.Has(leadset.II) {
		t.Error("signal should omit lead II (nil trace), not zero-fill it")
	}
	if !sig.Has(leadset.I) {
		t.Error("signal should include lead I")
	}
}

func TestRemoveDCMedianNearZero(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg)
	data := []float64{-5, -3, 0, 2, 100, 3, 4, 5, 6, 1000}
	out := r.removeDC(data)
	if math.Abs(medianOf(out)) > 1 {
		t.Errorf("median of DC-corrected data = %v, want within 1", medianOf(out))
	}
}

func TestResampleIdentity(t *testing.T) {
	t0 := []float64{0, 0.25, 0.5, 0.75, 1.0}
	v0 := []float64{0, 1, 0, -1, 0}
	out := resampleLinear(t0, v0, 5, 4)
	for i := range v0 {
		if math.Abs(out[i]-v0[i]) > 1e-6 {
			t.Errorf("resampleLinear identity mismatch at %d: got %v want %v", i, out[i], v0[i])
		}
	}
}

func TestResampleSincCoversFullDurationPreservingMean(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseSincResample = true
	r := New(cfg)

	// A handful of low-rate points spanning 2 seconds; sinc resampling must
	// interpolate across the *entire* span, not just its first fraction.
	t0 := []float64{0, 0.5, 1.0, 1.5, 2.0}
	v0 := []float64{0, 10, 0, -10, 0}
	targetLen := 1000 // 500Hz over 2s

	out := r.resample(t0, v0, targetLen)
	if len(out) != targetLen {
		t.Fatalf("len(out) = %d, want %d", len(out), targetLen)
	}

	mean := func(xs []float64) float64 {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs))
	}
	gotMean, wantMean := mean(out), mean(v0)
	if math.Abs(gotMean-wantMean) > 2 {
		t.Errorf("mean(sinc-resampled) = %v, want close to mean(source) = %v", gotMean, wantMean)
	}

	// The back half of the series must carry real signal (the v0[3] trough)
	// rather than being a stretched copy of only the first samples.
	minLater := out[len(out)/2]
	for _, v := range out[len(out)/2:] {
		if v < minLater {
			minLater = v
		}
	}
	if minLater > -2 {
		t.Errorf("second half of sinc-resampled output = %v min, want a trough near -10 reflecting v0[3]", minLater)
	}
}

func TestGridUndetectedError(t *testing.T) {
	cfg := testConfig(t)
	r := New(cfg)
	_, err := r.Reconstruct(nil, imagery.GridInfo{PxPerMm: 0}, imagery.Calibration{})
	if err == nil {
		t.Fatal("expected error for undetected grid")
	}
}
