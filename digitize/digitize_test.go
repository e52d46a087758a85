package digitize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardiomet/ecgdigit/clinical"
	"github.com/cardiomet/ecgdigit/interpret"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// addTriangle superimposes a triangular pulse of the given half-width and
// peak amplitude centered at center onto samples, clipped to bounds.
func addTriangle(samples []float64, center, half int, amplitude float64) {
	for i := -half; i <= half; i++ {
		idx := center + i
		if idx < 0 || idx >= len(samples) {
			continue
		}
		frac := 1 - math.Abs(float64(i))/float64(half)
		samples[idx] += amplitude * frac
	}
}

// pqrstSignal builds a repeating P-QRS-T complex train at the given bpm for
// every lead named in amplitudes, scaled by that lead's QRS amplitude (P is
// 15% and T is 30% of the QRS amplitude, same polarity), spaced at fixed
// 160ms PR and QT-ish offsets.
func pqrstSignal(n int, sampleRate uint, bpm float64, amplitudes map[leadset.Name]float64) *signal.ECGSignal {
	sig := signal.NewECGSignal(sampleRate, float64(n)/float64(sampleRate))
	periodSamples := int(60 / bpm * float64(sampleRate))
	prSamples := msToSamples(160, sampleRate)
	qrsHalf := msToSamples(40, sampleRate)
	tOffset := msToSamples(160, sampleRate)
	tHalf := msToSamples(100, sampleRate)
	pHalf := msToSamples(40, sampleRate)

	for lead, amp := range amplitudes {
		samples := make([]float64, n)
		for center := periodSamples; center < n-periodSamples; center += periodSamples {
			addTriangle(samples, center, qrsHalf, amp)
			addTriangle(samples, center-prSamples, pHalf, 0.15*amp)
			addTriangle(samples, center+qrsHalf+tOffset, tHalf, 0.3*amp)
		}
		sig.Leads[lead] = samples
	}
	return sig
}

func TestExtractMeasurementsBasicPQRST(t *testing.T) {
	sig := pqrstSignal(3000, 500, 75, map[leadset.Name]float64{
		leadset.II:  1200,
		leadset.I:   1000,
		leadset.AVF: 1000,
	})
	rhythm := clinical.AnalyzeRhythm(sig, clinical.PacemakerResult{})
	require.GreaterOrEqual(t, len(rhythm.Beats), 2, "expected beats detected")

	m, ok := extractMeasurements(sig, rhythm)
	require.True(t, ok, "extractMeasurements reported no usable beat")

	assert.InDelta(t, 75, m.HeartRateBpm, 15, "HeartRateBpm")
	assert.InDelta(t, 160, m.PRMs, 80, "PRMs")
	assert.Greater(t, m.QRSMs, 0.0)
	assert.LessOrEqual(t, m.QRSMs, 160.0)
	assert.Greater(t, m.QTMs, 0.0)
	assert.Greater(t, m.QTcMs, 0.0)
	assert.Greater(t, m.QRSAxisDeg, -180.0)
	assert.LessOrEqual(t, m.QRSAxisDeg, 180.0)
}

func TestExtractMeasurementsNoBeatsReturnsFalse(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	rhythm := clinical.AnalyzeRhythm(sig, clinical.PacemakerResult{})
	if _, ok := extractMeasurements(sig, rhythm); ok {
		t.Error("extractMeasurements with no leads should report false")
	}
}

func TestRAndSAmplitude(t *testing.T) {
	window := []float64{0, 500, 1200, -300, -100, 0}
	r, s := rAndSAmplitude(window)
	if r != 1200 {
		t.Errorf("r = %v, want 1200", r)
	}
	if s != 300 {
		t.Errorf("s = %v, want 300", s)
	}
}

func TestExtractVoltagesNilWithoutBeats(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	if v := extractVoltages(sig, clinical.RhythmResult{}); v != nil {
		t.Errorf("extractVoltages = %+v, want nil", v)
	}
}

func TestQRSTAngle(t *testing.T) {
	cases := []struct{ a, b, want float64 }{
		{10, 170, 160},
		{350, 10, 20},
		{-170, 170, 20},
		{0, 0, 0},
	}
	for _, c := range cases {
		got := qrsTAngle(c.a, c.b)
		assert.InDelta(t, c.want, got, 1e-9, "qrsTAngle(%v,%v)", c.a, c.b)
	}
}

func TestSTMorphologyCoved(t *testing.T) {
	// Monotonically falling from an elevated J-point.
	samples := []float64{300, 280, 250, 200, 150, 100}
	got := stMorphology(samples, 0, len(samples))
	if got != interpret.STMorphologyCoved {
		t.Errorf("stMorphology = %v, want coved", got)
	}
}

func TestSTMorphologySaddleback(t *testing.T) {
	// Dips below the J-point then rises back above it.
	samples := []float64{300, 150, 50, 150, 320, 340}
	got := stMorphology(samples, 0, len(samples))
	if got != interpret.STMorphologySaddleback {
		t.Errorf("stMorphology = %v, want saddleback", got)
	}
}

func TestHasDeltaWaveSlurredUpstroke(t *testing.T) {
	beat := clinical.Beat{StartSample: 0, EndSample: 12}
	lead := leadset.II
	sig := signal.NewECGSignal(500, 1)
	samples := make([]float64, 12)
	// Slow early rise then a fast late rise: slurred upstroke.
	for i := 0; i < 4; i++ {
		samples[i] = float64(i) * 5
	}
	for i := 4; i < 12; i++ {
		samples[i] = 20 + float64(i-4)*200
	}
	sig.Leads[lead] = samples
	if !hasDeltaWave(sig, beat, lead) {
		t.Error("hasDeltaWave = false, want true for a slurred upstroke")
	}
}

func TestHasDeltaWaveNormalUpstroke(t *testing.T) {
	beat := clinical.Beat{StartSample: 0, EndSample: 12}
	lead := leadset.II
	sig := signal.NewECGSignal(500, 1)
	samples := make([]float64, 12)
	for i := 0; i < 12; i++ {
		samples[i] = float64(i) * 100
	}
	sig.Leads[lead] = samples
	if hasDeltaWave(sig, beat, lead) {
		t.Error("hasDeltaWave = true, want false for a uniform upstroke")
	}
}

func TestBuildInterpretationEndToEnd(t *testing.T) {
	sig := pqrstSignal(3000, 500, 75, map[leadset.Name]float64{
		leadset.II:  1200,
		leadset.I:   1000,
		leadset.AVF: 1000,
	})
	rhythm := clinical.AnalyzeRhythm(sig, clinical.PacemakerResult{})

	d := &Digitizer{engine: interpret.New(interpret.Options{})}
	age := 2922
	interp := d.buildInterpretation(sig, rhythm, &age)

	if len(interp.Findings) == 0 {
		t.Fatal("expected at least the rate finding")
	}
	if interp.Summary.Conclusion == "" {
		t.Error("Summary.Conclusion is empty")
	}
	if interp.AgeDays != age {
		t.Errorf("AgeDays = %v, want %v", interp.AgeDays, age)
	}
}

func TestBuildInterpretationDefaultsAgeWhenUnknown(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	rhythm := clinical.AnalyzeRhythm(sig, clinical.PacemakerResult{})

	d := &Digitizer{engine: interpret.New(interpret.Options{})}
	interp := d.buildInterpretation(sig, rhythm, nil)

	if interp.AgeDays != 30*365 {
		t.Errorf("AgeDays = %v, want adult default", interp.AgeDays)
	}
	if len(interp.Findings) != 0 {
		t.Errorf("Findings = %+v, want none without a usable beat", interp.Findings)
	}
}
