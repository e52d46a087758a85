package validate

import (
	"math"
	"testing"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

func sineWave(n int, sampleRate uint, freqHz, amplitude, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / float64(sampleRate)
		out[i] = amplitude * math.Sin(2*math.Pi*freqHz*t+phase)
	}
	return out
}

func consistentSignal(n int, sampleRate uint) *signal.ECGSignal {
	sig := signal.NewECGSignal(sampleRate, float64(n)/float64(sampleRate))
	I := sineWave(n, sampleRate, 1.2, 800, 0)
	III := sineWave(n, sampleRate, 1.2, 400, 0.3)
	II := make([]float64, n)
	for i := range II {
		II[i] = I[i] + III[i]
	}
	sig.Leads[leadset.I] = I
	sig.Leads[leadset.II] = II
	sig.Leads[leadset.III] = III
	return sig
}

func TestValidateEinthovenConsistentSignalScoresHigh(t *testing.T) {
	sig := consistentSignal(500, 500)
	v := New()
	result := v.Validate(sig)
	if result.CrossLeadScore < 0.5 {
		t.Errorf("CrossLeadScore = %v, want reasonably high for a law-consistent signal", result.CrossLeadScore)
	}
	for _, issue := range result.Issues {
		if issue.Code == "EINTHOVEN_VIOLATION" {
			t.Errorf("unexpected EINTHOVEN_VIOLATION on a consistent signal")
		}
	}
}

func TestValidateFlagsEinthovenViolation(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	sig.Leads[leadset.I] = sineWave(500, 500, 1, 1000, 0)
	sig.Leads[leadset.II] = sineWave(500, 500, 5, 50, 1.7) // unrelated signal
	sig.Leads[leadset.III] = sineWave(500, 500, 1, 1000, math.Pi)

	v := New()
	result := v.Validate(sig)
	found := false
	for _, issue := range result.Issues {
		if issue.Code == "EINTHOVEN_VIOLATION" {
			found = true
		}
	}
	if !found {
		t.Error("expected EINTHOVEN_VIOLATION for an inconsistent signal")
	}
}

func TestValidateFlagsExtremeVoltage(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	samples := sineWave(500, 500, 1, 6000, 0)
	sig.Leads[leadset.I] = samples

	v := New()
	result := v.Validate(sig)
	found := false
	for _, issue := range result.Issues {
		if issue.Code == "EXTREME_VOLTAGE" {
			found = true
		}
	}
	if !found {
		t.Error("expected EXTREME_VOLTAGE issue for a >5mV peak-to-peak lead")
	}
}

func TestLeadQualityFlatSignalScoresLow(t *testing.T) {
	v := New()
	flat := make([]float64, 500)
	score := v.leadQuality(flat, 500)
	if score > 0.7 {
		t.Errorf("leadQuality(flat) = %v, want low score", score)
	}
}

func TestMovingAverageRangeDetectsSlowDrift(t *testing.T) {
	// A 0.1Hz, 400uV drift sampled at 500Hz for 4s: within a 1-second
	// window the local mean should still move by several hundred uV.
	drift := sineWave(2000, 500, 0.1, 400, 0)
	r := movingAverageRange(drift, 500)
	if r < 200 {
		t.Errorf("movingAverageRange = %v, want > 200 for a slow 400uV drift", r)
	}
}

func TestLeadQualityBaselineWanderLowersScore(t *testing.T) {
	v := New()
	drift := sineWave(2000, 500, 0.1, 400, 0)
	score := v.leadQuality(drift, 500)
	if score > 0.9 {
		t.Errorf("leadQuality(drift) = %v, want reduced score for baseline wander", score)
	}
}

// pulseTrain builds a repeating train of triangular pulses: center-to-center
// spacing periodSec apart, each halfWidthMs wide on either side of center.
func pulseTrain(n int, sampleRate uint, periodSec, halfWidthMs, amplitude float64) []float64 {
	samples := make([]float64, n)
	period := int(periodSec * float64(sampleRate))
	half := int(halfWidthMs / 1000 * float64(sampleRate))
	for center := period; center < n; center += period {
		for i := -half; i <= half; i++ {
			idx := center + i
			if idx < 0 || idx >= n {
				continue
			}
			frac := 1 - math.Abs(float64(i))/float64(half)
			samples[idx] += amplitude * frac
		}
	}
	return samples
}

func TestCheckMorphologyFlagsImplausibleQRSWidth(t *testing.T) {
	sig := signal.NewECGSignal(500, 4)
	sig.Leads[leadset.II] = pulseTrain(2000, 500, 0.8, 150, 1500) // 300ms-wide pulses
	v := New()
	_, issues, _ := v.checkMorphology(sig)
	found := false
	for _, issue := range issues {
		if issue.Code == "QRS_WIDTH_IMPLAUSIBLE" {
			found = true
		}
	}
	if !found {
		t.Error("expected QRS_WIDTH_IMPLAUSIBLE for a 300ms-wide pulse train")
	}
}

func TestCheckMorphologyAcceptsNormalQRSWidth(t *testing.T) {
	sig := signal.NewECGSignal(500, 4)
	sig.Leads[leadset.II] = pulseTrain(2000, 500, 0.8, 40, 1500) // ~80ms-wide pulses
	v := New()
	_, issues, _ := v.checkMorphology(sig)
	for _, issue := range issues {
		if issue.Code == "QRS_WIDTH_IMPLAUSIBLE" {
			t.Errorf("unexpected QRS_WIDTH_IMPLAUSIBLE for an 80ms-wide pulse train")
		}
	}
}

func TestPrecordialProgressionNonDecreasing(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	amps := []float64{100, 300, 600, 900, 1200, 1400}
	for i, lead := range leadset.Precordial {
		sig.Leads[lead] = sineWave(200, 500, 1, amps[i], 0)
	}
	v := New()
	score, issues := v.checkPrecordialProgression(sig)
	if score < 0.9 {
		t.Errorf("checkPrecordialProgression score = %v, want near 1 for monotonic R-wave progression", score)
	}
	if len(issues) != 0 {
		t.Errorf("unexpected issues for monotonic progression: %v", issues)
	}
}
