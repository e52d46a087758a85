package clinical

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

func normalSignal(n int, sampleRate uint) *signal.ECGSignal {
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

	amps := []float64{100, 300, 600, 900, 1200, 1400}
	for i, lead := range leadset.Precordial {
		sig.Leads[lead] = sineWave(n, sampleRate, 1.2, amps[i], 0)
	}
	return sig
}

func TestStageForAgeMonotonic(t *testing.T) {
	ages := []int{0, 10, 30, 31, 365, 366, 3 * 365, 3*365 + 1, 12 * 365, 12*365 + 1, 18 * 365, 18*365 + 1, 50 * 365}
	stages := map[DevelopmentalStage]int{
		StageNeonate: 0, StageInfant: 1, StageToddler: 2, StageChild: 3, StageAdolescent: 4, StageAdult: 5,
	}
	prevRank := -1
	for _, age := range ages {
		stage := StageForAge(age)
		rank, ok := stages[stage]
		if !ok {
			t.Fatalf("StageForAge(%d) returned unknown stage %v", age, stage)
		}
		if rank < prevRank {
			t.Errorf("StageForAge not monotonic at age %d: rank %d after %d", age, rank, prevRank)
		}
		prevRank = rank
	}
}

func TestDetectNormalSignalNoSwap(t *testing.T) {
	sig := normalSignal(500, 500)
	d := NewDetector()
	result := d.Detect(sig, nil)
	if result.SwapType != SwapNone {
		t.Errorf("SwapType = %v, want NONE for a law-consistent, progressing signal", result.SwapType)
	}
}

func TestDetectLARAInvertedLeadI(t *testing.T) {
	sig := normalSignal(500, 500)
	for i := range sig.Leads[leadset.I] {
		sig.Leads[leadset.I][i] = -sig.Leads[leadset.I][i]
	}
	d := NewDetector()
	result := d.Detect(sig, nil)
	if result.SwapType != SwapLARA {
		t.Errorf("SwapType = %v, want LA_RA for inverted lead I", result.SwapType)
	}
}

func TestDetectPrecordialDropFlagged(t *testing.T) {
	sig := normalSignal(500, 500)
	sig.Leads[leadset.V1], sig.Leads[leadset.V2] = sig.Leads[leadset.V2], sig.Leads[leadset.V1]
	d := NewDetector()
	result := d.Detect(sig, nil)
	if result.SwapType == SwapNone {
		t.Error("expected a precordial swap candidate to be flagged")
	}
}

func TestDetectNeonateSuppressesV1V2(t *testing.T) {
	sig := normalSignal(500, 500)
	// Simulate expected-physiology RV dominance: V1 amplitude above V2.
	sig.Leads[leadset.V1], sig.Leads[leadset.V2] = sig.Leads[leadset.V2], sig.Leads[leadset.V1]

	d := NewDetector()
	age := 10
	result := d.Detect(sig, &age)
	if result.PediatricContext == nil {
		t.Fatal("expected a PediatricContext for a neonate")
	}
	if !result.PediatricContext.ExpectedRVDominance {
		t.Error("expected ExpectedRVDominance for a neonate")
	}
	if len(result.PediatricContext.SuppressedFindings) == 0 {
		t.Error("expected the V1->V2 drop to be recorded as suppressed for a neonate")
	}
}

func TestCorrectLARAInvertsAndSwapsAugmented(t *testing.T) {
	sig := normalSignal(100, 500)
	sig.Leads[leadset.AVR] = sineWave(100, 500, 1, 200, 0)
	sig.Leads[leadset.AVL] = sineWave(100, 500, 1, 300, 0)

	d := NewDetector()
	out := d.Correct(sig, SwapLARA)

	for i := range out.Leads[leadset.I] {
		if out.Leads[leadset.I][i] != -sig.Leads[leadset.I][i] {
			t.Fatalf("Correct(LA_RA) did not invert lead I at sample %d", i)
		}
	}
	if out.Leads[leadset.AVR][10] != sig.Leads[leadset.AVL][10] {
		t.Error("Correct(LA_RA) did not swap aVR/aVL")
	}
	// original must be untouched.
	if sig.Leads[leadset.I][10] == out.Leads[leadset.I][10] {
		t.Error("Correct mutated the input signal")
	}
}

func TestCorrectV1V2Swap(t *testing.T) {
	sig := normalSignal(100, 500)
	d := NewDetector()
	out := d.Correct(sig, SwapV1V2)
	if out.Leads[leadset.V1][10] != sig.Leads[leadset.V2][10] || out.Leads[leadset.V2][10] != sig.Leads[leadset.V1][10] {
		t.Error("Correct(V1_V2) did not swap V1/V2")
	}
}

// TestCorrectLARAThenDetectReturnsNoSwap verifies the round-trip property:
// applying the suggested correction and re-running the detector must not
// surface the same swap again.
func TestCorrectLARAThenDetectReturnsNoSwap(t *testing.T) {
	sig := normalSignal(500, 500)
	for i := range sig.Leads[leadset.I] {
		sig.Leads[leadset.I][i] = -sig.Leads[leadset.I][i]
	}
	d := NewDetector()
	first := d.Detect(sig, nil)
	if first.SwapType != SwapLARA {
		t.Fatalf("SwapType = %v, want LA_RA before correction", first.SwapType)
	}

	corrected := d.Correct(sig, first.SwapType)
	second := d.Detect(corrected, nil)
	if second.SwapType != SwapNone {
		t.Errorf("SwapType after correction = %v, want NONE", second.SwapType)
	}
}

// TestCorrectPrecordialThenDetectReturnsNoSwap is the same round-trip
// property for a precordial swap.
func TestCorrectPrecordialThenDetectReturnsNoSwap(t *testing.T) {
	sig := normalSignal(500, 500)
	sig.Leads[leadset.V1], sig.Leads[leadset.V2] = sig.Leads[leadset.V2], sig.Leads[leadset.V1]
	d := NewDetector()
	first := d.Detect(sig, nil)
	if first.SwapType == SwapNone {
		t.Fatal("expected a precordial swap candidate before correction")
	}

	corrected := d.Correct(sig, first.SwapType)
	second := d.Detect(corrected, nil)
	if second.SwapType != SwapNone {
		t.Errorf("SwapType after correction = %v, want NONE", second.SwapType)
	}
}
