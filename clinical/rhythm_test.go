package clinical

import (
	"math"
	"testing"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// beatTrain builds a flat lead II with triangular QRS-like pulses at a
// fixed bpm, each halfWidthSamples wide on either side of its peak.
func beatTrain(n int, sampleRate uint, bpm float64, halfWidthSamples int, amplitude float64) *signal.ECGSignal {
	sig := signal.NewECGSignal(sampleRate, float64(n)/float64(sampleRate))
	samples := make([]float64, n)
	periodSamples := int(60 / bpm * float64(sampleRate))
	for center := periodSamples; center < n-periodSamples; center += periodSamples {
		for i := -halfWidthSamples; i <= halfWidthSamples; i++ {
			idx := center + i
			if idx < 0 || idx >= n {
				continue
			}
			frac := 1 - math.Abs(float64(i))/float64(halfWidthSamples)
			samples[idx] += amplitude * frac
		}
	}
	sig.Leads[leadset.II] = samples
	return sig
}

func TestAnalyzeRhythmNormalSinusRate(t *testing.T) {
	sig := beatTrain(3000, 500, 75, 20, 1200)
	result := AnalyzeRhythm(sig, PacemakerResult{})
	if len(result.Beats) < 2 {
		t.Fatalf("expected multiple beats detected, got %d", len(result.Beats))
	}
	if result.HeartRateBpm < 60 || result.HeartRateBpm > 100 {
		t.Errorf("HeartRateBpm = %v, want roughly 75", result.HeartRateBpm)
	}
	if result.Code != RhythmNormalSinus {
		t.Errorf("Code = %v, want normal_sinus", result.Code)
	}
}

func TestAnalyzeRhythmBradycardia(t *testing.T) {
	sig := beatTrain(4000, 500, 45, 20, 1200)
	result := AnalyzeRhythm(sig, PacemakerResult{})
	if result.HeartRateBpm >= 60 {
		t.Errorf("HeartRateBpm = %v, want below 60", result.HeartRateBpm)
	}
	if result.Code != RhythmSinusBrady {
		t.Errorf("Code = %v, want sinus_bradycardia", result.Code)
	}
}

func TestAnalyzeRhythmTachycardia(t *testing.T) {
	sig := beatTrain(3000, 500, 130, 15, 1200)
	result := AnalyzeRhythm(sig, PacemakerResult{})
	if result.HeartRateBpm <= 100 {
		t.Errorf("HeartRateBpm = %v, want above 100", result.HeartRateBpm)
	}
	if result.Code != RhythmSinusTachy {
		t.Errorf("Code = %v, want sinus_tachycardia", result.Code)
	}
}

func TestAnalyzeRhythmNoLeadsIsIndeterminate(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	result := AnalyzeRhythm(sig, PacemakerResult{})
	if result.Code != RhythmIndeterminate {
		t.Errorf("Code = %v, want indeterminate for a signal with no leads", result.Code)
	}
}

func TestPickRhythmLeadPrefersII(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	sig.Leads[leadset.I] = make([]float64, 10)
	sig.Leads[leadset.II] = make([]float64, 10)
	sig.Leads[leadset.V1] = make([]float64, 10)
	if got := pickRhythmLead(sig); got != leadset.II {
		t.Errorf("pickRhythmLead = %v, want II", got)
	}
}

func TestPickRhythmLeadFallsBackToPresent(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	sig.Leads[leadset.V3] = make([]float64, 10)
	if got := pickRhythmLead(sig); got != leadset.V3 {
		t.Errorf("pickRhythmLead = %v, want V3 (only present lead)", got)
	}
}

func TestDecideRhythmCodePacedDominance(t *testing.T) {
	code := decideRhythmCode(75, PatternRegular, 0, 10, 6)
	if code != RhythmPaced {
		t.Errorf("decideRhythmCode = %v, want paced when >50%% of beats are paced", code)
	}
}

func TestDecideRhythmCodeAFib(t *testing.T) {
	code := decideRhythmCode(90, PatternIrregularlyIrregular, 0, 10, 0)
	if code != RhythmAFib {
		t.Errorf("decideRhythmCode = %v, want atrial_fibrillation", code)
	}
}

func TestDecideRhythmCodeFrequentPVCs(t *testing.T) {
	code := decideRhythmCode(80, PatternRegular, 3, 20, 0)
	if code != RhythmFrequentPVCs {
		t.Errorf("decideRhythmCode = %v, want frequent_pvcs at >10%% PVC burden", code)
	}
}

func TestDecideRhythmCodePrecedenceOrder(t *testing.T) {
	// Paced beats dominate even alongside a PVC burden that would
	// otherwise qualify as frequent_pvcs.
	code := decideRhythmCode(75, PatternRegular, 3, 10, 6)
	if code != RhythmPaced {
		t.Errorf("decideRhythmCode = %v, want paced to take precedence over frequent_pvcs", code)
	}
}

func TestClassifyPatternRegular(t *testing.T) {
	rr := []float64{0.8, 0.81, 0.79, 0.8, 0.8}
	if got := classifyPattern(rr, covOf(rr)); got != PatternRegular {
		t.Errorf("classifyPattern = %v, want regular", got)
	}
}

func TestClassifyPatternIrregularlyIrregular(t *testing.T) {
	rr := []float64{0.6, 1.1, 0.5, 0.95, 0.7, 1.2, 0.55}
	if got := classifyPattern(rr, covOf(rr)); got != PatternIrregularlyIrregular {
		t.Errorf("classifyPattern = %v, want irregularly_irregular for unstructured scatter", got)
	}
}

func TestTagBeatsPacedTakesPrecedenceOverWideQRS(t *testing.T) {
	sampleRate := uint(500)
	samples := make([]float64, 200)
	beat := Beat{RPeakSample: 100, StartSample: 80, EndSample: 150} // 140ms wide: would be PVC
	pacing := PacemakerResult{Spikes: []Spike{{SampleIndex: 100, Kind: SpikeVentricular}}}

	beats := []Beat{beat}
	tagBeats(beats, samples, sampleRate, pacing)
	if beats[0].Kind != BeatPaced {
		t.Errorf("Kind = %v, want paced to take precedence over a wide QRS", beats[0].Kind)
	}
}

func TestTagBeatsWideQRSIsPVC(t *testing.T) {
	sampleRate := uint(500)
	samples := make([]float64, 200)
	beats := []Beat{
		{RPeakSample: 100, StartSample: 85, EndSample: 115}, // 60ms: normal
		{RPeakSample: 180, StartSample: 110, EndSample: 250}, // placeholder; replaced below
	}
	// second beat is 140ms wide at 500Hz (70 samples).
	beats[1] = Beat{RPeakSample: 180, StartSample: 145, EndSample: 215}
	tagBeats(beats, samples, sampleRate, PacemakerResult{})
	if beats[1].Kind != BeatPVC {
		t.Errorf("Kind = %v, want pvc for a 140ms-wide QRS", beats[1].Kind)
	}
}
