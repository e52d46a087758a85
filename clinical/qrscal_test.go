package clinical

import (
	"testing"

	"github.com/cardiomet/ecgdigit/leadset"
)

func TestCrossCheckCalibrationNormalAmplitudeNoFlags(t *testing.T) {
	sig := beatTrain(3000, 500, 75, 20, 1200)
	rhythm := AnalyzeRhythm(sig, PacemakerResult{})
	result := CrossCheckCalibration(sig, rhythm)
	if result.LikelyGainError {
		t.Error("unexpected LikelyGainError for a typical-amplitude QRS")
	}
	if result.LikelyPaperSpeedError {
		t.Error("unexpected LikelyPaperSpeedError for a typical-duration QRS")
	}
}

func TestCrossCheckCalibrationFlagsGainError(t *testing.T) {
	sig := beatTrain(3000, 500, 75, 20, 20) // far below the typical 500-2500uV band
	rhythm := AnalyzeRhythm(sig, PacemakerResult{})
	result := CrossCheckCalibration(sig, rhythm)
	if !result.LikelyGainError {
		t.Error("expected LikelyGainError for a far-too-small QRS amplitude")
	}
}

func TestCrossCheckCalibrationFlagsPaperSpeedError(t *testing.T) {
	sig := beatTrain(4000, 500, 75, 150, 1200) // 300ms half-width each side: far too wide
	rhythm := AnalyzeRhythm(sig, PacemakerResult{})
	result := CrossCheckCalibration(sig, rhythm)
	if !result.LikelyPaperSpeedError {
		t.Error("expected LikelyPaperSpeedError for a far-too-wide QRS duration")
	}
}

func TestCrossCheckCalibrationInsufficientData(t *testing.T) {
	result := CrossCheckCalibration(beatTrain(10, 500, 75, 2, 1200), RhythmResult{})
	if len(result.Notes) == 0 {
		t.Error("expected a note when no rhythm lead/beats are available")
	}
}

func TestPlausibleGainRangeBracketsTarget(t *testing.T) {
	lo, hi := plausibleGainRange(100, 10) // amplitude far below typical band, current gain 10
	if lo >= hi {
		t.Errorf("plausibleGainRange(100, 10) = (%v, %v), want lo < hi", lo, hi)
	}
	if lo <= 0 {
		t.Errorf("plausibleGainRange lo = %v, want positive", lo)
	}
}

func TestPlausibleGainRangeZeroInputsIdentity(t *testing.T) {
	lo, hi := plausibleGainRange(0, 10)
	if lo != 10 || hi != 10 {
		t.Errorf("plausibleGainRange(0, 10) = (%v, %v), want (10, 10)", lo, hi)
	}
}

func TestLeadsAgreeOnGainConsistentLeads(t *testing.T) {
	sig := beatTrain(2000, 500, 75, 20, 1200)
	if !leadsAgreeOnGain(sig, 1200) {
		t.Error("expected leads to agree on gain when lead II itself is the only populated lead")
	}
}

func TestLeadsAgreeOnGainFlagsOutlier(t *testing.T) {
	sig := beatTrain(2000, 500, 75, 20, 1200)
	sig.Leads[leadset.I] = make([]float64, 2000)
	for i := range sig.Leads[leadset.I] {
		sig.Leads[leadset.I][i] = float64(i%2) * 50000 // wildly inconsistent with a 1200uV reference
	}
	if leadsAgreeOnGain(sig, 1200) {
		t.Error("expected an outlier limb lead amplitude to be flagged")
	}
}
