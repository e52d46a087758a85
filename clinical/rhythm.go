package clinical

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// BeatKind classifies a detected QRS complex.
type BeatKind string

const (
	BeatNormal  BeatKind = "normal"
	BeatPVC     BeatKind = "pvc"
	BeatPaced   BeatKind = "paced"
	BeatAberrant BeatKind = "aberrant"
)

// Beat is one detected QRS complex.
type Beat struct {
	RPeakSample  int
	StartSample  int
	EndSample    int
	Kind         BeatKind
}

// IrregularityPattern classifies the RR-interval variability shape.
type IrregularityPattern string

const (
	PatternRegular          IrregularityPattern = "regular"
	PatternRegularlyIrregular IrregularityPattern = "regularly_irregular"
	PatternIrregularlyIrregular IrregularityPattern = "irregularly_irregular"
)

// RhythmCode is the fixed enumeration of rhythm classifications the
// Rhythm Analyzer decides between.
type RhythmCode string

const (
	RhythmNormalSinus   RhythmCode = "normal_sinus"
	RhythmSinusBrady    RhythmCode = "sinus_bradycardia"
	RhythmSinusTachy    RhythmCode = "sinus_tachycardia"
	RhythmAFib          RhythmCode = "atrial_fibrillation"
	RhythmPaced         RhythmCode = "paced"
	RhythmFrequentPVCs  RhythmCode = "frequent_pvcs"
	RhythmIndeterminate RhythmCode = "indeterminate"
)

// RhythmResult is the Rhythm Analyzer's output.
type RhythmResult struct {
	LeadUsed        leadset.Name
	Beats           []Beat
	HeartRateBpm    float64
	RRIntervalCoV   float64
	Pattern         IrregularityPattern
	PVCCount        int
	PacedCount      int
	Code            RhythmCode
}

// rhythmLeadPriority is the fallback order for beat detection: lead II
// first, then I and V1, then whatever is present.
var rhythmLeadPriority = []leadset.Name{leadset.II, leadset.I, leadset.V1}

// AnalyzeRhythm implements the Rhythm Analyzer: beat detection on the best
// available lead, RR-interval regularity classification, ectopic/paced tagging
// (paced > PVC > aberrant > normal precedence), and fixed rhythm-code
// decision rules.
func AnalyzeRhythm(sig *signal.ECGSignal, pacing PacemakerResult) RhythmResult {
	lead := pickRhythmLead(sig)
	if lead == "" {
		return RhythmResult{Code: RhythmIndeterminate}
	}

	samples := sig.Leads[lead]
	beats := detectBeats(samples, sig.SampleRate)
	tagBeats(beats, samples, sig.SampleRate, pacing)

	rr := rrIntervals(beats, sig.SampleRate)
	hr := heartRate(rr)
	cov := covOf(rr)
	pattern := classifyPattern(rr, cov)

	pvc, paced := 0, 0
	for _, b := range beats {
		switch b.Kind {
		case BeatPVC:
			pvc++
		case BeatPaced:
			paced++
		}
	}

	code := decideRhythmCode(hr, pattern, pvc, len(beats), paced)

	return RhythmResult{
		LeadUsed:      lead,
		Beats:         beats,
		HeartRateBpm:  hr,
		RRIntervalCoV: cov,
		Pattern:       pattern,
		PVCCount:      pvc,
		PacedCount:    paced,
		Code:          code,
	}
}

func pickRhythmLead(sig *signal.ECGSignal) leadset.Name {
	for _, l := range rhythmLeadPriority {
		if sig.Has(l) {
			return l
		}
	}
	present := sig.Present()
	if len(present) == 0 {
		return ""
	}
	return present[0]
}

// detectBeats finds R-peaks via a 5-point central-difference derivative
// thresholded at 4*median(|derivative|), then finds each QRS complex's
// start/end with qrsWindow (walking out from the peak until the signal
// falls below 10% of the peak amplitude, at most 150ms either side).
func detectBeats(samples []float64, sampleRate uint) []Beat {
	n := len(samples)
	if n < 5 {
		return nil
	}

	deriv := make([]float64, n)
	for i := 2; i < n-2; i++ {
		deriv[i] = (2*samples[i+1] + samples[i+2] - 2*samples[i-1] - samples[i-2]) / 8
	}

	absDeriv := make([]float64, n)
	for i, d := range deriv {
		absDeriv[i] = math.Abs(d)
	}
	// QRS complexes occupy a small fraction of a typical strip, so the
	// median derivative magnitude is usually near zero; fall back to a
	// fraction of the peak derivative when that happens rather than
	// treating a flat baseline as "no signal".
	threshold := 4 * median(absDeriv)
	if threshold <= 0 {
		threshold = 0.2 * maxOf(absDeriv)
	}
	if threshold <= 0 {
		return nil
	}

	refractory := int(0.25 * float64(sampleRate))
	if refractory < 1 {
		refractory = 1
	}

	var beats []Beat
	lastPeak := -refractory - 1
	for i := 2; i < n-2; i++ {
		if absDeriv[i] < threshold {
			continue
		}
		if i-lastPeak < refractory {
			continue
		}
		peak := localRPeak(samples, i, sampleRate)
		start, end := qrsWindow(samples, peak, sampleRate)
		beats = append(beats, Beat{RPeakSample: peak, StartSample: start, EndSample: end, Kind: BeatNormal})
		lastPeak = peak
	}
	return beats
}

// localRPeak refines a derivative-threshold crossing to the true local
// sample extremum within a 40ms window.
func localRPeak(samples []float64, idx int, sampleRate uint) int {
	window := int(0.04 * float64(sampleRate))
	if window < 1 {
		window = 1
	}
	lo, hi := idx-window, idx+window
	if lo < 0 {
		lo = 0
	}
	if hi >= len(samples) {
		hi = len(samples) - 1
	}
	best := idx
	bestAbs := math.Abs(samples[idx])
	for i := lo; i <= hi; i++ {
		if math.Abs(samples[i]) > bestAbs {
			best, bestAbs = i, math.Abs(samples[i])
		}
	}
	return best
}

// qrsWindow estimates the QRS start/end by walking outward from the
// R-peak until the signal drops below 10% of the peak amplitude, bounded
// to 150ms either side so a search never runs into a neighboring beat.
func qrsWindow(samples []float64, peak int, sampleRate uint) (int, int) {
	maxHalf := int(0.15 * float64(sampleRate))
	if maxHalf < 1 {
		maxHalf = 1
	}
	peakVal := math.Abs(samples[peak])
	if peakVal == 0 {
		return peak, peak
	}
	threshold := 0.1 * peakVal

	start := peak
	for start > 0 && peak-start < maxHalf && math.Abs(samples[start]) > threshold {
		start--
	}
	end := peak
	for end < len(samples)-1 && end-peak < maxHalf && math.Abs(samples[end]) > threshold {
		end++
	}
	return start, end
}

// tagBeats applies the paced > PVC > aberrant > normal precedence: a beat
// within 50ms of a ventricular pacing spike is paced; otherwise a beat
// whose QRS width exceeds 120ms is a PVC; a beat whose QRS width exceeds
// the larger of 110ms and 1.2x the median beat width, but not 120ms, is
// aberrant. Classification uses QRS width only; polarity and morphology
// are not compared.
func tagBeats(beats []Beat, samples []float64, sampleRate uint, pacing PacemakerResult) {
	if len(beats) == 0 {
		return
	}

	widths := make([]float64, len(beats))
	for i, b := range beats {
		widths[i] = float64(b.EndSample-b.StartSample) / float64(sampleRate)
	}
	medianWidth := median(widths)

	pacedTolerance := int(0.05 * float64(sampleRate))
	wideThreshold := 0.120
	aberrantThreshold := math.Max(0.110, medianWidth*1.2)

	for i := range beats {
		if nearPacingSpike(beats[i].RPeakSample, pacing, pacedTolerance) {
			beats[i].Kind = BeatPaced
			continue
		}
		width := widths[i]
		switch {
		case width > wideThreshold:
			beats[i].Kind = BeatPVC
		case width > aberrantThreshold:
			beats[i].Kind = BeatAberrant
		default:
			beats[i].Kind = BeatNormal
		}
	}
}

func nearPacingSpike(sample int, pacing PacemakerResult, tolerance int) bool {
	for _, s := range pacing.Spikes {
		if s.Kind != SpikeVentricular {
			continue
		}
		if abs(sample-s.SampleIndex) <= tolerance {
			return true
		}
	}
	return false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func rrIntervals(beats []Beat, sampleRate uint) []float64 {
	if len(beats) < 2 || sampleRate == 0 {
		return nil
	}
	out := make([]float64, 0, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		out = append(out, float64(beats[i].RPeakSample-beats[i-1].RPeakSample)/float64(sampleRate))
	}
	return out
}

func heartRate(rr []float64) float64 {
	if len(rr) == 0 {
		return 0
	}
	mean := stat.Mean(rr, nil)
	if mean == 0 {
		return 0
	}
	return 60 / mean
}

func covOf(rr []float64) float64 {
	if len(rr) < 2 {
		return 0
	}
	mean := stat.Mean(rr, nil)
	if mean == 0 {
		return 0
	}
	return stat.StdDev(rr, nil) / mean
}

// classifyPattern applies fixed CoV thresholds: under 0.08 is regular,
// 0.08-0.15 with a bimodal paired-alternating structure is regularly
// irregular, and anything above 0.15 (or unstructured scatter) is
// irregularly irregular.
func classifyPattern(rr []float64, cov float64) IrregularityPattern {
	if len(rr) < 3 {
		return PatternRegular
	}
	switch {
	case cov < 0.08:
		return PatternRegular
	case cov <= 0.15 && isAlternating(rr):
		return PatternRegularlyIrregular
	default:
		return PatternIrregularlyIrregular
	}
}

// isAlternating reports whether rr shows a short-long-short-long
// alternating structure typical of bigeminal rhythms, by checking that
// most adjacent differences alternate sign.
func isAlternating(rr []float64) bool {
	if len(rr) < 3 {
		return false
	}
	var diffs []float64
	for i := 1; i < len(rr); i++ {
		diffs = append(diffs, rr[i]-rr[i-1])
	}
	alternations := 0
	for i := 1; i < len(diffs); i++ {
		if sign(diffs[i]) != 0 && sign(diffs[i-1]) != 0 && sign(diffs[i]) != sign(diffs[i-1]) {
			alternations++
		}
	}
	return len(diffs) > 1 && float64(alternations)/float64(len(diffs)-1) > 0.6
}

// decideRhythmCode applies the fixed rule order: paced dominance first,
// then fibrillatory irregularity, then frequent ectopy, then rate-based
// sinus classification, defaulting to normal sinus.
func decideRhythmCode(hr float64, pattern IrregularityPattern, pvc, totalBeats, paced int) RhythmCode {
	if totalBeats == 0 {
		return RhythmIndeterminate
	}
	if paced > 0 && float64(paced)/float64(totalBeats) > 0.5 {
		return RhythmPaced
	}
	if pattern == PatternIrregularlyIrregular {
		return RhythmAFib
	}
	if pvc > 0 && float64(pvc)/float64(totalBeats) > 0.1 {
		return RhythmFrequentPVCs
	}
	switch {
	case hr < 60:
		return RhythmSinusBrady
	case hr > 100:
		return RhythmSinusTachy
	default:
		return RhythmNormalSinus
	}
}
