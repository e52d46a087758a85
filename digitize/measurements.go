package digitize

import (
	"math"
	"sort"

	"github.com/cardiomet/ecgdigit/clinical"
	"github.com/cardiomet/ecgdigit/interpret"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// extractMeasurements derives interpret.Measurements from a reconstructed
// ECGSignal and its Rhythm Analyzer result: rate and RR come directly from
// rhythm, QRS duration is the median beat width, PR/QT/axes are measured on
// a single representative beat (the first normal beat, or the first beat of
// any kind if none is tagged normal). Returns the zero Measurements and
// false if no beat could be used as a reference.
func extractMeasurements(sig *signal.ECGSignal, rhythm clinical.RhythmResult) (interpret.Measurements, bool) {
	if len(rhythm.Beats) == 0 || rhythm.LeadUsed == "" {
		return interpret.Measurements{}, false
	}
	lead := rhythm.LeadUsed
	samples := sig.Leads[lead]

	beat := representativeBeat(rhythm.Beats)
	qrsMs := medianQRSMs(rhythm.Beats, sig.SampleRate)

	pStart, pEnd := pWaveWindow(samples, beat.StartSample, sig.SampleRate)
	tStart, tEnd := tWaveWindow(samples, beat.EndSample, sig.SampleRate)

	prMs := msBetween(pStart, beat.StartSample, sig.SampleRate)
	qtMs := msBetween(beat.StartSample, tEnd, sig.SampleRate)

	rrMs := 0.0
	if rhythm.HeartRateBpm > 0 {
		rrMs = 60000 / rhythm.HeartRateBpm
	}
	qtcMs := 0.0
	if rrMs > 0 && qtMs > 0 {
		qtcMs = qtMs / math.Sqrt(rrMs/1000)
	}

	m := interpret.Measurements{
		HeartRateBpm: rhythm.HeartRateBpm,
		RRMs:         rrMs,
		PRMs:         prMs,
		QRSMs:        qrsMs,
		QTMs:         qtMs,
		QTcMs:        qtcMs,
		QRSAxisDeg:   axisAt(sig, beat.StartSample, beat.EndSample),
	}
	if pStart >= 0 && pEnd > pStart {
		m.PAxisDeg = axisAt(sig, pStart, pEnd)
	}
	if tStart >= 0 && tEnd > tStart {
		m.TAxisDeg = axisAt(sig, tStart, tEnd)
	}
	return m, true
}

// representativeBeat picks the first normal beat, falling back to the
// first beat of any kind; callers check len(beats) > 0 before calling.
func representativeBeat(beats []clinical.Beat) clinical.Beat {
	for _, b := range beats {
		if b.Kind == clinical.BeatNormal {
			return b
		}
	}
	return beats[0]
}

func medianQRSMs(beats []clinical.Beat, sampleRate uint) float64 {
	widths := make([]float64, 0, len(beats))
	for _, b := range beats {
		widths = append(widths, msBetween(b.StartSample, b.EndSample, sampleRate))
	}
	sort.Float64s(widths)
	if len(widths) == 0 {
		return 0
	}
	return widths[len(widths)/2]
}

func msBetween(fromSample, toSample int, sampleRate uint) float64 {
	if fromSample < 0 || toSample < 0 || sampleRate == 0 {
		return 0
	}
	return float64(toSample-fromSample) / float64(sampleRate) * 1000
}

// pWaveWindow searches the 280ms-80ms interval preceding qrsStart for a P
// wave: the sample of largest absolute deflection, widened outward to its
// 10%-of-peak onset/offset, the same threshold-crossing approach as
// clinical's qrsWindow. Returns (-1,-1) if qrsStart leaves no room to search
// or the window is flat.
func pWaveWindow(samples []float64, qrsStart int, sampleRate uint) (int, int) {
	lo := qrsStart - msToSamples(280, sampleRate)
	hi := qrsStart - msToSamples(80, sampleRate)
	if lo < 0 {
		lo = 0
	}
	if hi > len(samples) {
		hi = len(samples)
	}
	if hi <= lo {
		return -1, -1
	}
	peak := lo
	for i := lo; i < hi; i++ {
		if math.Abs(samples[i]) > math.Abs(samples[peak]) {
			peak = i
		}
	}
	return thresholdWindow(samples, peak, lo, hi)
}

// tWaveWindow searches the 40ms-500ms interval following qrsEnd for a T
// wave using the same peak-then-threshold approach as pWaveWindow.
func tWaveWindow(samples []float64, qrsEnd int, sampleRate uint) (int, int) {
	lo := qrsEnd + msToSamples(40, sampleRate)
	hi := qrsEnd + msToSamples(500, sampleRate)
	if hi > len(samples) {
		hi = len(samples)
	}
	if lo >= hi {
		return -1, -1
	}
	peak := lo
	for i := lo; i < hi; i++ {
		if math.Abs(samples[i]) > math.Abs(samples[peak]) {
			peak = i
		}
	}
	return thresholdWindow(samples, peak, lo, hi)
}

// thresholdWindow walks outward from peak within [lo,hi) until the signal
// drops below 10% of the peak's magnitude, mirroring clinical.qrsWindow.
func thresholdWindow(samples []float64, peak, lo, hi int) (int, int) {
	peakVal := math.Abs(samples[peak])
	if peakVal == 0 {
		return -1, -1
	}
	threshold := 0.1 * peakVal

	start := peak
	for start > lo && math.Abs(samples[start]) > threshold {
		start--
	}
	end := peak
	for end < hi-1 && math.Abs(samples[end]) > threshold {
		end++
	}
	return start, end
}

func msToSamples(ms int, sampleRate uint) int {
	return int(float64(ms) / 1000 * float64(sampleRate))
}

// axisAt estimates a frontal-plane axis in degrees from the net amplitude
// (peak + trough within [start,end)) of leads I and aVF: lead I sits at 0
// degrees and aVF at +90 degrees on the hexaxial reference system, so the
// wave's direction is atan2(netAVF, netI). Leads I or aVF absent from the
// signal yield a zero axis (unmeasurable, not a clinical finding of 0).
func axisAt(sig *signal.ECGSignal, start, end int) float64 {
	i, okI := sig.Leads[leadset.I]
	avf, okAVF := sig.Leads[leadset.AVF]
	if !okI || !okAVF || start < 0 || end <= start {
		return 0
	}
	netI := netAmplitude(i, start, end)
	netAVF := netAmplitude(avf, start, end)
	if netI == 0 && netAVF == 0 {
		return 0
	}
	deg := math.Atan2(netAVF, netI) * 180 / math.Pi
	return interpret.NormalizeAxis(deg)
}

// netAmplitude is the algebraic sum of a window's extreme positive and
// negative deflections, the standard quick approximation of a QRS/P/T
// wave's net vector magnitude.
func netAmplitude(samples []float64, start, end int) float64 {
	if start < 0 || end > len(samples) || start >= end {
		return 0
	}
	max, min := samples[start], samples[start]
	for _, v := range samples[start:end] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return max + min
}
