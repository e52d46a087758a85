package digitize

import (
	"math"

	"github.com/cardiomet/ecgdigit/clinical"
	"github.com/cardiomet/ecgdigit/interpret"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// extractVoltages measures the representative beat's R and S amplitudes in
// every present lead, the Hypertrophy analyzer's input. Returns nil
// if no beat is available.
func extractVoltages(sig *signal.ECGSignal, rhythm clinical.RhythmResult) *interpret.VoltageMeasurements {
	if len(rhythm.Beats) == 0 {
		return nil
	}
	beat := representativeBeat(rhythm.Beats)

	v := &interpret.VoltageMeasurements{
		RAmplitudeUV: map[leadset.Name]float64{},
		SAmplitudeUV: map[leadset.Name]float64{},
	}
	for lead, samples := range sig.Leads {
		start, end := beat.StartSample, beat.EndSample
		if start < 0 || end > len(samples) || start >= end {
			continue
		}
		r, s := rAndSAmplitude(samples[start:end])
		v.RAmplitudeUV[lead] = r
		v.SAmplitudeUV[lead] = s
	}
	return v
}

// rAndSAmplitude returns the window's largest positive deflection (R) and
// the absolute value of its largest negative deflection (S).
func rAndSAmplitude(window []float64) (r, s float64) {
	for _, v := range window {
		if v > r {
			r = v
		}
		if v < -s {
			s = -v
		}
	}
	return r, s
}

// extractMorphology builds the Repolarization/Pre-excitation/Brugada
// analyzers' qualitative inputs from V1/V2 ST-segment and T-wave
// shape, and a short-PR/delta-wave screen on the representative beat.
// Returns nil if no beat is available; without a V1/V2 lead only the
// delta-wave screen is filled in.
func extractMorphology(sig *signal.ECGSignal, rhythm clinical.RhythmResult) *interpret.MorphologyInputs {
	if len(rhythm.Beats) == 0 {
		return nil
	}
	beat := representativeBeat(rhythm.Beats)

	m := &interpret.MorphologyInputs{
		DeltaWavePresent: hasDeltaWave(sig, beat, rhythm.LeadUsed),
	}

	lead, ok := stLead(sig)
	if !ok {
		return m
	}
	samples := sig.Leads[lead]
	jPoint := beat.EndSample
	if jPoint < 0 || jPoint >= len(samples) {
		return m
	}

	stEnd := jPoint + msToSamples(80, sig.SampleRate)
	if stEnd > len(samples) {
		stEnd = len(samples)
	}
	stMm := stElevationMm(samples, jPoint, stEnd)
	m.STElevationV1V2Mm = stMm
	if stMm >= 2 {
		m.STMorphologyV1V2 = stMorphology(samples, jPoint, stEnd)
		tStart, tEnd := tWaveWindow(samples, beat.EndSample, sig.SampleRate)
		m.TWavePolarityV1V2 = tPolarity(samples, tStart, tEnd)
	}
	m.TWaveV1 = tPolarityOfLead(sig, leadset.V1, beat)

	return m
}

// stLead prefers V1, falling back to V2, for ST/T morphology scoring; both
// map to the same Brugada/repolarization criteria.
func stLead(sig *signal.ECGSignal) (leadset.Name, bool) {
	if sig.Has(leadset.V1) {
		return leadset.V1, true
	}
	if sig.Has(leadset.V2) {
		return leadset.V2, true
	}
	return "", false
}

// stElevationMm converts the J-point's deviation from the pre-QRS baseline
// into millimeters at the standard 10mm/mV gain; a reconstructed signal
// already carries microvolt units regardless of the page's original gain,
// so this assumes the standard calibration for display purposes only.
func stElevationMm(samples []float64, jPoint, stEnd int) float64 {
	if jPoint >= stEnd {
		return 0
	}
	deviationUV := samples[jPoint]
	return deviationUV / 100 // 1mm per 100uV at 10mm/mV
}

// stMorphology classifies the ST segment between the J-point and stEnd as
// coved (monotonically falling from an elevated J-point) or saddleback (a
// dip below the J-point value followed by a rise), the Brugada-criteria
// shapes. Ambiguous shapes are left unknown.
func stMorphology(samples []float64, jPoint, stEnd int) interpret.STMorphology {
	if stEnd-jPoint < 2 {
		return interpret.STMorphologyUnknown
	}
	jVal := samples[jPoint]
	min := jVal
	minIdx := jPoint
	for i := jPoint; i < stEnd; i++ {
		if samples[i] < min {
			min, minIdx = samples[i], i
		}
	}
	if min < jVal && minIdx > jPoint && minIdx < stEnd-1 && samples[stEnd-1] > min {
		return interpret.STMorphologySaddleback
	}
	falling := true
	for i := jPoint + 1; i < stEnd; i++ {
		if samples[i] > samples[i-1] {
			falling = false
			break
		}
	}
	if falling {
		return interpret.STMorphologyCoved
	}
	return interpret.STMorphologyUnknown
}

func tPolarity(samples []float64, start, end int) interpret.TPolarity {
	if start < 0 || end <= start || end > len(samples) {
		return interpret.TPolarityUnknown
	}
	pos, neg := false, false
	for _, v := range samples[start:end] {
		if v > 50 {
			pos = true
		}
		if v < -50 {
			neg = true
		}
	}
	switch {
	case pos && neg:
		return interpret.TPolarityBiphasic
	case pos:
		return interpret.TPolarityPositive
	case neg:
		return interpret.TPolarityNegative
	default:
		return interpret.TPolarityUnknown
	}
}

func tPolarityOfLead(sig *signal.ECGSignal, lead leadset.Name, beat clinical.Beat) interpret.TPolarity {
	samples, ok := sig.Leads[lead]
	if !ok {
		return interpret.TPolarityUnknown
	}
	start, end := tWaveWindow(samples, beat.EndSample, sig.SampleRate)
	return tPolarity(samples, start, end)
}

// hasDeltaWave screens for a slurred QRS upstroke: the first third of the
// QRS window rising more slowly than the remainder, the classic
// pre-excitation signature, measured on the rhythm lead.
func hasDeltaWave(sig *signal.ECGSignal, beat clinical.Beat, lead leadset.Name) bool {
	samples, ok := sig.Leads[lead]
	if !ok || beat.StartSample < 0 || beat.EndSample > len(samples) {
		return false
	}
	window := samples[beat.StartSample:beat.EndSample]
	n := len(window)
	if n < 6 {
		return false
	}
	third := n / 3
	earlySlope := math.Abs(window[third]-window[0]) / float64(third)
	lateSlope := math.Abs(window[n-1]-window[third]) / float64(n-third)
	return lateSlope > 0 && earlySlope < 0.3*lateSlope
}
