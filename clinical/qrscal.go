package clinical

import (
	"math"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// QRSCalibrationResult cross-checks the declared calibration against
// population-typical QRS amplitude and duration, flagging a likely
// gain or paper-speed misconfiguration.
type QRSCalibrationResult struct {
	MedianQRSAmplitudeUV  float64
	MedianQRSDurationMs   float64
	LikelyGainError       bool
	LikelyPaperSpeedError bool
	Notes                 []string
}

// typical adult QRS amplitude and duration bounds used as the
// cross-check reference; out-of-band medians suggest the declared
// calibration, not the patient's physiology, is wrong.
const (
	typicalQRSAmplitudeMinUV = 500
	typicalQRSAmplitudeMaxUV = 2500
	typicalQRSDurationMinMs  = 60
	typicalQRSDurationMaxMs  = 120
)

// CrossCheckCalibration implements the QRS-based calibration cross-check:
// it measures the median QRS peak-to-peak amplitude and duration on the
// rhythm lead and compares them against typical adult bounds, flagging a
// likely gain error (amplitude wildly outside bounds) or paper-speed
// error (duration wildly outside bounds) independent of any genuine
// conduction or voltage abnormality the interpretation engine may also
// report.
func CrossCheckCalibration(sig *signal.ECGSignal, rhythm RhythmResult) QRSCalibrationResult {
	lead := rhythm.LeadUsed
	if lead == "" || !sig.Has(lead) || len(rhythm.Beats) == 0 {
		return QRSCalibrationResult{Notes: []string{"insufficient data for calibration cross-check"}}
	}
	samples := sig.Leads[lead]

	var amplitudes, durations []float64
	for _, b := range rhythm.Beats {
		if b.StartSample < 0 || b.EndSample >= len(samples) || b.EndSample <= b.StartSample {
			continue
		}
		segment := samples[b.StartSample : b.EndSample+1]
		min, max := minMax(segment)
		amplitudes = append(amplitudes, max-min)
		durations = append(durations, 1000*float64(b.EndSample-b.StartSample)/float64(sig.SampleRate))
	}
	if len(amplitudes) == 0 {
		return QRSCalibrationResult{Notes: []string{"no measurable QRS complexes"}}
	}

	medAmp := median(amplitudes)
	medDur := median(durations)

	result := QRSCalibrationResult{
		MedianQRSAmplitudeUV: medAmp,
		MedianQRSDurationMs:  medDur,
	}

	// A factor-of-2 deviation (half or double the typical band) points at
	// a gain/speed setting error rather than physiology.
	if medAmp < typicalQRSAmplitudeMinUV/2 || medAmp > typicalQRSAmplitudeMaxUV*2 {
		result.LikelyGainError = true
		result.Notes = append(result.Notes, "median QRS amplitude is far outside the typical adult band; check the declared gain")
	}
	if medDur < typicalQRSDurationMinMs/2 || medDur > typicalQRSDurationMaxMs*2 {
		result.LikelyPaperSpeedError = true
		result.Notes = append(result.Notes, "median QRS duration is far outside the typical adult band; check the declared paper speed")
	}

	return result
}

// plausibleGainRange narrows a candidate gain search to the range that
// would bring medAmp into the typical band. Reconstructed amplitude is
// inversely proportional to the assumed gain, so the target gain scales
// by medAmp over the band's midpoint.
func plausibleGainRange(medAmp, currentGain float64) (float64, float64) {
	if medAmp <= 0 || currentGain <= 0 {
		return currentGain, currentGain
	}
	mid := (typicalQRSAmplitudeMinUV + typicalQRSAmplitudeMaxUV) / 2.0
	factor := medAmp / mid
	target := currentGain * factor
	return math.Max(target*0.5, 0), target * 1.5
}

// leadsAgreeOnGain reports whether every present limb lead's QRS
// amplitude falls within a factor of 3 of the rhythm lead's, a coarse
// sanity check that the same declared gain is consistent across leads.
func leadsAgreeOnGain(sig *signal.ECGSignal, refAmp float64) bool {
	if refAmp <= 0 {
		return true
	}
	for _, lead := range leadset.Limb {
		samples, ok := sig.Leads[lead]
		if !ok || len(samples) == 0 {
			continue
		}
		min, max := minMax(samples)
		amp := max - min
		if amp <= 0 {
			continue
		}
		ratio := amp / refAmp
		if ratio > 3 || ratio < 1.0/3 {
			return false
		}
	}
	return true
}
