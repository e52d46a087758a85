package signal

import (
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/errkind"
	"github.com/cardiomet/ecgdigit/imagery"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/trace"
)

// Reconstructor implements the Signal Reconstructor: pixel -> mV +
// time conversion, resampling to a target rate, and DC/baseline-wander
// correction.
type Reconstructor struct {
	cfg *config.Config
}

// New builds a Reconstructor from cfg.
func New(cfg *config.Config) *Reconstructor {
	return &Reconstructor{cfg: cfg}
}

// LeadTrace pairs a lead with the RawTrace and Panel it was extracted from.
type LeadTrace struct {
	Lead  leadset.Name
	Panel imagery.Panel
	Raw   *trace.RawTrace
}

// Reconstruct converts the given per-lead traces into an ECGSignal.
// Traces that are nil or invalid are omitted from the result rather than
// zero-filled. Duration is taken as the maximum
// declared panel time range across the provided traces.
func (r *Reconstructor) Reconstruct(traces []LeadTrace, grid imagery.GridInfo, calib imagery.Calibration) (*ECGSignal, error) {
	if grid.PxPerMm <= 0 {
		return nil, errkind.New(errkind.GridUndetected, "pxPerMm is non-positive")
	}

	duration := 0.0
	for _, lt := range traces {
		if lt.Panel.EndSec > duration {
			duration = lt.Panel.EndSec
		}
	}
	if duration <= 0 {
		duration = 10 // a typical single strip, used only when panels carry no declared time range.
	}

	out := NewECGSignal(r.cfg.SampleRate, duration)
	targetLen := out.ExpectedLength()

	for _, lt := range traces {
		if lt.Raw == nil || !lt.Raw.Valid() {
			continue
		}
		times, voltages := r.toPhysical(lt.Raw, lt.Panel, grid, calib)
		resampled := r.resample(times, voltages, targetLen)
		resampled = r.removeDC(resampled)
		resampled = r.removeBaselineWander(resampled)
		out.Leads[lt.Lead] = resampled
	}

	return out, nil
}

// toPhysical applies the pixel -> time/voltage coordinate transform to
// every point in raw.
func (r *Reconstructor) toPhysical(raw *trace.RawTrace, panel imagery.Panel, grid imagery.GridInfo, calib imagery.Calibration) (times, voltages []float64) {
	times = make([]float64, len(raw.X))
	voltages = make([]float64, len(raw.Y))
	for i := range raw.X {
		times[i] = (raw.X[i] - panel.Bounds.X) / (grid.PxPerMm * calib.PaperSpeedMmPs)
		voltages[i] = (panel.BaselineY - raw.Y[i]) / (grid.PxPerMm * calib.GainMmPerMv) * 1000
	}
	return times, voltages
}

// resample builds a uniform series of length targetLen from the irregular
// (times, voltages) series, using linear interpolation by default or a
// sinc (FFT-based) method for upsampling when cfg.UseSincResample is set.
// Values outside the trace's time range are clamped to the first/last
// sample.
func (r *Reconstructor) resample(times, voltages []float64, targetLen int) []float64 {
	if len(times) == 0 {
		return make([]float64, targetLen)
	}

	idx := make([]int, len(times))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return times[idx[a]] < times[idx[b]] })
	sortedT := make([]float64, len(times))
	sortedV := make([]float64, len(voltages))
	for i, j := range idx {
		sortedT[i] = times[j]
		sortedV[i] = voltages[j]
	}

	if r.cfg.UseSincResample && targetLen > len(sortedT) && len(sortedT) >= 2 {
		// Build a genuinely low-rate uniform series spanning the *entire*
		// target duration (targetLen/SampleRate seconds) at len(sortedT)
		// samples, then band-limited-interpolate it up to targetLen. Slicing
		// the full-rate linear series instead would only cover its first
		// len(sortedT) samples worth of time, not the whole trace.
		srcLen := len(sortedT)
		lowRate := float64(srcLen) * float64(r.cfg.SampleRate) / float64(targetLen)
		lowSeries := resampleLinear(sortedT, sortedV, srcLen, lowRate)
		return resampleSinc(lowSeries, targetLen)
	}
	return resampleLinear(sortedT, sortedV, targetLen, float64(r.cfg.SampleRate))
}

// resampleLinear linearly interpolates (t, v) onto targetLen uniform
// samples at the given sample rate, clamping outside [t[0], t[last]].
func resampleLinear(t, v []float64, targetLen int, sampleRate float64) []float64 {
	out := make([]float64, targetLen)
	if len(t) == 1 {
		for i := range out {
			out[i] = v[0]
		}
		return out
	}

	j := 0
	for i := 0; i < targetLen; i++ {
		target := float64(i) / sampleRate
		if target <= t[0] {
			out[i] = v[0]
			continue
		}
		if target >= t[len(t)-1] {
			out[i] = v[len(v)-1]
			continue
		}
		for j < len(t)-2 && t[j+1] < target {
			j++
		}
		span := t[j+1] - t[j]
		frac := 0.0
		if span > 0 {
			frac = (target - t[j]) / span
		}
		out[i] = v[j] + (v[j+1]-v[j])*frac
	}
	return out
}

// resampleSinc upsamples a uniformly sampled series (already spanning the
// full target duration) to targetLen by zero-padding its frequency-domain
// representation, the band-limited interpolation variant of resampling.
func resampleSinc(lowRate []float64, targetLen int) []float64 {
	srcLen := len(lowRate)
	if srcLen >= targetLen || srcLen < 2 {
		return lowRate
	}

	fftAlgo := fourier.NewFFT(srcLen)
	coeffs := fftAlgo.Coefficients(nil, lowRate)

	padded := make([]complex128, targetLen/2+1)
	copy(padded, coeffs)

	inverse := fourier.NewFFT(targetLen)
	out := inverse.Sequence(nil, padded)

	scale := float64(targetLen) / float64(srcLen)
	for i := range out {
		out[i] *= scale
	}
	return out
}

// removeDC subtracts the median of data, robust to R-wave spikes. After
// this, the median of every lead is within 1uV of zero.
func (r *Reconstructor) removeDC(data []float64) []float64 {
	m := medianOf(data)
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v - m
	}
	return out
}

// removeBaselineWander subtracts an estimated slow baseline using either
// the moving-average filter or the per-segment cubic-spline fit,
// according to cfg.UseSplineBaseline.
func (r *Reconstructor) removeBaselineWander(data []float64) []float64 {
	if r.cfg.UseSplineBaseline {
		segmentLen := int(float64(r.cfg.SampleRate) / r.cfg.BaselineWanderCutoffHz)
		return removeSplineBaseline(data, segmentLen)
	}
	return removeMovingAverageBaseline(data, r.cfg.SampleRate, r.cfg.BaselineWanderCutoffHz)
}
