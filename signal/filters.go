package signal

import (
	"sort"

	"github.com/mjibson/go-dsp/fft"
)

// fastConvolve convolves signal with kernel via zero-padded FFT multiply,
// the same construction the teacher's PCM FIR filtering uses rather than a
// direct O(n*m) convolution loop. Returns a "same"-length result, centered
// on the kernel.
func fastConvolve(signal, kernel []float64) []float64 {
	n := len(signal) + len(kernel) - 1
	size := nextPow2(n)

	sig := make([]complex128, size)
	ker := make([]complex128, size)
	for i, v := range signal {
		sig[i] = complex(v, 0)
	}
	for i, v := range kernel {
		ker[i] = complex(v, 0)
	}

	sf := fft.FFT(sig)
	kf := fft.FFT(ker)
	prod := make([]complex128, size)
	for i := range prod {
		prod[i] = sf[i] * kf[i]
	}
	out := fft.IFFT(prod)

	full := make([]float64, n)
	for i := 0; i < n; i++ {
		full[i] = real(out[i])
	}

	// Center the kernel's delay so the result aligns with signal.
	offset := len(kernel) / 2
	result := make([]float64, len(signal))
	for i := range result {
		idx := i + offset
		if idx >= 0 && idx < len(full) {
			result[i] = full[idx]
		}
	}
	return result
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// movingAverageKernel builds a normalized boxcar kernel of length n.
func movingAverageKernel(n int) []float64 {
	if n < 1 {
		n = 1
	}
	k := make([]float64, n)
	for i := range k {
		k[i] = 1 / float64(n)
	}
	return k
}

// baselineWander estimates the slow-moving baseline of data via a moving
// average of window length sampleRate/(2*cutoffHz).
func baselineWander(data []float64, sampleRate uint, cutoffHz float64) []float64 {
	if cutoffHz <= 0 {
		cutoffHz = 0.5
	}
	windowLen := int(float64(sampleRate) / (2 * cutoffHz))
	if windowLen < 1 {
		windowLen = 1
	}
	return fastConvolve(data, movingAverageKernel(windowLen))
}

// removeMovingAverageBaseline subtracts the estimated baseline wander from
// data.
func removeMovingAverageBaseline(data []float64, sampleRate uint, cutoffHz float64) []float64 {
	baseline := baselineWander(data, sampleRate, cutoffHz)
	out := make([]float64, len(data))
	for i := range data {
		out[i] = data[i] - baseline[i]
	}
	return out
}

// removeSplineBaseline fits a cubic spline through the medians of
// consecutive segments of data and subtracts it, an alternative to the
// moving-average baseline removal for especially irregular wander.
func removeSplineBaseline(data []float64, segmentLen int) []float64 {
	if segmentLen < 1 {
		segmentLen = 1
	}
	var knots []float64
	var knotX []int
	for start := 0; start < len(data); start += segmentLen {
		end := start + segmentLen
		if end > len(data) {
			end = len(data)
		}
		knots = append(knots, medianOf(data[start:end]))
		knotX = append(knotX, (start+end)/2)
	}
	if len(knots) < 2 {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}

	baseline := make([]float64, len(data))
	for i := range data {
		baseline[i] = interpolateCatmullRom(knotX, knots, i)
	}

	out := make([]float64, len(data))
	for i := range data {
		out[i] = data[i] - baseline[i]
	}
	return out
}

// interpolateCatmullRom evaluates the Catmull-Rom spline through (knotX,
// knots) at sample position x.
func interpolateCatmullRom(knotX []int, knots []float64, x int) float64 {
	// Find the segment containing x.
	i := sort.Search(len(knotX), func(i int) bool { return knotX[i] > x }) - 1
	if i < 0 {
		i = 0
	}
	if i >= len(knotX)-1 {
		return knots[len(knots)-1]
	}

	p0 := knots[maxInt(i-1, 0)]
	p1 := knots[i]
	p2 := knots[i+1]
	p3 := knots[minInt(i+2, len(knots)-1)]

	span := float64(knotX[i+1] - knotX[i])
	if span == 0 {
		return p1
	}
	t := float64(x-knotX[i]) / span

	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

func medianOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64{}, xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
