package trace

// catmullRom evaluates a centripetal-parameterization-free (uniform)
// Catmull-Rom spline segment through control points p0..p3 at parameter
// t in [0,1], returning the interpolated y. Used only to densify the
// waveform's sharp bends (QRS peaks/troughs) around AI-supplied critical
// points; elsewhere the Tracer uses plain linear interpolation.
func catmullRom(p0, p1, p2, p3, t float64) float64 {
	t2 := t * t
	t3 := t2 * t
	return 0.5 * ((2 * p1) +
		(-p0+p2)*t +
		(2*p0-5*p1+4*p2-p3)*t2 +
		(-p0+3*p1-3*p2+p3)*t3)
}

// splineSegment generates n evenly spaced y-values between p1 and p2 (the
// interior control points) using the neighboring points p0 and p3 for
// curvature.
func splineSegment(p0, p1, p2, p3 float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		if n == 1 {
			t = 0
		}
		out[i] = catmullRom(p0, p1, p2, p3, t)
	}
	return out
}
