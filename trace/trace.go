// Package trace implements the Waveform Tracer: for each panel, a
// per-column pixel scan yielding a sub-pixel RawTrace, optionally augmented
// by AI-supplied trace and critical points.
package trace

// Method tags how a RawTrace was produced.
type Method string

const (
	MethodColumnScan   Method = "column_scan"
	MethodContourTrace Method = "contour_trace"
	MethodAIGuided     Method = "ai_guided"
)

// Gap is an x-pixel range where no column yielded a plausible on-curve
// point.
type Gap struct {
	StartX, EndX int
}

// RawTrace is the sub-pixel polyline extracted from one panel.
type RawTrace struct {
	X          []float64
	Y          []float64
	Confidence []float64
	Gaps       []Gap
	BaselineY  float64
	Method     Method
}

// Len reports the number of points in the trace.
func (t *RawTrace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.X)
}

// Valid reports whether the trace has enough points to be usable; an empty
// trace (<10 points) is a Tracer failure.
func (t *RawTrace) Valid() bool {
	return t.Len() >= 10
}
