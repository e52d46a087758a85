package trace

import (
	"sort"

	"github.com/cardiomet/ecgdigit/imagery"
)

// aiPoint is an absolute-pixel AI trace sample, after converting its
// panel-relative xPercent into an absolute x.
type aiPoint struct {
	x, y float64
}

// Fuse applies the AI trace-point / column-scan fusion rule decided for
// this implementation: the AI-guided trace replaces the pixel-scan trace
// wholesale when the panel's label confidence exceeds confidenceThreshold
// and the panel carries AI trace points; otherwise the scan-based raw
// trace is returned unchanged. This resolves the ambiguity between
// per-point and per-panel AI confidence noted in the source material by
// using the one confidence value the data model actually carries:
// Panel.LabelConfidence.
func Fuse(raw *RawTrace, panel imagery.Panel, confidenceThreshold float64) *RawTrace {
	if len(panel.TracePoints) == 0 || panel.LabelConfidence <= confidenceThreshold {
		return raw
	}

	points := make([]aiPoint, len(panel.TracePoints))
	for i, tp := range panel.TracePoints {
		points[i] = aiPoint{
			x: panel.Bounds.X + tp.XPercent/100*panel.Bounds.W,
			y: tp.YPixel,
		}
	}
	sort.Slice(points, func(i, j int) bool { return points[i].x < points[j].x })

	criticalXs := make([]float64, len(panel.CriticalPoints))
	for i, cp := range panel.CriticalPoints {
		criticalXs[i] = panel.Bounds.X + cp.XPercent/100*panel.Bounds.W
	}

	augmented := &RawTrace{BaselineY: raw.BaselineY, Method: MethodAIGuided}
	for i := 0; i < len(points)-1; i++ {
		p0, p1, p2, p3 := neighborY(points, i-1), points[i].y, points[i+1].y, neighborY(points, i+2)
		x0, x1 := points[i].x, points[i+1].x

		if nearAnyCritical(x0, x1, criticalXs, panel.Bounds.W) {
			const n = 5
			ys := splineSegment(p0, p1, p2, p3, n)
			for k := 0; k < n; k++ {
				frac := float64(k) / float64(n-1)
				augmented.X = append(augmented.X, x0+(x1-x0)*frac)
				augmented.Y = append(augmented.Y, ys[k])
				augmented.Confidence = append(augmented.Confidence, 0.85)
			}
		} else {
			augmented.X = append(augmented.X, x0)
			augmented.Y = append(augmented.Y, p1)
			augmented.Confidence = append(augmented.Confidence, 0.9)
		}
	}
	if len(points) > 0 {
		last := points[len(points)-1]
		augmented.X = append(augmented.X, last.x)
		augmented.Y = append(augmented.Y, last.y)
		augmented.Confidence = append(augmented.Confidence, 0.9)
	}

	// Gaps from the underlying scan still apply: large ones the AI also
	// couldn't usefully annotate remain reported.
	augmented.Gaps = raw.Gaps

	return augmented
}

// neighborY returns points[i].y, clamping i to the valid range so the
// Catmull-Rom segments at the ends of the trace reuse the nearest
// available control point instead of indexing out of range.
func neighborY(points []aiPoint, i int) float64 {
	if i < 0 {
		i = 0
	}
	if i >= len(points) {
		i = len(points) - 1
	}
	return points[i].y
}

// nearAnyCritical reports whether the segment [x0,x1] falls within 2% of
// the panel width of any critical point, the "immediate neighborhood"
// the spline augmentation applies to.
func nearAnyCritical(x0, x1 float64, criticalXs []float64, panelWidth float64) bool {
	margin := panelWidth * 0.02
	for _, cx := range criticalXs {
		if cx >= x0-margin && cx <= x1+margin {
			return true
		}
	}
	return false
}
