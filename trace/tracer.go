package trace

import (
	"math"
	"sync"

	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/errkind"
	"github.com/cardiomet/ecgdigit/imagery"
)

// Tracer implements the Waveform Tracer: a per-column on-curve scan
// with gap interpolation. Fuse can replace a panel's scan trace as a whole
// with an AI-augmented trace (Catmull-Rom near AI critical points).
type Tracer struct {
	cfg *config.Config
}

// New builds a Tracer from cfg.
func New(cfg *config.Config) *Tracer {
	return &Tracer{cfg: cfg}
}

// column is one column's scan result, produced independently so the scan
// can fan out across goroutines the way the teacher's row-parallel pixel
// filters do.
type column struct {
	x          int
	y          float64
	confidence float64
	ok         bool
}

// Trace extracts a RawTrace from img within panel's bounds. Empty panel
// bounds and an unusable (too-short) trace are both reported as a
// NO_TRACES error, with a nil RawTrace.
func (tr *Tracer) Trace(img imagery.Image, grid imagery.GridInfo, panel imagery.Panel) (*RawTrace, error) {
	x0, x1 := int(panel.Bounds.X), int(panel.Bounds.X+panel.Bounds.W)
	y0, y1 := int(panel.Bounds.Y), int(panel.Bounds.Y+panel.Bounds.H)
	if x1 > img.Width {
		x1 = img.Width
	}
	if y1 > img.Height {
		y1 = img.Height
	}
	if x0 >= x1 || y0 >= y1 {
		return nil, errkind.New(errkind.NoTraces, "panel bounds are empty")
	}

	cols := make([]column, x1-x0)
	var wg sync.WaitGroup
	const bandSize = 64
	for bandStart := x0; bandStart < x1; bandStart += bandSize {
		bandEnd := bandStart + bandSize
		if bandEnd > x1 {
			bandEnd = x1
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for x := start; x < end; x++ {
				cols[x-x0] = tr.scanColumn(img, grid, panel, x, y0, y1)
			}
		}(bandStart, bandEnd)
	}
	wg.Wait()

	raw := tr.assemble(cols, x0, panel.BaselineY)
	if !raw.Valid() {
		return nil, errkind.New(errkind.NoTraces, "fewer than 10 on-curve points found")
	}

	if len(panel.TracePoints) > 0 || len(panel.CriticalPoints) > 0 {
		raw = Fuse(raw, panel, tr.cfg.AITraceConfidence)
	}

	return raw, nil
}

// scanColumn scans one pixel column for the connected on-curve run closest
// to the panel's baseline, returning its darkness-weighted centroid Y.
func (tr *Tracer) scanColumn(img imagery.Image, grid imagery.GridInfo, panel imagery.Panel, x, y0, y1 int) column {
	type run struct {
		yStart, yEnd int
		weightedSum  float64
		weightTotal  float64
	}

	var runs []run
	var current *run
	for y := y0; y < y1; y++ {
		r, g, b, _ := img.At(x, y)
		darkness := 255 - (float64(r)+float64(g)+float64(b))/3
		onCurve := colorDistance(r, g, b, grid.WaveformColor) < tr.cfg.ColorTolerance && darkness > tr.cfg.DarknessThreshold
		if onCurve {
			if current == nil {
				runs = append(runs, run{yStart: y, yEnd: y})
				current = &runs[len(runs)-1]
			}
			current.yEnd = y
			current.weightedSum += float64(y) * darkness
			current.weightTotal += darkness
		} else {
			current = nil
		}
	}

	if len(runs) == 0 {
		return column{x: x, ok: false}
	}

	best := runs[0]
	bestDist := math.Abs(centroidOf(best) - panel.BaselineY)
	for _, r := range runs[1:] {
		d := math.Abs(centroidOf(r) - panel.BaselineY)
		if d < bestDist {
			best, bestDist = r, d
		}
	}

	width := float64(best.yEnd - best.yStart + 1)
	tightness := 1 / width
	darknessFrac := clamp01((best.weightTotal / width) / 255)
	confidence := clamp01(darknessFrac * tightness)

	return column{x: x, y: centroidOf(best), confidence: confidence, ok: true}
}

func centroidOf(r struct {
	yStart, yEnd int
	weightedSum  float64
	weightTotal  float64
}) float64 {
	if r.weightTotal == 0 {
		return float64(r.yStart+r.yEnd) / 2
	}
	return r.weightedSum / r.weightTotal
}

// assemble turns per-column scan results into a RawTrace, linearly
// interpolating gaps no larger than maxInterpolateGap columns and
// reporting larger gaps intact.
func (tr *Tracer) assemble(cols []column, xOffset int, baselineY float64) *RawTrace {
	raw := &RawTrace{BaselineY: baselineY, Method: MethodColumnScan}

	i := 0
	for i < len(cols) {
		if cols[i].ok {
			raw.X = append(raw.X, float64(cols[i].x))
			raw.Y = append(raw.Y, cols[i].y)
			raw.Confidence = append(raw.Confidence, cols[i].confidence)
			i++
			continue
		}
		// Gap: find its extent.
		start := i
		for i < len(cols) && !cols[i].ok {
			i++
		}
		gapLen := i - start
		if gapLen <= tr.cfg.MaxInterpolateGap && len(raw.Y) > 0 && i < len(cols) {
			y0, y1 := raw.Y[len(raw.Y)-1], cols[i].y
			for k := start; k < i; k++ {
				frac := float64(k-start+1) / float64(gapLen+1)
				raw.X = append(raw.X, float64(cols[k].x))
				raw.Y = append(raw.Y, y0+(y1-y0)*frac)
				raw.Confidence = append(raw.Confidence, 0.3)
			}
		} else {
			raw.Gaps = append(raw.Gaps, Gap{StartX: cols[start].x, EndX: cols[i-1].x})
		}
	}

	return raw
}

func colorDistance(r, g, b uint8, target [3]uint8) float64 {
	dr := float64(r) - float64(target[0])
	dg := float64(g) - float64(target[1])
	db := float64(b) - float64(target[2])
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
