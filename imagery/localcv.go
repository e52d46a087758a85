package imagery

import (
	"math"
	"sort"
	"sync"

	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/errkind"
)

// analyzeLocalCV runs the local computer-vision fallback: background-color
// estimation and binarization, periodic grid spacing detection, panel-row
// clustering, per-panel baseline estimation, and calibration defaulting.
func analyzeLocalCV(cfg *config.Config, img Image) (AnalysisResult, error) {
	var stages []StageStatus

	proc := preprocess(img)

	bg, darkness := estimateBackground(proc)
	stages = append(stages, StageStatus{Name: "binarize", OK: true})

	gridPx, gridConf := detectGridSpacing(proc, darkness)
	grid := GridInfo{
		Detected:      gridPx > 0,
		PxPerMm:       gridPx,
		SmallBoxPx:    gridPx,
		LargeBoxPx:    5 * gridPx,
		WaveformColor: [3]uint8{bg[0] / 2, bg[1] / 2, bg[2] / 2},
		Confidence:    gridConf,
	}
	if !grid.Detected {
		stages = append(stages, StageStatus{Name: "grid_detect", OK: false, Message: string(errkind.GridUndetected)})
		grid.PxPerMm = 8.0 // a typical 200dpi scan's mm pixel pitch, flagged below.
		grid.SmallBoxPx = grid.PxPerMm
		grid.LargeBoxPx = 5 * grid.PxPerMm
		grid.Confidence = 0.2
	} else {
		stages = append(stages, StageStatus{Name: "grid_detect", OK: true})
	}

	rows := clusterPanelRows(proc, darkness)
	panels := layoutPanels(proc, rows)
	for i := range panels {
		panels[i].BaselineY = estimateBaseline(proc, darkness, panels[i])
	}
	stages = append(stages, StageStatus{Name: "layout", OK: len(panels) > 0})

	calib := findCalibrationPulse(proc, darkness, panels)
	stages = append(stages, StageStatus{Name: "calibration", OK: true})

	labelConf := 0.0 // local CV never identifies lead labels from text.
	confidence := combineConfidence(grid.Confidence, calib.Confidence, maxFloat(labelConf, 0.3))

	return AnalysisResult{
		Grid:        grid,
		Calibration: calib,
		Panels:      panels,
		Confidence:  confidence,
		Method:      MethodLocalCV,
		ProviderTag: "local_cv",
		Stages:      stages,
	}, nil
}

// estimateBackground samples a grid of pixels to find the modal background
// color, then returns a per-pixel darkness map (255 - mean(R,G,B)).
func estimateBackground(img Image) (bg [3]uint8, darkness []float64) {
	const sampleStride = 7
	counts := map[[3]uint8]int{}
	for y := 0; y < img.Height; y += sampleStride {
		for x := 0; x < img.Width; x += sampleStride {
			r, g, b, _ := img.At(x, y)
			counts[[3]uint8{r, g, b}]++
		}
	}
	best, bestN := [3]uint8{255, 255, 255}, -1
	for c, n := range counts {
		if n > bestN {
			best, bestN = c, n
		}
	}

	darkness = make([]float64, img.Width*img.Height)
	var wg sync.WaitGroup
	bands := runtimeBands(img.Height)
	for _, band := range bands {
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < img.Width; x++ {
					r, g, b, _ := img.At(x, y)
					darkness[y*img.Width+x] = 255 - (float64(r)+float64(g)+float64(b))/3
				}
			}
		}(band[0], band[1])
	}
	wg.Wait()
	return best, darkness
}

// runtimeBands splits [0, height) into a small number of contiguous row
// bands for goroutine fan-out, mirroring the teacher's row-parallel scan.
func runtimeBands(height int) [][2]int {
	const n = 8
	if height < n {
		return [][2]int{{0, height}}
	}
	step := height / n
	bands := make([][2]int, 0, n)
	for i := 0; i < n; i++ {
		y0 := i * step
		y1 := y0 + step
		if i == n-1 {
			y1 = height
		}
		bands = append(bands, [2]int{y0, y1})
	}
	return bands
}

// detectGridSpacing recovers the printed grid's pixel pitch by peak
// detection on the autocorrelation of column-sum darkness.
func detectGridSpacing(img Image, darkness []float64) (pxPerMm float64, confidence float64) {
	colSums := make([]float64, img.Width)
	for x := 0; x < img.Width; x++ {
		var sum float64
		for y := 0; y < img.Height; y++ {
			sum += darkness[y*img.Width+x]
		}
		colSums[x] = sum
	}

	mean := meanOf(colSums)
	centered := make([]float64, len(colSums))
	for i, v := range colSums {
		centered[i] = v - mean
	}

	maxLag := img.Width / 4
	if maxLag < 2 {
		return 0, 0
	}
	autocorr := make([]float64, maxLag)
	for lag := 1; lag < maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(centered); i++ {
			sum += centered[i] * centered[i+lag]
		}
		autocorr[lag] = sum
	}

	peakLag, peakVal := 0, math.Inf(-1)
	// Grid spacing is typically 5-40px; ignore implausible lags.
	for lag := 5; lag < len(autocorr) && lag < 40; lag++ {
		if autocorr[lag] > peakVal {
			peakLag, peakVal = lag, autocorr[lag]
		}
	}
	if peakLag == 0 || peakVal <= 0 {
		return 0, 0
	}
	return float64(peakLag), 0.6
}

// clusterPanelRows clusters dark-pixel row-bands into panel rows by
// thresholding the row-sum darkness profile.
func clusterPanelRows(img Image, darkness []float64) [][2]int {
	rowSums := make([]float64, img.Height)
	for y := 0; y < img.Height; y++ {
		var sum float64
		for x := 0; x < img.Width; x++ {
			sum += darkness[y*img.Width+x]
		}
		rowSums[y] = sum
	}

	threshold := meanOf(rowSums) * 0.5

	var rows [][2]int
	inBand := false
	start := 0
	for y, v := range rowSums {
		if v > threshold && !inBand {
			inBand = true
			start = y
		} else if v <= threshold && inBand {
			inBand = false
			if y-start > 5 {
				rows = append(rows, [2]int{start, y})
			}
		}
	}
	if inBand {
		rows = append(rows, [2]int{start, img.Height})
	}
	if len(rows) == 0 {
		rows = [][2]int{{0, img.Height}}
	}
	return rows
}

// layoutPanels splits each detected row band into 4 equal columns, the
// typical 4-column print layout. Whenever there is more than one row, the
// last row is treated as a single full-width rhythm strip; its content is
// not inspected to confirm this.
func layoutPanels(img Image, rows [][2]int) []Panel {
	const cols = 4
	var panels []Panel
	id := 0
	for ri, row := range rows {
		isRhythm := ri == len(rows)-1 && len(rows) > 1
		nCols := cols
		if isRhythm {
			nCols = 1
		}
		colWidth := float64(img.Width) / float64(nCols)
		for c := 0; c < nCols; c++ {
			panels = append(panels, Panel{
				ID: id,
				Bounds: Rect{
					X: float64(c) * colWidth,
					Y: float64(row[0]),
					W: colWidth,
					H: float64(row[1] - row[0]),
				},
				Row:         ri,
				Col:         c,
				RhythmStrip: isRhythm,
			})
			id++
		}
	}
	return panels
}

// estimateBaseline computes a panel's baseline as the median Y of the dark
// centroid column-scan within its bounds.
func estimateBaseline(img Image, darkness []float64, p Panel) float64 {
	x0, x1 := int(p.Bounds.X), int(p.Bounds.X+p.Bounds.W)
	y0, y1 := int(p.Bounds.Y), int(p.Bounds.Y+p.Bounds.H)
	if x1 > img.Width {
		x1 = img.Width
	}
	if y1 > img.Height {
		y1 = img.Height
	}

	var centroids []float64
	for x := x0; x < x1; x++ {
		var weightedSum, weightTotal float64
		for y := y0; y < y1; y++ {
			d := darkness[y*img.Width+x]
			if d > 100 {
				weightedSum += float64(y) * d
				weightTotal += d
			}
		}
		if weightTotal > 0 {
			centroids = append(centroids, weightedSum/weightTotal)
		}
	}
	if len(centroids) == 0 {
		return float64(y0+y1) / 2
	}
	return medianOf(centroids)
}

// findCalibrationPulse returns the standard 10mm/mV gain and 25mm/s paper
// speed, tagged standard_assumed at confidence 0.5. It does not search the
// image for a calibration pulse.
func findCalibrationPulse(img Image, darkness []float64, panels []Panel) Calibration {
	_ = darkness
	if len(panels) == 0 {
		return Calibration{
			GainMmPerMv:     10,
			PaperSpeedMmPs:  25,
			GainProvenance:  ProvenanceStandardAssumed,
			SpeedProvenance: ProvenanceStandardAssumed,
			Confidence:      0.5,
		}
	}
	// A full pulse-search is out of scope for the local fallback's first
	// pass; standard values are assumed until the AI path or Tier 4
	// user-assist supplies a measured pulse.
	return Calibration{
		GainMmPerMv:     10,
		PaperSpeedMmPs:  25,
		GainProvenance:  ProvenanceStandardAssumed,
		SpeedProvenance: ProvenanceStandardAssumed,
		Confidence:      0.5,
	}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64{}, xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
