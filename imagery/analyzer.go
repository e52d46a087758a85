package imagery

import (
	"context"
	"fmt"
	"math"

	"github.com/cardiomet/ecgdigit/cache"
	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/errkind"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/vlm"
)

// promptRevision tags the current analysis prompt shape in cache keys; bump
// whenever the requested schema changes so stale cached responses miss.
const promptRevision = "analyzer-v1"

// Analyzer implements the Image Analyzer: an AI-guided primary path
// with a local computer-vision fallback, never throwing — only
// LOADING_FAILED aborts the job.
type Analyzer struct {
	cfg      *config.Config
	provider vlm.Provider // nil means local-CV only
	cache    *cache.Cache // nil disables caching
}

// New builds an Analyzer. provider may be nil to force the local-CV path;
// c may be nil to disable response caching.
func New(cfg *config.Config, provider vlm.Provider, c *cache.Cache) *Analyzer {
	return &Analyzer{cfg: cfg, provider: provider, cache: c}
}

// Analyze converts img into an AnalysisResult, trying the AI-guided path
// first (if a provider is configured) and falling back to local CV when no
// provider is available or the AI result's confidence is below
// cfg.GridConfidenceFloor.
func (a *Analyzer) Analyze(ctx context.Context, img Image) (AnalysisResult, error) {
	if len(img.Pixels) == 0 || img.Width <= 0 || img.Height <= 0 {
		return AnalysisResult{}, errkind.New(errkind.LoadingFailed, "image buffer is empty or has non-positive dimensions")
	}

	var stages []StageStatus

	if a.provider != nil {
		result, err := a.analyzeAI(ctx, img)
		if err == nil {
			stages = append(stages, StageStatus{Name: "ai_guided", OK: true})
			if result.Confidence >= a.cfg.GridConfidenceFloor {
				result.Stages = append(stages, result.Stages...)
				return result, nil
			}
			stages = append(stages, StageStatus{Name: "ai_guided", OK: false, Message: "confidence below floor, falling back to local CV"})
		} else {
			if a.cfg.Logger != nil {
				a.cfg.Logger.Warning("vlm analyze failed, falling back to local CV", "error", err)
			}
			stages = append(stages, StageStatus{Name: "ai_guided", OK: false, Message: err.Error()})
		}
	}

	result, err := analyzeLocalCV(a.cfg, img)
	if err != nil {
		return AnalysisResult{}, err
	}
	result.Stages = append(stages, result.Stages...)
	return result, nil
}

// analyzeAI submits img to the configured provider (through the cache) and
// converts its AIAnalysisResult into the package's AnalysisResult shape.
func (a *Analyzer) analyzeAI(ctx context.Context, img Image) (AnalysisResult, error) {
	vimg := vlm.Image{Width: img.Width, Height: img.Height, Pixels: img.Pixels}

	compute := func() (interface{}, error) {
		return a.provider.Analyze(ctx, vimg)
	}

	var raw interface{}
	var err error
	if a.cache != nil {
		key := cache.Key(img.Pixels, a.provider.Tag(), promptRevision)
		raw, err = a.cache.GetOrCompute(key, compute)
	} else {
		raw, err = compute()
	}
	if err != nil {
		return AnalysisResult{}, errkind.Wrap(errkind.AIUnavailable, "provider "+a.provider.Tag(), err)
	}

	res, ok := raw.(vlm.AIAnalysisResult)
	if !ok {
		return AnalysisResult{}, fmt.Errorf("imagery: unexpected cached value type %T", raw)
	}

	return convertAIResult(res), nil
}

// convertAIResult repairs and clamps a raw AIAnalysisResult into the
// package's domain types: missing fields are defaulted, out-of-range
// values clamped.
func convertAIResult(res vlm.AIAnalysisResult) AnalysisResult {
	g := res.Analysis.Grid
	grid := GridInfo{
		Detected:      g.Detected,
		PxPerMm:       g.PxPerMm,
		SmallBoxPx:    g.PxPerMm,
		LargeBoxPx:    5 * g.PxPerMm,
		EstimatedDPI:  g.EstimatedDPI,
		RotationDeg:   g.RotationDeg,
		Confidence:    clamp01(g.Confidence),
		WaveformColor: parseHexColor(g.WaveformHex),
		ThinLineColor: parseHexColor(g.ThinLineHex),
		ThickLineColor: parseHexColor(g.ThickLineHex),
	}
	if grid.PxPerMm <= 0 {
		grid.Detected = false
	}

	c := res.Analysis.Calibration
	calib := Calibration{
		GainMmPerMv:     c.GainMmPerMv,
		PaperSpeedMmPs:  c.PaperSpeedMmPs,
		GainProvenance:  provenanceOrDefault(c.GainProvenance),
		SpeedProvenance: provenanceOrDefault(c.SpeedProvenance),
		PulseX:          c.PulseX,
		PulseY:          c.PulseY,
		PulseHeightPx:   c.PulseHeightPx,
		Confidence:      clamp01(c.Confidence),
	}
	if calib.GainMmPerMv <= 0 {
		calib.GainMmPerMv = 10
		calib.GainProvenance = ProvenanceStandardAssumed
	}
	if calib.PaperSpeedMmPs <= 0 {
		calib.PaperSpeedMmPs = 25
		calib.SpeedProvenance = ProvenanceStandardAssumed
	}

	var panels []Panel
	var labelConfSum float64
	for i, p := range res.Analysis.Panels {
		panel := Panel{
			ID:              i,
			Bounds:          Rect{X: p.BoundsX, Y: p.BoundsY, W: p.BoundsW, H: p.BoundsH},
			BaselineY:       p.BaselineY,
			Row:             p.Row,
			Col:             p.Col,
			RhythmStrip:     p.RhythmStrip,
			StartSec:        p.StartSec,
			EndSec:          p.EndSec,
			Lead:            leadset.Name(p.LeadName),
			LabelProvenance: provenanceOrDefault(p.LabelProvenance),
			LabelConfidence: clamp01(p.LabelConfidence),
		}
		if !leadset.Valid(panel.Lead) {
			panel.Lead = ""
		}
		for _, tp := range p.TracePoints {
			panel.TracePoints = append(panel.TracePoints, TracePoint{XPercent: tp.XPercent, YPixel: tp.YPixel})
		}
		for _, cp := range p.CriticalPoints {
			panel.CriticalPoints = append(panel.CriticalPoints, CriticalPoint{
				Kind: CriticalPointKind(cp.Kind), XPercent: cp.XPercent, YPixel: cp.YPixel,
			})
		}
		panels = append(panels, panel)
		labelConfSum += panel.LabelConfidence
	}
	avgLabelConf := 0.0
	if len(panels) > 0 {
		avgLabelConf = labelConfSum / float64(len(panels))
	}

	return AnalysisResult{
		Grid:        grid,
		Calibration: calib,
		Panels:      panels,
		Confidence:  combineConfidence(grid.Confidence, calib.Confidence, avgLabelConf),
		Method:      MethodAIGuided,
		ProviderTag: res.ProviderTag,
	}
}

// combineConfidence combines grid, calibration and panel-label confidence
// via the geometric mean, so that any single weak signal pulls the overall
// confidence down rather than being averaged away.
func combineConfidence(grid, calib, labels float64) float64 {
	if grid <= 0 || calib <= 0 || labels <= 0 {
		return 0
	}
	product := grid * calib * labels
	return math.Cbrt(product)
}

func provenanceOrDefault(s string) Provenance {
	switch Provenance(s) {
	case ProvenanceCalibrationPulse, ProvenanceTextLabel, ProvenanceStandardAssumed, ProvenanceUserInput:
		return Provenance(s)
	default:
		return ProvenanceStandardAssumed
	}
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

func parseHexColor(s string) [3]uint8 {
	var c [3]uint8
	if len(s) != 7 || s[0] != '#' {
		return c
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return c
	}
	return [3]uint8{uint8(r), uint8(g), uint8(b)}
}
