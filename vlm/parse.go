package vlm

import (
	"bytes"
	"encoding/json"
	"fmt"
	goimage "image"
	"image/png"
	"strings"
)

// wireAnalysis mirrors the JSON schema the prompt in openai.go asks the
// model to return. Fields are plain values, so anything the model omits
// decodes as its zero value and a best-effort repair can fill defaults, per the Image
// Analyzer's "missing fields filled from defaults" contract.
type wireAnalysis struct {
	Confidence float64 `json:"confidence"`
	Grid       struct {
		Detected     bool    `json:"detected"`
		PxPerMm      float64 `json:"pxPerMm"`
		WaveformHex  string  `json:"waveformHex"`
		ThinLineHex  string  `json:"thinLineHex"`
		ThickLineHex string  `json:"thickLineHex"`
		EstimatedDPI float64 `json:"estimatedDpi"`
		RotationDeg  float64 `json:"rotationDeg"`
		Confidence   float64 `json:"confidence"`
	} `json:"grid"`
	Calibration struct {
		GainMmPerMv     float64 `json:"gainMmPerMv"`
		PaperSpeedMmPs  float64 `json:"paperSpeedMmPs"`
		GainProvenance  string  `json:"gainProvenance"`
		SpeedProvenance string  `json:"speedProvenance"`
		PulseX          float64 `json:"pulseX"`
		PulseY          float64 `json:"pulseY"`
		PulseHeightPx   float64 `json:"pulseHeightPx"`
		Confidence      float64 `json:"confidence"`
	} `json:"calibration"`
	ImageQuality float64 `json:"imageQuality"`
	Panels       []struct {
		Lead            string  `json:"lead"`
		X               float64 `json:"x"`
		Y               float64 `json:"y"`
		W               float64 `json:"w"`
		H               float64 `json:"h"`
		BaselineY       float64 `json:"baselineY"`
		Row             int     `json:"row"`
		Col             int     `json:"col"`
		RhythmStrip     bool    `json:"rhythmStrip"`
		StartSec        float64 `json:"startSec"`
		EndSec          float64 `json:"endSec"`
		LabelProvenance string  `json:"labelProvenance"`
		LabelConfidence float64 `json:"labelConfidence"`
		TracePoints     []struct {
			X float64 `json:"xPercent"`
			Y float64 `json:"yPixel"`
		} `json:"tracePoints"`
		CriticalPoints []struct {
			Kind string  `json:"kind"`
			X    float64 `json:"xPercent"`
			Y    float64 `json:"yPixel"`
		} `json:"criticalPoints"`
	} `json:"panels"`
}

// ParseAnalysis parses a model's raw JSON reply (possibly fenced in a
// markdown code block) into an Analysis plus its top-level confidence.
// Out-of-range values are clamped; missing confidence defaults to 0.5.
func ParseAnalysis(raw string) (Analysis, float64, error) {
	body := stripCodeFence(raw)

	var w wireAnalysis
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Analysis{}, 0, fmt.Errorf("unmarshal: %w", err)
	}

	confidence := clamp01(w.Confidence)
	if w.Confidence == 0 {
		confidence = 0.5
	}

	a := Analysis{
		Grid: GridResult{
			Detected:     w.Grid.Detected,
			PxPerMm:      w.Grid.PxPerMm,
			WaveformHex:  w.Grid.WaveformHex,
			ThinLineHex:  w.Grid.ThinLineHex,
			ThickLineHex: w.Grid.ThickLineHex,
			EstimatedDPI: w.Grid.EstimatedDPI,
			RotationDeg:  w.Grid.RotationDeg,
			Confidence:   clamp01(w.Grid.Confidence),
		},
		Calibration: CalibrationResult{
			GainMmPerMv:     w.Calibration.GainMmPerMv,
			PaperSpeedMmPs:  w.Calibration.PaperSpeedMmPs,
			GainProvenance:  w.Calibration.GainProvenance,
			SpeedProvenance: w.Calibration.SpeedProvenance,
			PulseX:          w.Calibration.PulseX,
			PulseY:          w.Calibration.PulseY,
			PulseHeightPx:   w.Calibration.PulseHeightPx,
			Confidence:      clamp01(w.Calibration.Confidence),
		},
		ImageQuality: clamp01(w.ImageQuality),
	}

	for _, p := range w.Panels {
		panel := PanelResult{
			LeadName:        p.Lead,
			BoundsX:         p.X,
			BoundsY:         p.Y,
			BoundsW:         p.W,
			BoundsH:         p.H,
			BaselineY:       p.BaselineY,
			Row:             p.Row,
			Col:             p.Col,
			RhythmStrip:     p.RhythmStrip,
			StartSec:        p.StartSec,
			EndSec:          p.EndSec,
			LabelProvenance: p.LabelProvenance,
			LabelConfidence: clamp01(p.LabelConfidence),
		}
		for _, tp := range p.TracePoints {
			panel.TracePoints = append(panel.TracePoints, TracePoint{XPercent: tp.X, YPixel: tp.Y})
		}
		for _, cp := range p.CriticalPoints {
			panel.CriticalPoints = append(panel.CriticalPoints, CriticalPoint{
				Kind: CriticalPointKind(cp.Kind), XPercent: cp.X, YPixel: cp.Y,
			})
		}
		a.Panels = append(a.Panels, panel)
	}

	return a, confidence, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
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

// encodePNG converts the row-major RGBA Image into PNG bytes suitable for a
// data: URL, for providers that require an image attachment rather than raw
// pixels.
func encodePNG(img Image) ([]byte, error) {
	rgba := &goimage.RGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   goimage.Rect(0, 0, img.Width, img.Height),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
