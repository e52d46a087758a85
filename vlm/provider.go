// Package vlm defines the vision-language-model capability consumed by the
// Image Analyzer: a single value-in/value-out operation, with concrete
// providers and an ensemble as variants of that one capability. There is no
// dispatch table beyond this interface.
package vlm

import (
	"context"
	"time"
)

// GridResult is the AI's report of the printed grid.
type GridResult struct {
	Detected      bool
	PxPerMm       float64
	WaveformHex   string
	ThinLineHex   string
	ThickLineHex  string
	EstimatedDPI  float64
	RotationDeg   float64
	Confidence    float64
}

// CalibrationResult is the AI's report of electrical calibration.
type CalibrationResult struct {
	GainMmPerMv    float64
	PaperSpeedMmPs float64
	GainProvenance string
	SpeedProvenance string
	PulseX         float64
	PulseY         float64
	PulseHeightPx  float64
	Confidence     float64
}

// TracePoint is one AI-reported sample along a panel's waveform, expressed
// as a percentage of the panel's x-range and a pixel Y.
type TracePoint struct {
	XPercent float64
	YPixel   float64
}

// CriticalPointKind labels the wave component a CriticalPoint marks.
type CriticalPointKind string

const (
	CriticalP CriticalPointKind = "P"
	CriticalR CriticalPointKind = "R"
	CriticalS CriticalPointKind = "S"
	CriticalT CriticalPointKind = "T"
)

// CriticalPoint is a labeled extremum of the waveform reported by the AI.
type CriticalPoint struct {
	Kind     CriticalPointKind
	XPercent float64
	YPixel   float64
}

// PanelResult is the AI's report of one panel.
type PanelResult struct {
	LeadName        string
	BoundsX         float64
	BoundsY         float64
	BoundsW         float64
	BoundsH         float64
	BaselineY       float64
	Row             int
	Col             int
	RhythmStrip     bool
	StartSec        float64
	EndSec          float64
	LabelProvenance string
	LabelConfidence float64
	TracePoints     []TracePoint
	CriticalPoints  []CriticalPoint
}

// Analysis is the structured body of an AIAnalysisResult.
type Analysis struct {
	Grid         GridResult
	Calibration  CalibrationResult
	Panels       []PanelResult
	ImageQuality float64
}

// AIAnalysisResult is the full response from a Provider's Analyze call.
type AIAnalysisResult struct {
	Confidence  float64
	RawResponse string
	Analysis    Analysis
	ProviderTag string
	ModelTag    string
	ElapsedMs   int64
}

// Image is the decoded raster a Provider analyzes. It mirrors the core's
// imagery.Image shape without importing it, so vlm has no dependency on the
// digitization packages.
type Image struct {
	Width  int
	Height int
	Pixels []byte // row-major RGBA, len == Width*Height*4
}

// Provider is the single capability a VLM integration must satisfy: value
// in, value out. Concrete providers and the Ensemble below are all variants
// of this one interface.
type Provider interface {
	// Tag identifies the provider for TierResult/cache-key purposes.
	Tag() string

	// Analyze submits image to the provider and returns its structured
	// reading of the image, or an error if the call failed or ctx was
	// cancelled.
	Analyze(ctx context.Context, image Image) (AIAnalysisResult, error)
}

// elapsedMs returns the milliseconds elapsed since start, via time.Since.
func elapsedMs(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
