package imagery

import "github.com/cardiomet/ecgdigit/leadset"

// Provenance tags the source of a calibration or label value.
type Provenance string

const (
	ProvenanceCalibrationPulse Provenance = "calibration_pulse"
	ProvenanceTextLabel        Provenance = "text_label"
	ProvenanceStandardAssumed  Provenance = "standard_assumed"
	ProvenanceUserInput        Provenance = "user_input"
)

// GridInfo is the page's geometric calibration.
type GridInfo struct {
	Detected       bool
	PxPerMm        float64
	SmallBoxPx     float64
	LargeBoxPx     float64
	WaveformColor  [3]uint8
	ThinLineColor  [3]uint8
	ThickLineColor [3]uint8
	EstimatedDPI   float64
	RotationDeg    float64
	Confidence     float64
}

// Calibration is the page's electrical calibration.
type Calibration struct {
	GainMmPerMv     float64 // standard 10
	PaperSpeedMmPs  float64 // standard 25
	GainProvenance  Provenance
	SpeedProvenance Provenance
	PulseX          float64
	PulseY          float64
	PulseHeightPx   float64
	Confidence      float64
}

// TracePoint is an AI-reported sample along a panel's waveform, as a
// percentage of the panel's x-range and a pixel Y.
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

// CriticalPoint is a labeled extremum of the waveform.
type CriticalPoint struct {
	Kind     CriticalPointKind
	XPercent float64
	YPixel   float64
}

// Rect is an axis-aligned pixel bounding box.
type Rect struct {
	X, Y, W, H float64
}

// Panel is one lead's region on the page.
type Panel struct {
	ID              int
	Bounds          Rect
	BaselineY       float64
	Row, Col        int
	RhythmStrip     bool
	StartSec        float64
	EndSec          float64
	Lead            leadset.Name // zero value "" means unidentified
	LabelProvenance Provenance
	LabelConfidence float64
	TracePoints     []TracePoint
	CriticalPoints  []CriticalPoint
}

// HasLead reports whether the panel's lead has been identified.
func (p Panel) HasLead() bool { return p.Lead != "" }

// StageStatus records a diagnostic status for one Image Analyzer sub-stage.
type StageStatus struct {
	Name    string
	OK      bool
	Message string
}

// Method identifies which path produced an AnalysisResult.
type Method string

const (
	MethodAIGuided Method = "ai_guided"
	MethodLocalCV  Method = "local_cv"
)

// AnalysisResult is the Image Analyzer's output: {GridInfo, Calibration,
// Panel[]} plus an overall confidence and per-stage diagnostics.
type AnalysisResult struct {
	Grid        GridInfo
	Calibration Calibration
	Panels      []Panel
	Confidence  float64
	Method      Method
	ProviderTag string
	Stages      []StageStatus
}
