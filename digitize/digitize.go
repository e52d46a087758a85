// Package digitize implements the top-level DigitizerResult pipeline:
// Image Analyzer -> Waveform Tracer -> Signal Reconstructor ->
// Cross-Lead Validator -> Refinement Orchestrator, followed by the
// clinical signal analyzers (electrode-swap, pacemaker, rhythm,
// calibration cross-check) and the Interpretation Engine. Ownership is
// strictly acyclic: each stage constructs and returns new values, and a
// DigitizerResult retains the previous stages' outputs only for
// diagnostics.
package digitize

import (
	"context"
	"math"

	"github.com/cardiomet/ecgdigit/cache"
	"github.com/cardiomet/ecgdigit/clinical"
	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/imagery"
	"github.com/cardiomet/ecgdigit/interpret"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/refine"
	"github.com/cardiomet/ecgdigit/signal"
	"github.com/cardiomet/ecgdigit/trace"
	"github.com/cardiomet/ecgdigit/validate"
)

// DigitizerResult is the full pipeline output: the Image Analyzer's
// Panels and GridInfo/Calibration, the per-panel RawTraces kept for
// diagnostics, the reconstructed ECGSignal, the Cross-Lead Validator's
// Result, the clinical analyzers' outputs, and the final Interpretation.
type DigitizerResult struct {
	Panels      []imagery.Panel
	Grid        imagery.GridInfo
	Calibration imagery.Calibration
	RawTraces   map[leadset.Name]*trace.RawTrace
	Signal      *signal.ECGSignal
	Validation  validate.Result

	Swap           clinical.Result
	Pacemaker      clinical.PacemakerResult
	Rhythm         clinical.RhythmResult
	QRSCalibration clinical.QRSCalibrationResult

	Interpretation interpret.Interpretation

	TierResults []refine.TierResult
	Passes      []refine.PassStat
}

// Options configures a Digitizer beyond what config.Config already
// carries: whether to attempt electrode-swap correction automatically and
// the Interpretation Engine's own Options.
type Options struct {
	AutoCorrectSwap bool
	Interpretation  interpret.Options
}

// Digitizer wires the Refinement Orchestrator and the clinical/
// interpretation stages into the single entry point a caller uses:
// construct once per configuration, Run per image.
type Digitizer struct {
	orchestrator *refine.Orchestrator
	swap         *clinical.Detector
	engine       *interpret.Engine
	opts         Options
}

// New builds a Digitizer from cfg, sharing c as the VLM response cache.
func New(cfg *config.Config, c *cache.Cache, opts Options) *Digitizer {
	return &Digitizer{
		orchestrator: refine.New(cfg, c),
		swap:         clinical.NewDetector(),
		engine:       interpret.New(opts.Interpretation),
		opts:         opts,
	}
}

// Run executes the full pipeline: tiered AI-guided/local-CV digitization,
// optional electrode-swap correction, the clinical signal analyzers, and
// the Interpretation Engine. ageDays is the patient's age in days; pass
// nil when unknown: swap-detection relaxation is skipped and the
// Interpretation Engine applies adult reference values.
func (d *Digitizer) Run(ctx context.Context, img imagery.Image, providers refine.TierProviders, ageDays *int) (*DigitizerResult, error) {
	outcome, err := d.orchestrator.Run(ctx, img, providers)
	if err != nil {
		return nil, err
	}
	return d.fromOutcome(outcome, ageDays), nil
}

// RunUserAssisted executes Tier 4 (user-supplied layout) followed by the
// same clinical/interpretation stages as Run.
func (d *Digitizer) RunUserAssisted(ctx context.Context, img imagery.Image, analysis imagery.AnalysisResult, ageDays *int) (*DigitizerResult, error) {
	outcome, err := d.orchestrator.RunUserAssisted(ctx, img, analysis)
	if err != nil {
		return nil, err
	}
	return d.fromOutcome(outcome, ageDays), nil
}

// fromOutcome runs the clinical analyzers and Interpretation Engine over a
// refine.Outcome and assembles the final DigitizerResult.
func (d *Digitizer) fromOutcome(outcome *refine.Outcome, ageDays *int) *DigitizerResult {
	sig := outcome.Signal

	swapResult := d.swap.Detect(sig, ageDays)
	if d.opts.AutoCorrectSwap && swapResult.SwapType != clinical.SwapNone {
		sig = d.swap.Correct(sig, swapResult.SwapType)
	}

	pacing := clinical.DetectPacemaker(sig)
	rhythm := clinical.AnalyzeRhythm(sig, pacing)
	qrsCal := clinical.CrossCheckCalibration(sig, rhythm)

	interpretation := d.buildInterpretation(sig, rhythm, ageDays)

	return &DigitizerResult{
		Panels:         outcome.Analysis.Panels,
		Grid:           outcome.Analysis.Grid,
		Calibration:    outcome.Analysis.Calibration,
		RawTraces:      outcome.Traces,
		Signal:         sig,
		Validation:     outcome.Validation,
		Swap:           swapResult,
		Pacemaker:      pacing,
		Rhythm:         rhythm,
		QRSCalibration: qrsCal,
		Interpretation: interpretation,
		TierResults:    outcome.TierResults,
		Passes:         outcome.Passes,
	}
}

// buildInterpretation measures the signal and runs the Interpretation
// Engine; ageDays defaults to an adult age when unknown so every age-banded
// rule still has a defined band rather than a zero-value infant band.
func (d *Digitizer) buildInterpretation(sig *signal.ECGSignal, rhythm clinical.RhythmResult, ageDays *int) interpret.Interpretation {
	age := 30 * 365
	if ageDays != nil {
		age = *ageDays
	}

	measurements, ok := extractMeasurements(sig, rhythm)
	if !ok {
		return interpret.Interpretation{AgeDays: age, Method: "rule_based_v1"}
	}

	morph := extractMorphology(sig, rhythm)
	if morph != nil {
		morph.QRSTAngleDeg = qrsTAngle(measurements.QRSAxisDeg, measurements.TAxisDeg)
		morph.HasQRSTAngle = true
	}

	in := interpret.Inputs{
		Voltages:   extractVoltages(sig, rhythm),
		Morphology: morph,
		RhythmCode: string(rhythm.Code),
	}
	return d.engine.Interpret(measurements, age, in)
}

// qrsTAngle is the absolute angular separation between the QRS and T axes,
// folded into [0,180], the QRS-T angle input to the Repolarization analyzer.
func qrsTAngle(qrsAxisDeg, tAxisDeg float64) float64 {
	diff := math.Abs(qrsAxisDeg - tAxisDeg)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}
