// Package refine implements the Refinement Orchestrator: multi-pass
// parameter search driving Tracer -> Reconstructor -> Validator to maximise
// the overall cross-lead score, and the tiered VLM-provider fallback
// policy that chooses which analysis to refine.
package refine

import (
	"context"
	"fmt"
	"time"

	"github.com/cardiomet/ecgdigit/cache"
	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/errkind"
	"github.com/cardiomet/ecgdigit/imagery"
	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
	"github.com/cardiomet/ecgdigit/trace"
	"github.com/cardiomet/ecgdigit/validate"
	"github.com/cardiomet/ecgdigit/vlm"
)

// TierProviders configures the provider(s) used at each of Tier 1-3; Tier
// 4 (user-assisted) is driven separately via RunUserAssisted.
type TierProviders struct {
	Tier1 vlm.Provider   // a single fast VLM.
	Tier2 []vlm.Provider // two premium VLMs run in parallel; best of the two.
	Tier3 []vlm.Provider // every configured VLM, ensembled.
}

// Outcome is the orchestrator's full result: the accepted analysis,
// per-panel traces, the reconstructed signal, its validation, and
// diagnostics (tier attempts and refinement passes) for the caller's
// degradation-level reporting.
type Outcome struct {
	Analysis    imagery.AnalysisResult
	Traces      map[leadset.Name]*trace.RawTrace
	Signal      *signal.ECGSignal
	Validation  validate.Result
	TierResults []TierResult
	Passes      []PassStat
}

// Orchestrator drives Tracer, Reconstructor and Validator through the
// tiered-fallback and multi-pass parameter search policy, mirroring the
// shape of a long-lived pipeline runner: construct once, Run per job.
type Orchestrator struct {
	cfg   *config.Config
	cache *cache.Cache
}

// New builds an Orchestrator from cfg, sharing c as the VLM response
// cache.
func New(cfg *config.Config, c *cache.Cache) *Orchestrator {
	return &Orchestrator{cfg: cfg, cache: c}
}

// Run executes the tiered fallback policy against img, accepting the
// first tier whose refined score meets its threshold, and returns the best
// result seen if none does.
func (o *Orchestrator) Run(ctx context.Context, img imagery.Image, providers TierProviders) (*Outcome, error) {
	attempts := o.buildTierAttempts(providers)

	var best *Outcome
	for _, at := range attempts {
		select {
		case <-ctx.Done():
			return o.cancelledOutcome(best)
		default:
		}

		outcome, tierResult := o.runTier(ctx, img, at)
		if outcome != nil && outcome.Validation.Score > bestScore(best) {
			best = outcome
		}
		if best != nil {
			best.TierResults = append(best.TierResults, tierResult)
		}

		if tierResult.Success && tierResult.Confidence >= at.threshold {
			return best, nil
		}
	}

	if best == nil {
		return nil, errkind.New(errkind.AIUnavailable, "all tiers failed and local CV produced no usable result")
	}
	return best, nil
}

// RunUserAssisted runs the Tracer and Reconstructor directly against a
// user-supplied layout (Tier 4), skipping the AI-guided and local-CV
// paths entirely.
func (o *Orchestrator) RunUserAssisted(ctx context.Context, img imagery.Image, analysis imagery.AnalysisResult) (*Outcome, error) {
	outcome, err := o.runDigitizationPass(img, analysis, defaultParams(o.cfg.DarknessThreshold))
	if err != nil {
		return nil, err
	}
	outcome.Analysis = analysis
	outcome.TierResults = []TierResult{{Tier: 4, ProviderTag: "user_assisted", Confidence: analysis.Confidence, LeadsFound: len(outcome.Signal.Present()), Success: true}}
	return outcome, nil
}

// tierAttempt pairs an imagery.Analyzer configuration with its tier index
// and acceptance threshold.
type tierAttempt struct {
	tier      int
	analyzer  *imagery.Analyzer
	threshold float64
}

func (o *Orchestrator) buildTierAttempts(providers TierProviders) []tierAttempt {
	var out []tierAttempt
	if providers.Tier1 != nil {
		out = append(out, tierAttempt{1, imagery.New(o.cfg, providers.Tier1, o.cache), o.cfg.Tier1Threshold})
	}
	if len(providers.Tier2) > 0 {
		out = append(out, tierAttempt{2, imagery.New(o.cfg, vlm.NewBestOfEnsemble(providers.Tier2...), o.cache), o.cfg.Tier2Threshold})
	}
	if len(providers.Tier3) > 0 {
		out = append(out, tierAttempt{3, imagery.New(o.cfg, vlm.NewEnsemble(providers.Tier3...), o.cache), o.cfg.Tier3Threshold})
	}
	// Local-CV-only attempt, always available as a last resort even when
	// no provider is configured.
	out = append(out, tierAttempt{0, imagery.New(o.cfg, nil, o.cache), 0})
	return out
}

// runTier analyzes img with the attempt's configured provider, runs the
// refinement search over the result, and reports the tier's outcome.
func (o *Orchestrator) runTier(ctx context.Context, img imagery.Image, at tierAttempt) (*Outcome, TierResult) {
	start := time.Now()

	analysis, err := at.analyzer.Analyze(ctx, img)
	if err != nil {
		return nil, TierResult{Tier: at.tier, Success: false, Error: err, ElapsedMs: time.Since(start).Milliseconds()}
	}

	outcome, err := o.refine(img, analysis)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return nil, TierResult{Tier: at.tier, ProviderTag: analysis.ProviderTag, Success: false, Error: err, ElapsedMs: elapsed}
	}

	tr := TierResult{
		Tier:        at.tier,
		ProviderTag: analysis.ProviderTag,
		Confidence:  outcome.Validation.Score,
		LeadsFound:  len(outcome.Signal.Present()),
		ElapsedMs:   elapsed,
		Success:     true,
	}
	return outcome, tr
}

// refine runs the multi-pass parameter search: starting from the
// analyzer's initial parameters, each pass scores a grid of candidate
// variations and keeps the best; the next pass narrows around it. Stops at
// cfg.TargetScore or cfg.MaxPasses.
func (o *Orchestrator) refine(img imagery.Image, analysis imagery.AnalysisResult) (*Outcome, error) {
	base := defaultParams(o.cfg.DarknessThreshold)

	var bestOutcome *Outcome
	var bestScore float64 = -1
	var bestParams Params
	var passes []PassStat

	candidates := candidateParams(base, o.cfg.AggressiveSearch)
	for pass := 1; pass <= o.cfg.MaxPasses; pass++ {
		start := time.Now()
		for _, cand := range candidates {
			outcome, err := o.runDigitizationPass(img, analysis, cand)
			if err != nil {
				continue
			}
			if outcome.Validation.Score > bestScore {
				bestScore = outcome.Validation.Score
				bestOutcome = outcome
				bestParams = cand
			}
		}
		passes = append(passes, PassStat{Pass: pass, Score: bestScore, ElapsedMs: time.Since(start).Milliseconds(), Params: bestParams})

		if bestScore >= o.cfg.TargetScore {
			break
		}
		candidates = narrow(bestParams)
	}

	if bestOutcome == nil {
		return nil, fmt.Errorf("refine: no candidate parameters produced a usable signal")
	}
	bestOutcome.Analysis = analysis
	bestOutcome.Passes = passes
	return bestOutcome, nil
}

// runDigitizationPass traces every panel, reconstructs the signal under
// the given parameter perturbation, and validates it.
func (o *Orchestrator) runDigitizationPass(img imagery.Image, analysis imagery.AnalysisResult, p Params) (*Outcome, error) {
	passCfg := *o.cfg
	passCfg.DarknessThreshold = p.DarknessThreshold

	grid := analysis.Grid
	grid.PxPerMm *= p.PxPerMmFactor

	calib := analysis.Calibration
	calib.PaperSpeedMmPs = p.PaperSpeedMmPs
	calib.GainMmPerMv = p.GainMmPerMv

	tracer := trace.New(&passCfg)
	traces := make(map[leadset.Name]*trace.RawTrace)
	var leadTraces []signal.LeadTrace

	for _, panel := range analysis.Panels {
		if !panel.HasLead() {
			continue
		}
		raw, err := tracer.Trace(img, grid, panel)
		if err != nil {
			continue // per-panel failure omits the lead; not fatal to the pass.
		}
		traces[panel.Lead] = raw
		leadTraces = append(leadTraces, signal.LeadTrace{Lead: panel.Lead, Panel: panel, Raw: raw})
	}

	reconstructor := signal.New(&passCfg)
	sig, err := reconstructor.Reconstruct(leadTraces, grid, calib)
	if err != nil {
		return nil, err
	}

	validator := validate.New()
	result := validator.Validate(sig)

	return &Outcome{
		Traces:     traces,
		Signal:     sig,
		Validation: result,
	}, nil
}

func bestScore(o *Outcome) float64 {
	if o == nil {
		return -1
	}
	return o.Validation.Score
}

func (o *Orchestrator) cancelledOutcome(best *Outcome) (*Outcome, error) {
	if best == nil {
		return nil, errkind.New(errkind.Cancelled, "job cancelled before any tier completed")
	}
	best.TierResults = append(best.TierResults, TierResult{Success: false, Error: errkind.New(errkind.Cancelled, "job cancelled")})
	return best, nil
}
