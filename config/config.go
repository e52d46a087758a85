// Package config holds the tunable parameters shared by every stage of the
// digitization pipeline: Image Analyzer, Waveform Tracer, Signal
// Reconstructor, Cross-Lead Validator and Refinement Orchestrator.
//
// A new Config must be passed to each stage's constructor; nothing in this
// module reads process-wide configuration or environment variables
// directly — that is an external shell's concern.
package config

import (
	"time"

	"github.com/ausocean/utils/logging"
)

// Default tunables, used by Validate to fill unset/invalid fields.
const (
	DefaultSampleRate             = 500 // Hz.
	DefaultColorTolerance         = 40.0
	DefaultDarknessThreshold      = 100.0
	DefaultMaxInterpolateGap      = 10
	DefaultAITraceConfidence      = 0.7
	DefaultBaselineWanderCutoffHz = 0.5
	DefaultTargetScore            = 0.9
	DefaultMaxPasses              = 3
	DefaultTier1Threshold         = 0.95
	DefaultTier2Threshold         = 0.90
	DefaultTier3Threshold         = 0.85
	DefaultGridConfidenceFloor    = 0.4
	DefaultCacheTTL               = 24 * time.Hour
)

// Valid target sample rates.
const (
	Rate250  = 250
	Rate500  = 500
	Rate1000 = 1000
)

// Config provides parameters relevant to a digitization job. A new config
// must be passed to the constructors below. Default values are the consts
// above and are applied by Validate.
type Config struct {
	// SampleRate is the target resampling rate in Hz. Must be one of
	// Rate250, Rate500 or Rate1000.
	SampleRate uint

	// ColorTolerance is the Euclidean RGB distance under which a pixel is
	// considered to match the waveform color during column scanning.
	ColorTolerance float64

	// DarknessThreshold is the minimum (255 - mean(R,G,B)) for a pixel to be
	// considered "on-curve".
	DarknessThreshold float64

	// MaxInterpolateGap is the largest gap, in columns, that the Tracer will
	// linearly interpolate across rather than leaving as a reported gap.
	MaxInterpolateGap int

	// AITraceConfidence is the per-point confidence threshold above which an
	// AI-provided trace/critical point is preferred over the column-scan
	// result (see trace.Fuse).
	AITraceConfidence float64

	// BaselineWanderCutoffHz is the cutoff frequency for the moving-average
	// baseline-wander removal filter.
	BaselineWanderCutoffHz float64

	// UseSplineBaseline selects per-segment cubic-spline baseline removal
	// instead of the moving-average filter.
	UseSplineBaseline bool

	// UseSincResample selects sinc-based resampling for upsampling instead
	// of linear interpolation.
	UseSincResample bool

	// TargetScore is the Cross-Lead Validator score the Refinement
	// Orchestrator will stop searching at.
	TargetScore float64

	// MaxPasses bounds the number of refinement passes.
	MaxPasses int

	// AggressiveSearch, when true, tries all (paperSpeed, gain) combinations
	// during refinement instead of just the current-best neighborhood.
	AggressiveSearch bool

	// Tier1Threshold, Tier2Threshold and Tier3Threshold are the minimum
	// accepted scores for each tiered-fallback level.
	Tier1Threshold float64
	Tier2Threshold float64
	Tier3Threshold float64

	// GridConfidenceFloor is the minimum overall AI analysis confidence
	// below which the Image Analyzer falls back to the local CV path.
	GridConfidenceFloor float64

	// CacheEphemeral, when true, flushes the VLM response cache at job
	// completion rather than retaining it across jobs.
	CacheEphemeral bool

	// CacheTTL bounds how long a cached VLM response remains valid.
	CacheTTL time.Duration

	// StrictMode is parsed from the StrictMode configuration key. No stage
	// of the pipeline reads it: non-fatal Issues are never turned into
	// returned errors.
	StrictMode bool

	// Logger holds an implementation of logging.Logger. This must be set
	// for the pipeline to work correctly.
	Logger logging.Logger

	// LogLevel is the pipeline's logging verbosity level. Valid values are
	// defined by logging.Debug, logging.Info, logging.Warning, logging.Error,
	// logging.Fatal.
	LogLevel int8

	// Suppress holds logger suppression state.
	Suppress bool
}

// Validate checks Config fields for validity, defaulting any that are
// unset or out of range, logging each default via LogInvalidField.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names to values, parses the
// string values and sets the matching Config fields.
func (c *Config) Update(vars map[string]string) {
	for _, v := range Variables {
		if val, ok := vars[v.Name]; ok && v.Update != nil {
			v.Update(c, val)
		}
	}
}

// LogInvalidField logs that a field was bad or unset and records the
// default value applied in its place.
func (c *Config) LogInvalidField(name string, def interface{}) {
	if c.Logger == nil {
		return
	}
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}
