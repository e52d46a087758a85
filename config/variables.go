package config

import (
	"strconv"
)

// Config map keys, used with Update.
const (
	KeySampleRate             = "SampleRate"
	KeyColorTolerance         = "ColorTolerance"
	KeyDarknessThreshold      = "DarknessThreshold"
	KeyMaxInterpolateGap      = "MaxInterpolateGap"
	KeyAITraceConfidence      = "AITraceConfidence"
	KeyBaselineWanderCutoffHz = "BaselineWanderCutoffHz"
	KeyTargetScore            = "TargetScore"
	KeyMaxPasses              = "MaxPasses"
	KeyAggressiveSearch       = "AggressiveSearch"
	KeyStrictMode             = "StrictMode"
)

// Variable describes a single configurable field: its string name, a
// function to update the Config from a string value, and a function to
// validate (and default) the corresponding field.
type Variable struct {
	Name     string
	Update   func(c *Config, v string)
	Validate func(c *Config)
}

// Variables is the full table of updatable/validatable Config fields,
// consulted by Config.Validate and Config.Update.
var Variables = []Variable{
	{
		Name: KeySampleRate,
		Update: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.SampleRate = uint(n)
			}
		},
		Validate: func(c *Config) {
			switch c.SampleRate {
			case Rate250, Rate500, Rate1000:
			default:
				c.LogInvalidField(KeySampleRate, DefaultSampleRate)
				c.SampleRate = DefaultSampleRate
			}
		},
	},
	{
		Name: KeyColorTolerance,
		Update: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.ColorTolerance = f
			}
		},
		Validate: func(c *Config) {
			if c.ColorTolerance <= 0 {
				c.LogInvalidField(KeyColorTolerance, DefaultColorTolerance)
				c.ColorTolerance = DefaultColorTolerance
			}
		},
	},
	{
		Name: KeyDarknessThreshold,
		Update: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.DarknessThreshold = f
			}
		},
		Validate: func(c *Config) {
			if c.DarknessThreshold <= 0 {
				c.LogInvalidField(KeyDarknessThreshold, DefaultDarknessThreshold)
				c.DarknessThreshold = DefaultDarknessThreshold
			}
		},
	},
	{
		Name: KeyMaxInterpolateGap,
		Update: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxInterpolateGap = n
			}
		},
		Validate: func(c *Config) {
			if c.MaxInterpolateGap <= 0 {
				c.LogInvalidField(KeyMaxInterpolateGap, DefaultMaxInterpolateGap)
				c.MaxInterpolateGap = DefaultMaxInterpolateGap
			}
		},
	},
	{
		Name: KeyAITraceConfidence,
		Update: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.AITraceConfidence = f
			}
		},
		Validate: func(c *Config) {
			if c.AITraceConfidence <= 0 || c.AITraceConfidence > 1 {
				c.LogInvalidField(KeyAITraceConfidence, DefaultAITraceConfidence)
				c.AITraceConfidence = DefaultAITraceConfidence
			}
		},
	},
	{
		Name: KeyBaselineWanderCutoffHz,
		Update: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.BaselineWanderCutoffHz = f
			}
		},
		Validate: func(c *Config) {
			if c.BaselineWanderCutoffHz <= 0 {
				c.LogInvalidField(KeyBaselineWanderCutoffHz, DefaultBaselineWanderCutoffHz)
				c.BaselineWanderCutoffHz = DefaultBaselineWanderCutoffHz
			}
		},
	},
	{
		Name: KeyTargetScore,
		Update: func(c *Config, v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.TargetScore = f
			}
		},
		Validate: func(c *Config) {
			if c.TargetScore <= 0 || c.TargetScore > 1 {
				c.LogInvalidField(KeyTargetScore, DefaultTargetScore)
				c.TargetScore = DefaultTargetScore
			}
		},
	},
	{
		Name: KeyMaxPasses,
		Update: func(c *Config, v string) {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxPasses = n
			}
		},
		Validate: func(c *Config) {
			if c.MaxPasses <= 0 {
				c.LogInvalidField(KeyMaxPasses, DefaultMaxPasses)
				c.MaxPasses = DefaultMaxPasses
			}
		},
	},
	{
		Name: KeyAggressiveSearch,
		Update: func(c *Config, v string) {
			c.AggressiveSearch = v == "true" || v == "1"
		},
	},
	{
		Name: KeyStrictMode,
		Update: func(c *Config, v string) {
			c.StrictMode = v == "true" || v == "1"
		},
	},
	{
		Name: "Tier1Threshold",
		Validate: func(c *Config) {
			if c.Tier1Threshold <= 0 {
				c.LogInvalidField("Tier1Threshold", DefaultTier1Threshold)
				c.Tier1Threshold = DefaultTier1Threshold
			}
		},
	},
	{
		Name: "Tier2Threshold",
		Validate: func(c *Config) {
			if c.Tier2Threshold <= 0 {
				c.LogInvalidField("Tier2Threshold", DefaultTier2Threshold)
				c.Tier2Threshold = DefaultTier2Threshold
			}
		},
	},
	{
		Name: "Tier3Threshold",
		Validate: func(c *Config) {
			if c.Tier3Threshold <= 0 {
				c.LogInvalidField("Tier3Threshold", DefaultTier3Threshold)
				c.Tier3Threshold = DefaultTier3Threshold
			}
		},
	},
	{
		Name: "GridConfidenceFloor",
		Validate: func(c *Config) {
			if c.GridConfidenceFloor <= 0 {
				c.LogInvalidField("GridConfidenceFloor", DefaultGridConfidenceFloor)
				c.GridConfidenceFloor = DefaultGridConfidenceFloor
			}
		},
	},
	{
		Name: "CacheTTL",
		Validate: func(c *Config) {
			if c.CacheTTL <= 0 {
				c.LogInvalidField("CacheTTL", DefaultCacheTTL)
				c.CacheTTL = DefaultCacheTTL
			}
		},
	},
}
