package refine

// TierResult records one tiered-fallback attempt's outcome.
type TierResult struct {
	Tier        int
	ProviderTag string
	Confidence  float64
	LeadsFound  int
	ElapsedMs   int64
	Success     bool
	Error       error
}

// PassStat records one refinement pass's parameters, score and elapsed
// time, the per-unit-of-work telemetry the orchestrator accumulates across
// a run.
type PassStat struct {
	Pass      int
	Score     float64
	ElapsedMs int64
	Params    Params
}

// Params is the set of digitization parameters the refinement search
// perturbs between passes.
type Params struct {
	PxPerMmFactor     float64
	PaperSpeedMmPs    float64
	GainMmPerMv       float64
	DarknessThreshold float64
	SmoothingWindow   int
}

// defaultParams returns the unperturbed starting point: no pxPerMm
// scaling, standard speed/gain, and the caller's darkness threshold.
func defaultParams(darknessThreshold float64) Params {
	return Params{
		PxPerMmFactor:     1.0,
		PaperSpeedMmPs:    25,
		GainMmPerMv:       10,
		DarknessThreshold: darknessThreshold,
		SmoothingWindow:   0,
	}
}

// candidateParams enumerates the parameter grid: pxPerMm in
// {0.8,0.9,1.0,1.1,1.2} x paperSpeed in {25,50} x gain in {5,10,20}. When
// aggressive is false, paperSpeed and gain are held at base's current
// values rather than varied, narrowing the search to pxPerMm only.
// Darkness threshold and smoothing window are always copied from base.
func candidateParams(base Params, aggressive bool) []Params {
	pxFactors := []float64{0.8, 0.9, 1.0, 1.1, 1.2}
	speeds := []float64{base.PaperSpeedMmPs}
	gains := []float64{base.GainMmPerMv}
	if aggressive {
		speeds = []float64{25, 50}
		gains = []float64{5, 10, 20}
	}

	var out []Params
	for _, px := range pxFactors {
		for _, speed := range speeds {
			for _, gain := range gains {
				out = append(out, Params{
					PxPerMmFactor:     px,
					PaperSpeedMmPs:    speed,
					GainMmPerMv:       gain,
					DarknessThreshold: base.DarknessThreshold,
					SmoothingWindow:   base.SmoothingWindow,
				})
			}
		}
	}
	return out
}

// narrow returns a parameter grid centered on best, varied by +-5% on the
// pxPerMm factor, for the next pass once a best candidate is known.
func narrow(best Params) []Params {
	deltas := []float64{-0.05, 0, 0.05}
	var out []Params
	for _, d := range deltas {
		p := best
		p.PxPerMmFactor = best.PxPerMmFactor * (1 + d)
		out = append(out, p)
	}
	return out
}
