// Package clinical implements the Clinical Signal Analyzers: age-aware
// electrode-swap detection, pacemaker-spike detection and mode inference,
// and rhythm classification with beat detection and ectopic counts.
package clinical

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// SwapType is a classified limb/precordial electrode misplacement.
type SwapType string

const (
	SwapNone         SwapType = "NONE"
	SwapLARA         SwapType = "LA_RA"
	SwapLALL         SwapType = "LA_LL"
	SwapRALL         SwapType = "RA_LL"
	SwapLARALL       SwapType = "LA_RA_LL"
	SwapV1V2         SwapType = "V1_V2"
	SwapV2V3         SwapType = "V2_V3"
	SwapV3V4         SwapType = "V3_V4"
	SwapV4V5         SwapType = "V4_V5"
	SwapV5V6         SwapType = "V5_V6"
	SwapV1V3         SwapType = "V1_V3"
	SwapDextrocardia SwapType = "DEXTROCARDIA"
	SwapRightSided   SwapType = "RIGHT_SIDED"
)

// DevelopmentalStage is an age band used to relax or suppress swap
// evidence that is expected physiology in young patients.
type DevelopmentalStage string

const (
	StageNeonate    DevelopmentalStage = "neonate"
	StageInfant     DevelopmentalStage = "infant"
	StageToddler    DevelopmentalStage = "toddler"
	StageChild      DevelopmentalStage = "child"
	StageAdolescent DevelopmentalStage = "adolescent"
	StageAdult      DevelopmentalStage = "adult"
)

// StageForAge maps an age in days to a DevelopmentalStage. Monotonic: a
// larger ageDays never returns an earlier stage.
func StageForAge(ageDays int) DevelopmentalStage {
	switch {
	case ageDays <= 30:
		return StageNeonate
	case ageDays <= 365:
		return StageInfant
	case ageDays <= 3*365:
		return StageToddler
	case ageDays <= 12*365:
		return StageChild
	case ageDays <= 18*365:
		return StageAdolescent
	default:
		return StageAdult
	}
}

// PediatricContext records age-aware relaxations applied during swap
// detection.
type PediatricContext struct {
	Stage               DevelopmentalStage
	ExpectedRVDominance bool
	SuppressedFindings  []string
}

// Evidence is one signal supporting a candidate swap type.
type Evidence struct {
	Description string
	Strength    float64 // in [0,1]
	Leads       []leadset.Name
}

// Result is the Electrode-Swap Detector's output.
type Result struct {
	SwapType         SwapType
	Confidence       float64
	Evidence         []Evidence
	PediatricContext *PediatricContext
}

// Detector classifies a signal's limb and precordial placements.
type Detector struct{}

// NewDetector builds a Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect runs every electrode-swap evidence rule and aggregates per-swap-type
// scores via a fixed weighting scheme; the highest score wins if it
// exceeds 0.5. ageDays, if non-nil, relaxes or suppresses the precordial
// R-wave-drop rules for neonates/early infants where right-ventricular
// dominance is expected physiology.
func (d *Detector) Detect(sig *signal.ECGSignal, ageDays *int) Result {
	scores := map[SwapType][]Evidence{}
	add := func(t SwapType, e Evidence) { scores[t] = append(scores[t], e) }

	var pediatric *PediatricContext
	relaxed, suppressed := false, false
	if ageDays != nil {
		stage := StageForAge(*ageDays)
		pediatric = &PediatricContext{Stage: stage}
		if stage == StageNeonate || (stage == StageInfant && *ageDays <= 180) {
			pediatric.ExpectedRVDominance = true
			relaxed = true
		}
	}

	if I, ok := sig.Leads[leadset.I]; ok {
		mean := stat.Mean(I, nil)
		min, max := minMax(I)
		if mean < 0 && math.Abs(min) > 1.5*math.Abs(max) {
			add(SwapLARA, Evidence{Description: "Lead I inverted", Strength: 0.6, Leads: []leadset.Name{leadset.I}})
		}
	}

	if I, okI := sig.Leads[leadset.I]; okI {
		if II, okII := sig.Leads[leadset.II]; okII {
			if III, okIII := sig.Leads[leadset.III]; okIII {
				n := minLen(I, II, III)
				predicted := make([]float64, n)
				for i := 0; i < n; i++ {
					predicted[i] = I[i] + III[i]
				}
				rmsDiff := rms(subSlices(predicted, II[:n]))
				rmsII := rms(II[:n])
				corr := safeCorrelation(predicted, II[:n])
				if rmsII > 0 && rmsDiff/rmsII > 0.5 && math.Abs(corr) < 0.2 {
					add(SwapLARALL, Evidence{Description: "Einthoven violation", Strength: 0.5, Leads: []leadset.Name{leadset.I, leadset.II, leadset.III}})
				}
			}
			corr := safeCorrelation(I, II)
			if corr < -0.7 {
				add(SwapRALL, Evidence{Description: "Lead I/II negatively correlated", Strength: 0.7, Leads: []leadset.Name{leadset.I, leadset.II}})
			}
		}
	}

	precordialEvidence(sig, relaxed, pediatric, &suppressed, add)

	if I, ok := sig.Leads[leadset.I]; ok {
		mean := stat.Mean(I, nil)
		if mean < 0 && rWaveDecreasing(sig) {
			add(SwapDextrocardia, Evidence{Description: "Inverted lead I with decreasing R-wave V1-V6", Strength: 0.7, Leads: []leadset.Name{leadset.I}})
			delete(scores, SwapLARA)
		}
	}

	if pediatric != nil {
		pediatric.SuppressedFindings = suppressedList(suppressed)
	}

	bestType, bestScore := SwapNone, 0.5
	var bestEvidence []Evidence
	for t, evs := range scores {
		s := weightedScore(evs)
		if s > bestScore {
			bestType, bestScore, bestEvidence = t, s, evs
		}
	}

	return Result{
		SwapType:         bestType,
		Confidence:       bestScore,
		Evidence:         bestEvidence,
		PediatricContext: pediatric,
	}
}

func precordialEvidence(sig *signal.ECGSignal, relaxed bool, pediatric *PediatricContext, suppressed *bool, add func(SwapType, Evidence)) {
	pairs := []struct {
		a, b leadset.Name
		t    SwapType
	}{
		{leadset.V1, leadset.V2, SwapV1V2},
		{leadset.V2, leadset.V3, SwapV2V3},
		{leadset.V3, leadset.V4, SwapV3V4},
		{leadset.V4, leadset.V5, SwapV4V5},
		{leadset.V5, leadset.V6, SwapV5V6},
	}
	for _, pair := range pairs {
		a, okA := sig.Leads[pair.a]
		b, okB := sig.Leads[pair.b]
		if !okA || !okB {
			continue
		}
		rA, rB := maxOf(a), maxOf(b)
		corr := safeCorrelation(a, b)

		threshold := 1.5
		if relaxed && (pair.t == SwapV1V2 || pair.t == SwapV2V3) {
			threshold = 2.5
		}

		drop := rB > 0 && rA > threshold*rB
		lowCorr := corr < 0.5

		if relaxed && (pair.t == SwapV1V2) {
			*suppressed = true
			continue
		}

		if drop || lowCorr {
			add(pair.t, Evidence{Description: "precordial R-wave drop or low correlation", Strength: 0.6, Leads: []leadset.Name{pair.a, pair.b}})
		}
	}
}

func rWaveDecreasing(sig *signal.ECGSignal) bool {
	prev := math.Inf(1)
	count := 0
	for _, lead := range leadset.Precordial {
		samples, ok := sig.Leads[lead]
		if !ok {
			continue
		}
		r := maxOf(samples)
		if r <= prev {
			count++
		}
		prev = r
	}
	return count >= len(leadset.Precordial)-1
}

func weightedScore(evs []Evidence) float64 {
	var sum, weight float64
	for _, e := range evs {
		sum += e.Strength
		weight++
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

func suppressedList(suppressed bool) []string {
	if suppressed {
		return []string{"V1->V2 drop suppressed"}
	}
	return nil
}

// Correct returns a new ECGSignal with the given swap type's mathematical
// correction applied. It never mutates sig; correction is offered for
// analysis only, and a physical re-acquisition remains the preferred
// remedy.
func (d *Detector) Correct(sig *signal.ECGSignal, swap SwapType) *signal.ECGSignal {
	out := sig.Clone()
	switch swap {
	case SwapLARA:
		invert(out, leadset.I)
		swapLeads(out, leadset.AVR, leadset.AVL)
	case SwapRALL:
		swapLeads(out, leadset.II, leadset.III)
	case SwapLALL:
		swapLeads(out, leadset.I, leadset.II)
		invert(out, leadset.III)
	case SwapLARALL:
		invert(out, leadset.I)
		swapLeads(out, leadset.II, leadset.III)
	case SwapV1V2:
		swapLeads(out, leadset.V1, leadset.V2)
	case SwapV2V3:
		swapLeads(out, leadset.V2, leadset.V3)
	case SwapV3V4:
		swapLeads(out, leadset.V3, leadset.V4)
	case SwapV4V5:
		swapLeads(out, leadset.V4, leadset.V5)
	case SwapV5V6:
		swapLeads(out, leadset.V5, leadset.V6)
	case SwapV1V3:
		swapLeads(out, leadset.V1, leadset.V3)
	}
	return out
}

func invert(sig *signal.ECGSignal, lead leadset.Name) {
	samples, ok := sig.Leads[lead]
	if !ok {
		return
	}
	for i := range samples {
		samples[i] = -samples[i]
	}
}

func swapLeads(sig *signal.ECGSignal, a, b leadset.Name) {
	sa, okA := sig.Leads[a]
	sb, okB := sig.Leads[b]
	if !okA || !okB {
		return
	}
	sig.Leads[a], sig.Leads[b] = sb, sa
}
