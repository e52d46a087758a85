package clinical

import (
	"math"
	"sort"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// PacingMode is the inferred pacemaker mode.
type PacingMode string

const (
	PacingDDD PacingMode = "DDD"
	PacingAAI PacingMode = "AAI"
	PacingVVI PacingMode = "VVI"
	PacingNA  PacingMode = "N/A"
)

// SpikeKind classifies a detected pacemaker spike.
type SpikeKind string

const (
	SpikeAtrial     SpikeKind = "atrial"
	SpikeVentricular SpikeKind = "ventricular"
)

// Spike is one detected (possibly multi-lead-merged) pacemaker spike.
type Spike struct {
	SampleIndex int
	AmplitudeUV float64
	Leads       []leadset.Name
	Kind        SpikeKind
	Confidence  float64
}

// PacemakerResult is the Pacemaker Detector's output.
type PacemakerResult struct {
	Spikes        []Spike
	Mode          PacingMode
	PacingRateBpm float64
	Issues        []string
}

// DetectPacemaker implements the Pacemaker Analyzer: per-lead spike
// detection, cross-lead merging, pair classification, mode inference and
// a sensing check. Capture (whether a QRS follows each ventricular spike)
// is not checked.
func DetectPacemaker(sig *signal.ECGSignal) PacemakerResult {
	perLead := map[leadset.Name][]int{}
	for _, lead := range sig.Present() {
		perLead[lead] = detectSpikes(sig.Leads[lead])
	}

	merged := mergeSpikes(sig, perLead)
	classifySpikePairs(merged, sig.SampleRate)

	mode := inferMode(merged)
	rate := pacingRate(merged, sig.SampleRate)
	issues := sensingIssues(merged, sig.SampleRate)

	return PacemakerResult{Spikes: merged, Mode: mode, PacingRateBpm: rate, Issues: issues}
}

// detectSpikes finds samples whose first-difference magnitude exceeds
// 5*noise on two adjacent samples with opposite signs, with a two-sided
// peak amplitude over 200uV.
func detectSpikes(samples []float64) []int {
	if len(samples) < 3 {
		return nil
	}

	diffs := make([]float64, len(samples)-1)
	for i := range diffs {
		diffs[i] = samples[i+1] - samples[i]
	}
	noise := medianAbsDiff(diffs)
	if noise == 0 {
		noise = 1
	}

	var spikes []int
	for i := 1; i < len(diffs); i++ {
		if math.Abs(diffs[i-1]) > 5*noise && math.Abs(diffs[i]) > 5*noise && sign(diffs[i-1]) != sign(diffs[i]) {
			peak := math.Abs(samples[i]) + math.Abs(samples[i-1])
			if peak > 200 {
				spikes = append(spikes, i)
			}
		}
	}
	return spikes
}

func medianAbsDiff(diffs []float64) float64 {
	abs := make([]float64, len(diffs))
	for i, d := range diffs {
		abs[i] = math.Abs(d)
	}
	return median(abs)
}

func sign(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// mergeSpikes merges spikes across leads that fall within 10ms of one
// another into a single event with averaged amplitude and a multi-lead
// confidence boost.
func mergeSpikes(sig *signal.ECGSignal, perLead map[leadset.Name][]int) []Spike {
	type rawSpike struct {
		idx  int
		lead leadset.Name
	}
	var all []rawSpike
	for lead, idxs := range perLead {
		for _, i := range idxs {
			all = append(all, rawSpike{idx: i, lead: lead})
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].idx < all[j].idx })

	toleranceSamples := int(0.010 * float64(sig.SampleRate))
	if toleranceSamples < 1 {
		toleranceSamples = 1
	}

	var merged []Spike
	i := 0
	for i < len(all) {
		j := i + 1
		for j < len(all) && all[j].idx-all[i].idx <= toleranceSamples {
			j++
		}
		group := all[i:j]

		var sum float64
		leads := map[leadset.Name]bool{}
		for _, g := range group {
			sum += sig.Leads[g.lead][g.idx]
			leads[g.lead] = true
		}
		var leadList []leadset.Name
		for l := range leads {
			leadList = append(leadList, l)
		}

		confidence := 0.6
		if len(leadList) > 1 {
			confidence = 0.9
		}

		merged = append(merged, Spike{
			SampleIndex: group[0].idx,
			AmplitudeUV: sum / float64(len(group)),
			Leads:       leadList,
			Confidence:  confidence,
		})
		i = j
	}
	return merged
}

// classifySpikePairs tags spikes separated by 100-300ms as atrial or
// ventricular; remaining isolated spikes default to ventricular.
func classifySpikePairs(spikes []Spike, sampleRate uint) {
	minSamples := int(0.100 * float64(sampleRate))
	maxSamples := int(0.300 * float64(sampleRate))

	paired := make([]bool, len(spikes))
	for i := 0; i < len(spikes)-1; i++ {
		gap := spikes[i+1].SampleIndex - spikes[i].SampleIndex
		if gap >= minSamples && gap <= maxSamples {
			spikes[i].Kind = SpikeAtrial
			spikes[i+1].Kind = SpikeVentricular
			paired[i], paired[i+1] = true, true
		}
	}
	for i := range spikes {
		if !paired[i] {
			spikes[i].Kind = SpikeVentricular
		}
	}
}

func inferMode(spikes []Spike) PacingMode {
	hasAtrial, hasVentricular := false, false
	for _, s := range spikes {
		switch s.Kind {
		case SpikeAtrial:
			hasAtrial = true
		case SpikeVentricular:
			hasVentricular = true
		}
	}
	switch {
	case hasAtrial && hasVentricular:
		return PacingDDD
	case hasAtrial:
		return PacingAAI
	case hasVentricular:
		return PacingVVI
	default:
		return PacingNA
	}
}

func pacingRate(spikes []Spike, sampleRate uint) float64 {
	var ventricular []int
	for _, s := range spikes {
		if s.Kind == SpikeVentricular {
			ventricular = append(ventricular, s.SampleIndex)
		}
	}
	if len(ventricular) < 2 || sampleRate == 0 {
		return 0
	}
	var intervals []float64
	for i := 1; i < len(ventricular); i++ {
		intervals = append(intervals, float64(ventricular[i]-ventricular[i-1])/float64(sampleRate))
	}
	meanInterval := median(intervals)
	if meanInterval == 0 {
		return 0
	}
	return 60 / meanInterval
}

// sensingIssues flags an unusually short inter-spike interval (<300ms) as
// undersensing, and a single interval >1.5x the median and >1.5s as
// failure to pace.
func sensingIssues(spikes []Spike, sampleRate uint) []string {
	if len(spikes) < 2 || sampleRate == 0 {
		return nil
	}
	var intervals []float64
	for i := 1; i < len(spikes); i++ {
		intervals = append(intervals, float64(spikes[i].SampleIndex-spikes[i-1].SampleIndex)/float64(sampleRate))
	}
	med := median(intervals)

	var issues []string
	for _, interval := range intervals {
		if interval < 0.3 {
			issues = append(issues, "undersensing: inter-spike interval below 300ms")
		}
		if interval > 1.5*med && interval > 1.5 {
			issues = append(issues, "failure to pace: interval exceeds 1.5x median and 1.5s")
		}
	}
	return issues
}
