// Package validate implements the Cross-Lead Validator: scoring the
// physical plausibility of an ECGSignal via Einthoven's law, the
// Goldberger relations, precordial R-wave progression, and morphology
// plausibility checks.
package validate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// IssueType classifies a reported Issue's severity.
type IssueType string

const (
	IssueError   IssueType = "error"
	IssueWarning IssueType = "warning"
	IssueInfo    IssueType = "info"
)

// Issue is one validator finding.
type Issue struct {
	Type    IssueType
	Code    string
	Message string
	Leads   []leadset.Name
}

// Correction is a suggested remediation (invert a lead, swap leads,
// recalibrate).
type Correction struct {
	Kind        string
	Leads       []leadset.Name
	Description string
}

// Result is the Cross-Lead Validator's output.
type Result struct {
	Score           float64
	CrossLeadScore  float64
	MorphologyScore float64
	LeadQuality     map[leadset.Name]float64
	Issues          []Issue
	Corrections     []Correction
}

// Validator scores an ECGSignal's physical plausibility.
type Validator struct{}

// New builds a Validator.
func New() *Validator { return &Validator{} }

// Validate scores sig's leads and cross-lead consistency and returns the
// combined Result.
func (v *Validator) Validate(sig *signal.ECGSignal) Result {
	result := Result{LeadQuality: make(map[leadset.Name]float64)}

	for _, lead := range sig.Present() {
		result.LeadQuality[lead] = v.leadQuality(sig.Leads[lead], sig.SampleRate)
	}
	meanLeadQuality := meanOfMap(result.LeadQuality)

	einthovenScore, einthovenIssues := v.checkEinthoven(sig)
	goldbergerScore, goldbergerIssues := v.checkGoldberger(sig)
	precordialScore, precordialIssues := v.checkPrecordialProgression(sig)
	result.CrossLeadScore = (einthovenScore + goldbergerScore + precordialScore) / 3

	morphScore, morphIssues, corrections := v.checkMorphology(sig)
	result.MorphologyScore = morphScore
	result.Corrections = corrections

	result.Issues = append(result.Issues, einthovenIssues...)
	result.Issues = append(result.Issues, goldbergerIssues...)
	result.Issues = append(result.Issues, precordialIssues...)
	result.Issues = append(result.Issues, morphIssues...)

	result.Score = 0.5*meanLeadQuality + 0.3*result.CrossLeadScore + 0.2*result.MorphologyScore
	return result
}

// checkEinthoven reports Pearson correlation of predicted II (I+III)
// against actual II and the mean absolute error. Valid when correlation >
// 0.8 and MAE < 200uV.
func (v *Validator) checkEinthoven(sig *signal.ECGSignal) (float64, []Issue) {
	I, okI := sig.Leads[leadset.I]
	III, okIII := sig.Leads[leadset.III]
	II, okII := sig.Leads[leadset.II]
	if !okI || !okIII || !okII {
		return 0.5, nil // insufficient leads: neutral score, no violation reported.
	}

	predicted := addSeries(I, III)
	corr := safeCorrelation(predicted, II)
	mae := meanAbsError(predicted, II)

	if corr > 0.8 && mae < 200 {
		return 1, nil
	}
	return clamp01(corr), []Issue{{
		Type:    IssueWarning,
		Code:    "EINTHOVEN_VIOLATION",
		Message: "Einthoven's law check failed: II deviates from I+III",
		Leads:   []leadset.Name{leadset.I, leadset.II, leadset.III},
	}}
}

// checkGoldberger validates aVL = (I-III)/2, aVR = -(I+II)/2, aVF =
// (II+III)/2. Valid when per-sample deviation is below 300uV for the
// majority of samples.
func (v *Validator) checkGoldberger(sig *signal.ECGSignal) (float64, []Issue) {
	I, okI := sig.Leads[leadset.I]
	II, okII := sig.Leads[leadset.II]
	III, okIII := sig.Leads[leadset.III]
	if !okI || !okII || !okIII {
		return 0.5, nil
	}

	checks := []struct {
		name      leadset.Name
		predicted []float64
	}{
		{leadset.AVL, scaleSeries(subSeries(I, III), 0.5)},
		{leadset.AVR, scaleSeries(addSeries(I, II), -0.5)},
		{leadset.AVF, scaleSeries(addSeries(II, III), 0.5)},
	}

	var total, valid int
	var issues []Issue
	for _, c := range checks {
		actual, ok := sig.Leads[c.name]
		if !ok {
			continue
		}
		n := minLen(actual, c.predicted)
		within := 0
		for i := 0; i < n; i++ {
			if math.Abs(actual[i]-c.predicted[i]) < 300 {
				within++
			}
		}
		total++
		if n > 0 && float64(within)/float64(n) > 0.5 {
			valid++
		} else {
			issues = append(issues, Issue{
				Type:    IssueWarning,
				Code:    "GOLDBERGER_VIOLATION",
				Message: "Goldberger relation failed for " + string(c.name),
				Leads:   []leadset.Name{c.name, leadset.I, leadset.II, leadset.III},
			})
		}
	}
	if total == 0 {
		return 0.5, nil
	}
	return float64(valid) / float64(total), issues
}

// checkPrecordialProgression requires the maximum positive deflection of
// V1..V5 to be non-decreasing in at least 2 of 4 adjacent pairs; fully
// monotonic across V1..V6 is a strong pass.
func (v *Validator) checkPrecordialProgression(sig *signal.ECGSignal) (float64, []Issue) {
	var rWaves []float64
	var present []leadset.Name
	for _, lead := range leadset.Precordial {
		samples, ok := sig.Leads[lead]
		if !ok {
			continue
		}
		present = append(present, lead)
		rWaves = append(rWaves, maxOf(samples))
	}
	if len(rWaves) < 2 {
		return 0.5, nil
	}

	nonDecreasing, pairs := 0, 0
	for i := 1; i < len(rWaves); i++ {
		if present[i] == leadset.V6 {
			continue // only the pairs within V1..V5 count toward the rule
		}
		pairs++
		if rWaves[i] >= rWaves[i-1] {
			nonDecreasing++
		}
	}
	if pairs == 0 {
		return 0.5, nil
	}
	frac := float64(nonDecreasing) / float64(pairs)

	if frac < 0.5 {
		return frac, []Issue{{
			Type:    IssueInfo,
			Code:    "PRECORDIAL_PROGRESSION_ABNORMAL",
			Message: "R-wave progression across precordial leads is not non-decreasing",
			Leads:   present,
		}}
	}
	return frac, nil
}

// checkMorphology validates R-R-derived heart rate, QRS width in
// [60, 200]ms, and peak-to-peak voltage bounds, and proposes corrections
// for gross violations (e.g. an inverted lead).
func (v *Validator) checkMorphology(sig *signal.ECGSignal) (float64, []Issue, []Correction) {
	var issues []Issue
	var corrections []Correction
	var scores []float64

	for _, lead := range sig.Present() {
		samples := sig.Leads[lead]
		p2p := peakToPeak(samples)
		if p2p > 5000 {
			issues = append(issues, Issue{Type: IssueWarning, Code: "EXTREME_VOLTAGE", Message: "peak-to-peak voltage exceeds 5mV", Leads: []leadset.Name{lead}})
			scores = append(scores, 0)
			continue
		}
		scores = append(scores, 1)
	}

	if II, ok := sig.Leads[leadset.II]; ok {
		hr := estimateHeartRate(II, sig.SampleRate)
		if hr > 0 && (hr < 40 || hr > 200) {
			issues = append(issues, Issue{Type: IssueWarning, Code: "ABNORMAL_HR", Message: "estimated heart rate outside plausible range", Leads: []leadset.Name{leadset.II}})
		}

		qrsMs := estimateQRSWidthMs(II, sig.SampleRate)
		if qrsMs > 0 {
			if qrsMs < 60 || qrsMs > 200 {
				issues = append(issues, Issue{Type: IssueWarning, Code: "QRS_WIDTH_IMPLAUSIBLE", Message: "estimated QRS width outside plausible range", Leads: []leadset.Name{leadset.II}})
				scores = append(scores, 0)
			} else {
				scores = append(scores, 1)
			}
		}
	}

	if I, ok := sig.Leads[leadset.I]; ok {
		mean := stat.Mean(I, nil)
		minV, maxV := minMax(I)
		if mean < 0 && math.Abs(minV) > 1.5*math.Abs(maxV) {
			corrections = append(corrections, Correction{
				Kind:        "invert_lead",
				Leads:       []leadset.Name{leadset.I},
				Description: "Lead I appears inverted; consider LA/RA swap correction",
			})
		}
	}

	if len(scores) == 0 {
		return 0.5, issues, corrections
	}
	return meanOf(scores), issues, corrections
}

// leadQuality scores one lead's signal quality: flat-signal detection
// (stdev < 10uV), clipping (>1% of samples beyond +-3mV), estimated SNR
// (90th-10th percentile range divided by local median-absolute-first-
// difference), and baseline-wander detection (1-second moving-average range
// > 200uV).
func (v *Validator) leadQuality(samples []float64, sampleRate uint) float64 {
	if len(samples) == 0 {
		return 0
	}

	sd := stat.StdDev(samples, nil)
	flat := sd < 10

	clipCount := 0
	for _, s := range samples {
		if math.Abs(s) > 3000 {
			clipCount++
		}
	}
	clipped := float64(clipCount)/float64(len(samples)) > 0.01

	snr := estimateSNR(samples)

	wandering := movingAverageRange(samples, int(sampleRate)) > 200

	score := 1.0
	if flat {
		score -= 0.35
	}
	if clipped {
		score -= 0.35
	}
	if snr < 3 {
		score -= 0.15
	}
	if wandering {
		score -= 0.15
	}
	return clamp01(score)
}

// movingAverageRange computes a sliding moving average over samples with
// the given window length and returns its max-min range, the baseline-
// wander quality signal: a lead whose local mean drifts by more than a few
// hundred uV over the strip has significant wander even if individual
// samples never clip.
func movingAverageRange(samples []float64, windowLen int) float64 {
	if len(samples) == 0 || windowLen < 1 {
		return 0
	}
	if windowLen > len(samples) {
		windowLen = len(samples)
	}

	prefix := make([]float64, len(samples)+1)
	for i, s := range samples {
		prefix[i+1] = prefix[i] + s
	}

	minAvg, maxAvg := math.Inf(1), math.Inf(-1)
	for i := 0; i+windowLen <= len(samples); i++ {
		avg := (prefix[i+windowLen] - prefix[i]) / float64(windowLen)
		if avg < minAvg {
			minAvg = avg
		}
		if avg > maxAvg {
			maxAvg = avg
		}
	}
	return maxAvg - minAvg
}

func estimateSNR(samples []float64) float64 {
	if len(samples) < 3 {
		return 0
	}
	sorted := append([]float64{}, samples...)
	sortFloats(sorted)
	p90 := percentile(sorted, 0.9)
	p10 := percentile(sorted, 0.1)
	spread := p90 - p10

	diffs := make([]float64, 0, len(samples)-1)
	for i := 1; i < len(samples); i++ {
		diffs = append(diffs, math.Abs(samples[i]-samples[i-1]))
	}
	sortFloats(diffs)
	mad := percentile(diffs, 0.5)
	if mad == 0 {
		return math.Inf(1)
	}
	return spread / mad
}

func estimateHeartRate(samples []float64, sampleRate uint) float64 {
	if len(samples) < 2 || sampleRate == 0 {
		return 0
	}
	mean := stat.Mean(samples, nil)
	sd := stat.StdDev(samples, nil)
	threshold := mean + 2*sd

	var peakIdx []int
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] > threshold && samples[i] >= samples[i-1] && samples[i] >= samples[i+1] {
			peakIdx = append(peakIdx, i)
		}
	}
	if len(peakIdx) < 2 {
		return 0
	}

	var intervals []float64
	for i := 1; i < len(peakIdx); i++ {
		intervals = append(intervals, float64(peakIdx[i]-peakIdx[i-1])/float64(sampleRate))
	}
	meanInterval := meanOf(intervals)
	if meanInterval == 0 {
		return 0
	}
	return 60 / meanInterval
}

// estimateQRSWidthMs estimates the median QRS complex width in
// milliseconds: it finds the same above-threshold peaks estimateHeartRate
// locates, then walks outward from each to its 10%-of-peak threshold
// crossing.
func estimateQRSWidthMs(samples []float64, sampleRate uint) float64 {
	if len(samples) < 3 || sampleRate == 0 {
		return 0
	}
	mean := stat.Mean(samples, nil)
	sd := stat.StdDev(samples, nil)
	threshold := mean + 2*sd

	var widths []float64
	for i := 1; i < len(samples)-1; i++ {
		if samples[i] > threshold && samples[i] >= samples[i-1] && samples[i] >= samples[i+1] {
			cut := 0.1 * samples[i]
			start := i
			for start > 0 && samples[start] > cut {
				start--
			}
			end := i
			for end < len(samples)-1 && samples[end] > cut {
				end++
			}
			widths = append(widths, float64(end-start)/float64(sampleRate)*1000)
		}
	}
	if len(widths) == 0 {
		return 0
	}
	sort.Float64s(widths)
	return widths[len(widths)/2]
}
