package interpret

import (
	"fmt"
	"sort"
)

// highUrgencyCodes is the set of abnormal codes that escalate Summary
// urgency straight to "urgent"; the same set doubles as the
// review set for RecommendReview, since every code serious enough to
// demand urgent attention also demands a human review.
var highUrgencyCodes = map[string]bool{
	CodeQTcProlonged:             true,
	CodeThirdDegreeAVBlock:       true,
	CodeSecondDegreeAVBlockType2: true,
	CodeWPW:                      true,
	CodeBrugadaPattern:           true,
	CodeSTElevation:              true,
}

// codeAbbreviations maps finding codes to a short abbreviation used when
// composing the Summary one-liner.
var codeAbbreviations = map[string]string{
	CodeSinusBradycardia:         "Brady",
	CodeSinusTachycardia:         "Tachy",
	CodeLeftAxisDeviation:        "LAD",
	CodeRightAxisDeviation:       "RAD",
	CodeExtremeAxis:              "Extreme axis",
	CodeFirstDegreeAVBlock:       "1st AVB",
	CodeSecondDegreeAVBlockType2: "2nd AVB (Type 2)",
	CodeThirdDegreeAVBlock:       "3rd AVB",
	CodeShortPR:                  "Short PR",
	CodeQRSProlonged:             "Wide QRS",
	CodeQTcProlonged:             "QTc prolonged",
	CodeQTcShort:                 "QTc short",
	CodeRVH:                      "RVH",
	CodeLVH:                      "LVH",
	CodeBVH:                      "BVH",
	CodeRVStrainHint:             "RV strain",
	CodeAbnormalQRSTAngle:        "Wide QRS-T angle",
	CodeBorderlineQRSTAngle:      "Borderline QRS-T angle",
	CodeWPW:                      "WPW",
	CodeLGLPattern:               "LGL",
	CodeMahaimPattern:            "Mahaim",
	CodeBrugadaPattern:           "Brugada I",
	CodeBrugadaType2:             "Brugada II",
	CodeSTElevation:              "ST elevation",
}

// Options configures an Engine.
type Options struct {
	// MinConfidence filters out findings below this confidence; zero
	// disables filtering.
	MinConfidence float64

	// StripClinicalNotes omits every Finding's Note from the output.
	StripClinicalNotes bool
}

// Engine runs the full rule pipeline and aggregates the result.
type Engine struct {
	opts Options
}

// New builds an Engine with the given Options.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Inputs bundles the optional data the voltage- and morphology-dependent
// analyzers need; either pointer may be nil.
type Inputs struct {
	Voltages    *VoltageMeasurements
	Morphology  *MorphologyInputs
	RhythmCode  string
	TimestampISO8601 string
}

// Interpret implements the Interpretation Engine's aggregation step:
// runs every rule analyzer, confidence-filters, orders by
// severity then category, and composes the Summary.
func (e *Engine) Interpret(m Measurements, ageDays int, in Inputs) Interpretation {
	var findings []Finding
	findings = append(findings, AnalyzeRate(m, ageDays)...)
	findings = append(findings, AnalyzeAxis(m, ageDays)...)
	findings = append(findings, AnalyzeIntervals(m, ageDays)...)
	findings = append(findings, AnalyzeHypertrophy(in.Voltages, findings, ageDays)...)
	findings = append(findings, AnalyzeRepolarization(in.Morphology, ageDays)...)
	findings = append(findings, AnalyzePreExcitation(m, in.Morphology, ageDays)...)
	findings = append(findings, AnalyzeBrugada(in.Morphology)...)

	findings = e.filterAndOrder(findings)

	summary := aggregate(findings)

	return Interpretation{
		Findings:          findings,
		Rhythm:            Rhythm{Description: in.RhythmCode},
		Summary:           summary,
		OverallConfidence: overallConfidence(findings),
		AgeDays:           ageDays,
		Method:            "rule_based_v1",
		TimestampISO8601:  in.TimestampISO8601,
	}
}

func (e *Engine) filterAndOrder(findings []Finding) []Finding {
	var out []Finding
	for _, f := range findings {
		if e.opts.MinConfidence > 0 && f.Confidence < e.opts.MinConfidence {
			continue
		}
		if e.opts.StripClinicalNotes {
			f.Note = ""
		}
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if severityRank(out[i].Severity) != severityRank(out[j].Severity) {
			return severityRank(out[i].Severity) < severityRank(out[j].Severity)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// aggregate implements the Summary composition rules: conclusion and
// urgency from the worst severity present, recommend-review from the
// review code set or a non-normal-finding count of 3+, and a one-liner
// from the top three non-normal findings' abbreviations.
func aggregate(findings []Finding) Summary {
	hasCritical, hasAbnormal, hasBorderline := false, false, false
	hasHighUrgency := false
	nonNormal := 0

	for _, f := range findings {
		switch f.Severity {
		case SeverityCritical:
			hasCritical = true
			nonNormal++
		case SeverityAbnormal:
			hasAbnormal = true
			nonNormal++
			if highUrgencyCodes[f.Code] {
				hasHighUrgency = true
			}
		case SeverityBorderline:
			hasBorderline = true
			nonNormal++
		}
		if highUrgencyCodes[f.Code] && f.Severity != SeverityNormal {
			hasHighUrgency = true
		}
	}

	conclusion := "Normal ECG"
	switch {
	case hasCritical || hasAbnormal:
		conclusion = "Abnormal ECG"
	case hasBorderline:
		conclusion = "Borderline ECG"
	}

	urgency := "routine"
	switch {
	case hasCritical:
		urgency = "critical"
	case hasHighUrgency:
		urgency = "urgent"
	case hasAbnormal:
		urgency = "attention"
	}

	recommendReview := nonNormal >= 3
	for _, f := range findings {
		if highUrgencyCodes[f.Code] && f.Severity != SeverityNormal {
			recommendReview = true
		}
	}

	return Summary{
		Conclusion:      conclusion,
		OneLiner:        oneLiner(findings),
		Urgency:         urgency,
		RecommendReview: recommendReview,
	}
}

func oneLiner(findings []Finding) string {
	var parts []string
	for _, f := range findings {
		if f.Severity == SeverityNormal {
			continue
		}
		abbr, ok := codeAbbreviations[f.Code]
		if !ok {
			abbr = f.Code
		}
		parts = append(parts, abbr)
		if len(parts) == 3 {
			break
		}
	}
	if len(parts) == 0 {
		return "No significant abnormality"
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out = fmt.Sprintf("%s, %s", out, p)
	}
	return out
}

func overallConfidence(findings []Finding) float64 {
	if len(findings) == 0 {
		return 1
	}
	var sum float64
	for _, f := range findings {
		sum += f.Confidence
	}
	return sum / float64(len(findings))
}
