// Package interpret implements the Interpretation Engine: an
// age-aware rules pipeline that turns a set of Measurements (plus optional
// voltage and morphology inputs) into an ordered list of clinical Findings
// and a Summary.
package interpret

import "github.com/cardiomet/ecgdigit/leadset"

// Severity is the fixed four-tier clinical severity scale, ordered
// critical < abnormal < borderline < normal for sorting purposes (see
// severityRank).
type Severity string

const (
	SeverityNormal     Severity = "normal"
	SeverityBorderline Severity = "borderline"
	SeverityAbnormal   Severity = "abnormal"
	SeverityCritical   Severity = "critical"
)

// Category groups a Finding by clinical domain.
type Category string

const (
	CategoryRhythm       Category = "rhythm"
	CategoryRate         Category = "rate"
	CategoryIntervals    Category = "intervals"
	CategoryAxis         Category = "axis"
	CategoryHypertrophy  Category = "hypertrophy"
	CategoryConduction   Category = "conduction"
	CategoryMorphology   Category = "morphology"
	CategoryIschemia     Category = "ischemia"
	CategoryOther        Category = "other"
)

// Finding codes. Stable identifiers referenced by the aggregation logic's
// high-urgency and review sets, so renaming one requires updating those
// sets too.
const (
	CodeRateNormal               = "RATE_NORMAL"
	CodeSinusBradycardia         = "SINUS_BRADYCARDIA"
	CodeSinusTachycardia         = "SINUS_TACHYCARDIA"
	CodeLeftAxisDeviation        = "LEFT_AXIS_DEVIATION"
	CodeRightAxisDeviation       = "RIGHT_AXIS_DEVIATION"
	CodeExtremeAxis              = "EXTREME_AXIS"
	CodeFirstDegreeAVBlock       = "FIRST_DEGREE_AV_BLOCK"
	CodeSecondDegreeAVBlockType2 = "SECOND_DEGREE_AV_BLOCK_TYPE_2"
	CodeThirdDegreeAVBlock       = "THIRD_DEGREE_AV_BLOCK"
	CodeShortPR                  = "SHORT_PR"
	CodeQRSProlonged             = "QRS_PROLONGED"
	CodeQTcProlonged             = "QTC_PROLONGED"
	CodeQTcShort                 = "QTC_SHORT"
	CodeRVH                      = "RVH"
	CodeLVH                      = "LVH"
	CodeBVH                      = "BVH"
	CodeRVStrainHint             = "RV_STRAIN_HINT"
	CodeJuvenileTPattern         = "JUVENILE_T_PATTERN"
	CodeAbnormalQRSTAngle        = "ABNORMAL_QRST_ANGLE"
	CodeBorderlineQRSTAngle      = "BORDERLINE_QRST_ANGLE"
	CodeWPW                      = "WPW"
	CodeLGLPattern               = "LGL_PATTERN"
	CodeMahaimPattern            = "MAHAIM_PATTERN"
	CodeBrugadaPattern           = "BRUGADA_PATTERN"
	CodeBrugadaType2             = "BRUGADA_TYPE2"
	CodeSTElevation              = "ST_ELEVATION"
)

// Measurements are the scalar summaries the rule analyzers consume.
// Degrees are normalized to (-180, 180]; durations are in milliseconds
// except HeartRateBpm.
type Measurements struct {
	HeartRateBpm float64
	RRMs         float64
	PRMs         float64
	QRSMs        float64
	QTMs         float64
	QTcMs        float64
	PAxisDeg     float64
	QRSAxisDeg   float64
	TAxisDeg     float64
}

// VoltageMeasurements are the optional per-lead R/S amplitudes the
// Hypertrophy analyzer needs; absent when not supplied.
type VoltageMeasurements struct {
	RAmplitudeUV map[leadset.Name]float64
	SAmplitudeUV map[leadset.Name]float64
}

// STMorphology classifies the ST-segment shape in V1/V2 for Brugada
// scoring.
type STMorphology string

const (
	STMorphologyUnknown    STMorphology = "unknown"
	STMorphologyCoved      STMorphology = "coved"
	STMorphologySaddleback STMorphology = "saddleback"
)

// TPolarity classifies a T wave's polarity.
type TPolarity string

const (
	TPolarityUnknown  TPolarity = "unknown"
	TPolarityPositive TPolarity = "positive"
	TPolarityNegative TPolarity = "negative"
	TPolarityBiphasic TPolarity = "biphasic"
)

// MorphologyInputs are the optional qualitative/morphology observations
// the Repolarization, Pre-excitation and Brugada analyzers need.
type MorphologyInputs struct {
	TWaveV1             TPolarity
	QRSTAngleDeg         float64
	HasQRSTAngle         bool
	DeltaWavePresent     bool
	STElevationV1V2Mm    float64
	STMorphologyV1V2     STMorphology
	TWavePolarityV1V2    TPolarity
	RBBBPattern          bool
}

// Finding is one clinical observation produced by a rule analyzer.
type Finding struct {
	Code              string
	Statement         string
	Severity          Severity
	Category          Category
	Evidence          map[string]float64
	AgeAdjusted       bool
	PediatricSpecific bool
	Confidence        float64
	Note              string
	RelatedCodes      []string
}

// Rhythm is a short textual description of the rhythm classification,
// supplied by the caller (clinical.RhythmResult.Code is the usual source)
// since rhythm classification itself lives in the clinical package.
type Rhythm struct {
	Description string
}

// Summary aggregates the ordered Findings into a conclusion.
type Summary struct {
	Conclusion       string
	OneLiner         string
	Urgency          string
	RecommendReview  bool
}

// Interpretation is the Interpretation Engine's full output.
type Interpretation struct {
	Findings        []Finding
	Rhythm          Rhythm
	Summary         Summary
	OverallConfidence float64
	AgeDays         int
	Method          string
	TimestampISO8601 string
}

func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityAbnormal:
		return 1
	case SeverityBorderline:
		return 2
	default:
		return 3
	}
}
