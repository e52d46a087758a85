package interpret

import "math"

// AnalyzeRate implements the Rate analyzer: classifies HeartRateBpm
// against the age band's HeartRate NormalRange. Severity is abnormal when
// the value deviates from the nearest normal bound by more than 20%,
// otherwise borderline; genuinely normal values still emit RATE_NORMAL
// (per the boundary behavior: HR at the age median returns RATE_NORMAL).
func AnalyzeRate(m Measurements, ageDays int) []Finding {
	band := bandForAge(ageDays)
	r := band.HeartRate
	class := r.Classify(m.HeartRateBpm)

	note := ""
	if isNeonatalWindow(ageDays) {
		note = "neonatal heart rate is physiologically variable; interpret deviations leniently"
	}

	evidence := map[string]float64{"heartRateBpm": m.HeartRateBpm, "p2": r.P2, "p98": r.P98}

	if class == ClassNormal {
		return []Finding{{
			Code: CodeRateNormal, Severity: SeverityNormal, Category: CategoryRate,
			Statement: "Heart rate is within the age-normal range.",
			AgeAdjusted: true, Confidence: 0.95, Evidence: evidence, Note: note,
		}}
	}

	low := class == ClassLow || class == ClassBorderlineLow
	code := CodeSinusTachycardia
	bound := r.P98
	if low {
		code = CodeSinusBradycardia
		bound = r.P2
	}

	deviation := 0.0
	if bound != 0 {
		deviation = math.Abs(m.HeartRateBpm-bound) / math.Abs(bound)
	}
	severity := SeverityBorderline
	if deviation > 0.20 {
		severity = SeverityAbnormal
	}

	statement := "Heart rate is faster than expected for age."
	if low {
		statement = "Heart rate is slower than expected for age."
	}

	return []Finding{{
		Code: code, Severity: severity, Category: CategoryRate, Statement: statement,
		AgeAdjusted: true, Confidence: 0.85, Evidence: evidence, Note: note,
	}}
}
