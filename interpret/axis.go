package interpret

import "math"

// NormalizeAxis maps an angle in degrees to (-180, 180], matching the
// data model's normalization invariant for P/QRS/T axis values.
func NormalizeAxis(deg float64) float64 {
	d := math.Mod(deg, 360)
	switch {
	case d <= -180:
		d += 360
	case d > 180:
		d -= 360
	}
	return d
}

// AnalyzeAxis implements the Axis analyzer: a northwest axis
// (-180 to -90) is always EXTREME_AXIS abnormal; otherwise the axis is
// compared to the age band's QRSAxis bounds for LAD/RAD, downgrading
// right-axis deviation to borderline under 30 days old where it is
// expected physiology. Genuinely normal axis values emit no finding.
// Idempotent: classifying the same normalized value twice always yields
// the same code (bandForAge and the comparisons are pure functions of
// (axis, ageDays)).
func AnalyzeAxis(m Measurements, ageDays int) []Finding {
	axis := NormalizeAxis(m.QRSAxisDeg)
	evidence := map[string]float64{"qrsAxisDeg": axis}

	if axis > -180 && axis < -90 {
		return []Finding{{
			Code: CodeExtremeAxis, Severity: SeverityAbnormal, Category: CategoryAxis,
			Statement: "QRS axis falls in the extreme (northwest) quadrant.",
			Confidence: 0.9, Evidence: evidence,
		}}
	}

	r := bandForAge(ageDays).QRSAxis
	evidence["p2"] = r.P2
	evidence["p98"] = r.P98

	switch {
	case axis < r.P2:
		deviation := r.P2 - axis
		severity := SeverityBorderline
		if deviation > 30 {
			severity = SeverityAbnormal
		}
		return []Finding{{
			Code: CodeLeftAxisDeviation, Severity: severity, Category: CategoryAxis,
			Statement: "QRS axis is deviated leftward of the age-normal range.",
			AgeAdjusted: true, Confidence: 0.85, Evidence: evidence,
		}}

	case axis > r.P98:
		deviation := axis - r.P98
		severity := SeverityBorderline
		if deviation > 30 {
			severity = SeverityAbnormal
		}
		note := ""
		if ageDays < 30 {
			// Right-axis dominance is expected physiology in the newborn
			// period; never escalate past borderline here.
			severity = SeverityBorderline
			note = "right-axis deviation is expected physiology in the first 30 days"
		}
		return []Finding{{
			Code: CodeRightAxisDeviation, Severity: severity, Category: CategoryAxis,
			Statement: "QRS axis is deviated rightward of the age-normal range.",
			AgeAdjusted: true, Confidence: 0.85, Evidence: evidence, Note: note,
		}}

	default:
		return nil
	}
}
