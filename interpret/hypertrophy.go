package interpret

import "github.com/cardiomet/ecgdigit/leadset"

// voltageNorms are the age-banded p98 reference amplitudes (uV) used by
// the Hypertrophy analyzer's scoring criteria. Right-ventricular
// dominance in early infancy means R(V1)/S(V6) p98 values start high and
// fall with age, the mirror image of R(V6)/S(V1).
type voltageNorms struct {
	RV1P98 float64
	SV6P98 float64
	RV6P98 float64
	SV1P98 float64
}

func normsForAge(ageDays int) voltageNorms {
	switch {
	case ageDays < 30:
		return voltageNorms{RV1P98: 2600, SV6P98: 2300, RV6P98: 900, SV1P98: 2000}
	case ageDays < 365:
		return voltageNorms{RV1P98: 2000, SV6P98: 1800, RV6P98: 1200, SV1P98: 1800}
	case ageDays < 3*365:
		return voltageNorms{RV1P98: 1400, SV6P98: 1200, RV6P98: 1600, SV1P98: 1600}
	case ageDays < 8*365:
		return voltageNorms{RV1P98: 1000, SV6P98: 900, RV6P98: 2000, SV1P98: 1400}
	case ageDays < 16*365:
		return voltageNorms{RV1P98: 800, SV6P98: 700, RV6P98: 2200, SV1P98: 1300}
	default:
		return voltageNorms{RV1P98: 700, SV6P98: 600, RV6P98: 2600, SV1P98: 1200}
	}
}

// AnalyzeHypertrophy implements the Hypertrophy analyzer: scores
// RVH and LVH criteria against age p98 voltages and R/S ratios plus axis
// deviation. A score of 2 is borderline, 3+ is abnormal; both RVH and LVH
// scoring >=2 additionally yields a BVH finding. Returns no findings when
// voltages are absent.
func AnalyzeHypertrophy(v *VoltageMeasurements, axisFindings []Finding, ageDays int) []Finding {
	if v == nil || v.RAmplitudeUV == nil {
		return nil
	}
	norms := normsForAge(ageDays)

	rV1, sV1 := v.RAmplitudeUV[leadset.V1], valueOr(v.SAmplitudeUV, leadset.V1)
	rV6, sV6 := v.RAmplitudeUV[leadset.V6], valueOr(v.SAmplitudeUV, leadset.V6)

	hasLAD, hasRAD := false, false
	for _, f := range axisFindings {
		switch f.Code {
		case CodeLeftAxisDeviation:
			hasLAD = true
		case CodeRightAxisDeviation, CodeExtremeAxis:
			hasRAD = true
		}
	}

	rvhScore := 0
	if rV1 > norms.RV1P98 {
		rvhScore++
	}
	if sV6 > norms.SV6P98 {
		rvhScore++
	}
	if sV1 > 0 && rV1/maxFloat(sV1, 1) > rsRatioP98(norms.RV1P98, norms.SV1P98) {
		rvhScore++
	}
	if hasRAD {
		rvhScore++
	}

	lvhScore := 0
	if rV6 > norms.RV6P98 {
		lvhScore++
	}
	if sV1 > norms.SV1P98 {
		lvhScore++
	}
	if sV6 > 0 && rV6/maxFloat(sV6, 1) > rsRatioP98(norms.RV6P98, norms.SV6P98) {
		lvhScore++
	}
	if hasLAD {
		lvhScore++
	}

	var out []Finding
	if f := hypertrophyFinding(CodeRVH, rvhScore, rV1, norms.RV1P98); f != nil {
		out = append(out, *f)
	}
	if f := hypertrophyFinding(CodeLVH, lvhScore, rV6, norms.RV6P98); f != nil {
		out = append(out, *f)
	}
	if rvhScore >= 2 && lvhScore >= 2 {
		out = append(out, Finding{
			Code: CodeBVH, Severity: SeverityAbnormal, Category: CategoryHypertrophy,
			Statement:  "Combined voltage criteria for both right and left ventricular hypertrophy are met.",
			Confidence: 0.75,
			Evidence:   map[string]float64{"rvhScore": float64(rvhScore), "lvhScore": float64(lvhScore)},
		})
	}
	return out
}

func hypertrophyFinding(code string, score int, amplitude, p98 float64) *Finding {
	if score < 2 {
		return nil
	}
	severity := SeverityBorderline
	if score >= 3 {
		severity = SeverityAbnormal
	}
	return &Finding{
		Code: code, Severity: severity, Category: CategoryHypertrophy,
		Statement:   "Voltage criteria are met for ventricular hypertrophy.",
		AgeAdjusted: true, Confidence: 0.7,
		Evidence: map[string]float64{"score": float64(score), "amplitudeUV": amplitude, "p98UV": p98},
	}
}

func rsRatioP98(rP98, sP98 float64) float64 {
	if sP98 == 0 {
		return rP98
	}
	return rP98 / sP98
}

func valueOr(m map[leadset.Name]float64, lead leadset.Name) float64 {
	if m == nil {
		return 0
	}
	return m[lead]
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
