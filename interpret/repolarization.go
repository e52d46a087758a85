package interpret

// AnalyzeRepolarization implements the Repolarization analyzer:
// T-wave polarity in V1 across the neonatal/juvenile transition, and the
// QRS-T angle. Returns no findings when morphology inputs are absent.
func AnalyzeRepolarization(m *MorphologyInputs, ageDays int) []Finding {
	if m == nil {
		return nil
	}
	var out []Finding

	switch {
	case m.TWaveV1 == TPolarityPositive && ageDays > 7:
		out = append(out, Finding{
			Code: CodeRVStrainHint, Severity: SeverityAbnormal, Category: CategoryMorphology,
			Statement:   "Upright T wave in V1 after the first week of life suggests RV strain.",
			AgeAdjusted: true, Confidence: 0.65,
		})
	case m.TWaveV1 == TPolarityNegative && ageDays <= 1:
		out = append(out, Finding{
			Code: CodeRVStrainHint, Severity: SeverityBorderline, Category: CategoryMorphology,
			Statement:   "Inverted T wave in V1 on day one of life.",
			AgeAdjusted: true, Confidence: 0.5,
			Note: "isolated first-day T-wave inversion in V1 is frequently a normal transitional finding",
		})
	case m.TWaveV1 == TPolarityNegative && ageDays >= 3*365 && ageDays <= 16*365:
		out = append(out, Finding{
			Code: CodeJuvenileTPattern, Severity: SeverityNormal, Category: CategoryMorphology,
			Statement:         "Inverted T wave in V1 consistent with the juvenile T-wave pattern.",
			AgeAdjusted:       true,
			PediatricSpecific: true,
			Confidence:        0.8,
		})
	}

	if m.HasQRSTAngle {
		switch {
		case m.QRSTAngleDeg > 135:
			out = append(out, Finding{
				Code: CodeAbnormalQRSTAngle, Severity: SeverityAbnormal, Category: CategoryMorphology,
				Statement:  "QRS-T angle is markedly widened.",
				Confidence: 0.7, Evidence: map[string]float64{"qrsTAngleDeg": m.QRSTAngleDeg},
			})
		case m.QRSTAngleDeg >= 100:
			out = append(out, Finding{
				Code: CodeBorderlineQRSTAngle, Severity: SeverityBorderline, Category: CategoryMorphology,
				Statement:  "QRS-T angle is widened.",
				Confidence: 0.6, Evidence: map[string]float64{"qrsTAngleDeg": m.QRSTAngleDeg},
			})
		}
	}

	return out
}
