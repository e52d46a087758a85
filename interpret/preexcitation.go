package interpret

// AnalyzePreExcitation implements the Pre-excitation (WPW) analyzer:
// short PR plus age-banded wide QRS plus a delta wave is WPW;
// without delta-wave evidence the same PR/QRS combination is a weaker
// borderline signal; a very short PR (<80ms) with a normal QRS is the
// LGL pattern; a delta wave with a normal PR is a Mahaim-fiber pattern.
func AnalyzePreExcitation(m Measurements, morph *MorphologyInputs, ageDays int) []Finding {
	if morph == nil {
		return nil
	}

	qrsThreshold := qrsProlongedThresholdForAge(ageDays)
	prP98 := prP98ForAge(ageDays)
	shortPR := m.PRMs < 80
	wideQRS := m.QRSMs > qrsThreshold
	normalPR := m.PRMs >= 80 && m.PRMs <= prP98
	normalQRS := !wideQRS

	var out []Finding
	switch {
	case shortPR && wideQRS && morph.DeltaWavePresent:
		out = append(out, Finding{
			Code: CodeWPW, Severity: SeverityAbnormal, Category: CategoryConduction,
			Statement:   "Short PR, wide QRS and a delta wave are consistent with ventricular pre-excitation.",
			AgeAdjusted: true, Confidence: 0.85,
			Evidence: map[string]float64{"prMs": m.PRMs, "qrsMs": m.QRSMs},
		})
	case shortPR && wideQRS:
		out = append(out, Finding{
			Code: CodeWPW, Severity: SeverityBorderline, Category: CategoryConduction,
			Statement:   "Short PR and wide QRS without confirmed delta-wave evidence.",
			AgeAdjusted: true, Confidence: 0.55,
			Evidence: map[string]float64{"prMs": m.PRMs, "qrsMs": m.QRSMs},
		})
	case shortPR && normalQRS:
		out = append(out, Finding{
			Code: CodeLGLPattern, Severity: SeverityBorderline, Category: CategoryConduction,
			Statement:  "Very short PR with a normal QRS suggests a Lown-Ganong-Levine pattern.",
			Confidence: 0.5, Evidence: map[string]float64{"prMs": m.PRMs},
		})
	case morph.DeltaWavePresent && normalPR:
		out = append(out, Finding{
			Code: CodeMahaimPattern, Severity: SeverityBorderline, Category: CategoryConduction,
			Statement:  "Delta wave with a normal PR interval suggests a Mahaim-fiber pattern.",
			Confidence: 0.5, Evidence: map[string]float64{"prMs": m.PRMs},
		})
	}
	return out
}
