package interpret

// AnalyzeBrugada implements the Brugada analyzer: age-independent
// criteria on V1/V2 ST-elevation, ST morphology and T-wave polarity. Type
// 1 (coved + negative T) is abnormal; Type 2 (saddleback + positive or
// biphasic T) is borderline; ST elevation with an RBBB pattern but
// unknown morphology is a suggestive note only.
func AnalyzeBrugada(m *MorphologyInputs) []Finding {
	if m == nil || m.STElevationV1V2Mm < 2 {
		return nil
	}

	switch {
	case m.STMorphologyV1V2 == STMorphologyCoved && m.TWavePolarityV1V2 == TPolarityNegative:
		return []Finding{{
			Code: CodeBrugadaPattern, Severity: SeverityAbnormal, Category: CategoryMorphology,
			Statement:  "Coved ST elevation with negative T wave in V1/V2 is consistent with Brugada Type 1.",
			Confidence: 0.8, Evidence: map[string]float64{"stElevationMm": m.STElevationV1V2Mm},
		}}

	case m.STMorphologyV1V2 == STMorphologySaddleback &&
		(m.TWavePolarityV1V2 == TPolarityPositive || m.TWavePolarityV1V2 == TPolarityBiphasic):
		return []Finding{{
			Code: CodeBrugadaType2, Severity: SeverityBorderline, Category: CategoryMorphology,
			Statement:  "Saddleback ST elevation in V1/V2 is consistent with Brugada Type 2.",
			Confidence: 0.55, Evidence: map[string]float64{"stElevationMm": m.STElevationV1V2Mm},
		}}

	case m.STMorphologyV1V2 == STMorphologyUnknown && m.RBBBPattern:
		return []Finding{{
			Code: CodeSTElevation, Severity: SeverityBorderline, Category: CategoryMorphology,
			Statement:  "ST elevation in V1/V2 with an RBBB pattern but undetermined ST morphology.",
			Confidence: 0.4, Evidence: map[string]float64{"stElevationMm": m.STElevationV1V2Mm},
			Note: "morphology could not be classified as coved or saddleback; suggestive only",
		}}

	default:
		return []Finding{{
			Code: CodeSTElevation, Severity: SeverityBorderline, Category: CategoryMorphology,
			Statement:  "ST elevation in V1/V2 without a classic Brugada morphology.",
			Confidence: 0.4, Evidence: map[string]float64{"stElevationMm": m.STElevationV1V2Mm},
		}}
	}
}
