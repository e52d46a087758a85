package interpret

// prP98ForAge returns the age-banded upper-normal PR interval (ms). The
// adult bound (200ms) doubles as the classic "first-degree AV block"
// cutoff, so for adults the trigger and the abnormal-severity threshold
// below coincide; younger ages have a lower p98, producing a genuine
// borderline zone between the age bound and 200ms.
func prP98ForAge(ageDays int) float64 {
	switch {
	case ageDays < 28:
		return 140
	case ageDays < 365:
		return 150
	case ageDays < 3*365:
		return 160
	case ageDays < 8*365:
		return 170
	case ageDays < 16*365:
		return 180
	default:
		return 200
	}
}

// qrsProlongedThresholdForAge returns the age-banded QRS prolongation
// cutoff in ms.
func qrsProlongedThresholdForAge(ageDays int) float64 {
	switch {
	case ageDays < 365:
		return 100
	case ageDays < 8*365:
		return 110
	default:
		return 120
	}
}

func analyzePR(prMs float64, ageDays int) *Finding {
	p98 := prP98ForAge(ageDays)
	if prMs > p98 {
		severity := SeverityBorderline
		if prMs > 200 {
			severity = SeverityAbnormal
		}
		return &Finding{
			Code: CodeFirstDegreeAVBlock, Severity: severity, Category: CategoryIntervals,
			Statement:   "PR interval is prolonged beyond the age-normal range.",
			AgeAdjusted: true, Confidence: 0.85,
			Evidence: map[string]float64{"prMs": prMs, "p98": p98},
		}
	}
	if prMs < 80 && !isNeonatalWindow(ageDays) {
		return &Finding{
			Code: CodeShortPR, Severity: SeverityBorderline, Category: CategoryIntervals,
			Statement: "PR interval is shorter than expected.",
			Confidence: 0.75, Evidence: map[string]float64{"prMs": prMs},
		}
	}
	return nil
}

func analyzeQRSDuration(qrsMs float64, ageDays int) *Finding {
	threshold := qrsProlongedThresholdForAge(ageDays)
	if qrsMs > threshold {
		return &Finding{
			Code: CodeQRSProlonged, Severity: SeverityAbnormal, Category: CategoryIntervals,
			Statement:   "QRS duration is prolonged for age.",
			AgeAdjusted: true, Confidence: 0.85,
			Evidence: map[string]float64{"qrsMs": qrsMs, "thresholdMs": threshold},
		}
	}
	return nil
}

// analyzeQTc applies the age-independent Bazett-corrected QT thresholds:
// >500 critical, >470 abnormal, >450 borderline, <340 short
// (<320 abnormal). All comparisons are strict at the stated thresholds.
func analyzeQTc(qtcMs float64) *Finding {
	switch {
	case qtcMs > 500:
		return &Finding{Code: CodeQTcProlonged, Severity: SeverityCritical, Category: CategoryIntervals,
			Statement: "QTc is critically prolonged.", Confidence: 0.95, Evidence: map[string]float64{"qtcMs": qtcMs}}
	case qtcMs > 470:
		return &Finding{Code: CodeQTcProlonged, Severity: SeverityAbnormal, Category: CategoryIntervals,
			Statement: "QTc is prolonged.", Confidence: 0.9, Evidence: map[string]float64{"qtcMs": qtcMs}}
	case qtcMs > 450:
		return &Finding{Code: CodeQTcProlonged, Severity: SeverityBorderline, Category: CategoryIntervals,
			Statement: "QTc is borderline prolonged.", Confidence: 0.75, Evidence: map[string]float64{"qtcMs": qtcMs}}
	case qtcMs < 320:
		return &Finding{Code: CodeQTcShort, Severity: SeverityAbnormal, Category: CategoryIntervals,
			Statement: "QTc is abnormally short.", Confidence: 0.85, Evidence: map[string]float64{"qtcMs": qtcMs}}
	case qtcMs < 340:
		return &Finding{Code: CodeQTcShort, Severity: SeverityBorderline, Category: CategoryIntervals,
			Statement: "QTc is borderline short.", Confidence: 0.7, Evidence: map[string]float64{"qtcMs": qtcMs}}
	default:
		return nil
	}
}

// AnalyzeIntervals implements the Intervals analyzer: PR, QRS
// duration and QTc rules, each independent and each emitting zero or one
// Finding.
func AnalyzeIntervals(m Measurements, ageDays int) []Finding {
	var out []Finding
	for _, f := range []*Finding{
		analyzePR(m.PRMs, ageDays),
		analyzeQRSDuration(m.QRSMs, ageDays),
		analyzeQTc(m.QTcMs),
	} {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}
