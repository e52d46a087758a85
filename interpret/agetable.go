package interpret

// NormalRange is a population-typical {p2, p50, p98} band for one
// parameter within one age band.
type NormalRange struct {
	P2  float64
	P50 float64
	P98 float64
}

// Classification buckets a value against a NormalRange's inner thresholds
// p2*1.02 and p98*0.98.
type Classification string

const (
	ClassNormal         Classification = "normal"
	ClassBorderlineLow  Classification = "borderline_low"
	ClassLow            Classification = "low"
	ClassBorderlineHigh Classification = "borderline_high"
	ClassHigh           Classification = "high"
)

// Classify buckets value against r using the inner thresholds p2*1.02 and
// p98*0.98: outside [p2, p98] is low/high, inside [p2, p2*1.02) or
// (p98*0.98, p98] is borderline, otherwise normal.
func (r NormalRange) Classify(value float64) Classification {
	innerLow := r.P2 * 1.02
	innerHigh := r.P98 * 0.98
	switch {
	case value < r.P2:
		return ClassLow
	case value < innerLow:
		return ClassBorderlineLow
	case value > r.P98:
		return ClassHigh
	case value > innerHigh:
		return ClassBorderlineHigh
	default:
		return ClassNormal
	}
}

// ageBand is one closed-half-open age interval [MinDays, MaxDays) with its
// per-parameter normal ranges. MaxDays of -1 means unbounded (applies to
// the final adult band).
type ageBand struct {
	MinDays    int
	MaxDays    int // exclusive; -1 = unbounded
	Label      string
	HeartRate  NormalRange
	QRSAxis    NormalRange
}

// ageTable is the canonical age-banded normal-range table. Bounds
// and ranges are population-typical pediatric ECG reference values.
var ageTable = []ageBand{
	{MinDays: 0, MaxDays: 1, Label: "0-1 day", HeartRate: NormalRange{P2: 93, P50: 123, P98: 154}, QRSAxis: NormalRange{P2: 59, P50: 135, P98: 180}},
	{MinDays: 1, MaxDays: 7, Label: "1-7 days", HeartRate: NormalRange{P2: 91, P50: 128, P98: 164}, QRSAxis: NormalRange{P2: 64, P50: 132, P98: 180}},
	{MinDays: 7, MaxDays: 30, Label: "7-30 days", HeartRate: NormalRange{P2: 107, P50: 149, P98: 182}, QRSAxis: NormalRange{P2: 62, P50: 110, P98: 180}},
	{MinDays: 30, MaxDays: 90, Label: "1-3 months", HeartRate: NormalRange{P2: 121, P50: 156, P98: 179}, QRSAxis: NormalRange{P2: 31, P50: 70, P98: 120}},
	{MinDays: 90, MaxDays: 365, Label: "3-12 months", HeartRate: NormalRange{P2: 106, P50: 142, P98: 177}, QRSAxis: NormalRange{P2: 1, P50: 60, P98: 110}},
	{MinDays: 365, MaxDays: 3 * 365, Label: "1-3 years", HeartRate: NormalRange{P2: 89, P50: 119, P98: 151}, QRSAxis: NormalRange{P2: 1, P50: 60, P98: 110}},
	{MinDays: 3 * 365, MaxDays: 5 * 365, Label: "3-5 years", HeartRate: NormalRange{P2: 73, P50: 98, P98: 138}, QRSAxis: NormalRange{P2: 1, P50: 60, P98: 104}},
	{MinDays: 5 * 365, MaxDays: 8 * 365, Label: "5-8 years", HeartRate: NormalRange{P2: 65, P50: 89, P98: 120}, QRSAxis: NormalRange{P2: 1, P50: 65, P98: 104}},
	{MinDays: 8 * 365, MaxDays: 12 * 365, Label: "8-12 years", HeartRate: NormalRange{P2: 60, P50: 80, P98: 110}, QRSAxis: NormalRange{P2: 1, P50: 65, P98: 104}},
	{MinDays: 12 * 365, MaxDays: 16 * 365, Label: "12-16 years", HeartRate: NormalRange{P2: 55, P50: 75, P98: 105}, QRSAxis: NormalRange{P2: -16, P50: 65, P98: 104}},
	{MinDays: 16 * 365, MaxDays: -1, Label: "adult", HeartRate: NormalRange{P2: 50, P50: 70, P98: 100}, QRSAxis: NormalRange{P2: -30, P50: 50, P98: 90}},
}

// bandForAge returns the ageBand whose [MinDays, MaxDays) contains
// ageDays, or the final unbounded adult band if ageDays exceeds every
// bound. Monotonic: callers never see an earlier band for a larger
// ageDays (see clinical.StageForAge for the analogous developmental-stage
// mapping).
func bandForAge(ageDays int) ageBand {
	for _, b := range ageTable {
		if ageDays >= b.MinDays && (b.MaxDays == -1 || ageDays < b.MaxDays) {
			return b
		}
	}
	return ageTable[len(ageTable)-1]
}

// isNeonatalWindow reports whether ageDays falls within the first 28 days
// of life, the window several interval rules treat leniently.
func isNeonatalWindow(ageDays int) bool {
	return ageDays >= 0 && ageDays < 28
}
