// Package signal implements the Signal Reconstructor: converting a set of
// per-lead RawTraces into an ECGSignal at a configured target sample rate,
// with DC and baseline-wander correction.
package signal

import "github.com/cardiomet/ecgdigit/leadset"

// ECGSignal is the digitized output: a sample rate, a duration, and a
// sparse mapping from LeadName to an ordered array of voltages in
// microvolts. All present leads share the same length =
// round(duration * sampleRate); leads whose source trace failed are
// omitted, never zero-filled.
type ECGSignal struct {
	SampleRate uint
	Duration   float64
	Leads      map[leadset.Name][]float64
}

// NewECGSignal builds an empty signal at the given rate and duration.
func NewECGSignal(sampleRate uint, duration float64) *ECGSignal {
	return &ECGSignal{
		SampleRate: sampleRate,
		Duration:   duration,
		Leads:      make(map[leadset.Name][]float64),
	}
}

// ExpectedLength returns round(duration * sampleRate), the length every
// present lead must share.
func (s *ECGSignal) ExpectedLength() int {
	return int(s.Duration*float64(s.SampleRate) + 0.5)
}

// Has reports whether lead is present in the signal.
func (s *ECGSignal) Has(lead leadset.Name) bool {
	_, ok := s.Leads[lead]
	return ok
}

// Clone deep-copies the signal. Every analyzer that would otherwise mutate
// a signal in place (electrode-swap correction, lead inversion) must
// operate on a Clone and return it, never mutate the input — signals are
// treated as immutable once constructed.
func (s *ECGSignal) Clone() *ECGSignal {
	out := NewECGSignal(s.SampleRate, s.Duration)
	for lead, samples := range s.Leads {
		cp := make([]float64, len(samples))
		copy(cp, samples)
		out.Leads[lead] = cp
	}
	return out
}

// Present returns the leads currently populated, in Pediatric15 order.
func (s *ECGSignal) Present() []leadset.Name {
	var out []leadset.Name
	for _, l := range leadset.Pediatric15 {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}
