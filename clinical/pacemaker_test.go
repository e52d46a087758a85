package clinical

import (
	"testing"

	"github.com/cardiomet/ecgdigit/leadset"
	"github.com/cardiomet/ecgdigit/signal"
)

// pacedSignal builds a flat lead II with narrow 1000uV spikes every
// periodSamples, simulating VVI pacing.
func pacedSignal(n int, sampleRate uint, periodSamples int) *signal.ECGSignal {
	sig := signal.NewECGSignal(sampleRate, float64(n)/float64(sampleRate))
	samples := make([]float64, n)
	for k := periodSamples; k < n-1; k += periodSamples {
		samples[k] = 1000
	}
	sig.Leads[leadset.II] = samples
	return sig
}

// ddSignal builds paired atrial/ventricular spikes 150ms apart, repeated
// every periodSamples, simulating DDD pacing.
func ddSignal(n int, sampleRate uint, periodSamples, avDelaySamples int) *signal.ECGSignal {
	sig := signal.NewECGSignal(sampleRate, float64(n)/float64(sampleRate))
	samples := make([]float64, n)
	for k := periodSamples; k < n-avDelaySamples-1; k += periodSamples {
		samples[k] = 600
		samples[k+avDelaySamples] = 1000
	}
	sig.Leads[leadset.II] = samples
	return sig
}

func TestDetectPacemakerVVI(t *testing.T) {
	sig := pacedSignal(2000, 500, 400) // 400-sample (800ms) period -> ~75bpm
	result := DetectPacemaker(sig)
	if len(result.Spikes) == 0 {
		t.Fatal("expected spikes to be detected")
	}
	if result.Mode != PacingVVI {
		t.Errorf("Mode = %v, want VVI for isolated ventricular-only spikes", result.Mode)
	}
	if result.PacingRateBpm < 50 || result.PacingRateBpm > 100 {
		t.Errorf("PacingRateBpm = %v, want roughly 75", result.PacingRateBpm)
	}
}

func TestDetectPacemakerDDD(t *testing.T) {
	sampleRate := uint(500)
	avDelaySamples := int(0.15 * float64(sampleRate)) // 150ms, within the 100-300ms pair window
	sig := ddSignal(3000, sampleRate, 400, avDelaySamples)
	result := DetectPacemaker(sig)

	hasAtrial, hasVentricular := false, false
	for _, s := range result.Spikes {
		if s.Kind == SpikeAtrial {
			hasAtrial = true
		}
		if s.Kind == SpikeVentricular {
			hasVentricular = true
		}
	}
	if !hasAtrial || !hasVentricular {
		t.Fatalf("expected both atrial and ventricular spikes, got %+v", result.Spikes)
	}
	if result.Mode != PacingDDD {
		t.Errorf("Mode = %v, want DDD for paired atrial/ventricular spikes", result.Mode)
	}
}

func TestDetectPacemakerNoSpikesIsNA(t *testing.T) {
	sig := signal.NewECGSignal(500, 1)
	sig.Leads[leadset.II] = make([]float64, 500)
	result := DetectPacemaker(sig)
	if result.Mode != PacingNA {
		t.Errorf("Mode = %v, want N/A for a flat signal with no spikes", result.Mode)
	}
}

func TestSensingIssuesFlagsUndersensing(t *testing.T) {
	sig := pacedSignal(1000, 500, 100) // 200ms period, below the 300ms floor
	result := DetectPacemaker(sig)
	found := false
	for _, issue := range result.Issues {
		if issue == "undersensing: inter-spike interval below 300ms" {
			found = true
		}
	}
	if !found {
		t.Error("expected an undersensing issue for closely spaced spikes")
	}
}
