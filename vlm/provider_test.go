package vlm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, dir, name string, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return p
}

func fixtureAnalysis(confidence float64, nPanels int) wireAnalysis {
	var w wireAnalysis
	w.Confidence = confidence
	w.Grid.Detected = true
	w.Grid.PxPerMm = 8.5
	for i := 0; i < nPanels; i++ {
		w.Panels = append(w.Panels, struct {
			Lead            string  `json:"lead"`
			X               float64 `json:"x"`
			Y               float64 `json:"y"`
			W               float64 `json:"w"`
			H               float64 `json:"h"`
			BaselineY       float64 `json:"baselineY"`
			Row             int     `json:"row"`
			Col             int     `json:"col"`
			RhythmStrip     bool    `json:"rhythmStrip"`
			StartSec        float64 `json:"startSec"`
			EndSec          float64 `json:"endSec"`
			LabelProvenance string  `json:"labelProvenance"`
			LabelConfidence float64 `json:"labelConfidence"`
			TracePoints     []struct {
				X float64 `json:"xPercent"`
				Y float64 `json:"yPixel"`
			} `json:"tracePoints"`
			CriticalPoints []struct {
				Kind string  `json:"kind"`
				X    float64 `json:"xPercent"`
				Y    float64 `json:"yPixel"`
			} `json:"criticalPoints"`
		}{Lead: "I", BaselineY: 100})
	}
	return w
}

func TestParseAnalysisClampsConfidence(t *testing.T) {
	raw := `{"confidence": 1.5, "grid": {"confidence": -0.2}}`
	a, conf, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if conf != 1 {
		t.Errorf("confidence = %v, want 1", conf)
	}
	if a.Grid.Confidence != 0 {
		t.Errorf("grid confidence = %v, want 0", a.Grid.Confidence)
	}
}

func TestParseAnalysisStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"confidence\": 0.9}\n```"
	_, conf, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("ParseAnalysis: %v", err)
	}
	if conf != 0.9 {
		t.Errorf("confidence = %v, want 0.9", conf)
	}
}

func TestFileProviderAnalyze(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "resp.json", fixtureAnalysis(0.88, 12))

	p := NewFileProvider("fixture", path)
	res, err := p.Analyze(context.Background(), Image{Width: 1, Height: 1, Pixels: make([]byte, 4)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.ProviderTag != "fixture" {
		t.Errorf("ProviderTag = %q, want fixture", res.ProviderTag)
	}
	if len(res.Analysis.Panels) != 12 {
		t.Errorf("len(Panels) = %d, want 12", len(res.Analysis.Panels))
	}
}

func TestEnsembleAnalyzeMajorityVote(t *testing.T) {
	dir := t.TempDir()
	a := NewFileProvider("a", writeFixture(t, dir, "a.json", fixtureAnalysis(0.9, 12)))
	b := NewFileProvider("b", writeFixture(t, dir, "b.json", fixtureAnalysis(0.8, 12)))
	c := NewFileProvider("c", writeFixture(t, dir, "c.json", fixtureAnalysis(0.7, 8)))

	ens := NewEnsemble(a, b, c)
	res, err := ens.Analyze(context.Background(), Image{Width: 1, Height: 1, Pixels: make([]byte, 4)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(res.Analysis.Panels) != 12 {
		t.Errorf("len(Panels) = %d, want 12 (majority)", len(res.Analysis.Panels))
	}
	if res.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want median 0.8", res.Confidence)
	}
}

func TestBestOfEnsembleAnalyzePicksHighestConfidence(t *testing.T) {
	dir := t.TempDir()
	a := NewFileProvider("a", writeFixture(t, dir, "a.json", fixtureAnalysis(0.6, 12)))
	b := NewFileProvider("b", writeFixture(t, dir, "b.json", fixtureAnalysis(0.95, 8)))

	ens := NewBestOfEnsemble(a, b)
	res, err := ens.Analyze(context.Background(), Image{Width: 1, Height: 1, Pixels: make([]byte, 4)})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Confidence != 0.95 {
		t.Errorf("Confidence = %v, want 0.95 (best member, not median)", res.Confidence)
	}
	if len(res.Analysis.Panels) != 8 {
		t.Errorf("len(Panels) = %d, want 8 (best member's own panels, not majority)", len(res.Analysis.Panels))
	}
}

func TestEnsembleAllMembersFail(t *testing.T) {
	ens := NewEnsemble(NewFileProvider("missing", "/nonexistent/path.json"))
	if _, err := ens.Analyze(context.Background(), Image{}); err == nil {
		t.Error("Analyze with all-failing members returned nil error")
	}
}
