package imagery

import (
	"testing"

	"github.com/cardiomet/ecgdigit/config"
)

// syntheticGridImage draws a white page with vertical dark lines every
// spacingPx pixels, simulating a printed millimeter grid for
// detectGridSpacing to recover.
func syntheticGridImage(w, h, spacingPx int) Image {
	pixels := make([]byte, w*h*4)
	for i := range pixels {
		pixels[i] = 255
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x += spacingPx {
			for dx := 0; dx < 2 && x+dx < w; dx++ {
				i := (y*w + (x + dx)) * 4
				pixels[i] = 180
				pixels[i+1] = 180
				pixels[i+2] = 180
				pixels[i+3] = 255
			}
		}
	}
	return Image{Width: w, Height: h, Pixels: pixels}
}

func TestDetectGridSpacingRecoversPeriod(t *testing.T) {
	img := syntheticGridImage(400, 100, 10)
	_, darkness := estimateBackground(img)
	px, conf := detectGridSpacing(img, darkness)
	if px < 8 || px > 12 {
		t.Errorf("detectGridSpacing px = %v, want ~10", px)
	}
	if conf <= 0 {
		t.Errorf("detectGridSpacing confidence = %v, want > 0", conf)
	}
}

func TestClusterPanelRowsFindsBands(t *testing.T) {
	img := blankImage(200, 120)
	for y := 10; y < 30; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 4
			img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2] = 0, 0, 0
		}
	}
	_, darkness := estimateBackground(img)
	rows := clusterPanelRows(img, darkness)
	if len(rows) == 0 {
		t.Fatal("clusterPanelRows found no bands")
	}
}

func TestAnalyzeLocalCVProducesPanels(t *testing.T) {
	cfg := &config.Config{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	img := syntheticGridImage(400, 300, 8)
	res, err := analyzeLocalCV(cfg, img)
	if err != nil {
		t.Fatalf("analyzeLocalCV: %v", err)
	}
	if len(res.Panels) == 0 {
		t.Error("analyzeLocalCV produced no panels")
	}
	if res.Method != MethodLocalCV {
		t.Errorf("Method = %v, want MethodLocalCV", res.Method)
	}
}

func TestEstimateBaselineWithinBounds(t *testing.T) {
	img := blankImage(100, 100)
	for y := 40; y < 60; y++ {
		for x := 0; x < 100; x++ {
			i := (y*100 + x) * 4
			img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2] = 0, 0, 0
		}
	}
	_, darkness := estimateBackground(img)
	p := Panel{Bounds: Rect{X: 0, Y: 0, W: 100, H: 100}}
	baseline := estimateBaseline(img, darkness, p)
	if baseline < 40 || baseline > 60 {
		t.Errorf("estimateBaseline = %v, want within [40,60]", baseline)
	}
}
