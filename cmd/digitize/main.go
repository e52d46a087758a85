// Command digitize runs the ECG digitization and interpretation pipeline
// against a single scanned or photographed strip and prints the resulting
// Interpretation.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	stddraw "image/draw"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/cardiomet/ecgdigit/cache"
	"github.com/cardiomet/ecgdigit/config"
	"github.com/cardiomet/ecgdigit/digitize"
	"github.com/cardiomet/ecgdigit/imagery"
	"github.com/cardiomet/ecgdigit/interpret"
	"github.com/cardiomet/ecgdigit/refine"
	"github.com/cardiomet/ecgdigit/vlm"
)

// Current software version.
const version = "v0.1.0"

// Logging configuration, mirroring the rotation policy of a long-lived
// netsender client even though this command is a short-lived batch job.
const (
	logPath      = "digitize.log"
	logMaxSize   = 50 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
)

// maxInputDimension bounds the longest side of a decoded input photo
// before it enters the pipeline; phone-camera photos routinely exceed
// 4000px on a side, far beyond anything the grid-spacing and panel-layout
// passes need.
const maxInputDimension = 2000

func main() {
	showVersion := flag.Bool("version", false, "show version")
	imagePath := flag.String("image", "", "path to a scanned or photographed ECG strip")
	ageDaysFlag := flag.Int("age-days", -1, "patient age in days; omit if unknown")
	openAIModel := flag.String("openai-model", "gpt-4o", "OpenAI vision model to use as the Tier 1 provider")
	autoCorrectSwap := flag.Bool("correct-swap", false, "apply the suggested electrode-swap correction automatically")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}
	if *imagePath == "" {
		fmt.Fprintln(os.Stderr, "digitize: -image is required")
		os.Exit(2)
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logging.Info, io.MultiWriter(os.Stderr, fileLog), true)

	jobID := uuid.NewString()
	log.Info("starting digitize", "version", version, "job", jobID, "image", *imagePath)

	img, err := loadImage(*imagePath)
	if err != nil {
		log.Fatal("could not load image", "job", jobID, "error", errors.Wrap(err, "loadImage").Error())
	}

	cfg := &config.Config{Logger: log}
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", "job", jobID, "error", err.Error())
	}

	c := cache.New(cfg.CacheTTL, cfg.CacheEphemeral)
	providers := buildProviders(*openAIModel)

	var ageDays *int
	if *ageDaysFlag >= 0 {
		ageDays = ageDaysFlag
	}

	d := digitize.New(cfg, c, digitize.Options{
		AutoCorrectSwap: *autoCorrectSwap,
		Interpretation:  interpret.Options{},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := d.Run(ctx, img, providers, ageDays)
	if err != nil {
		log.Fatal("digitization failed", "job", jobID, "error", errors.Wrap(err, "digitize.Run").Error())
	}

	printSummary(jobID, result)
}

// buildProviders wires a Tier 1 OpenAI provider when an API key is
// available in the environment. Tiers 2/3 are left empty, so the
// Orchestrator skips them; its local-CV attempt always runs.
func buildProviders(model string) refine.TierProviders {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return refine.TierProviders{}
	}
	return refine.TierProviders{
		Tier1: vlm.NewOpenAIProvider(key, model, "openai-tier1"),
	}
}

// loadImage decodes a PNG/JPEG file and downscales it to maxInputDimension
// on its longest side before handing it to the pipeline.
func loadImage(path string) (imagery.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return imagery.Image{}, errors.Wrap(err, "open")
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return imagery.Image{}, errors.Wrap(err, "decode")
	}
	src = downscale(src, maxInputDimension)

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	rgba := image.NewRGBA(bounds)
	stddraw.Draw(rgba, bounds, src, bounds.Min, stddraw.Src)

	return imagery.NewImage(w, h, rgba.Pix), nil
}

// downscale shrinks img so its longest side is at most maxDim, preserving
// aspect ratio; images already within bounds are returned unchanged.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(longest)
	dstW, dstH := int(float64(w)*scale), int(float64(h)*scale)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func printSummary(jobID string, r *digitize.DigitizerResult) {
	fmt.Printf("job:            %s\n", jobID)
	fmt.Printf("leads found:    %d\n", len(r.Signal.Present()))
	fmt.Printf("validator score: %.2f\n", r.Validation.Score)
	fmt.Printf("rhythm:         %s (%d bpm)\n", r.Rhythm.Code, int(r.Rhythm.HeartRateBpm))
	if r.Swap.SwapType != "NONE" {
		fmt.Printf("electrode swap: %s (confidence %.2f)\n", r.Swap.SwapType, r.Swap.Confidence)
	}
	fmt.Printf("conclusion:     %s\n", r.Interpretation.Summary.Conclusion)
	fmt.Printf("urgency:        %s\n", r.Interpretation.Summary.Urgency)
	fmt.Printf("one-liner:      %s\n", r.Interpretation.Summary.OneLiner)
	if r.Interpretation.Summary.RecommendReview {
		fmt.Println("recommend clinician review")
	}
}
