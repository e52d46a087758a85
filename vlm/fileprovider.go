package vlm

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileProvider is a Provider stand-in used by tests and demos: it returns
// the canned JSON analysis read from a file rather than calling a remote
// model. It satisfies the same Provider interface as OpenAIProvider, so
// callers needn't distinguish it at runtime.
type FileProvider struct {
	tag  string
	path string
}

// NewFileProvider builds a FileProvider that serves the JSON analysis at
// path, tagged tag.
func NewFileProvider(tag, path string) *FileProvider {
	return &FileProvider{tag: tag, path: path}
}

// Tag identifies this provider for TierResult/cache-key purposes.
func (p *FileProvider) Tag() string { return p.tag }

// Analyze ignores image and returns the parsed contents of the configured
// file, simulating network latency is not attempted: FileProvider is for
// deterministic tests, not load simulation.
func (p *FileProvider) Analyze(ctx context.Context, image Image) (AIAnalysisResult, error) {
	start := time.Now()

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return AIAnalysisResult{}, fmt.Errorf("vlm: fileprovider %s: %w", p.tag, err)
	}

	analysis, confidence, err := ParseAnalysis(string(raw))
	if err != nil {
		return AIAnalysisResult{}, fmt.Errorf("vlm: fileprovider %s: parse: %w", p.tag, err)
	}

	select {
	case <-ctx.Done():
		return AIAnalysisResult{}, ctx.Err()
	default:
	}

	return AIAnalysisResult{
		Confidence:  confidence,
		RawResponse: string(raw),
		Analysis:    analysis,
		ProviderTag: p.tag,
		ModelTag:    "file",
		ElapsedMs:   elapsedMs(start),
	}, nil
}
