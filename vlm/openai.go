package vlm

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider is a concrete Provider backed by an OpenAI-compatible
// vision chat-completion endpoint. It is one variant of the Provider
// capability; nothing elsewhere in the package knows its concrete type.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	tag    string
	prompt string
}

// NewOpenAIProvider builds a Provider using apiKey against the default
// OpenAI API surface. tag identifies this provider instance in
// TierResult/cache-key contexts (e.g. "openai-fast", "openai-premium").
func NewOpenAIProvider(apiKey, model, tag string) *OpenAIProvider {
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		tag:    tag,
		prompt: defaultAnalysisPrompt,
	}
}

// Tag identifies this provider for TierResult/cache-key purposes.
func (p *OpenAIProvider) Tag() string { return p.tag }

// Analyze submits image as a base64-encoded vision message and parses the
// model's JSON reply into an AIAnalysisResult.
func (p *OpenAIProvider) Analyze(ctx context.Context, image Image) (AIAnalysisResult, error) {
	start := time.Now()

	png, err := encodePNG(image)
	if err != nil {
		return AIAnalysisResult{}, fmt.Errorf("vlm: encode image: %w", err)
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: p.prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return AIAnalysisResult{}, fmt.Errorf("vlm: %s: %w", p.tag, err)
	}
	if len(resp.Choices) == 0 {
		return AIAnalysisResult{}, fmt.Errorf("vlm: %s: empty response", p.tag)
	}

	raw := resp.Choices[0].Message.Content
	analysis, confidence, err := ParseAnalysis(raw)
	if err != nil {
		return AIAnalysisResult{}, fmt.Errorf("vlm: %s: parse response: %w", p.tag, err)
	}

	return AIAnalysisResult{
		Confidence:  confidence,
		RawResponse: raw,
		Analysis:    analysis,
		ProviderTag: p.tag,
		ModelTag:    p.model,
		ElapsedMs:   elapsedMs(start),
	}, nil
}

const defaultAnalysisPrompt = `You are analyzing a scanned or photographed 12- or 15-lead ECG page.
Report, as JSON: grid type and pixels-per-millimeter, waveform color and
grid-line colors, calibration (gain in mm/mV, paper speed in mm/s, and
whether a calibration pulse was found or assumed), a panel list (one per
lead) with pixel bounds and baseline Y, and optionally up to 41 trace
points and labeled P/R/S/T critical points per panel. Respond with a single
JSON object matching the documented schema.`
