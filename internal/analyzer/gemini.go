// Package analyzer classifies hair photos with Gemini.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	dom "github.com/ramtunguturi36/hair/internal/domain"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const prompt = `Analyze this hair image as a trichologist. Return a JSON object with this structure:
{
  "analysis": "Markdown formatted detailed analysis identifying hair type, texture, scalp condition, issues, recommendations, and key ingredients.",
  "hairType": "Short string of the dominant hair type e.g. 'Type 3 Curly', 'Type 4 Coily', 'Type 1 Straight', 'Type 2 Wavy', 'Bald'",
  "confidence": 85,
  "probabilities": [
    { "name": "Type 1 Straight", "percentage": 10 },
    { "name": "Type 2 Wavy", "percentage": 20 },
    { "name": "Type 3 Curly", "percentage": 60 },
    { "name": "Type 4 Coily", "percentage": 10 }
  ]
}
Ensure 'probabilities' sum to roughly 100. 'hairType' should match the highest percentage.`

var errEmptyResponse = errors.New("gemini returned no content")

// Gemini is a service.HairAnalyzer backed by the Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini dials the Gemini API. Close releases the client.
func NewGemini(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*Gemini, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.ResponseMIMEType = "application/json"
	return &Gemini{client: client, model: m}, nil
}

// Analyze sends the photo with the classification prompt.
func (g *Gemini) Analyze(ctx context.Context, image []byte, mimeType string) (service.AnalyzerResult, error) {
	format := strings.TrimPrefix(mimeType, "image/")
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt), genai.ImageData(format, image))
	if err != nil {
		return service.AnalyzerResult{}, fmt.Errorf("gemini generate: %w", err)
	}
	return parseResponse(resp)
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func parseResponse(resp *genai.GenerateContentResponse) (service.AnalyzerResult, error) {
	var sb strings.Builder
	if resp != nil {
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					sb.WriteString(string(t))
				}
			}
			break
		}
	}
	if sb.Len() == 0 {
		return service.AnalyzerResult{}, errEmptyResponse
	}
	return decodeResult(sb.String())
}

type geminiResult struct {
	Analysis      string              `json:"analysis"`
	HairType      string              `json:"hairType"`
	Confidence    float64             `json:"confidence"`
	Probabilities []geminiProbability `json:"probabilities"`
}

type geminiProbability struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// decodeResult parses the model's JSON answer. Some responses still arrive
// wrapped in a markdown code fence.
func decodeResult(text string) (service.AnalyzerResult, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var raw geminiResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return service.AnalyzerResult{}, fmt.Errorf("decode gemini answer: %w", err)
	}

	out := service.AnalyzerResult{
		Summary:       raw.Analysis,
		HairType:      strings.TrimSpace(raw.HairType),
		Confidence:    clampPercent(raw.Confidence),
		Probabilities: make([]dom.HairProbability, 0, len(raw.Probabilities)),
	}
	best := -1
	for i, p := range raw.Probabilities {
		hp := dom.HairProbability{Name: p.Name, Percentage: clampPercent(p.Percentage)}
		out.Probabilities = append(out.Probabilities, hp)
		if best < 0 || hp.Percentage > out.Probabilities[best].Percentage {
			best = i
		}
	}
	if out.HairType == "" && best >= 0 {
		out.HairType = out.Probabilities[best].Name
	}
	if out.HairType == "" {
		return service.AnalyzerResult{}, fmt.Errorf("decode gemini answer: no hair type")
	}
	return out, nil
}

func clampPercent(v float64) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return int(v + 0.5)
}
