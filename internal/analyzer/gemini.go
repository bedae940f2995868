package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/h2non/filetype"
	"google.golang.org/genai"

	"github.com/kornfeb/Easy-Auto-Video/internal/region"
)

const subjectPrompt = `Analyze this image and identify the most important subject (product, face, or primary object).
Return only a JSON object with the bounding box of the subject in normalized coordinates (0 to 1000):
{"roi": {"ymin": 0, "xmin": 0, "ymax": 1000, "xmax": 1000}, "type": "product|face|object", "confidence": 0.9}
If several subjects exist, prefer the product or the main person.
If there is no clear subject, return {"roi": null, "type": "none"}.`

// generator is the slice of *genai.Models the detector needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiDetector asks a Gemini vision model for the subject box.
type GeminiDetector struct {
	models generator
	model  string
}

// NewGeminiDetector creates a Gemini API client authenticated with apiKey.
func NewGeminiDetector(ctx context.Context, apiKey, model string) (*GeminiDetector, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiDetector{models: client.Models, model: model}, nil
}

func (g *GeminiDetector) Name() string { return "gemini" }

func (g *GeminiDetector) DetectSubject(ctx context.Context, path string) (*Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	mime := "image/jpeg"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mime),
			genai.NewPartFromText(subjectPrompt),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return parseSubject(responseText(resp))
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		break
	}
	value := strings.TrimSpace(sb.String())
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value)
}

type subjectReply struct {
	ROI *struct {
		YMin float64 `json:"ymin"`
		XMin float64 `json:"xmin"`
		YMax float64 `json:"ymax"`
		XMax float64 `json:"xmax"`
	} `json:"roi"`
	Type       string   `json:"type"`
	Confidence *float64 `json:"confidence"`
}

func parseSubject(text string) (*Detection, error) {
	if text == "" {
		return nil, fmt.Errorf("empty model reply")
	}
	var reply subjectReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	if reply.ROI == nil || reply.Type == "none" {
		return nil, nil
	}
	roi := region.ROI{YMin: reply.ROI.YMin, XMin: reply.ROI.XMin, YMax: reply.ROI.YMax, XMax: reply.ROI.XMax}
	if !roi.Valid() {
		return nil, fmt.Errorf("model returned an invalid box %+v", roi)
	}
	conf := 1.0
	if reply.Confidence != nil {
		conf = *reply.Confidence
	}
	kind := reply.Type
	if kind == "" {
		kind = "object"
	}
	return &Detection{ROI: roi, Type: kind, Confidence: conf}, nil
}
