package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

const geminiPrompt = `This image is an earnings calendar or a list of upcoming earnings announcements.
Transcribe all visible text exactly, keeping one line per row of the image.
List every company logo you can recognize by company name.
Do not infer dates or tickers that are not visible.`

var geminiSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"fullText": {Type: genai.TypeString},
		"logos": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"label": {Type: genai.TypeString},
					"score": {Type: genai.TypeNumber},
				},
				Required: []string{"label"},
			},
		},
	},
	Required: []string{"fullText", "logos"},
}

// GeminiClient asks a Gemini model to transcribe the image and name the
// logos it sees. It has no bounding boxes.
type GeminiClient struct {
	client   *genai.Client
	model    string
	maxLogos int
}

func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	key := os.Getenv(cfg.GeminiAPIKeyEnv)
	if key == "" {
		return nil, &InitError{Provider: ProviderGemini, Err: fmt.Errorf("%s is not set", cfg.GeminiAPIKeyEnv)}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &InitError{Provider: ProviderGemini, Err: err}
	}

	model := cfg.GeminiModel
	if model == "" {
		model = defaultGeminiModel
	}
	maxLogos := cfg.MaxLogos
	if maxLogos <= 0 {
		maxLogos = DefaultMaxLogos
	}
	return &GeminiClient{client: client, model: model, maxLogos: maxLogos}, nil
}

func (g *GeminiClient) Annotate(ctx context.Context, image []byte) (*Result, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0)),
		ResponseMIMEType: "application/json",
		ResponseSchema:   geminiSchema,
	}
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromBytes(image, http.DetectContentType(image)),
			genai.NewPartFromText(geminiPrompt),
		},
	}}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate (model %s): %w", g.model, err)
	}
	res, err := decodeGemini(resp.Text())
	if err != nil {
		return nil, err
	}
	if len(res.Logos) > g.maxLogos {
		res.Logos = res.Logos[:g.maxLogos]
	}
	return res, nil
}

type geminiPayload struct {
	FullText string `json:"fullText"`
	Logos    []struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	} `json:"logos"`
}

// decodeGemini parses model output, tolerating code fences and the
// malformed JSON models sometimes emit.
func decodeGemini(text string) (*Result, error) {
	text = stripCodeFence(text)
	if text == "" {
		return nil, errors.New("gemini returned an empty response")
	}

	repaired, err := jsonrepair.RepairJSON(text)
	if err != nil {
		return nil, fmt.Errorf("repairing gemini response: %w", err)
	}

	var p geminiPayload
	if err := json.Unmarshal([]byte(repaired), &p); err != nil {
		return nil, fmt.Errorf("decoding gemini response: %w", err)
	}

	res := &Result{FullText: p.FullText}
	for _, l := range p.Logos {
		if label := strings.TrimSpace(l.Label); label != "" {
			res.Logos = append(res.Logos, Logo{Label: label, Score: l.Score})
		}
	}
	return res, nil
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	end := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:end], "\n"))
}
