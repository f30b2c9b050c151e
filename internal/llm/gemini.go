package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Curated news regularly describes attacks and leaks; the default safety
// thresholds block those replies.
var geminiSafetyCategories = []string{
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
}

// GeminiProvider calls the Gemini generateContent endpoint.
type GeminiProvider struct {
	Model   string
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(model, apiKey, baseURL string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	return &GeminiProvider{
		Model:   model,
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (g *GeminiProvider) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SafetySettings    []geminiSafetySetting  `json:"safetySettings"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends a prompt to Gemini and returns the reply text.
func (g *GeminiProvider) Generate(ctx context.Context, r Request) (string, error) {
	gr := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: r.Prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: r.MaxTokens,
		},
	}
	if r.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: r.System}}}
	}
	if r.Schema != nil {
		gr.GenerationConfig.ResponseMimeType = "application/json"
		gr.GenerationConfig.ResponseSchema = geminiSchema(r.Schema)
	}
	for _, c := range geminiSafetyCategories {
		gr.SafetySettings = append(gr.SafetySettings, geminiSafetySetting{Category: c, Threshold: "BLOCK_NONE"})
	}

	body, err := json.Marshal(gr)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, g.Model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &news.UpstreamError{Service: "gemini", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &news.UpstreamError{Service: "gemini", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", respBody)}
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &news.UpstreamError{Service: "gemini", Err: fmt.Errorf("decoding response: %w", err)}
	}

	if result.PromptFeedback.BlockReason != "" {
		return "", &news.UpstreamError{Service: "gemini", Err: fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason)}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", &news.UpstreamError{Service: "gemini", Err: fmt.Errorf("no content in response")}
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// geminiSchema converts type names to the upper-case OpenAPI form Gemini uses.
func geminiSchema(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Type:     strings.ToUpper(s.Type),
		Items:    geminiSchema(s.Items),
		Required: s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = geminiSchema(v)
		}
	}
	return out
}
