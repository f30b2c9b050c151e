package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

// OpenAIProvider is an OpenAI chat completions provider.
type OpenAIProvider struct {
	Model  string
	client openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(model, apiKey, baseURL string, timeout time.Duration) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIProvider{
		Model:  model,
		client: openai.NewClient(opts...),
	}
}

func (o *OpenAIProvider) Name() string { return "openai" }

// Generate sends a prompt to OpenAI and returns the reply.
func (o *OpenAIProvider) Generate(ctx context.Context, r Request) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if r.System != "" {
		messages = append(messages, openai.SystemMessage(r.System))
	}
	messages = append(messages, openai.UserMessage(r.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.Model),
		Messages: messages,
	}
	if r.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(r.MaxTokens))
	}
	if r.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		upstream := &news.UpstreamError{Service: "openai", Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			upstream.StatusCode = apiErr.StatusCode
		}
		return "", upstream
	}

	if len(resp.Choices) == 0 {
		return "", &news.UpstreamError{Service: "openai", Err: fmt.Errorf("no choices in response")}
	}
	return resp.Choices[0].Message.Content, nil
}
