package summarize

import (
	"context"
	"net/http"
	"strings"

	"github.com/matsen/paperfeed/internal/httputil"
)

const (
	// DefaultOpenAIURL is the default OpenAI-compatible API base.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultRemoteModel is the default remote chat model.
	DefaultRemoteModel = "gpt-4o-mini"

	// DefaultRemoteContext caps prompt size for remote models.
	DefaultRemoteContext = 8192

	maxCompletionTokens = 512
)

// OpenAIBackend calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIBackend struct {
	baseURL string
	apiKey  string
	model   string
	window  int
	retryer *httputil.Retryer
}

// NewOpenAIBackend creates a remote backend. The retryer carries the rate
// limiter and backoff policy.
func NewOpenAIBackend(baseURL, apiKey, model string, contextWindow int, retryer *httputil.Retryer) *OpenAIBackend {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultRemoteModel
	}
	if contextWindow <= 0 {
		contextWindow = DefaultRemoteContext
	}
	return &OpenAIBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		window:  contextWindow,
		retryer: retryer,
	}
}

// Complete sends p and returns the first choice's message.
func (b *OpenAIBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	req := openAIChatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		MaxTokens:   maxCompletionTokens,
		Temperature: 0,
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+b.apiKey)

	var resp openAIChatResponse
	if err := b.retryer.PostJSON(ctx, b.baseURL+"/chat/completions", header, req, &resp, "chat completions"); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ContextWindow returns the configured prompt budget.
func (b *OpenAIBackend) ContextWindow() int { return b.window }

// Name returns "openai/<model>".
func (b *OpenAIBackend) Name() string { return "openai/" + b.model }

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
