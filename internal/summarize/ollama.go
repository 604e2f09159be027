package summarize

import (
	"context"
	"net/http"
	"strings"

	"github.com/matsen/paperfeed/internal/httputil"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultLocalModel is a small quantized instruction model.
	DefaultLocalModel = "qwen2.5:3b"

	// DefaultLocalContext matches the 4k window the local model runs with.
	DefaultLocalContext = 4096
)

// OllamaBackend runs a local quantized model through Ollama's chat API.
type OllamaBackend struct {
	baseURL string
	model   string
	numCtx  int
	retryer *httputil.Retryer
}

// NewOllamaBackend creates a local backend. Empty values take defaults.
func NewOllamaBackend(baseURL, model string, contextWindow int, client *http.Client) *OllamaBackend {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultLocalModel
	}
	if contextWindow <= 0 {
		contextWindow = DefaultLocalContext
	}
	// Local inference is CPU bound; a single retry covers a model reload.
	return &OllamaBackend{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		numCtx:  contextWindow,
		retryer: httputil.NewRetryer(client, nil, 1),
	}
}

// Complete sends p to /api/chat and returns the assistant message.
func (b *OllamaBackend) Complete(ctx context.Context, p Prompt) (string, error) {
	req := ollamaChatRequest{
		Model:  b.model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		},
		Options: ollamaOptions{NumCtx: b.numCtx, Temperature: 0},
	}

	var resp ollamaChatResponse
	if err := b.retryer.PostJSON(ctx, b.baseURL+"/api/chat", nil, req, &resp, "ollama"); err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ContextWindow returns num_ctx.
func (b *OllamaBackend) ContextWindow() int { return b.numCtx }

// Name returns "ollama/<model>".
func (b *OllamaBackend) Name() string { return "ollama/" + b.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	NumCtx      int     `json:"num_ctx"`
	Temperature float64 `json:"temperature"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}
