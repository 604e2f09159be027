package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matsen/paperfeed/internal/httputil"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is a small sentence-transformer that runs on CPU.
	DefaultModel = "all-minilm:l6-v2"

	// DefaultDimensions is the output size of DefaultModel.
	DefaultDimensions = 384

	// DefaultTimeout bounds one embedding request.
	DefaultTimeout = 60 * time.Second

	apiPathTags       = "/api/tags"
	apiPathEmbeddings = "/api/embeddings" // one text per call
	apiPathEmbed      = "/api/embed"      // batched
)

// OllamaProvider embeds text with a local Ollama server.
type OllamaProvider struct {
	baseURL    string
	model      string
	dimensions int
	retryer    *httputil.Retryer
}

// OllamaOption configures an OllamaProvider.
type OllamaOption func(*OllamaProvider)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) OllamaOption {
	return func(p *OllamaProvider) {
		p.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel sets the embedding model.
func WithModel(model string) OllamaOption {
	return func(p *OllamaProvider) {
		p.model = model
	}
}

// WithDimensions sets the expected vector dimensions. Zero disables the check.
func WithDimensions(dims int) OllamaOption {
	return func(p *OllamaProvider) {
		p.dimensions = dims
	}
}

// WithRetryer replaces the HTTP retryer, e.g. to change the client timeout.
func WithRetryer(r *httputil.Retryer) OllamaOption {
	return func(p *OllamaProvider) {
		p.retryer = r
	}
}

// NewOllamaProvider creates a new Ollama embedding provider.
func NewOllamaProvider(opts ...OllamaOption) *OllamaProvider {
	p := &OllamaProvider{
		baseURL:    DefaultOllamaURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		retryer:    httputil.NewRetryer(&http.Client{Timeout: DefaultTimeout}, nil, httputil.DefaultMaxRetries),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed generates an embedding for the given text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	req := ollamaEmbedRequest{Model: p.model, Prompt: TruncateText(text)}

	var result ollamaEmbedResponse
	if err := p.retryer.PostJSON(ctx, p.baseURL+apiPathEmbeddings, nil, req, &result, "ollama"); err != nil {
		return Embedding{}, err
	}
	if err := p.checkDimensions(len(result.Embedding)); err != nil {
		return Embedding{}, err
	}
	return Embedding{Vector: result.Embedding}, nil
}

// EmbedBatch embeds all texts with one /api/embed call. If the batch call
// fails as a whole, each text is retried individually so a single bad input
// only degrades itself.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, []error) {
	if len(texts) == 0 {
		return nil, nil
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = TruncateText(t)
	}

	var result ollamaBatchResponse
	err := p.retryer.PostJSON(ctx, p.baseURL+apiPathEmbed, nil, ollamaBatchRequest{Model: p.model, Input: inputs}, &result, "ollama")
	if err == nil && len(result.Embeddings) != len(texts) {
		err = fmt.Errorf("ollama returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	if err != nil {
		if ctx.Err() != nil {
			return make([]Embedding, len(texts)), fillErrors(len(texts), err)
		}
		return embedEach(ctx, p, texts)
	}

	embs := make([]Embedding, len(texts))
	errs := make([]error, len(texts))
	for i, vec := range result.Embeddings {
		if errs[i] = p.checkDimensions(len(vec)); errs[i] == nil {
			embs[i] = Embedding{Vector: vec}
		}
	}
	return embs, errs
}

func (p *OllamaProvider) checkDimensions(got int) error {
	if p.dimensions > 0 && got != p.dimensions {
		return fmt.Errorf("unexpected embedding dimensions: got %d, want %d", got, p.dimensions)
	}
	return nil
}

// ModelName returns the name of the embedding model.
func (p *OllamaProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int {
	return p.dimensions
}

// Check verifies that the server answers and has the model pulled. Tags
// like "all-minilm" match "all-minilm:latest".
func (p *OllamaProvider) Check(ctx context.Context) error {
	var tags ollamaTagsResponse
	if err := p.retryer.GetJSON(ctx, p.baseURL+apiPathTags, nil, &tags, "ollama"); err != nil {
		return fmt.Errorf("ollama is not reachable at %s: %w", p.baseURL, err)
	}

	want := p.model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range tags.Models {
		if m.Name == want || m.Name == p.model {
			return nil
		}
	}
	return fmt.Errorf("ollama model %q is not pulled; run: ollama pull %s", p.model, p.model)
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaBatchRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaBatchResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
