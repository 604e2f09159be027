package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/matsen/paperfeed/internal/httputil"
)

const (
	// DefaultOpenAIURL is the default OpenAI-compatible API base.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the default remote embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"
)

// OpenAIProvider generates embeddings with any OpenAI-compatible
// /embeddings endpoint.
type OpenAIProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	retryer    *httputil.Retryer
}

// NewOpenAIProvider creates a remote embedding provider. dimensions may be
// zero to accept whatever the model returns.
func NewOpenAIProvider(baseURL, apiKey, model string, dimensions int, retryer *httputil.Retryer) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if retryer == nil {
		retryer = httputil.NewRetryer(&http.Client{Timeout: DefaultTimeout}, nil, httputil.DefaultMaxRetries)
	}
	return &OpenAIProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		retryer:    retryer,
	}
}

// Embed generates an embedding for one text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) (Embedding, error) {
	embs, errs := p.EmbedBatch(ctx, []string{text})
	return embs[0], errs[0]
}

// EmbedBatch embeds all texts with a single request. The API either
// succeeds or fails for the whole batch; on failure each text is retried
// alone so one oversized input cannot sink the others.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, []error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embs, err := p.request(ctx, texts)
	if err == nil {
		errs := make([]error, len(texts))
		for i := range embs {
			if errs[i] = p.checkDimensions(len(embs[i].Vector)); errs[i] != nil {
				embs[i] = Embedding{}
			}
		}
		return embs, errs
	}
	if len(texts) == 1 || ctx.Err() != nil {
		return make([]Embedding, len(texts)), fillErrors(len(texts), err)
	}

	embs = make([]Embedding, len(texts))
	errs := make([]error, len(texts))
	for i, text := range texts {
		one, err := p.request(ctx, []string{text})
		if err == nil {
			err = p.checkDimensions(len(one[0].Vector))
		}
		if err != nil {
			errs[i] = err
			continue
		}
		embs[i] = one[0]
	}
	return embs, errs
}

func (p *OpenAIProvider) request(ctx context.Context, texts []string) ([]Embedding, error) {
	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = TruncateText(t)
	}

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("Authorization", "Bearer "+p.apiKey)
	}

	var result openAIEmbedResponse
	err := p.retryer.PostJSON(ctx, p.baseURL+"/embeddings", header,
		openAIEmbedRequest{Model: p.model, Input: inputs}, &result, "embeddings")
	if err != nil {
		return nil, err
	}
	if len(result.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(result.Data), len(texts))
	}

	embs := make([]Embedding, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embeddings API returned out-of-range index %d", d.Index)
		}
		embs[d.Index] = Embedding{Vector: d.Embedding}
	}
	return embs, nil
}

func (p *OpenAIProvider) checkDimensions(got int) error {
	if p.dimensions > 0 && got != p.dimensions {
		return fmt.Errorf("unexpected embedding dimensions: got %d, want %d", got, p.dimensions)
	}
	return nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string {
	return p.model
}

// Dimensions returns the expected vector dimensions, or 0 if unchecked.
func (p *OpenAIProvider) Dimensions() int {
	return p.dimensions
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
