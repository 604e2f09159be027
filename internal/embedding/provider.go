package embedding

import "context"

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding for the given text.
	Embed(ctx context.Context, text string) (Embedding, error)

	// EmbedBatch embeds several texts in one call where the backend allows it.
	// The returned slices are positional; errs[i] != nil means texts[i] failed
	// and embs[i] is the zero Embedding.
	EmbedBatch(ctx context.Context, texts []string) (embs []Embedding, errs []error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// embedEach is the fallback batch implementation: one call per text.
func embedEach(ctx context.Context, p Provider, texts []string) ([]Embedding, []error) {
	embs := make([]Embedding, len(texts))
	errs := make([]error, len(texts))
	for i, text := range texts {
		embs[i], errs[i] = p.Embed(ctx, text)
	}
	return embs, errs
}

// fillErrors returns a slice with err at every position.
func fillErrors(n int, err error) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}
