package embedding

import (
	"context"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Memo wraps a Provider and remembers embeddings for the lifetime of one
// run, so a paper that appears in both the library and the day's listing is
// embedded once. Nothing is written to disk.
type Memo struct {
	Provider

	mu    sync.Mutex
	cache map[[blake2b.Size256]byte]Embedding
	hits  int
}

// NewMemo returns a memoizing wrapper around p.
func NewMemo(p Provider) *Memo {
	return &Memo{Provider: p, cache: make(map[[blake2b.Size256]byte]Embedding)}
}

func (m *Memo) key(text string) [blake2b.Size256]byte {
	// The NUL separator keeps (model, text) pairs unambiguous.
	return blake2b.Sum256([]byte(m.ModelName() + "\x00" + text))
}

func (m *Memo) lookup(k [blake2b.Size256]byte) (Embedding, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cache[k]
	if ok {
		m.hits++
	}
	return e, ok
}

func (m *Memo) store(k [blake2b.Size256]byte, e Embedding) {
	m.mu.Lock()
	m.cache[k] = e
	m.mu.Unlock()
}

// Embed returns the remembered embedding for text or computes it.
func (m *Memo) Embed(ctx context.Context, text string) (Embedding, error) {
	k := m.key(text)
	if e, ok := m.lookup(k); ok {
		return e, nil
	}
	e, err := m.Provider.Embed(ctx, text)
	if err != nil {
		return Embedding{}, err
	}
	m.store(k, e)
	return e, nil
}

// EmbedBatch forwards only the texts not already remembered.
func (m *Memo) EmbedBatch(ctx context.Context, texts []string) ([]Embedding, []error) {
	embs := make([]Embedding, len(texts))
	errs := make([]error, len(texts))

	keys := make([][blake2b.Size256]byte, len(texts))
	var missing []int
	var missingTexts []string
	for i, text := range texts {
		keys[i] = m.key(text)
		if e, ok := m.lookup(keys[i]); ok {
			embs[i] = e
			continue
		}
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}
	if len(missing) == 0 {
		return embs, errs
	}

	got, gotErrs := m.Provider.EmbedBatch(ctx, missingTexts)
	for j, i := range missing {
		if j < len(gotErrs) && gotErrs[j] != nil {
			errs[i] = gotErrs[j]
			continue
		}
		if j < len(got) {
			embs[i] = got[j]
			m.store(keys[i], got[j])
		}
	}
	return embs, errs
}

// Hits returns how many lookups were served from memory.
func (m *Memo) Hits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits
}

// Len returns the number of remembered embeddings.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cache)
}
