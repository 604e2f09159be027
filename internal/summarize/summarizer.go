package summarize

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matsen/paperfeed/internal/reference"
)

// DefaultTimeout bounds one summary. A local 3B model on CPU needs about
// 70 seconds per paper.
const DefaultTimeout = 3 * time.Minute

// Summarizer writes TLDRs with a Backend under a per-item timeout.
type Summarizer struct {
	backend Backend
	timeout time.Duration
	log     zerolog.Logger
}

// NewSummarizer wraps backend. timeout <= 0 uses DefaultTimeout.
func NewSummarizer(backend Backend, timeout time.Duration, log zerolog.Logger) *Summarizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Summarizer{backend: backend, timeout: timeout, log: log}
}

// Summarize returns a TLDR for paper in lang, or "" when the backend fails
// or the timeout expires. Failures are logged, never returned.
func (s *Summarizer) Summarize(ctx context.Context, paper reference.CandidatePaper, lang string) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	prompt := BuildPrompt(paper, lang, s.backend.ContextWindow())

	// The backend may not honour ctx promptly, so wait on both.
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := s.backend.Complete(ctx, prompt)
		done <- result{text, err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}

	if r.err != nil {
		ev := s.log.Warn()
		if errors.Is(r.err, context.DeadlineExceeded) {
			ev = ev.Dur("timeout", s.timeout)
		}
		ev.Err(r.err).Str("paper", paper.ID).Str("backend", s.backend.Name()).Msg("summary omitted")
		return ""
	}

	s.log.Debug().Str("paper", paper.ID).Dur("took", time.Since(start)).Msg("summarized")
	return r.text
}

// SummarizeAll summarizes papers with a pool of concurrency workers that
// take papers in the given order, and returns TLDRs keyed by paper ID.
// Papers whose summary failed are absent from the map. Each task has its
// own timeout, so a slow paper never cancels another. concurrency <= 1 runs
// sequentially in rank order.
func (s *Summarizer) SummarizeAll(ctx context.Context, papers []reference.CandidatePaper, lang string, concurrency int) map[string]string {
	out := make(map[string]string, len(papers))
	if len(papers) == 0 {
		return out
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(papers) {
		concurrency = len(papers)
	}

	queue := make(chan reference.CandidatePaper)
	go func() {
		defer close(queue)
		for _, p := range papers {
			select {
			case queue <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range queue {
				if ctx.Err() != nil {
					continue
				}
				text := s.Summarize(ctx, p, lang)
				if text == "" {
					continue
				}
				mu.Lock()
				out[p.ID] = text
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return out
}
