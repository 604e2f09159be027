package embedding

import (
	"context"
	"sync"
	"sync/atomic"
)

const (
	// DefaultBatchSize is the number of texts sent per EmbedBatch call.
	DefaultBatchSize = 32

	// DefaultWorkers is the number of batches embedded concurrently.
	DefaultWorkers = 2
)

// ProgressReporter receives progress updates while texts are embedded.
type ProgressReporter interface {
	// OnProgress is called with the number of texts finished so far.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

// BatchOptions configures EmbedAll.
type BatchOptions struct {
	BatchSize int
	Workers   int
	Progress  ProgressReporter // May be called from several goroutines
}

// EmbedAll embeds texts in batches spread across a bounded worker pool.
//
// Results are positional: embs[i] and errs[i] belong to texts[i]. A failed
// text never affects its neighbours beyond its own batch fallback.
// Cancellation marks every unfinished text with ctx.Err().
func EmbedAll(ctx context.Context, p Provider, texts []string, opts BatchOptions) ([]Embedding, []error) {
	embs := make([]Embedding, len(texts))
	errs := make([]error, len(texts))
	if len(texts) == 0 {
		return embs, errs
	}

	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done int64

	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))

		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				copy(errs[lo:hi], fillErrors(hi-lo, err))
				return
			}

			// Each goroutine writes only its own [lo, hi) window.
			be, berr := p.EmbedBatch(ctx, texts[lo:hi])
			for i := lo; i < hi; i++ {
				switch {
				case i-lo < len(berr) && berr[i-lo] != nil:
					errs[i] = berr[i-lo]
				case i-lo < len(be):
					embs[i] = be[i-lo]
				}
			}

			n := atomic.AddInt64(&done, int64(hi-lo))
			if opts.Progress != nil {
				opts.Progress.OnProgress(int(n), len(texts))
			}
		}(start, end)
	}

	wg.Wait()
	return embs, errs
}
