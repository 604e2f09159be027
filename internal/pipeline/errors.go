package pipeline

import "errors"

// Run-level failures. Both abort the run with a non-zero exit; everything
// else (embedding, summarization, enrichment) degrades per item.
var (
	// ErrSourceUnavailable means the corpus or the candidate listing could
	// not be fetched.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrTransport means the digest was assembled but could not be delivered.
	ErrTransport = errors.New("transport failure")
)
