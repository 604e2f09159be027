// Package summarize produces short TLDRs for candidate papers using a local
// or remote language model.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/matsen/paperfeed/internal/httputil"
)

// Backend names accepted by New.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// ErrEmptyCompletion is returned when a model answers with no text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Prompt is one chat exchange sent to a Backend.
type Prompt struct {
	System string
	User   string
}

// Backend completes prompts with a language model.
type Backend interface {
	Complete(ctx context.Context, p Prompt) (string, error)

	// ContextWindow returns the model's context size in tokens.
	ContextWindow() int

	// Name identifies the backend and model for logs.
	Name() string
}

// Config selects and configures a Backend.
type Config struct {
	Backend           string
	Model             string
	URL               string
	APIKey            string
	ContextWindow     int
	MaxRetries        int // 0 disables retries
	RequestsPerMinute int
	HTTPTimeout       time.Duration
}

// New builds the Backend named by cfg.Backend.
func New(cfg Config) (Backend, error) {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.Backend {
	case BackendLocal, "":
		return NewOllamaBackend(cfg.URL, cfg.Model, cfg.ContextWindow, client), nil
	case BackendRemote:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("remote summarization backend needs an API key")
		}
		retryer := httputil.NewRetryer(client, httputil.PerMinute(cfg.RequestsPerMinute), cfg.MaxRetries)
		return NewOpenAIBackend(cfg.URL, cfg.APIKey, cfg.Model, cfg.ContextWindow, retryer), nil
	default:
		return nil, fmt.Errorf("unknown summarization backend %q (want %s or %s)", cfg.Backend, BackendLocal, BackendRemote)
	}
}

const defaultHTTPTimeout = 5 * time.Minute
