package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/matsen/paperfeed/internal/arxiv"
	"github.com/matsen/paperfeed/internal/config"
	"github.com/matsen/paperfeed/internal/corpus"
	"github.com/matsen/paperfeed/internal/embedding"
	"github.com/matsen/paperfeed/internal/httputil"
	"github.com/matsen/paperfeed/internal/importer"
	"github.com/matsen/paperfeed/internal/logger"
	"github.com/matsen/paperfeed/internal/notify"
	"github.com/matsen/paperfeed/internal/pathfilter"
	"github.com/matsen/paperfeed/internal/pipeline"
	"github.com/matsen/paperfeed/internal/summarize"
	"github.com/matsen/paperfeed/internal/zotero"
)

// newCorpusSource picks the library source: an export file, a local
// zotero.sqlite, or the Zotero web API, in that order.
func newCorpusSource(cfg *config.Config, log logger.Logger) corpus.Source {
	switch {
	case cfg.Corpus.File != "":
		return importer.FileSource{Path: cfg.Corpus.File}
	case cfg.Zotero.LocalDB != "":
		return zotero.NewLocalSource(cfg.Zotero.LocalDB, logger.Named(log, "zotero"))
	default:
		c := zotero.NewWebClient(cfg.Zotero.ID, cfg.Zotero.LibraryType, cfg.Zotero.APIKey, logger.Named(log, "zotero"))
		c.AllowPartial = cfg.Corpus.AllowPartial
		return c
	}
}

func newEmbedder(cfg *config.Config) embedding.Provider {
	e := cfg.Embedding
	if e.Provider == "openai" {
		client := &http.Client{Timeout: embedding.DefaultTimeout}
		return embedding.NewOpenAIProvider(e.URL, e.APIKey, e.Model, e.Dimensions,
			httputil.NewRetryer(client, nil, httputil.DefaultMaxRetries))
	}

	opts := []embedding.OllamaOption{embedding.WithDimensions(e.Dimensions)}
	if e.URL != "" {
		opts = append(opts, embedding.WithBaseURL(e.URL))
	}
	if e.Model != "" {
		opts = append(opts, embedding.WithModel(e.Model))
	}
	return embedding.NewOllamaProvider(opts...)
}

func newSummarizer(cfg *config.Config, log logger.Logger) (*summarize.Summarizer, error) {
	s := cfg.Summarize
	backend, err := summarize.New(summarize.Config{
		Backend:           s.Backend,
		Model:             s.Model,
		URL:               s.URL,
		APIKey:            s.APIKey,
		ContextWindow:     s.ContextWindow,
		MaxRetries:        s.MaxRetries,
		RequestsPerMinute: s.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}
	return summarize.NewSummarizer(backend, s.Timeout, logger.Named(log, "summarize")), nil
}

// summaryConcurrency defaults to sequential for a local model and a small
// pool for a remote API.
func summaryConcurrency(cfg *config.Config) int {
	if cfg.Summarize.Concurrency > 0 {
		return cfg.Summarize.Concurrency
	}
	if cfg.Summarize.Backend == summarize.BackendRemote {
		return 4
	}
	return 1
}

func newSink(ctx context.Context, cfg *config.Config) (notify.Sink, error) {
	n := cfg.Notify
	switch n.Sink {
	case "feishu":
		return notify.NewFeishuSink(n.Feishu.Webhook, n.Feishu.Secret), nil
	case "slack":
		return notify.NewSlackSink(n.Slack.Webhook), nil
	case "email":
		return notify.NewEmailSink(n.Email.Host, n.Email.Port, n.Email.Username, n.Email.Password, n.Email.From, n.Email.To), nil
	case "sheets":
		s, err := notify.NewSheetsSink(ctx, n.Sheets.Credentials, n.Sheets.SpreadsheetID, n.Sheets.Range)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "terminal", "":
		return notify.NewTerminalSink(os.Stdout), nil
	default:
		return nil, fmt.Errorf("%w: unknown sink %q", config.ErrInvalid, n.Sink)
	}
}

// newPipelineConfig converts the loaded configuration into run values.
func newPipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	rules, err := pathfilter.Compile(cfg.Corpus.Ignore)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: corpus.ignore: %v", config.ErrInvalid, err)
	}
	decay, err := corpus.ParseDecay(cfg.Corpus.Decay, float64(cfg.Corpus.HalfLife))
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	return pipeline.Config{
		Rules:       rules,
		Decay:       decay,
		Query:       cfg.Arxiv.Query,
		MaxPapers:   cfg.Arxiv.Limit(),
		SendEmpty:   cfg.SendEmpty,
		Language:    cfg.Summarize.Language,
		Concurrency: summaryConcurrency(cfg),
		Embedding: embedding.BatchOptions{
			BatchSize: cfg.Embedding.BatchSize,
			Workers:   cfg.Embedding.Workers,
		},
	}, nil
}

// newDeps wires the collaborators shared by run and rank.
func newDeps(cfg *config.Config, log logger.Logger) pipeline.Deps {
	client := arxiv.NewClient(logger.Named(log, "arxiv"))
	client.Debug = cfg.Arxiv.Debug

	return pipeline.Deps{
		Corpus:     newCorpusSource(cfg, log),
		Candidates: client,
		Embedder:   newEmbedder(cfg),
		Log:        logger.Named(log, "pipeline"),
	}
}

// newEnricher returns nil when enrichment is off. summarizer, when set,
// backs the affiliation fallback.
func newEnricher(cfg *config.Config, log logger.Logger, summarizer *summarize.Summarizer) pipeline.Enricher {
	if !cfg.Arxiv.Enrich {
		return nil
	}
	e := arxiv.NewEnricher(logger.Named(log, "enrich"))
	e.Workers = cfg.Arxiv.Workers
	if cfg.Arxiv.LLMAffiliations && summarizer != nil {
		e.AffiliationLLM = summarizer.AffiliationExtractor()
	}
	return e
}

// embedderChecker is implemented by providers that can verify their backend
// before a run.
type embedderChecker interface {
	Check(ctx context.Context) error
}

// checkEmbedder verifies the embedding backend before a run. Providers
// without a check always pass.
func checkEmbedder(ctx context.Context, p embedding.Provider) error {
	c, ok := p.(embedderChecker)
	if !ok {
		return nil
	}
	if err := c.Check(ctx); err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrSourceUnavailable, err)
	}
	return nil
}
