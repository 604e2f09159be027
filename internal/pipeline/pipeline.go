// Package pipeline runs one recommendation pass: fetch the library and the
// day's listing, embed, rank, summarize the top picks and deliver a digest.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/matsen/paperfeed/internal/corpus"
	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/embedding"
	"github.com/matsen/paperfeed/internal/notify"
	"github.com/matsen/paperfeed/internal/pathfilter"
	"github.com/matsen/paperfeed/internal/rank"
	"github.com/matsen/paperfeed/internal/reference"
	"github.com/matsen/paperfeed/internal/summarize"
)

// CandidateSource lists newly announced papers for a query.
type CandidateSource interface {
	Fetch(ctx context.Context, query string) ([]reference.CandidatePaper, error)
}

// Enricher fills optional metadata on papers in place, best effort.
type Enricher interface {
	Enrich(ctx context.Context, papers []reference.CandidatePaper)
}

// Deps are the collaborators of a run. Summarizer, Enricher and Sink are
// optional; leaving them nil skips that stage.
type Deps struct {
	Corpus     corpus.Source
	Candidates CandidateSource
	Embedder   embedding.Provider
	Enricher   Enricher
	Summarizer *summarize.Summarizer
	Sink       notify.Sink
	Log        zerolog.Logger
	Now        func() time.Time
}

// Config holds the values a run needs, already parsed.
type Config struct {
	Rules     *pathfilter.RuleSet
	Decay     corpus.DecayFunc
	Query     string
	MaxPapers int // <= 0 keeps every candidate
	SendEmpty bool

	Language    string
	Concurrency int

	Embedding embedding.BatchOptions
}

// Result reports what a run did. It is returned even when delivery fails.
type Result struct {
	Corpus                 corpus.Stats                `json:"corpus"`
	Candidates             int                         `json:"candidates"`
	CorpusEmbedFailures    int                         `json:"corpus_embed_failures"`
	CandidateEmbedFailures int                         `json:"candidate_embed_failures"`
	Ranked                 []reference.ScoredCandidate `json:"ranked"`
	Summarized             int                         `json:"summarized"`
	Digest                 *digest.Digest              `json:"digest,omitempty"`
	Sent                   bool                        `json:"sent"`
	Duration               time.Duration               `json:"duration"`
}

// Run executes one pass. Source failures return ErrSourceUnavailable and
// delivery failures ErrTransport; an empty listing is a normal outcome.
func Run(ctx context.Context, deps Deps, cfg Config) (*Result, error) {
	log := deps.Log
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	start := now()
	res := &Result{}
	defer func() { res.Duration = now().Sub(start) }()

	// Corpus
	raw, err := deps.Corpus.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, corpus.ErrPartial) || len(raw) == 0 {
			return res, fmt.Errorf("%w: corpus: %w", ErrSourceUnavailable, err)
		}
		log.Warn().Err(err).Int("items", len(raw)).Msg("continuing with partial corpus")
	}
	items, stats := corpus.Build(raw, cfg.Rules, cfg.Decay)
	res.Corpus = stats
	log.Info().
		Int("input", stats.Input).
		Int("excluded", stats.Excluded).
		Int("duplicates", stats.Duplicates).
		Int("no_abstract", stats.NoAbstract).
		Int("kept", stats.Kept).
		Msg("built corpus")

	// Candidates
	cands, err := deps.Candidates.Fetch(ctx, cfg.Query)
	if err != nil {
		return res, fmt.Errorf("%w: candidates: %w", ErrSourceUnavailable, err)
	}
	res.Candidates = len(cands)
	if len(cands) == 0 {
		log.Info().Str("query", cfg.Query).Msg("no new papers")
		return res, deliver(ctx, deps, cfg, res, nil, nil, nil, now())
	}
	log.Info().Int("candidates", len(cands)).Msg("fetched candidates")

	// Embed
	embedder := embedding.NewMemo(deps.Embedder)
	res.CorpusEmbedFailures = embedCorpus(ctx, embedder, items, cfg.Embedding, log)
	res.CandidateEmbedFailures = embedCandidates(ctx, embedder, cands, cfg.Embedding, log)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	// Rank
	top := rank.TopK(rank.Rank(cands, items), cfg.MaxPapers)
	res.Ranked = top
	if len(top) > 0 {
		log.Info().Int("selected", len(top)).Float64("best", top[0].Score).Msg("ranked candidates")
	}

	// Enrich and summarize only the selection.
	papers := make([]reference.CandidatePaper, len(top))
	for i := range top {
		papers[i] = top[i].CandidatePaper
	}
	extras := make(map[string]digest.Extras, len(papers))
	if deps.Enricher != nil {
		deps.Enricher.Enrich(ctx, papers)
		for i, p := range papers {
			top[i].CandidatePaper = p
			extras[p.ID] = digest.Extras{Affiliations: p.Affiliations, CodeURL: p.CodeURL}
		}
	}

	var summaries map[string]string
	if deps.Summarizer != nil {
		summaries = deps.Summarizer.SummarizeAll(ctx, papers, cfg.Language, cfg.Concurrency)
		res.Summarized = len(summaries)
		log.Info().Int("summarized", len(summaries)).Int("papers", len(papers)).Msg("summaries done")
	}

	return res, deliver(ctx, deps, cfg, res, top, summaries, extras, now())
}

// deliver assembles the digest and hands it to the sink, if any.
func deliver(ctx context.Context, deps Deps, cfg Config, res *Result, top []reference.ScoredCandidate, summaries map[string]string, extras map[string]digest.Extras, date time.Time) error {
	d, err := digest.Assemble(top, summaries, extras, digest.Options{
		MaxCount:  cfg.MaxPapers,
		SendEmpty: cfg.SendEmpty,
		Date:      date,
	})
	res.Digest = d
	if deps.Sink == nil {
		return nil
	}

	sent, err := notify.Dispatch(ctx, deps.Sink, d, err, !cfg.SendEmpty)
	res.Sent = sent
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if sent {
		deps.Log.Info().Str("sink", deps.Sink.Name()).Int("entries", len(top)).Msg("digest sent")
	} else {
		deps.Log.Info().Str("sink", deps.Sink.Name()).Msg("empty digest suppressed")
	}
	return nil
}

func embedCorpus(ctx context.Context, p embedding.Provider, items []reference.WeightedCorpusItem, opts embedding.BatchOptions, log zerolog.Logger) int {
	embs, errs := embedding.EmbedAll(ctx, p, embedding.CorpusTexts(items), opts)
	failed := 0
	// An all-zero vector is kept: its cosine is 0 but its weight still counts.
	for i := range items {
		if errs[i] != nil || len(embs[i].Vector) == 0 {
			failed++
			log.Debug().Err(errs[i]).Str("item", items[i].ID).Msg("corpus item not embedded")
			continue
		}
		items[i].Vector = embs[i].Vector
	}
	if failed > 0 {
		log.Warn().Int("failed", failed).Int("total", len(items)).Msg("corpus items left out of scoring")
	}
	return failed
}

func embedCandidates(ctx context.Context, p embedding.Provider, cands []reference.CandidatePaper, opts embedding.BatchOptions, log zerolog.Logger) int {
	embs, errs := embedding.EmbedAll(ctx, p, embedding.CandidateTexts(cands), opts)
	failed := 0
	for i := range cands {
		if errs[i] != nil || len(embs[i].Vector) == 0 {
			failed++
			log.Warn().Err(errs[i]).Str("paper", cands[i].ID).Msg("candidate not embedded; scoring 0")
			continue
		}
		cands[i].Vector = embs[i].Vector
	}
	return failed
}
