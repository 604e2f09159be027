package arxiv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/matsen/paperfeed/internal/httputil"
	"github.com/matsen/paperfeed/internal/pdf"
	"github.com/matsen/paperfeed/internal/reference"
)

const (
	// maxPDFBytes caps a downloaded PDF.
	maxPDFBytes = 40 << 20

	// DefaultEnrichWorkers bounds concurrent enrichment of papers.
	DefaultEnrichWorkers = 4
)

// Enricher fills in the metadata a listing lacks: introduction and
// conclusion text, affiliations and a code link. Every step is best effort.
type Enricher struct {
	HTMLBase string
	PWCBase  string
	Workers  int

	// Steps to run; all default to true.
	Sections     bool
	Affiliations bool
	Code         bool

	// AffiliationLLM reads affiliations from the PDF front matter when the
	// HTML rendering lists none. Nil disables the fallback.
	AffiliationLLM AffiliationExtractor

	retryer *httputil.Retryer
	log     zerolog.Logger
}

// NewEnricher returns an Enricher with every step enabled.
func NewEnricher(log zerolog.Logger) *Enricher {
	client := &http.Client{Timeout: 60 * time.Second}
	limiter := rate.NewLimiter(rate.Every(time.Second), 2)
	return &Enricher{
		HTMLBase:     DefaultHTMLBase,
		PWCBase:      DefaultPWCBase,
		Workers:      DefaultEnrichWorkers,
		Sections:     true,
		Affiliations: true,
		Code:         true,
		retryer:      httputil.NewRetryer(client, limiter, 2),
		log:          log,
	}
}

// WithRetryer replaces the HTTP retryer.
func (e *Enricher) WithRetryer(r *httputil.Retryer) *Enricher {
	e.retryer = r
	return e
}

// Enrich updates papers in place. Failures are logged at debug level and
// leave the corresponding fields empty.
func (e *Enricher) Enrich(ctx context.Context, papers []reference.CandidatePaper) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range papers {
		wg.Add(1)
		go func(p *reference.CandidatePaper) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}
			// Each goroutine owns one element.
			e.enrichOne(ctx, p)
		}(&papers[i])
	}
	wg.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, p *reference.CandidatePaper) {
	log := e.log.With().Str("paper", p.ID).Logger()

	var text string
	fetched := false
	pdfText := func() string {
		if fetched || p.PDFURL == "" {
			return text
		}
		fetched = true
		t, err := e.FetchPDFText(ctx, p.PDFURL)
		if err != nil {
			log.Debug().Err(err).Msg("PDF text extraction failed")
		}
		text = t
		return text
	}

	if e.Sections && p.PDFURL != "" {
		p.Introduction, p.Conclusion = pdf.Sections(pdfText())
	}
	if e.Affiliations && len(p.Affiliations) == 0 {
		affs, err := e.FetchAffiliations(ctx, p.ID)
		if err != nil {
			log.Debug().Err(err).Msg("affiliation lookup failed")
		}
		if len(affs) == 0 && e.AffiliationLLM != nil {
			if affs, err = e.AffiliationsFromText(ctx, pdfText()); err != nil {
				log.Debug().Err(err).Msg("affiliation extraction failed")
			}
		}
		p.Affiliations = affs
	}
	if e.Code && p.CodeURL == "" {
		code, err := e.FetchCodeURL(ctx, p.ID)
		if err != nil {
			log.Debug().Err(err).Msg("code lookup failed")
		}
		p.CodeURL = code
	}
}

// AffiliationExtractor reads institutional affiliations out of a paper's
// front matter.
type AffiliationExtractor interface {
	ExtractAffiliations(ctx context.Context, frontMatter string) ([]string, error)
}

// AffiliationsFromText asks AffiliationLLM for the affiliations in the front
// matter of a paper's plain text. It returns nil when the text has no
// recognizable front matter or no extractor is set.
func (e *Enricher) AffiliationsFromText(ctx context.Context, text string) ([]string, error) {
	if e.AffiliationLLM == nil {
		return nil, nil
	}
	block := pdf.AuthorBlock(text)
	if block == "" {
		return nil, nil
	}
	raw, err := e.AffiliationLLM.ExtractAffiliations(ctx, block)
	if err != nil {
		return nil, err
	}
	return normalizeAffiliations(raw), nil
}

// FetchSections downloads the PDF and returns its Introduction and
// Conclusion.
func (e *Enricher) FetchSections(ctx context.Context, pdfURL string) (string, string, error) {
	text, err := e.FetchPDFText(ctx, pdfURL)
	if err != nil {
		return "", "", err
	}
	intro, concl := pdf.Sections(text)
	return intro, concl, nil
}

// FetchPDFText downloads the PDF and returns its plain text.
func (e *Enricher) FetchPDFText(ctx context.Context, pdfURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.retryer.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "arXiv PDF"); err != nil {
		return "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFBytes+1))
	if err != nil {
		return "", fmt.Errorf("downloading PDF: %w", err)
	}
	if len(data) > maxPDFBytes {
		return "", fmt.Errorf("PDF larger than %d bytes", maxPDFBytes)
	}

	return pdf.ExtractTextReader(bytes.NewReader(data), int64(len(data)), 0)
}
