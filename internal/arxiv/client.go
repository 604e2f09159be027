// Package arxiv fetches newly announced papers from the arXiv listing feeds
// and the arXiv Atom API.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/matsen/paperfeed/internal/httputil"
	"github.com/matsen/paperfeed/internal/reference"
)

const (
	// DefaultRSSBase serves the daily announcement listing per query.
	DefaultRSSBase = "https://rss.arxiv.org/rss/"

	// DefaultAPIBase is the arXiv Atom query endpoint.
	DefaultAPIBase = "https://export.arxiv.org/api/query"

	// idBatchSize is the number of ids requested per Atom API call.
	idBatchSize = 20

	// debugPaperCount is how many papers debug mode returns.
	debugPaperCount = 5

	userAgent = "paperfeed/1.0 (+https://github.com/matsen/paperfeed)"
)

// Client fetches candidate papers from arXiv.
type Client struct {
	RSSBase string
	APIBase string
	Debug   bool // Ignore the announcement date and return the newest papers

	retryer *httputil.Retryer
	log     zerolog.Logger
}

// NewClient creates a client. arXiv asks API users to wait three seconds
// between calls, so requests share one limiter.
func NewClient(log zerolog.Logger) *Client {
	client := &http.Client{Timeout: 60 * time.Second}
	limiter := rate.NewLimiter(rate.Every(3*time.Second), 1)
	return &Client{
		RSSBase: DefaultRSSBase,
		APIBase: DefaultAPIBase,
		retryer: httputil.NewRetryer(client, limiter, httputil.DefaultMaxRetries),
		log:     log,
	}
}

// WithRetryer replaces the HTTP retryer. Tests use it to point at httptest
// servers without rate limits.
func (c *Client) WithRetryer(r *httputil.Retryer) *Client {
	c.retryer = r
	return c
}

// Fetch returns the papers newly announced today for query, such as
// "cs.AI+cs.CV". A day without announcements returns an empty slice and no
// error.
func (c *Client) Fetch(ctx context.Context, query string) ([]reference.CandidatePaper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if c.Debug {
		return c.fetchNewest(ctx, query, debugPaperCount)
	}

	ids, err := c.fetchNewIDs(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		c.log.Info().Str("query", query).Msg("no new papers announced")
		return []reference.CandidatePaper{}, nil
	}
	c.log.Info().Str("query", query).Int("papers", len(ids)).Msg("announcement listing fetched")

	var papers []reference.CandidatePaper
	for start := 0; start < len(ids); start += idBatchSize {
		end := min(start+idBatchSize, len(ids))
		batch, err := c.fetchByID(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		papers = append(papers, batch...)
	}
	return papers, nil
}

// fetchNewIDs reads the RSS listing and keeps only brand-new submissions,
// skipping cross-lists and replacements.
func (c *Client) fetchNewIDs(ctx context.Context, query string) ([]string, error) {
	body, err := c.get(ctx, c.RSSBase+query)
	if err != nil {
		return nil, fmt.Errorf("fetching arXiv listing: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv listing: %w", err)
	}
	if strings.Contains(feed.Title, "Feed error for query") {
		return nil, fmt.Errorf("invalid arXiv query %q: %s", query, feed.Title)
	}

	seen := make(map[string]bool)
	var ids []string
	for _, item := range feed.Items {
		if announceType(item) != "new" {
			continue
		}
		id := IDFromURL(firstNonEmpty(item.GUID, item.Link))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// announceType reads <arxiv:announce_type>. Older listings without the
// element are treated as new.
func announceType(item *gofeed.Item) string {
	if ext, ok := item.Extensions["arxiv"]; ok {
		if vals := ext["announce_type"]; len(vals) > 0 {
			return strings.TrimSpace(vals[0].Value)
		}
	}
	return "new"
}

func (c *Client) fetchByID(ctx context.Context, ids []string) ([]reference.CandidatePaper, error) {
	q := url.Values{}
	q.Set("id_list", strings.Join(ids, ","))
	q.Set("max_results", strconv.Itoa(len(ids)))
	return c.query(ctx, q)
}

func (c *Client) fetchNewest(ctx context.Context, query string, n int) ([]reference.CandidatePaper, error) {
	q := url.Values{}
	q.Set("search_query", categoryQuery(query))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")
	q.Set("max_results", strconv.Itoa(n))
	c.log.Debug().Str("query", query).Int("n", n).Msg("debug mode: fetching newest papers")
	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q url.Values) ([]reference.CandidatePaper, error) {
	body, err := c.get(ctx, c.APIBase+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("querying arXiv API: %w", err)
	}

	feed, err := (&atom.Parser{}).Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv API response: %w", err)
	}

	papers := make([]reference.CandidatePaper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if p, ok := paperFromEntry(e); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

func paperFromEntry(e *atom.Entry) (reference.CandidatePaper, bool) {
	id := IDFromURL(e.ID)
	if id == "" {
		return reference.CandidatePaper{}, false
	}

	p := reference.CandidatePaper{
		ID:       id,
		Title:    collapseSpace(e.Title),
		Abstract: collapseSpace(e.Summary),
	}
	for _, a := range e.Authors {
		if a != nil && strings.TrimSpace(a.Name) != "" {
			p.Authors = append(p.Authors, reference.Author{Name: strings.TrimSpace(a.Name)})
		}
	}
	for _, l := range e.Links {
		if l != nil && (l.Title == "pdf" || l.Type == "application/pdf") {
			p.PDFURL = l.Href
			break
		}
	}
	if p.PDFURL == "" {
		p.PDFURL = "https://arxiv.org/pdf/" + id
	}
	return p, true
}

func (c *Client) get(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.retryer.Do(ctx, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp, "arXiv"); err != nil {
		return "", err
	}
	var b strings.Builder
	if _, err := io.Copy(&b, resp.Body); err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}
	return b.String(), nil
}

// categoryQuery turns "cs.AI+cs.CV" into an API search over those categories.
func categoryQuery(query string) string {
	var parts []string
	for _, cat := range strings.FieldsFunc(query, func(r rune) bool { return r == '+' || r == ' ' || r == ',' }) {
		parts = append(parts, "cat:"+cat)
	}
	return strings.Join(parts, " OR ")
}

// IDFromURL extracts a version-less arXiv id from an abs URL, a pdf URL or
// an OAI identifier ("oai:arXiv.org:2401.01234v2").
func IDFromURL(s string) string {
	s = strings.TrimSpace(s)
	for _, marker := range []string{"/abs/", "/pdf/", "oai:arXiv.org:"} {
		if i := strings.Index(s, marker); i >= 0 {
			s = s[i+len(marker):]
			break
		}
	}
	s = strings.TrimSuffix(s, ".pdf")
	s = strings.Trim(s, "/")
	if s == "" || strings.Contains(s, "://") {
		return ""
	}
	return stripVersion(s)
}

func stripVersion(id string) string {
	if v := strings.LastIndex(id, "v"); v > 0 {
		if _, err := strconv.Atoi(id[v+1:]); err == nil {
			return id[:v]
		}
	}
	return id
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
