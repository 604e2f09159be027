package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const (
	// DefaultHTMLBase serves the HTML rendering of a paper.
	DefaultHTMLBase = "https://arxiv.org/html/"

	maxAffiliations      = 5
	maxAffiliationLength = 80
)

// affiliationSelectors are tried in order inside the author block; the
// first selector with any match wins.
var affiliationSelectors = []string{".ltx_role_affiliation", ".ltx_contact_affiliation"}

// FetchAffiliations reads author affiliations from the paper's HTML
// rendering. Papers without an HTML version return (nil, nil).
func (e *Enricher) FetchAffiliations(ctx context.Context, id string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.HTMLBase+id, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.retryer.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv HTML returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return ParseAffiliations(doc), nil
}

// ParseAffiliations extracts up to five distinct affiliations, each cut to
// 80 characters, from an arXiv HTML document.
func ParseAffiliations(doc *goquery.Document) []string {
	authors := doc.Find(".ltx_authors").First()
	if authors.Length() == 0 {
		authors = doc.Find(".authors").First()
	}
	if authors.Length() == 0 {
		return nil
	}

	var found *goquery.Selection
	for _, sel := range affiliationSelectors {
		if s := authors.Find(sel); s.Length() > 0 {
			found = s
			break
		}
	}
	if found == nil {
		// Affiliations given as footnotes anywhere in the document.
		found = doc.Find(".ltx_note_content")
	}

	var texts []string
	found.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return normalizeAffiliations(texts)
}

// normalizeAffiliations collapses whitespace, drops fragments of two runes
// or fewer and duplicates, clips each entry and keeps at most
// maxAffiliations.
func normalizeAffiliations(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range raw {
		text := strings.Join(strings.Fields(r), " ")
		if utf8.RuneCountInString(text) <= 2 {
			continue
		}
		text = clipRunes(text, maxAffiliationLength)
		if seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
		if len(out) == maxAffiliations {
			break
		}
	}
	return out
}

func clipRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
