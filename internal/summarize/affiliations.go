package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const affiliationSystemPrompt = `You extract institutional affiliations from the front matter of a scientific paper.
Reply with only a JSON array of strings: each distinct institution once, in the order the authors are listed.
Reply with [] when the text names no institution.`

// AffiliationExtractor asks a Backend for the affiliations named in a
// paper's front matter.
type AffiliationExtractor struct {
	backend Backend
	timeout time.Duration
}

// NewAffiliationExtractor wraps backend. timeout <= 0 uses DefaultTimeout.
func NewAffiliationExtractor(backend Backend, timeout time.Duration) *AffiliationExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &AffiliationExtractor{backend: backend, timeout: timeout}
}

// AffiliationExtractor returns an extractor sharing the summarizer's backend
// and timeout.
func (s *Summarizer) AffiliationExtractor() *AffiliationExtractor {
	return NewAffiliationExtractor(s.backend, s.timeout)
}

// ExtractAffiliations returns the institutions listed in frontMatter.
func (a *AffiliationExtractor) ExtractAffiliations(ctx context.Context, frontMatter string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	reply, err := a.backend.Complete(ctx, Prompt{
		System: affiliationSystemPrompt,
		User:   "Front matter:\n\n" + frontMatter,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.backend.Name(), err)
	}
	return parseAffiliationList(reply)
}

// parseAffiliationList reads the first JSON array of strings in reply.
// Models often wrap it in prose or a code fence.
func parseAffiliationList(reply string) ([]string, error) {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no affiliation list in reply %q", clipReply(reply))
	}
	var list []string
	if err := json.Unmarshal([]byte(reply[start:end+1]), &list); err != nil {
		return nil, fmt.Errorf("parsing affiliation list: %w", err)
	}
	return list, nil
}

func clipReply(s string) string {
	if r := []rune(s); len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return s
}
