// Package digest merges ranked candidates, summaries and extracted metadata
// into a transport-agnostic message.
package digest

import (
	"errors"
	"strings"
	"time"

	"github.com/matsen/paperfeed/internal/rank"
	"github.com/matsen/paperfeed/internal/reference"
)

// ErrNothingToSend signals an empty digest when sending empty digests is
// disabled. Transports decide what to do with it.
var ErrNothingToSend = errors.New("nothing to send")

// Entry is one ranked paper in the digest.
type Entry struct {
	reference.ScoredCandidate
	TLDR string `json:"tldr,omitempty"`
}

// Relevance returns the 0-10 relevance shown to readers.
func (e Entry) Relevance() float64 { return rank.Relevance(e.Score) }

// Stars returns the star rendering of the entry's score.
func (e Entry) Stars() string { return rank.Stars(e.Score) }

// Digest is the ordered list of recommendations for one run.
type Digest struct {
	Date    time.Time `json:"date"`
	Entries []Entry   `json:"entries"`
}

// Empty reports whether the digest has no entries.
func (d *Digest) Empty() bool { return d == nil || len(d.Entries) == 0 }

// Extras is metadata gathered after ranking for a paper.
type Extras struct {
	Affiliations []string `json:"affiliations,omitempty"`
	CodeURL      string   `json:"code_url,omitempty"`
}

// Options controls assembly.
type Options struct {
	MaxCount  int // <= 0 keeps every candidate
	SendEmpty bool
	Date      time.Time
}

// Assemble builds a Digest from candidates already in rank order. It never
// re-sorts. Summaries and extras are joined by paper ID; a missing summary
// leaves TLDR empty. If no entries remain and SendEmpty is false it returns
// ErrNothingToSend.
func Assemble(scored []reference.ScoredCandidate, summaries map[string]string, extras map[string]Extras, opts Options) (*Digest, error) {
	n := len(scored)
	if opts.MaxCount > 0 && opts.MaxCount < n {
		n = opts.MaxCount
	}
	if n == 0 && !opts.SendEmpty {
		return nil, ErrNothingToSend
	}

	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	d := &Digest{Date: date, Entries: make([]Entry, 0, n)}
	for _, sc := range scored[:n] {
		if ex, ok := extras[sc.ID]; ok {
			if len(ex.Affiliations) > 0 {
				sc.Affiliations = ex.Affiliations
			}
			if ex.CodeURL != "" {
				sc.CodeURL = ex.CodeURL
			}
		}
		d.Entries = append(d.Entries, Entry{
			ScoredCandidate: sc,
			TLDR:            summaries[sc.ID],
		})
	}
	return d, nil
}

// UnknownAffiliation is shown when no affiliation could be extracted.
const UnknownAffiliation = "Unknown Affiliation"

// FormatAuthors joins author names, eliding the middle of long lists:
// more than five authors show the first three, "...", and the last two.
func FormatAuthors(authors []reference.Author) string {
	names := reference.AuthorNames(authors)
	if len(names) <= 5 {
		return strings.Join(names, ", ")
	}
	short := append(append(append([]string{}, names[:3]...), "..."), names[len(names)-2:]...)
	return strings.Join(short, ", ")
}

// FormatAffiliations joins at most five affiliations, appending "..." when
// more exist.
func FormatAffiliations(affiliations []string) string {
	if len(affiliations) == 0 {
		return UnknownAffiliation
	}
	if len(affiliations) <= 5 {
		return strings.Join(affiliations, ", ")
	}
	return strings.Join(affiliations[:5], ", ") + ", ..."
}
