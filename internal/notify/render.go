package notify

import (
	"fmt"

	"github.com/matsen/paperfeed/internal/digest"
)

const (
	headerTitle  = "📚 Daily arXiv"
	dateLayout   = "2006-01-02"
	emptyMessage = "No new papers today. Enjoy the break! ☕"
	noSummary    = "No summary available."
)

// Title is the digest headline shared by every sink.
func Title(d *digest.Digest) string {
	return headerTitle + " " + d.Date.Format(dateLayout)
}

func introLine(n int) string {
	if n == 1 {
		return "1 paper picked for you today."
	}
	return fmt.Sprintf("%d papers picked for you today.", n)
}

func tldrText(e digest.Entry) string {
	if e.TLDR == "" {
		return noSummary
	}
	return e.TLDR
}
