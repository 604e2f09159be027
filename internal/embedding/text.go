package embedding

import (
	"strings"
	"unicode/utf8"

	"github.com/matsen/paperfeed/internal/reference"
)

// MaxTextLength is the maximum number of runes sent to an embedding model.
// all-minilm truncates at 256 word pieces anyway; longer inputs only cost time.
const MaxTextLength = 8000

// TruncateText cuts text to MaxTextLength runes without splitting a
// multi-byte character.
func TruncateText(text string) string {
	return truncateRunes(text, MaxTextLength)
}

func truncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return strings.TrimSpace(text[:i])
		}
		n++
	}
	return text
}

// CorpusTexts returns the embedding input for each corpus item.
func CorpusTexts(items []reference.WeightedCorpusItem) []string {
	texts := make([]string, len(items))
	for i, it := range items {
		texts[i] = reference.EmbeddingText(it.Title, it.Abstract)
	}
	return texts
}

// CandidateTexts returns the embedding input for each candidate paper.
func CandidateTexts(papers []reference.CandidatePaper) []string {
	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = reference.EmbeddingText(p.Title, p.Abstract)
	}
	return texts
}
