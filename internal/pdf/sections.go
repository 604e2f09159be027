package pdf

import (
	"regexp"
	"strings"
)

const (
	// maxSectionRunes bounds a single extracted section.
	maxSectionRunes = 12000

	maxAuthorBlockRunes = 3000
)

var (
	// Headings like "1 Introduction", "I. INTRODUCTION", "1. Introduction".
	introHeading = regexp.MustCompile(`(?im)^\s*(?:(?:\d+|[IVX]+)\.?\s*)?introduction\s*$`)
	conclHeading = regexp.MustCompile(`(?im)^\s*(?:(?:\d+|[IVX]+)\.?\s*)?(?:conclusions?|concluding remarks|discussion and conclusions?|conclusions? and (?:future work|discussion|outlook))\s*$`)

	abstractHeading = regexp.MustCompile(`(?im)^\s*abstract\b`)

	// Any numbered section heading, or the back matter that ends a section.
	nextHeading = regexp.MustCompile(`(?m)^\s*(?:(?:\d+|[IVX]+)\.?\s+[A-Z][A-Za-z ,:&-]{2,60}|(?i:references|bibliography|acknowledge?ments?|appendix(?:es)?))\s*$`)
)

// Sections returns the Introduction and Conclusion of a paper's plain text.
// Either may be empty when no matching heading is found.
func Sections(text string) (introduction, conclusion string) {
	return section(text, introHeading), section(text, conclHeading)
}

// AuthorBlock returns the front matter that precedes the Abstract (or, failing
// that, the Introduction): title, author names and affiliations. It is empty
// when neither heading is found.
func AuthorBlock(text string) string {
	loc := abstractHeading.FindStringIndex(text)
	if loc == nil {
		loc = introHeading.FindStringIndex(text)
	}
	if loc == nil {
		return ""
	}
	return clip(tidy(text[:loc[0]]), maxAuthorBlockRunes)
}

func section(text string, heading *regexp.Regexp) string {
	loc := heading.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	body := text[loc[1]:]
	if end := nextHeading.FindStringIndex(body); end != nil {
		body = body[:end[0]]
	}
	return clip(tidy(body), maxSectionRunes)
}

// tidy joins hyphenated line breaks and collapses whitespace.
func tidy(s string) string {
	s = strings.ReplaceAll(s, "-\n", "")
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
