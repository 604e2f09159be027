package summarize

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/matsen/paperfeed/internal/reference"
)

// reservedTokens covers the completion and chat framing overhead.
const reservedTokens = maxCompletionTokens + 64

const systemPrompt = "You are an assistant who reads research papers and writes a one-sentence " +
	"TLDR that tells a researcher what the paper does and why it matters. " +
	"Reply with the TLDR only, in %s."

const userTemplate = "Given the title, abstract, introduction and conclusion (if any) of a paper, " +
	"write a one-sentence TLDR in %s.\n\n" +
	"Title: %s\n\nAbstract: %s\n\nIntroduction: %s\n\nConclusion: %s"

// LanguageName resolves a BCP 47 tag ("zh", "pt-BR") to its English display
// name. Anything that does not parse as a tag, such as "Chinese", is used
// verbatim. Empty means English.
func LanguageName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "English"
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return lang
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return lang
}

// EstimateTokens approximates a token count without a tokenizer: one token
// per CJK rune and one per four other runes.
func EstimateTokens(s string) int {
	var cjk, other int
	for _, r := range s {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return cjk + (other+3)/4
}

// truncateTokens keeps the longest prefix of s whose estimate fits in budget.
func truncateTokens(s string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if EstimateTokens(s) <= budget {
		return s
	}

	var cjk, other int
	for i, r := range s {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
		if cjk+(other+3)/4 > budget {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// BuildPrompt assembles the summarization prompt for paper, fitted into a
// context window of window tokens. Title and abstract are always kept
// whole. When the optional sections do not fit, the conclusion is cut
// first and the introduction second.
func BuildPrompt(paper reference.CandidatePaper, lang string, window int) Prompt {
	name := LanguageName(lang)
	system := fmt.Sprintf(systemPrompt, name)

	intro := strings.TrimSpace(paper.Introduction)
	concl := strings.TrimSpace(paper.Conclusion)

	fixed := fmt.Sprintf(userTemplate, name, paper.Title, paper.Abstract, "", "")
	avail := window - reservedTokens - EstimateTokens(system) - EstimateTokens(fixed)

	intro, concl = fitSections(intro, concl, avail)

	return Prompt{
		System: system,
		User:   fmt.Sprintf(userTemplate, name, paper.Title, paper.Abstract, intro, concl),
	}
}

// fitSections trims conclusion then introduction so that together they fit
// in avail tokens.
func fitSections(intro, concl string, avail int) (string, string) {
	if avail <= 0 {
		return "", ""
	}
	introTok := EstimateTokens(intro)
	if introTok+EstimateTokens(concl) <= avail {
		return intro, concl
	}
	if introTok <= avail {
		return intro, truncateTokens(concl, avail-introTok)
	}
	return truncateTokens(intro, avail), ""
}
