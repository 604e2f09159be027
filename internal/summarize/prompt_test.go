package summarize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matsen/paperfeed/internal/reference"
)

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"":        "English",
		"en":      "English",
		"zh":      "Chinese",
		"de":      "German",
		"Chinese": "Chinese",
	}
	for in, want := range tests {
		assert.Equal(t, want, LanguageName(in), "LanguageName(%q)", in)
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 3, EstimateTokens("中文字"))
}

func TestTruncateTokens(t *testing.T) {
	s := strings.Repeat("word ", 100)
	got := truncateTokens(s, 10)
	assert.LessOrEqual(t, EstimateTokens(got), 10)
	assert.True(t, strings.HasPrefix(s, got))

	assert.Equal(t, "", truncateTokens(s, 0))
	assert.Equal(t, "short", truncateTokens("short", 10))
}

func TestBuildPrompt_KeepsEverythingThatFits(t *testing.T) {
	p := reference.CandidatePaper{
		Title:        "Tiny",
		Abstract:     "We study small things.",
		Introduction: "Intro text.",
		Conclusion:   "Concluding text.",
	}
	got := BuildPrompt(p, "zh", 4096)

	assert.Contains(t, got.System, "Chinese")
	assert.Contains(t, got.User, "Intro text.")
	assert.Contains(t, got.User, "Concluding text.")
}

func TestBuildPrompt_CutsConclusionBeforeIntroduction(t *testing.T) {
	abstract := strings.Repeat("abstract ", 200)
	p := reference.CandidatePaper{
		Title:        "A Title That Stays",
		Abstract:     abstract,
		Introduction: strings.Repeat("intro ", 200),
		Conclusion:   strings.Repeat("concl ", 2000),
	}

	got := BuildPrompt(p, "en", 2048)

	assert.Contains(t, got.User, "A Title That Stays")
	assert.Contains(t, got.User, abstract)
	assert.Contains(t, got.User, strings.TrimSpace(p.Introduction))
	assert.Less(t, strings.Count(got.User, "concl "), 2000)
}

func TestBuildPrompt_AbstractNeverCut(t *testing.T) {
	abstract := strings.Repeat("long abstract ", 2000)
	p := reference.CandidatePaper{
		Title:        "T",
		Abstract:     abstract,
		Introduction: "intro",
		Conclusion:   "concl",
	}

	got := BuildPrompt(p, "en", 1024)

	assert.Contains(t, got.User, abstract)
	assert.NotContains(t, got.User, "Introduction: intro")
	assert.NotContains(t, got.User, "Conclusion: concl")
}

func TestFitSections(t *testing.T) {
	intro := strings.Repeat("i", 400) // 100 tokens
	concl := strings.Repeat("c", 400) // 100 tokens

	i, c := fitSections(intro, concl, 250)
	assert.Equal(t, intro, i)
	assert.Equal(t, concl, c)

	i, c = fitSections(intro, concl, 150)
	assert.Equal(t, intro, i)
	assert.Len(t, c, 200)

	i, c = fitSections(intro, concl, 50)
	assert.Len(t, i, 200)
	assert.Empty(t, c)

	i, c = fitSections(intro, concl, 0)
	assert.Empty(t, i)
	assert.Empty(t, c)
}
