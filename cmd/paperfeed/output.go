package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matsen/paperfeed/internal/digest"
	"github.com/matsen/paperfeed/internal/pipeline"
	"github.com/matsen/paperfeed/internal/reference"
)

// TitleMaxLen truncates titles in human rank output.
const TitleMaxLen = 70

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// ErrorResponse is the JSON error shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the JSON output of paperfeed run.
type RunResponse struct {
	Corpus                 int    `json:"corpus_items"`
	Candidates             int    `json:"candidates"`
	Selected               int    `json:"selected"`
	Summarized             int    `json:"summarized"`
	Sent                   bool   `json:"sent"`
	Sink                   string `json:"sink,omitempty"`
	CorpusEmbedFailures    int    `json:"corpus_embed_failures,omitempty"`
	CandidateEmbedFailures int    `json:"candidate_embed_failures,omitempty"`
	Duration               string `json:"duration"`
	Error                  string `json:"error,omitempty"`
}

func newRunResponse(res *pipeline.Result, sink string, err error) RunResponse {
	r := RunResponse{
		Corpus:                 res.Corpus.Kept,
		Candidates:             res.Candidates,
		Selected:               len(res.Ranked),
		Summarized:             res.Summarized,
		Sent:                   res.Sent,
		Sink:                   sink,
		CorpusEmbedFailures:    res.CorpusEmbedFailures,
		CandidateEmbedFailures: res.CandidateEmbedFailures,
		Duration:               res.Duration.Round(time.Millisecond).String(),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// RankedPaper is one line of paperfeed rank output.
type RankedPaper struct {
	Rank      int      `json:"rank"`
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Score     float64  `json:"score"`
	Relevance float64  `json:"relevance"`
	Stars     string   `json:"stars,omitempty"`
	Authors   []string `json:"authors"`
	URL       string   `json:"url"`
}

func newRankedPaper(sc reference.ScoredCandidate) RankedPaper {
	e := digest.Entry{ScoredCandidate: sc}
	return RankedPaper{
		Rank:      sc.Rank,
		ID:        sc.ID,
		Title:     sc.Title,
		Score:     sc.Score,
		Relevance: e.Relevance(),
		Stars:     e.Stars(),
		Authors:   reference.AuthorNames(sc.Authors),
		URL:       sc.AbsURL(),
	}
}

// truncateString shortens s to maxLen runes, ending in "...".
func truncateString(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
