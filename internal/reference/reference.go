// Package reference defines the core domain types shared by the ranking pipeline.
package reference

import "time"

// CorpusItem is one entry of the user's reference library.
type CorpusItem struct {
	// Identity
	ID string `json:"id" yaml:"id"` // Library item key, unique within a run

	// Metadata
	Title    string `json:"title" yaml:"title"`
	Abstract string `json:"abstract" yaml:"abstract"`

	// FolderPaths lists the collection paths the item belongs to
	// (e.g. "ML/Transformers"). Empty when the item is unfiled.
	FolderPaths []string `json:"folder_paths,omitempty" yaml:"folder_paths,omitempty"`

	// DateAdded is when the item entered the library. Only its order matters.
	DateAdded time.Time `json:"date_added" yaml:"date_added"`
}

// WeightedCorpusItem is a CorpusItem with its recency rank and weight attached.
type WeightedCorpusItem struct {
	CorpusItem

	Rank   int       `json:"rank"`   // 0 is the most recently added item
	Weight float64   `json:"weight"` // In (0,1], 1.0 at rank 0
	Vector []float32 `json:"-"`      // Embedding; nil if embedding failed
}

// CandidatePaper is a newly announced paper being evaluated against the corpus.
type CandidatePaper struct {
	ID       string   `json:"id"` // arXiv identifier without version suffix
	Title    string   `json:"title"`
	Abstract string   `json:"abstract"`
	Authors  []Author `json:"authors"`

	// Optional full text sections, filled by enrichment.
	Introduction string `json:"introduction,omitempty"`
	Conclusion   string `json:"conclusion,omitempty"`

	Affiliations []string `json:"affiliations,omitempty"`
	PDFURL       string   `json:"pdf_url"`
	CodeURL      string   `json:"code_url,omitempty"`

	Vector []float32 `json:"-"` // Embedding; nil if embedding failed
}

// AbsURL returns the arXiv abstract page for the paper.
func (p CandidatePaper) AbsURL() string {
	return "https://arxiv.org/abs/" + p.ID
}

// EmbeddingText returns the text used to embed a paper or library item.
func EmbeddingText(title, abstract string) string {
	if title == "" {
		return abstract
	}
	if abstract == "" {
		return title
	}
	return title + "\n\n" + abstract
}

// ScoredCandidate is a CandidatePaper with its relevance score and rank position.
// Scores are only comparable within one run.
type ScoredCandidate struct {
	CandidatePaper

	Score float64 `json:"score"`
	Rank  int     `json:"rank"` // 1-based position after sorting
}
