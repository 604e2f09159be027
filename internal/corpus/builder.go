// Package corpus assembles the weighted reference corpus from library items.
package corpus

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/matsen/paperfeed/internal/pathfilter"
	"github.com/matsen/paperfeed/internal/reference"
)

// ErrPartial is wrapped by a Source that returns an incomplete library on
// purpose; the items it returns alongside are usable.
var ErrPartial = errors.New("partial library")

// Source returns a snapshot of the user's library.
type Source interface {
	Fetch(ctx context.Context) ([]reference.CorpusItem, error)
}

// Stats contains counts from one Build call.
type Stats struct {
	Input      int `json:"input"`
	Excluded   int `json:"excluded"`    // Dropped by folder rules
	NoAbstract int `json:"no_abstract"` // Dropped for lacking an abstract
	Duplicates int `json:"duplicates"`  // Dropped as repeated identifiers
	Kept       int `json:"kept"`
}

// Build filters, deduplicates, orders and weights raw library items.
// The result is ordered most recent first; an empty result is valid.
func Build(raw []reference.CorpusItem, rules *pathfilter.RuleSet, decay DecayFunc) ([]reference.WeightedCorpusItem, Stats) {
	if decay == nil {
		decay = LogDecay
	}
	stats := Stats{Input: len(raw)}

	seen := make(map[string]bool, len(raw))
	kept := make([]reference.CorpusItem, 0, len(raw))
	for _, item := range raw {
		if rules.ExcludesAny(item.FolderPaths) {
			stats.Excluded++
			continue
		}
		// The first record seen for an ID wins, including its DateAdded.
		if seen[item.ID] {
			stats.Duplicates++
			continue
		}
		seen[item.ID] = true

		if strings.TrimSpace(item.Abstract) == "" {
			stats.NoAbstract++
			continue
		}
		kept = append(kept, item)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if !kept[i].DateAdded.Equal(kept[j].DateAdded) {
			return kept[i].DateAdded.After(kept[j].DateAdded)
		}
		return kept[i].ID < kept[j].ID
	})

	n := len(kept)
	weighted := make([]reference.WeightedCorpusItem, n)
	for i, item := range kept {
		weighted[i] = reference.WeightedCorpusItem{
			CorpusItem: item,
			Rank:       i,
			Weight:     decay(i, n),
		}
	}
	stats.Kept = n

	return weighted, stats
}
