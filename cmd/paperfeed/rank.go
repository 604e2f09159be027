package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/paperfeed/internal/pipeline"
)

var rankLimit int

func init() {
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "Show at most this many papers (default arxiv.max_papers)")
	rootCmd.AddCommand(rankCmd)
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank today's papers against the library without summarizing or sending",
	Long: `Rank today's arXiv announcements against the reference library and print
the result. No PDFs are downloaded, no summaries are written and nothing is
sent, so this is a quick way to tune corpus.ignore and corpus.decay.

Examples:
  paperfeed rank
  paperfeed rank --human --limit 10`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

// RankResponse is the JSON output of paperfeed rank.
type RankResponse struct {
	CorpusItems int           `json:"corpus_items"`
	Candidates  int           `json:"candidates"`
	Papers      []RankedPaper `json:"papers"`
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := newLogger(cfg)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	pcfg, err := newPipelineConfig(cfg)
	if err != nil {
		return err
	}
	if rankLimit > 0 {
		pcfg.MaxPapers = rankLimit
	}

	deps := newDeps(cfg, log)
	if err := checkEmbedder(ctx, deps.Embedder); err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, deps, pcfg)
	if err != nil {
		return err
	}

	papers := make([]RankedPaper, len(res.Ranked))
	for i, sc := range res.Ranked {
		papers[i] = newRankedPaper(sc)
	}

	if humanOutput {
		if len(papers) == 0 {
			outputHuman("No new papers (%d library items).\n", res.Corpus.Kept)
			return nil
		}
		for _, p := range papers {
			outputHuman("%3d. %.3f %-6s %s  %s\n", p.Rank, p.Score, p.Stars, p.ID, truncateString(p.Title, TitleMaxLen))
		}
		outputHuman("\n%s\n", fmt.Sprintf("%d of %d candidates, %d library items", len(papers), res.Candidates, res.Corpus.Kept))
		return nil
	}
	return outputJSON(RankResponse{
		CorpusItems: res.Corpus.Kept,
		Candidates:  res.Candidates,
		Papers:      papers,
	})
}
