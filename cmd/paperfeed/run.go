package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/paperfeed/internal/notify"
	"github.com/matsen/paperfeed/internal/pipeline"
)

var runDryRun bool

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print the digest to the terminal instead of sending it")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rank, summarize and send today's digest",
	Long: `Run one full pass:

  1. Load the reference library and apply corpus.ignore rules
  2. Fetch today's new arXiv announcements for arxiv.query
  3. Embed both sides and rank candidates by recency-weighted similarity
  4. Enrich the top arxiv.max_papers with PDF sections, affiliations and code links
  5. Write a TLDR per paper in summarize.language
  6. Send the digest through notify.sink

A day without announcements is not an error. With send_empty off nothing
is sent.

Exit codes: 0 success, 2 config error, 3 source unavailable, 4 delivery failed.

Examples:
  paperfeed run
  paperfeed run --dry-run --human
  PAPERFEED_ARXIV_DEBUG=true paperfeed run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	log := newLogger(cfg)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	pcfg, err := newPipelineConfig(cfg)
	if err != nil {
		return err
	}
	summarizer, err := newSummarizer(cfg, log)
	if err != nil {
		return err
	}

	var sink notify.Sink
	if runDryRun {
		// The preview goes to stderr so JSON on stdout stays parseable.
		out := os.Stderr
		if humanOutput {
			out = os.Stdout
		}
		sink = notify.NewTerminalSink(out)
	} else if sink, err = newSink(ctx, cfg); err != nil {
		return err
	}

	deps := newDeps(cfg, log)
	if err := checkEmbedder(ctx, deps.Embedder); err != nil {
		return err
	}
	deps.Enricher = newEnricher(cfg, log, summarizer)
	deps.Summarizer = summarizer
	deps.Sink = sink

	log.Info().Str("query", pcfg.Query).Str("sink", sink.Name()).Bool("dry_run", runDryRun).Msg("starting run")
	res, runErr := pipeline.Run(ctx, deps, pcfg)
	if res != nil {
		report(res, sink.Name(), runErr)
	}
	return runErr
}

func report(res *pipeline.Result, sink string, err error) {
	if humanOutput {
		if !runDryRun {
			outputHuman("corpus %d, candidates %d, selected %d, summarized %d, sent %v (%s) in %s\n",
				res.Corpus.Kept, res.Candidates, len(res.Ranked), res.Summarized, res.Sent, sink, res.Duration.Round(time.Millisecond))
		}
		return
	}
	outputJSON(newRunResponse(res, sink, err))
}
