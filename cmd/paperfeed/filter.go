package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/paperfeed/internal/config"
	"github.com/matsen/paperfeed/internal/pathfilter"
)

var filterRules string

func init() {
	filterTestCmd.Flags().StringVar(&filterRules, "rules", "", "Rules to test instead of corpus.ignore (newline or comma separated)")
	rootCmd.AddCommand(filterTestCmd)
}

var filterTestCmd = &cobra.Command{
	Use:   "filter-test <path>...",
	Short: "Show which collection paths corpus.ignore excludes",
	Long: `Evaluate the corpus.ignore rules (gitignore syntax) against collection paths.

Collection paths are slash-separated, like "ML/Transformers". The last
matching rule wins and "!pattern" re-includes.

Examples:
  paperfeed filter-test "Archive/2019" "ML/Transformers"
  paperfeed filter-test --rules "Archive/**,!Archive/Keep" Archive/Keep Archive/Old`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFilterTest,
}

// FilterResult is one path's verdict.
type FilterResult struct {
	Path     string `json:"path"`
	Excluded bool   `json:"excluded"`
}

func runFilterTest(cmd *cobra.Command, args []string) error {
	text := filterRules
	if !cmd.Flags().Changed("rules") {
		text = mustLoadConfig().Corpus.Ignore
	}

	rules, err := pathfilter.Compile(text)
	if err != nil {
		return fmt.Errorf("%w: corpus.ignore: %v", config.ErrInvalid, err)
	}

	results := evaluatePaths(rules, args)
	if humanOutput {
		for _, r := range results {
			verdict := "kept"
			if r.Excluded {
				verdict = "excluded"
			}
			outputHuman("%-9s %s\n", verdict, r.Path)
		}
		return nil
	}
	return outputJSON(results)
}

func evaluatePaths(rules *pathfilter.RuleSet, paths []string) []FilterResult {
	results := make([]FilterResult, len(paths))
	for i, p := range paths {
		results[i] = FilterResult{Path: p, Excluded: rules.Matches(p, true)}
	}
	return results
}
