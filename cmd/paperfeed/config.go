package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging .env, the config file and
PAPERFEED_* environment variables. Secrets are masked.

Examples:
  paperfeed config
  paperfeed config --human
  PAPERFEED_NOTIFY_SINK=slack paperfeed config --human`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	shown := cfg.Redacted()

	if humanOutput {
		if cfg.File != "" {
			outputHuman("# %s\n", cfg.File)
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(shown)
	}
	return outputJSON(shown)
}
