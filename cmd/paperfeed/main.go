// Package main provides the paperfeed CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matsen/paperfeed/internal/config"
	"github.com/matsen/paperfeed/internal/logger"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	configFile  string
	envFile     string
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "paperfeed",
	Short: "Daily arXiv recommendations ranked against your Zotero library",
	Long: `paperfeed compares newly announced arXiv papers with the papers in your
reference library, ranks them by similarity (recent additions count more),
writes a one-sentence TLDR for the best matches and sends a digest.

It is meant to run once a day from cron or a CI schedule.
Commands print JSON by default; pass --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./paperfeed.yml, then $XDG_CONFIG_HOME/paperfeed/paperfeed.yml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the config (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (trace, debug, info, warn, error)")
	rootCmd.Version = Version
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(config.Options{File: configFile, EnvFile: envFile})
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg
}

// newLogger builds the run logger with a fresh run id.
func newLogger(cfg *config.Config) logger.Logger {
	return logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		RunID:  logger.NewRunID(),
	})
}

// signalContext cancels on Ctrl-C and on the SIGTERM schedulers send at
// their time limit.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
