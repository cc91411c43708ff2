package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/cinemuse/internal/config"
	logpkg "github.com/kailas-cloud/cinemuse/internal/logger"
	"github.com/kailas-cloud/cinemuse/internal/version"
)

var (
	env    string
	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cinemuse",
	Short: "Find movies, shows, books and games from a half-remembered description",
	Long: `cinemuse serves memory search over a local media corpus: LLM query expansion,
fused keyword search, similar-items via a vector index and cold-start import from TMDb.

Example usage:
  cinemuse serve                       # Start the HTTP API
  cinemuse sync-embeddings --limit 100 # Backfill missing embeddings`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(env)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err = logpkg.NewLogger(env, cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
