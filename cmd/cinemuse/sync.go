package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dombatch "github.com/kailas-cloud/cinemuse/internal/domain/batch"
	backfilluc "github.com/kailas-cloud/cinemuse/internal/usecase/backfill"
)

var (
	syncBatchSize int
	syncLimit     int
	syncReindex   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync-embeddings",
	Short: "Embed and index corpus items that have no embedding for the active model",
	Long: `Finds items whose embedding is missing or was produced by another model version,
embeds them in batches and pushes the vectors to the index.

Examples:
  cinemuse sync-embeddings                  # Backfill everything
  cinemuse sync-embeddings --limit 500      # At most 500 items
  cinemuse sync-embeddings --batch-size 32  # Larger provider batches
  cinemuse sync-embeddings --reindex        # Rebuild the FT index first (schema or HNSW change)`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncBatchSize, "batch-size", 0, "items per embedding call (default sync.batch_size)")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "maximum items to process (0 = all)")
	syncCmd.Flags().BoolVar(&syncReindex, "reindex", false, "drop and recreate the vector index before syncing")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(logger)

	batchSize := syncBatchSize
	if batchSize <= 0 {
		batchSize = cfg.Sync.BatchSize
	}
	if batchSize > a.embedder.MaxBatchSize() {
		return fmt.Errorf("--batch-size %d exceeds provider max %d", batchSize, a.embedder.MaxBatchSize())
	}

	if syncReindex {
		if a.vectors == nil {
			return fmt.Errorf("--reindex requires vector_index.enabled")
		}
		if err := a.vectors.Reindex(ctx); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		fmt.Println("Vector index rebuilt")
	}

	pending, err := a.backfill.Pending(ctx)
	if err != nil {
		return fmt.Errorf("count pending: %w", err)
	}
	total := int(pending)
	if syncLimit > 0 && syncLimit < total {
		total = syncLimit
	}
	if total == 0 {
		fmt.Println("All embeddings are up to date for", a.embedder.ModelVersion())
		return nil
	}

	fmt.Printf("Embedding %d items with %s\n", total, a.embedder.ModelVersion())
	bar := progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	report, err := a.backfill.Run(ctx, backfilluc.Options{
		BatchSize: batchSize,
		Limit:     syncLimit,
		OnBatch: func(results []dombatch.Result) {
			_ = bar.Add(len(results))
			for _, r := range results {
				if r.Status() == dombatch.StatusError {
					logger.Warn("Item not embedded", zap.String("id", r.ID()), zap.Error(r.Err()))
				}
			}
		},
	})
	_ = bar.Finish()
	if err != nil {
		return fmt.Errorf("sync embeddings: %w", err)
	}

	fmt.Printf("\nSync complete:\n")
	fmt.Printf("  Pending:  %d\n", report.Pending)
	fmt.Printf("  Embedded: %d\n", report.Embedded)
	fmt.Printf("  Indexed:  %d\n", report.Indexed)
	fmt.Printf("  Failed:   %d\n", report.Failed)
	return nil
}
