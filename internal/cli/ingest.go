package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/corpagent/internal/corpus"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
)

var (
	ingestSnapshot string
	ingestBackend  string
	ingestDSN      string
	ingestWatch    bool
	ingestDebounce time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [metadata.json]",
	Short: "Build the reference corpus index",
	Long: `Ingest reads the corpus metadata file (a JSON array of
{category, document_type, source_url, text_file, raw_file} records),
chunks each text file and stores the embedded chunks in the index backend.

With --watch the index is rebuilt whenever a corpus file changes.

Example:
  corpagent ingest data/metadata.json
  corpagent ingest data/metadata.json --snapshot vector_store/corpus.db
  corpagent ingest --backend pgvector --dsn postgres://localhost/corpagent
  corpagent ingest data/metadata.json --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestSnapshot, "snapshot", "", "snapshot path (sqlite backend)")
	ingestCmd.Flags().StringVar(&ingestBackend, "backend", "", "index backend (memory, sqlite, pgvector)")
	ingestCmd.Flags().StringVar(&ingestDSN, "dsn", "", "Postgres connection string (pgvector backend)")
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false, "rebuild when corpus files change")
	ingestCmd.Flags().DurationVar(&ingestDebounce, "debounce", corpus.DefaultDebounce, "quiet period before a watch rebuild")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Corpus.MetadataFile = args[0]
	}
	if cmd.Flags().Changed("snapshot") {
		cfg.Index.Snapshot = ingestSnapshot
	}
	if cmd.Flags().Changed("backend") {
		cfg.Index.Backend = ingestBackend
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Index.DSN = ingestDSN
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := requireCredentials(&model.Config{Embedder: cfg.Embedder}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printBanner("Corpagent Ingest")
	fmt.Fprintf(os.Stderr, "  Metadata:   %s\n", cfg.Corpus.MetadataFile)
	fmt.Fprintf(os.Stderr, "  Backend:    %s\n", cfg.Index.Backend)
	if cfg.Index.Backend == "sqlite" {
		fmt.Fprintf(os.Stderr, "  Snapshot:   %s\n", cfg.Index.Snapshot)
	}
	fmt.Fprintf(os.Stderr, "  Chunking:   %d runes, %d overlap\n", cfg.Corpus.ChunkSize, cfg.Corpus.ChunkOverlap)
	fmt.Fprintf(os.Stderr, "\n")

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "  Embedder:   %s (%d dims)\n\n", svc.embedder.Name(), svc.embedder.Dimension())

	rebuild := func(ctx context.Context) error {
		start := time.Now()
		idx, stats, err := corpus.Rebuild(ctx, cfg, svc.embedder)
		if err != nil {
			return err
		}
		defer closeIndex(idx)

		fmt.Fprintf(os.Stderr, "✓ Ingested %d records (%d skipped), %d chunks in %v\n",
			stats.Records, stats.Skipped, stats.Chunks, time.Since(start).Round(time.Millisecond))
		return nil
	}

	if cfg.Index.Backend == "memory" {
		logger.Warn("memory backend is not persisted; review rebuilds it on each run")
	}

	if err := rebuild(ctx); err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	if !ingestWatch {
		return nil
	}

	records, err := corpus.LoadMetadata(cfg.Corpus.MetadataFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\n⚙️  Watching corpus for changes (Ctrl+C to stop)...\n")
	return corpus.Watch(ctx, corpus.WatchDirs(cfg.Corpus.MetadataFile, records), ingestDebounce, rebuild)
}
