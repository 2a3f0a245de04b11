package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/corpagent/internal/checklist"
	"github.com/ppiankov/corpagent/internal/corpus"
	"github.com/ppiankov/corpagent/internal/logger"
	"github.com/ppiankov/corpagent/internal/model"
	"github.com/ppiankov/corpagent/internal/pipeline"
	"github.com/ppiankov/corpagent/internal/retrieve"
)

var (
	reviewOutputDir   string
	reviewFormats     []string
	reviewSnapshot    string
	reviewBackend     string
	reviewLLM         bool
	reviewLLMProvider string
	reviewLLMModel    string
	reviewConcurrency int
	reviewTimeout     time.Duration
	reviewNoCache     bool
	reviewNoRefs      bool
)

// reviewCmd represents the review command
var reviewCmd = &cobra.Command{
	Use:   "review <file>...",
	Short: "Review documents for ADGM compliance",
	Long: `Review classifies each document, runs red-flag checks, retrieves
reference rules from the corpus index and, with --llm, asks a language
model for further issues. It writes:

- review-summary.json     batch report with the checklist verification
- reviewed_<name>.<fmt>   annotated copy of each document (md, html, txt)

Supported inputs: .txt, .md, .html

Example:
  corpagent review articles.txt board-resolution.md
  corpagent review docs/*.txt --output-dir out --format md,html,txt
  corpagent review docs/*.txt --llm --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	// Output flags
	reviewCmd.Flags().StringVarP(&reviewOutputDir, "output-dir", "o", "reviewed_docs", "output directory")
	reviewCmd.Flags().StringSliceVar(&reviewFormats, "format", []string{"md", "html"}, "annotated copy formats (md, html, txt)")

	// Corpus flags
	reviewCmd.Flags().StringVar(&reviewSnapshot, "snapshot", "", "corpus snapshot path (sqlite backend)")
	reviewCmd.Flags().StringVar(&reviewBackend, "backend", "", "index backend (memory, sqlite, pgvector)")
	reviewCmd.Flags().BoolVar(&reviewNoRefs, "no-references", false, "skip corpus reference retrieval")

	// Execution flags
	reviewCmd.Flags().IntVarP(&reviewConcurrency, "concurrency", "c", 4, "number of documents reviewed in parallel")
	reviewCmd.Flags().DurationVar(&reviewTimeout, "timeout", 10*time.Minute, "overall review timeout")
	reviewCmd.Flags().BoolVar(&reviewNoCache, "no-cache", false, "disable embedding and completion cache")

	// LLM flags
	reviewCmd.Flags().BoolVar(&reviewLLM, "llm", false, "enable model-assisted review")
	reviewCmd.Flags().StringVar(&reviewLLMProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	reviewCmd.Flags().StringVar(&reviewLLMModel, "llm-model", "", "LLM model name (provider default if empty)")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyReviewFlags(cmd, cfg)
	applyProviderEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := requireCredentials(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), reviewTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	printBanner("Corpagent Review")
	fmt.Fprintf(os.Stderr, "  Documents:    %d\n", len(args))
	fmt.Fprintf(os.Stderr, "  Process:      %s\n", cfg.Checklist.Process)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Output.Dir)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}

	var retriever *retrieve.Engine
	if !reviewNoRefs {
		fmt.Fprintf(os.Stderr, "⚙️  Opening corpus index (%s)...\n", cfg.Index.Backend)
		idx, closeIdx, err := corpus.Open(ctx, cfg, svc.embedder)
		if err != nil {
			// References are advisory; review continues without them
			logger.Warn("corpus index unavailable, reviewing without references: %v", err)
		} else {
			defer closeIdx()
			fmt.Fprintf(os.Stderr, "✓ Corpus index: %d entries\n", idx.Len())
			retriever = retrieve.New(idx, retrieve.OptionsFromModel(cfg.Retrieval))
		}
	}

	detector, err := svc.detector(cfg)
	if err != nil {
		return err
	}

	list := checklist.FromModel(cfg.Checklist)
	writer := pipeline.NewWriter(cfg.Output.Dir, cfg.Output.Formats)
	p := pipeline.New(pipeline.Options{
		Retriever: retriever,
		Detector:  detector,
		Checklist: &list,
		Writer:    writer,
		Workers:   cfg.Concurrency.Workers,
	})

	fmt.Fprintf(os.Stderr, "⚙️  Reviewing with %d workers...\n\n", cfg.Concurrency.Workers)
	start := time.Now()
	summary, runErr := p.ReviewBatch(ctx, pipeline.InputsFromPaths(args))

	summaryPath, err := writer.WriteSummary(summary)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	printReviewSummary(summary, summaryPath, time.Since(start))

	if runErr != nil {
		return fmt.Errorf("review interrupted, %d of %d documents reviewed: %w", len(summary.PerDocument), len(args), runErr)
	}
	return nil
}

// applyReviewFlags lets explicitly set flags override config and environment
func applyReviewFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.Output.Dir = reviewOutputDir
	}
	if flags.Changed("format") {
		cfg.Output.Formats = reviewFormats
	}
	if flags.Changed("snapshot") {
		cfg.Index.Snapshot = reviewSnapshot
	}
	if flags.Changed("backend") {
		cfg.Index.Backend = reviewBackend
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency.Workers = reviewConcurrency
	}
	if reviewNoCache {
		cfg.Cache.Enabled = false
	}
	if reviewLLM {
		cfg.LLM.Provider = reviewLLMProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = reviewLLMModel
	}
	cfg.Output.Verbose = verbose
}

func printReviewSummary(summary *model.BatchSummary, summaryPath string, elapsed time.Duration) {
	issues := 0
	degraded := 0
	for _, res := range summary.PerDocument {
		issues += len(res.Issues)
		if res.Error != "" {
			degraded++
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", res.FileName, res.Error)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %s (%d issues, %d references)\n",
			res.FileName, res.DetectedType, len(res.Issues), len(res.References))
	}

	report := summary.Report()
	printBanner("Review Complete")
	fmt.Fprintf(os.Stderr, "  Reviewed:   %d documents (%d degraded)\n", len(summary.PerDocument), degraded)
	fmt.Fprintf(os.Stderr, "  Issues:     %d\n", issues)
	fmt.Fprintf(os.Stderr, "  Checklist:  %d of %d required documents uploaded\n", report.DocumentsUploaded, report.RequiredDocuments)
	if len(report.MissingDocuments) > 0 {
		fmt.Fprintf(os.Stderr, "  Missing:    %v\n", report.MissingDocuments)
	} else {
		fmt.Fprintf(os.Stderr, "  Missing:    none\n")
	}
	fmt.Fprintf(os.Stderr, "  Summary:    %s\n", summaryPath)
	fmt.Fprintf(os.Stderr, "  Elapsed:    %v\n", elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")
}
