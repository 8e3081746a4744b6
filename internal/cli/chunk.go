package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/fs"
	"docrag/internal/usecase"
)

var (
	chunkStrategy string
	chunkSize     int
	chunkOverlap  int
	chunkNoEmbed  bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk <document-id>",
	Short: "Re-chunk a stored document",
	Long: `Re-chunk one document with a different strategy or window. The previous
chunks, postings and vectors are replaced.

Examples:
  docrag chunk 3f2c... --strategy fixed --size 500 --overlap 50`,
	Args: cobra.ExactArgs(1),
	RunE: runChunk,
}

var metricsCmd = &cobra.Command{
	Use:   "metrics <file>",
	Short: "Estimate how a file would be chunked",
	Long: `Compare the analytic chunk estimate with the actual split a strategy
produces for a file. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runMetrics,
}

func init() {
	for _, c := range []*cobra.Command{chunkCmd, metricsCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&chunkStrategy, "strategy", "s", "", "chunking strategy (default from config)")
		c.Flags().IntVar(&chunkSize, "size", 0, "chunk size (default from config)")
		c.Flags().IntVar(&chunkOverlap, "overlap", -1, "overlap size (default from config)")
	}
	chunkCmd.Flags().BoolVar(&chunkNoEmbed, "no-embed", false, "skip embedding generation")
}

func chunkWindow() (int, int) {
	cfg := GetConfig()
	size, overlap := cfg.Chunking.ChunkSize, cfg.Chunking.OverlapSize
	if chunkSize > 0 {
		size = chunkSize
	}
	if chunkOverlap >= 0 {
		overlap = chunkOverlap
	}
	return size, overlap
}

func runChunk(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), openWrite)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.documents.Get(args[0])
	if err != nil {
		return err
	}
	strategy, err := a.strategy(chunkStrategy)
	if err != nil {
		return err
	}
	size, overlap := chunkWindow()

	out, err := a.chunker.Execute(cmd.Context(), usecase.ChunkDocumentInput{
		DocumentID:         doc.ID,
		Strategy:           strategy,
		ChunkSize:          size,
		OverlapSize:        overlap,
		GenerateEmbeddings: a.embedder != nil && !chunkNoEmbed,
	})
	if err != nil {
		return fmt.Errorf("chunking failed: %w", err)
	}
	a.cache.Invalidate()

	return printJSON(out)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	contentType := fs.DetectContentType(args[0], content)
	text, err := extractor.NewDefault().Extract(cmd.Context(), content, contentType)
	if err != nil {
		return err
	}

	strategy, err := newStrategy(GetConfig(), chunkStrategy)
	if err != nil {
		return err
	}
	size, overlap := chunkWindow()

	service := usecase.NewChunkingService()
	metrics, err := service.CalculateChunkingMetrics(text.Content, size, overlap)
	if err != nil {
		return err
	}
	segments, err := strategy.SplitText(text.Content, size, overlap)
	if err != nil {
		return err
	}

	fmt.Printf("File:        %s (%s)\n", filepath.Base(args[0]), contentType)
	fmt.Printf("Characters:  %d\n", metrics.TextLength)
	fmt.Printf("Window:      %d / overlap %d\n", metrics.ChunkSize, metrics.OverlapSize)
	fmt.Printf("Estimated:   %d chunks\n", metrics.EstimatedChunkCount)
	fmt.Printf("Actual:      %d chunks\n", len(segments))
	return nil
}
