package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docrag/internal/usecase"
)

var (
	ingestStrategy string
	ingestNoEmbed  bool
	ingestForce    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest and chunk documents",
	Long: `Ingest documents under the specified directory. Each supported file
becomes a document that is chunked and indexed. Unchanged files are skipped
and documents whose file was removed are deleted.

The configuration hash only covers the configured strategy. Passing a
--strategy that differs from it re-chunks every file, as does --force.
The index is stored in .docrag/index.db within the data root.

Examples:
  docrag ingest .                       # Ingest current directory
  docrag ingest ./docs -s recursive     # Use the recursive strategy
  docrag ingest ./docs --force          # Re-chunk unchanged files too`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestStrategy, "strategy", "s", "", "chunking strategy (default from config)")
	ingestCmd.Flags().BoolVar(&ingestNoEmbed, "no-embed", false, "skip embedding generation")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-chunk files even if unchanged")
}

// forceRechunk reports whether unchanged files must be re-chunked: the
// index records neither per-file strategy nor the --strategy override.
func forceRechunk(flagStrategy, configured string, force bool) bool {
	return force || (flagStrategy != "" && flagStrategy != configured)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	a, err := openApp(cmd.Context(), openWrite)
	if err != nil {
		return err
	}
	defer a.Close()

	strategy, err := a.strategy(ingestStrategy)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", path)

	var bar *progressbar.ProgressBar
	var barMu sync.Mutex
	var startTime time.Time

	progress := func(done, total int) {
		barMu.Lock()
		defer barMu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
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
		}
		bar.Set(done)

		rate := float64(done) / time.Since(startTime).Seconds()
		if done > 0 && rate > 0 {
			eta := time.Duration(float64(total-done)/rate) * time.Second
			bar.Describe(fmt.Sprintf("[cyan]Ingesting[reset] ETA: %s", formatDuration(eta)))
		}
	}

	result, err := a.ingest.Ingest(cmd.Context(), path, usecase.IngestOptions{
		Strategy:           strategy,
		ChunkSize:          a.cfg.Chunking.ChunkSize,
		OverlapSize:        a.cfg.Chunking.OverlapSize,
		GenerateEmbeddings: a.embedder != nil && !ingestNoEmbed,
		Force:              forceRechunk(ingestStrategy, a.cfg.Chunking.Strategy, ingestForce),
		Progress:           progress,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Printf("\nIngest complete:\n")
	fmt.Printf("  Files indexed:     %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped:     %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files unsupported: %d\n", result.FilesUnsupported)
	fmt.Printf("  Files deleted:     %d (removed)\n", result.FilesDeleted)
	fmt.Printf("  Chunks created:    %d\n", result.ChunksCreated)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "<1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
