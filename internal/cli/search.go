package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
)

var (
	searchText      string
	searchType      string
	searchLimit     int
	searchOffset    int
	searchThreshold float64
	searchDocs      []string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search indexed chunks",
	Long: `Search chunks by keyword (BM25), vector similarity or a hybrid of both.
Results are diversified with MMR when enabled in config.

Examples:
  docrag search -q "chunk overlap"
  docrag search -q "embedding models" -t hybrid --limit 5 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "keyword, vector or hybrid (default from config)")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "k", 0, "number of results (default from config)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "results to skip")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", -1, "minimum score in [0,1] (default from config)")
	searchCmd.Flags().StringSliceVar(&searchDocs, "doc", nil, "restrict to document ids")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

// buildQuery fills unset search flags from config.
func buildQuery(text, typ string, limit, offset int, threshold float64, docs []string) domain.SearchQuery {
	cfg := GetConfig()
	if typ == "" {
		typ = cfg.Search.DefaultType
	}
	if limit <= 0 {
		limit = cfg.Search.Limit
	}
	if threshold < 0 {
		threshold = cfg.Search.SimilarityThreshold
	}
	return domain.SearchQuery{
		Text:                text,
		Type:                domain.SearchType(typ),
		Limit:               limit,
		Offset:              offset,
		SimilarityThreshold: threshold,
		DocumentIDs:         docs,
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), openRead)
	if err != nil {
		return err
	}
	defer a.Close()

	q := buildQuery(searchText, searchType, searchLimit, searchOffset, searchThreshold, searchDocs)
	result, err := a.search.Search(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(result)
	}

	if len(result.Items) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s (%s, %s)\n\n", result.Total, result.Query, result.Type, result.Elapsed.Round(time.Microsecond))
	for i, item := range result.Items {
		fmt.Printf("--- [%d] %s #%d (score: %.2f, %s) ---\n", q.Offset+i+1, item.DocumentTitle, item.ChunkIndex, item.Score, item.Confidence)
		fmt.Println(item.Preview)
		fmt.Println()
	}
	return nil
}
