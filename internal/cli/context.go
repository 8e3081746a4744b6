package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
)

var (
	contextQuery  string
	contextType   string
	contextLimit  int
	contextBudget int
	contextOutput string
	contextFormat string
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Build token-budgeted context for an LLM prompt",
	Long: `Search for relevant chunks and pack them into a context that fits
within a token budget. Overlapping chunks of one document are merged so
shared text appears once.

Examples:
  docrag context -q "how does overlap work"
  docrag context -q "storage layer" -b 2000 -o context.json`,
	RunE: runContext,
}

func init() {
	rootCmd.AddCommand(contextCmd)
	contextCmd.Flags().StringVarP(&contextQuery, "query", "q", "", "search query (required)")
	contextCmd.Flags().StringVarP(&contextType, "type", "t", "", "keyword, vector or hybrid (default from config)")
	contextCmd.Flags().IntVarP(&contextLimit, "limit", "k", 0, "candidate pool size (default from config)")
	contextCmd.Flags().IntVarP(&contextBudget, "budget", "b", 0, "token budget (default from config)")
	contextCmd.Flags().StringVarP(&contextOutput, "output", "o", "", "output file (default: stdout)")
	contextCmd.Flags().StringVar(&contextFormat, "format", "", "json or text (default from config)")
	contextCmd.MarkFlagRequired("query")
}

func runContext(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), openRead)
	if err != nil {
		return err
	}
	defer a.Close()

	budget := a.cfg.Context.TokenBudget
	if contextBudget > 0 {
		budget = contextBudget
	}
	format := a.cfg.Context.Output
	if contextFormat != "" {
		format = contextFormat
	}

	q := buildQuery(contextQuery, contextType, contextLimit, 0, -1, nil)
	rc, err := a.context.Build(cmd.Context(), q, budget)
	if err != nil {
		return fmt.Errorf("context build failed: %w", err)
	}
	if len(rc.Snippets) == 0 {
		fmt.Fprintln(os.Stderr, "No relevant content found.")
		return nil
	}

	var output []byte
	if format == "text" {
		output = []byte(renderContext(rc))
	} else if output, err = json.MarshalIndent(rc, "", "  "); err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	if contextOutput != "" {
		if err := os.WriteFile(contextOutput, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Printf("Context written to: %s\n", contextOutput)
		fmt.Printf("  Snippets: %d\n", len(rc.Snippets))
		fmt.Printf("  Tokens:   %d / %d\n", rc.UsedTokens, rc.BudgetTokens)
		return nil
	}
	fmt.Println(string(output))
	return nil
}

// renderContext lays snippets out as cited plain-text blocks.
func renderContext(rc domain.RAGContext) string {
	var b strings.Builder
	for i, s := range rc.Snippets {
		fmt.Fprintf(&b, "[%d] %s (%s)\n%s\n\n", i+1, s.Title, s.Range, s.Text)
	}
	return b.String()
}
