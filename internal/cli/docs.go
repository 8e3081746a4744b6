package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"docrag/internal/domain"
	"docrag/internal/usecase"
)

var (
	docsJSON     bool
	docsTitle    string
	docsCategory string
	docsTags     []string
	docsFrom     string
	docsTo       string
	docsLimit    int
	docsOffset   int
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List, inspect, update and delete documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Long: `List ingested documents, newest first.

Examples:
  docrag docs list --title guide             # Title contains "guide"
  docrag docs list --tag rag --tag search    # Tagged rag or search
  docrag docs list --from 2024-01-01 --limit 50`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := buildDocumentFilter(docsTitle, docsCategory, docsTags, docsFrom, docsTo, docsLimit, docsOffset)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), openRead)
		if err != nil {
			return err
		}
		defer a.Close()

		page, err := a.documents.List(filter)
		if err != nil {
			return err
		}
		if docsJSON {
			return printJSON(page)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tTYPE\tCATEGORY\tCHUNKS\tVERSION")
		for _, d := range page.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n", d.ID, d.Title, d.Metadata.ContentType, d.Metadata.Category, d.ChunkCount, d.Version)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nShowing %d of %d documents (offset %d)\n", len(page.Items), page.Total, page.Offset)
		return nil
	},
}

// buildDocumentFilter parses the list flags. Dates are RFC 3339 or
// YYYY-MM-DD; a bare --to date includes the whole day.
func buildDocumentFilter(title, category string, tags []string, from, to string, limit, offset int) (domain.DocumentFilter, error) {
	filter := domain.DocumentFilter{
		Title:    title,
		Category: category,
		Tags:     tags,
		Limit:    limit,
		Offset:   offset,
	}
	var err error
	if from != "" {
		if filter.CreatedFrom, _, err = parseDate(from); err != nil {
			return filter, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		var dateOnly bool
		if filter.CreatedTo, dateOnly, err = parseDate(to); err != nil {
			return filter, fmt.Errorf("invalid --to: %w", err)
		}
		if dateOnly {
			filter.CreatedTo = filter.CreatedTo.Add(24*time.Hour - time.Nanosecond)
		}
	}
	return filter, nil
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

func newDocsUpdateCmd() *cobra.Command {
	var title, category, author, description string
	var tags []string
	cmd := &cobra.Command{
		Use:   "update <document-id>",
		Short: "Update a document's title and metadata",
		Long: `Update the title and descriptive metadata of a document. Only the
flags given are changed; content and chunks are kept.

Examples:
  docrag docs update <id> --title "Design Notes" --tags design,rag
  docrag docs update <id> --category ""      # Clear the category`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := buildDocumentUpdate(cmd, title, category, author, description, tags)

			a, err := openApp(cmd.Context(), openWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.documents.UpdateMetadata(cmd.Context(), args[0], upd)
			if err != nil {
				return err
			}
			fmt.Printf("Updated %s (version %d)\n", doc.ID, doc.Version)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "comma-separated tags, replacing the current ones")
	cmd.Flags().StringVar(&author, "author", "", "author")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

// buildDocumentUpdate includes only the flags set on the command line, so
// an explicit empty value clears a field.
func buildDocumentUpdate(cmd *cobra.Command, title, category, author, description string, tags []string) usecase.DocumentUpdate {
	var upd usecase.DocumentUpdate
	flags := cmd.Flags()
	if flags.Changed("title") {
		upd.Title = &title
	}
	if flags.Changed("category") {
		upd.Category = &category
	}
	if flags.Changed("tags") {
		upd.Tags = &tags
	}
	if flags.Changed("author") {
		upd.Author = &author
	}
	if flags.Changed("description") {
		upd.Description = &description
	}
	return upd
}

var docsShowCmd = &cobra.Command{
	Use:   "show <document-id>",
	Short: "Show a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openRead)
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.documents.Get(args[0])
		if err != nil {
			return err
		}
		type chunkView struct {
			ID       string `json:"id"`
			Index    int    `json:"index"`
			Start    int    `json:"start"`
			End      int    `json:"end"`
			Embedded bool   `json:"embedded"`
		}
		view := struct {
			ID       string      `json:"id"`
			Title    string      `json:"title"`
			Version  int         `json:"version"`
			Metadata any         `json:"metadata"`
			Chunks   []chunkView `json:"chunks"`
		}{ID: doc.ID, Title: doc.Title, Version: doc.Version, Metadata: doc.Metadata}
		for _, c := range doc.Chunks() {
			view.Chunks = append(view.Chunks, chunkView{
				ID:       c.ID,
				Index:    c.Metadata.ChunkIndex,
				Start:    c.Metadata.StartPosition,
				End:      c.Metadata.EndPosition,
				Embedded: c.HasEmbedding(),
			})
		}
		return printJSON(view)
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document with its chunks and vectors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openWrite)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.documents.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd, docsShowCmd, newDocsUpdateCmd(), docsDeleteCmd)
	docsListCmd.Flags().BoolVar(&docsJSON, "json", false, "output as JSON")
	docsListCmd.Flags().StringVar(&docsTitle, "title", "", "title contains (case-insensitive)")
	docsListCmd.Flags().StringVar(&docsCategory, "category", "", "exact category")
	docsListCmd.Flags().StringArrayVar(&docsTags, "tag", nil, "tag to match (repeatable, any matches)")
	docsListCmd.Flags().StringVar(&docsFrom, "from", "", "created on or after (YYYY-MM-DD or RFC 3339)")
	docsListCmd.Flags().StringVar(&docsTo, "to", "", "created on or before (YYYY-MM-DD or RFC 3339)")
	docsListCmd.Flags().IntVar(&docsLimit, "limit", domain.DefaultPageSize, "page size (max 100)")
	docsListCmd.Flags().IntVar(&docsOffset, "offset", 0, "number of documents to skip")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
