package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Show the documents most similar to a query",
	Long: `Embed the query and rank every stored document by cosine similarity.
No answer is generated.

Examples:
  minirag query -q "reset password"
  minirag query -q "opening hours" --top-k 5 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	hits, err := a.Retriever.Retrieve(cmd.Context(), queryText, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if queryJSON {
		output, _ := json.MarshalIndent(hits, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for: %s\n\n", len(hits), queryText)
	for i, h := range hits {
		fmt.Fprintf(out, "--- [%d] %s (score: %.3f) ---\n", i+1, h.Title, h.Score)
		fmt.Fprintln(out, truncate(h.Text, 500))
		fmt.Fprintln(out)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
