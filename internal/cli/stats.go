package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"minirag/internal/adapter/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored and indexed counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the query embedding cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached query embedding",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	stats, err := a.Stats(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Storage:        %s (%s)\n", cfg.Storage.Backend, cfg.Storage.Path)
	fmt.Fprintf(out, "Embedder:       %s (%s)\n", a.Embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Fprintf(out, "Fingerprint:    %s\n", store.EmbeddingFingerprint(cfg.Embedding))
	fmt.Fprintf(out, "Documents:      %d\n", stats.Documents)
	fmt.Fprintf(out, "Indexed:        %d (dim %d)\n", stats.IndexedDocs, stats.Dimension)
	fmt.Fprintf(out, "Cached queries: %d\n", stats.CacheEntries)
	return nil
}

func runDocs(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	docs, err := a.Store.LoadDocuments(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents stored.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%4d  %-30s  dim=%d  %s\n", d.ID, d.Title, d.Dim, truncate(d.Text, 60))
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	n, err := a.Store.CountCacheEntries(cmd.Context())
	if err != nil {
		return err
	}
	if err := a.ClearCache(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached queries.\n", n)
	return nil
}
