package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"minirag/config"
	"minirag/internal/app"
	"minirag/internal/logging"
)

func main() {
	dir := flag.String("dir", ".", "Directory holding minirag.yaml and the store")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 5, "Number of results")
	rounds := flag.Int("n", 100, "Cached lookups to time")
	flag.Parse()

	if *query == "" {
		fmt.Println("Usage: go run ./cmd/benchmark -dir . -q \"query\"")
		fmt.Println("\nMeasures:")
		fmt.Println("  1. First lookup (embedding provider call, unless already cached)")
		fmt.Println("  2. Cached lookups (memory layer in front of the persisted cache)")
		fmt.Println("  3. Similarity of the returned documents")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, *dir, logging.Discard(), app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	stats, err := a.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Documents indexed: %d\n", stats.IndexedDocs)
	fmt.Printf("Model: %s (%s)\n", a.Embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Printf("Dimension: %d\n", stats.Dimension)
	fmt.Println()

	if stats.IndexedDocs == 0 {
		fmt.Fprintln(os.Stderr, "No documents indexed. Run 'minirag ingest' first.")
		os.Exit(1)
	}

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	results, err := a.Retriever.Retrieve(ctx, *query, *topK)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}
	first := time.Since(start)

	start = time.Now()
	for i := 0; i < *rounds; i++ {
		if _, err := a.Retriever.Retrieve(ctx, *query, *topK); err != nil {
			fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
			os.Exit(1)
		}
	}
	cached := time.Since(start) / time.Duration(max(*rounds, 1))

	fmt.Printf("Top %d matches:\n\n", len(results))

	totalScore := 0.0
	for i, r := range results {
		preview := r.Text
		if len(preview) > 150 {
			preview = preview[:150] + "..."
		}
		preview = strings.ReplaceAll(preview, "\n", " ")
		totalScore += r.Score

		rating := "LOW"
		if r.Score > 0.7 {
			rating = "HIGH"
		} else if r.Score > 0.5 {
			rating = "GOOD"
		} else if r.Score > 0.3 {
			rating = "OK"
		}

		fmt.Printf("%d. [%s %.3f] %s\n", i+1, rating, r.Score, r.Title)
		fmt.Printf("   %s\n\n", preview)
	}

	hits, misses := a.Cache.Stats()
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("LATENCY:\n")
	fmt.Printf("  First lookup:       %s\n", first)
	fmt.Printf("  Cached lookup:      %s (avg of %d)\n", cached, *rounds)
	fmt.Printf("  Cache hits/misses:  %d/%d\n", hits, misses)

	if len(results) == 0 {
		fmt.Println("  Status: no results above retrieve.min_score")
		return
	}
	avgScore := totalScore / float64(len(results))
	fmt.Printf("QUALITY:\n")
	fmt.Printf("  Average similarity: %.3f\n", avgScore)
	fmt.Printf("  Top-1 similarity:   %.3f\n", results[0].Score)
}
