package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"minirag/config"
	"minirag/internal/domain"
	"minirag/internal/usecase"
)

var (
	addTitle string
	addText  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Embed and store every matching file in a directory",
	Long: `Walk the directory (default ingest.dir from config), skip empty files,
and store each remaining file as a document titled by its relative path.
With ingest.chunk_tokens set, long files are split into several documents.

Examples:
  minirag ingest
  minirag ingest ./faq`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

var addCmd = &cobra.Command{
	Use:   "add [files...]",
	Short: "Store files or an inline text as documents",
	Long: `Store each file as one document titled by its base name, or store a
single inline document with --title and --text.

Examples:
  minirag add notes/password.txt notes/pizza.txt
  minirag add --title doc1 --text "To reset your password, go to settings."`,
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&addTitle, "title", "", "title of the inline document")
	addCmd.Flags().StringVar(&addText, "text", "", "inline document text")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := config.ResolvePath(rootDir, cfg.Ingest.Dir)
	if len(args) > 0 {
		var err error
		dir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning %s...\n", dir)

	result, err := a.Ingest.IngestDir(cmd.Context(), dir, newProgress(cmd.ErrOrStderr(), "Embedding"))
	if result != nil {
		fmt.Fprintf(out, "\nIngest complete:\n")
		fmt.Fprintf(out, "  Files added:    %d\n", len(result.Added))
		fmt.Fprintf(out, "  Files skipped:  %d (empty)\n", len(result.Skipped))
		fmt.Fprintf(out, "  Documents:      %d\n", len(result.IDs))
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	var docs []domain.NewDocument
	if addText != "" {
		title := addTitle
		if title == "" {
			title = "doc"
		}
		docs = append(docs, domain.NewDocument{Title: title, Text: addText})
	}
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "skipping empty file %s\n", path)
			continue
		}
		docs = append(docs, domain.NewDocument{Title: filepath.Base(path), Text: text})
	}
	if len(docs) == 0 {
		return fmt.Errorf("nothing to add: pass files or --text")
	}

	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	ids, err := a.Ingest.AddDocuments(cmd.Context(), docs, newProgress(cmd.ErrOrStderr(), "Embedding"))
	for i, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "Added document %d: %s\n", id, docs[i].Title)
	}
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}
	return nil
}

// newProgress returns a progress callback that draws a bar on w, created on
// the first report once the total is known.
func newProgress(w io.Writer, label string) usecase.ProgressFunc {
	var (
		bar       *progressbar.ProgressBar
		mu        sync.Mutex
		startTime time.Time
	)

	return func(processed, total int) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil {
			startTime = time.Now()
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]"+label+"[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}

		bar.Set(processed)

		if processed > 0 && processed < total {
			elapsed := time.Since(startTime)
			rate := float64(processed) / elapsed.Seconds()
			if rate > 0 {
				eta := time.Duration(float64(total-processed)/rate) * time.Second
				bar.Describe(fmt.Sprintf("[cyan]%s[reset] ETA: %s", label, formatDuration(eta)))
			}
		}
	}
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
