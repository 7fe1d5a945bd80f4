package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

var (
	userID    string
	askText   string
	histLimit int
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the stored documents",
	Long: `Retrieve the top documents for the question, generate an answer from
them, and record both turns in the user's history.

Examples:
  minirag ask -q "How do I change my password?"
  minirag ask -q "When do you open?" --user alice`,
	RunE: runAsk,
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive session with /ask, /summarize and /history",
	Long: `Read commands line by line. Plain lines are treated as questions.
Type /quit or press Ctrl-D to leave.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print a user's recent conversation",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a user's recent conversation",
	Args:  cobra.NoArgs,
	RunE:  runSummarize,
}

func init() {
	for _, c := range []*cobra.Command{askCmd, chatCmd, historyCmd, summarizeCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&userID, "user", "u", "local", "conversation owner")
	}
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.MarkFlagRequired("query")
	historyCmd.Flags().IntVarP(&histLimit, "limit", "n", 0, "entries to show (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	answer, err := a.Chat.Ask(cmd.Context(), userID, askText)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), answer)
	return nil
}

func runSummarize(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	summary, err := a.Chat.Summarize(cmd.Context(), userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	limit := cfg.History.ShowLimit
	if histLimit > 0 {
		limit = histLimit
	}
	entries, err := a.Chat.History(cmd.Context(), userID, limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No recent history.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "[%s] %s: %s\n", e.Timestamp.Local().Format(time.DateTime), e.Role, e.Text)
	}
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	a, done, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer done()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(rootDir, ".minirag_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to start prompt: %w", err)
	}
	defer rl.Close()

	ctx := cmd.Context()
	fmt.Fprintln(rl.Stdout(), "Type /help for commands, /quit to leave.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		reply, err := a.Commands.Dispatch(ctx, userID, line)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "error: %v\n", err)
			continue
		}
		fmt.Fprintln(rl.Stdout(), reply)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
