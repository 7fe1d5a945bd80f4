package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	startText = "Hello! I am minirag. Use /ask <query>, /summarize, /help"
	helpText  = `Commands:
/ask <your question>  Ask from stored documents
/summarize            Summarize your recent conversation
/history              Show your recent conversation
/help                 Show this help message again

Example:
/ask What is the leave policy?`
	askUsage = "Usage: /ask <query>"
)

// Dispatcher routes chat commands to the chat use case. It knows nothing
// about the transport delivering the lines.
type Dispatcher struct {
	chat         *ChatUseCase
	historyLimit int
}

func NewDispatcher(chat *ChatUseCase, historyLimit int) *Dispatcher {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Dispatcher{chat: chat, historyLimit: historyLimit}
}

// Dispatch handles one line from userID and returns the reply. Lines that
// are not commands are treated as questions.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, line string) (string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if !strings.HasPrefix(line, "/") {
		return d.chat.Ask(ctx, userID, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	// Telegram style addressing: /ask@botname
	cmd, _, _ = strings.Cut(cmd, "@")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "/start":
		return startText, nil
	case "/help":
		return helpText, nil
	case "/ask":
		if arg == "" {
			return askUsage, nil
		}
		return d.chat.Ask(ctx, userID, arg)
	case "/summarize":
		return d.chat.Summarize(ctx, userID)
	case "/history":
		return d.history(ctx, userID)
	default:
		return fmt.Sprintf("Unknown command %s.\n\n%s", cmd, helpText), nil
	}
}

func (d *Dispatcher) history(ctx context.Context, userID string) (string, error) {
	entries, err := d.chat.History(ctx, userID, d.historyLimit)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No recent history.", nil
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s: %s", e.Timestamp.Format(time.DateTime), e.Role, e.Text)
	}
	return b.String(), nil
}
