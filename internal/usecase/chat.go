package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"minirag/internal/domain"
	"minirag/internal/port"
)

// Answerer produces an answer for a query.
type Answerer interface {
	Answer(ctx context.Context, query string, k int) (string, error)
}

// ChatUseCase records conversations and answers on behalf of a user.
type ChatUseCase struct {
	history          port.HistoryStore
	answerer         Answerer
	generator        port.Generator
	summaryLimit     int
	summaryMaxLength int
	now              func() time.Time
	logger           *slog.Logger
}

func NewChatUseCase(
	history port.HistoryStore,
	answerer Answerer,
	generator port.Generator,
	summaryLimit, summaryMaxLength int,
	logger *slog.Logger,
) *ChatUseCase {
	return &ChatUseCase{
		history:          history,
		answerer:         answerer,
		generator:        generator,
		summaryLimit:     summaryLimit,
		summaryMaxLength: summaryMaxLength,
		now:              time.Now,
		logger:           logger.With("component", "chat"),
	}
}

// Ask records the question, answers it, and records the answer with a
// timestamp strictly after the question's.
func (u *ChatUseCase) Ask(ctx context.Context, userID, query string) (string, error) {
	asked := u.now()
	if err := u.history.AppendHistory(ctx, domain.HistoryEntry{
		UserID:    userID,
		Timestamp: asked,
		Role:      domain.RoleUser,
		Text:      query,
	}); err != nil {
		return "", fmt.Errorf("failed to record question: %w", err)
	}

	answer, err := u.answerer.Answer(ctx, query, 0)
	if err != nil {
		return "", err
	}

	answered := u.now()
	if !answered.After(asked) {
		answered = asked.Add(time.Nanosecond)
	}
	if err := u.history.AppendHistory(ctx, domain.HistoryEntry{
		UserID:    userID,
		Timestamp: answered,
		Role:      domain.RoleBot,
		Text:      answer,
	}); err != nil {
		return "", fmt.Errorf("failed to record answer: %w", err)
	}

	u.logger.Info("question answered", "user", userID)
	return answer, nil
}

// Summarize asks the generator for a short summary of the user's recent
// conversation. It returns "No recent history." when there is nothing to
// summarize.
func (u *ChatUseCase) Summarize(ctx context.Context, userID string) (string, error) {
	recent, err := u.history.RecentHistory(ctx, userID, u.summaryLimit)
	if err != nil {
		return "", fmt.Errorf("failed to load history: %w", err)
	}
	if len(recent) == 0 {
		return "No recent history.", nil
	}

	prompt, err := BuildSummaryPrompt(recent)
	if err != nil {
		return "", err
	}
	summary, err := u.generator.Generate(ctx, prompt, u.summaryMaxLength)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return "Summary:\n" + summary, nil
}

// History returns up to limit entries for userID, oldest first.
func (u *ChatUseCase) History(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	recent, err := u.history.RecentHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return chronological(recent), nil
}

// BuildSummaryPrompt renders newest-first entries as "role: text" lines in
// chronological order.
func BuildSummaryPrompt(newestFirst []domain.HistoryEntry) (string, error) {
	return renderPrompt("summarize_prompt.txt", summaryPromptData{
		Entries: chronological(newestFirst),
	})
}

func chronological(newestFirst []domain.HistoryEntry) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out
}
