package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"minirag/internal/domain"
	"minirag/internal/port"
)

// AnswerUseCase answers a question from the top retrieved documents.
type AnswerUseCase struct {
	retriever port.Retriever
	generator port.Generator
	topK      int
	maxLength int
	logger    *slog.Logger
}

func NewAnswerUseCase(retriever port.Retriever, generator port.Generator, topK, maxLength int, logger *slog.Logger) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		generator: generator,
		topK:      topK,
		maxLength: maxLength,
		logger:    logger.With("component", "answer"),
	}
}

// Answer retrieves the top k documents (the configured default when k < 1),
// asks the generator to answer from them, and appends a footer naming the
// best source and its score.
func (u *AnswerUseCase) Answer(ctx context.Context, query string, k int) (string, error) {
	if k < 1 {
		k = u.topK
	}
	hits, err := u.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}

	prompt, err := BuildAnswerPrompt(query, hits)
	if err != nil {
		return "", err
	}
	out, err := u.generator.Generate(ctx, prompt, u.maxLength)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	u.logger.Debug("answered", "hits", len(hits), "model", u.generator.ModelName())

	return out + SourceFooter(hits), nil
}

// BuildAnswerPrompt renders the question-answering prompt for query.
func BuildAnswerPrompt(query string, hits []domain.Hit) (string, error) {
	return renderPrompt("answer_prompt.txt", answerPromptData{
		Context: buildContext(hits),
		Query:   query,
	})
}

// SourceFooter names the top hit, or is empty when there are none.
func SourceFooter(hits []domain.Hit) string {
	if len(hits) == 0 {
		return ""
	}
	return fmt.Sprintf("\n\n(Top source: %s, score %.3f)", hits[0].Title, hits[0].Score)
}
