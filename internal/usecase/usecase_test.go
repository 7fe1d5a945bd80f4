package usecase

import (
	"context"
	"errors"
	"sync"

	"minirag/internal/domain"
)

// scriptedGenerator returns reply and records every prompt it receives.
type scriptedGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	lengths []int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.lengths = append(g.lengths, maxLength)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *scriptedGenerator) ModelName() string { return "scripted" }

// fixedRetriever returns hits regardless of the query.
type fixedRetriever struct {
	hits  []domain.Hit
	err   error
	gotK  int
	calls int
}

func (r *fixedRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	r.calls++
	r.gotK = k
	if r.err != nil {
		return nil, r.err
	}
	if k < len(r.hits) {
		return r.hits[:k], nil
	}
	return r.hits, nil
}

var errProvider = errors.New("provider down")
