package port

import (
	"context"

	"minirag/internal/domain"
)

// Retriever returns the top-k documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]domain.Hit, error)
}
