package contract

import (
	"context"

	"bank-support-be/internal/entity"
	"bank-support-be/internal/repository/specification"
)

// ScoredKBEntry wraps a KB entry with its cosine similarity to a query.
type ScoredKBEntry struct {
	Entry      *entity.KBEntry
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type KBEntryRepository interface {
	Create(ctx context.Context, e *entity.KBEntry) error
	Update(ctx context.Context, e *entity.KBEntry) error
	Delete(ctx context.Context, id string) error
	ReplaceAll(ctx context.Context, entries []*entity.KBEntry) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KBEntry, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KBEntry, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	NextPosition(ctx context.Context) (int, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredKBEntry, error)
}
