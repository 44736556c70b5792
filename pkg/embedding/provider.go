package embedding

import "context"

// Dimensions matches the kb_entries.embedding column.
const Dimensions = 768

// Provider turns text into a unit-length embedding vector.
type Provider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}
