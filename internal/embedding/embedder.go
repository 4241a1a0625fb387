// Package embedding turns note text into fixed-dimension vectors.
//
// ByteEmbedder is the default, dependency-free implementation. ModelEmbedder runs an
// ONNX sentence-embedding model when the binary is built with cgo and a model is
// available; New falls back to ByteEmbedder whenever the model cannot be used.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations must be deterministic
// and return vectors of exactly Dimensions() elements.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// embedEach implements EmbedBatch by calling embed for each text in order.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
