package embedding

import (
	"context"

	"github.com/hyperjump/notemind/pkg/utils"
)

// DefaultDimensions matches the all-MiniLM-L6-v2 output size so either embedder can
// populate the same store.
const DefaultDimensions = 384

// minNorm is the smallest accumulated norm that is still normalized; below it the
// zero vector is returned.
const minNorm = 1e-6

// ByteEmbedder maps text to a vector by accumulating its UTF-8 bytes.
//
// Byte i of the text adds b/255 to component i mod D and the result is L2-normalized.
// Texts that share byte patterns at the same offsets score as similar, so this is a
// cheap structural proxy, not a semantic one.
type ByteEmbedder struct {
	dimensions int
}

// NewByteEmbedder returns a ByteEmbedder of the given dimension (DefaultDimensions if <= 0).
func NewByteEmbedder(dimensions int) *ByteEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &ByteEmbedder{dimensions: dimensions}
}

// Embed returns the normalized byte-accumulation vector for text.
// The empty string maps to the zero vector.
func (e *ByteEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, e.dimensions)
	for i := 0; i < len(text); i++ {
		vec[i%e.dimensions] += float32(text[i]) / 255.0
	}
	utils.NormalizeL2(vec, minNorm)
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *ByteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ByteEmbedder) Dimensions() int {
	return e.dimensions
}

// Name identifies the embedder in logs and status output.
func (e *ByteEmbedder) Name() string {
	return "bytes"
}

// Close is a no-op for ByteEmbedder.
func (e *ByteEmbedder) Close() error {
	return nil
}
