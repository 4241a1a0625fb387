//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ModelConfig describes a BERT-style sentence-embedding model exported to ONNX.
type ModelConfig struct {
	ModelPath  string
	Dimensions int
	MaxTokens  int
}

// ModelEmbedder stub type when built without CGO (see onnx.go for the real implementation).
type ModelEmbedder struct{}

// NewModelEmbedder returns an error when built without CGO (ONNX not available).
func NewModelEmbedder(_ ModelConfig) (*ModelEmbedder, error) {
	return nil, errors.New("ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ModelEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("ONNX embedder not available")
}

func (e *ModelEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("ONNX embedder not available")
}

func (e *ModelEmbedder) Dimensions() int { return 0 }

func (e *ModelEmbedder) Name() string { return "onnx" }

func (e *ModelEmbedder) Close() error { return nil }
