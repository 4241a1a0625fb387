package embedding

import (
	"path/filepath"
	"testing"

	"github.com/hyperjump/notemind/internal/config"
)

func TestNew_bytesProvider(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderBytes, Dimensions: 8}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if e.Name() != "bytes" || e.Dimensions() != 8 {
		t.Errorf("got %s/%d", e.Name(), e.Dimensions())
	}
}

func TestNew_onnxFallsBackWhenModelMissing(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider:   config.ProviderONNX,
		ModelPath:  filepath.Join(t.TempDir(), "missing.onnx"),
		Dimensions: 384,
	}
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("fallback should not fail: %v", err)
	}
	defer e.Close()
	if e.Name() != "bytes" {
		t.Errorf("expected byte embedder fallback, got %s", e.Name())
	}
	if e.Dimensions() != 384 {
		t.Errorf("Dimensions() = %d", e.Dimensions())
	}
}

func TestNew_unknownProvider(t *testing.T) {
	if _, err := New(config.EmbeddingConfig{Provider: "word2vec"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNew_cacheWrapsProvider(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: config.ProviderBytes, Dimensions: 16, CacheSize: 4}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachingEmbedder); !ok {
		t.Fatalf("expected *CachingEmbedder, got %T", e)
	}
	if e.Name() != "bytes" || e.Dimensions() != 16 {
		t.Errorf("wrapped embedder reports %s/%d", e.Name(), e.Dimensions())
	}
}
