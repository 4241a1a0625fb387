package embedding

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/config"
	"github.com/hyperjump/notemind/pkg/utils"
)

// New returns the embedder selected by cfg.Provider. The ONNX provider falls back to
// ByteEmbedder (with a warning) when the model cannot be loaded or reports a different
// dimension, so a missing model never stops indexing. The result is wrapped in a
// CachingEmbedder when cfg.CacheSize is positive.
func New(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	e, err := newProvider(cfg, utils.OrNop(logger))
	if err != nil {
		return nil, err
	}
	return WithCache(e, cfg.CacheSize), nil
}

func newProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderBytes, "":
		return NewByteEmbedder(cfg.Dimensions), nil
	case config.ProviderONNX:
		model, err := NewModelEmbedder(ModelConfig{
			ModelPath:  cfg.ModelPath,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			logger.Warn("embedding model unavailable, using byte embedder",
				zap.String("model_path", cfg.ModelPath), zap.Error(err))
			return NewByteEmbedder(cfg.Dimensions), nil
		}
		if cfg.Dimensions > 0 && model.Dimensions() != cfg.Dimensions {
			_ = model.Close()
			logger.Warn("embedding model dimension mismatch, using byte embedder",
				zap.Int("model_dimensions", model.Dimensions()), zap.Int("configured_dimensions", cfg.Dimensions))
			return NewByteEmbedder(cfg.Dimensions), nil
		}
		logger.Info("embedding model loaded", zap.String("model_path", cfg.ModelPath))
		return model, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: %s, %s)",
			cfg.Provider, config.ProviderBytes, config.ProviderONNX)
	}
}
