// Package ocr is the boundary to the image text recognition engine. The engine itself
// is an external program; this package validates images and adapts its output.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/config"
	"github.com/hyperjump/notemind/pkg/utils"
)

// ErrUndecodable is returned for an image file that exists but cannot be decoded.
var ErrUndecodable = errors.New("image cannot be decoded")

// Processor extracts text from an image file. A missing file yields "" and no error.
type Processor interface {
	ProcessImage(ctx context.Context, path string) (string, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, path string) (string, error)

// ProcessImage calls f.
func (f ProcessorFunc) ProcessImage(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// Disabled never recognizes any text.
type Disabled struct{}

// ProcessImage always returns "".
func (Disabled) ProcessImage(context.Context, string) (string, error) {
	return "", nil
}

// New returns the processor selected by cfg.Engine. A tesseract engine whose binary is
// not on PATH is replaced by Disabled with a warning, so notes still get indexed.
func New(cfg config.OCRConfig, logger *zap.Logger) (Processor, error) {
	logger = utils.OrNop(logger)
	switch cfg.Engine {
	case config.OCREngineNone, "":
		return Disabled{}, nil
	case config.OCREngineTesseract:
		bin, err := exec.LookPath(cfg.Binary)
		if err != nil {
			logger.Warn("ocr engine not found, image text will not be indexed",
				zap.String("binary", cfg.Binary), zap.Error(err))
			return Disabled{}, nil
		}
		return NewTesseract(bin, cfg.Languages), nil
	default:
		return nil, fmt.Errorf("unknown ocr engine: %s (supported: %s, %s)",
			cfg.Engine, config.OCREngineNone, config.OCREngineTesseract)
	}
}
