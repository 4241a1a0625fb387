package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/exec"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Tesseract runs the tesseract command line tool on an image.
type Tesseract struct {
	binary    string
	languages string
}

// NewTesseract returns a Tesseract adapter. languages uses tesseract's "eng+deu" syntax;
// empty means the tool's default.
func NewTesseract(binary, languages string) *Tesseract {
	return &Tesseract{binary: binary, languages: languages}
}

// ProcessImage returns the recognized text of the image at path, trimmed of surrounding
// whitespace. The image is decoded first so unreadable files fail with ErrUndecodable
// instead of an opaque tool error.
func (t *Tesseract) ProcessImage(ctx context.Context, path string) (string, error) {
	if err := decodable(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	args := []string{path, "stdout"}
	if t.languages != "" {
		args = append(args, "-l", t.languages)
	}
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ocr %s: %w", path, ctxErr)
		}
		return "", fmt.Errorf("ocr %s: %w: %s", path, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

func decodable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUndecodable, path, err)
	}
	return nil
}
