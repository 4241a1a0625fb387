package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/hyperjump/notemind/internal/config"
)

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// fakeTesseract writes a script that prints its first argument the way the real tool
// prints recognized text.
func fakeTesseract(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "tesseract")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDisabled(t *testing.T) {
	got, err := Disabled{}.ProcessImage(context.Background(), "anything.png")
	if err != nil || got != "" {
		t.Errorf("Disabled = %q, %v", got, err)
	}
}

func TestTesseract_MissingFile(t *testing.T) {
	tess := NewTesseract("/does/not/matter", "eng")
	got, err := tess.ProcessImage(context.Background(), filepath.Join(t.TempDir(), "gone.png"))
	if err != nil || got != "" {
		t.Errorf("missing image = %q, %v; want empty, nil", got, err)
	}
}

func TestTesseract_Undecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.png")
	if err := os.WriteFile(path, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewTesseract("/does/not/matter", "").ProcessImage(context.Background(), path)
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("expected ErrUndecodable, got %v", err)
	}
}

func TestTesseract_RunsBinary(t *testing.T) {
	bin := fakeTesseract(t, `echo "  hello world  "; echo "args: $2 $3 $4" >&2`)
	img := filepath.Join(t.TempDir(), "tweet.png")
	writePNG(t, img)

	got, err := NewTesseract(bin, "eng").ProcessImage(context.Background(), img)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello world" {
		t.Errorf("got %q", got)
	}
}

func TestTesseract_BinaryFailure(t *testing.T) {
	bin := fakeTesseract(t, `echo "boom" >&2; exit 3`)
	img := filepath.Join(t.TempDir(), "tweet.png")
	writePNG(t, img)

	_, err := NewTesseract(bin, "").ProcessImage(context.Background(), img)
	if err == nil {
		t.Fatal("expected error from failing binary")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.OCRConfig
		wantErr  bool
		disabled bool
	}{
		{name: "none", cfg: config.OCRConfig{Engine: config.OCREngineNone}, disabled: true},
		{name: "empty", cfg: config.OCRConfig{}, disabled: true},
		{name: "missing binary", cfg: config.OCRConfig{Engine: config.OCREngineTesseract, Binary: "notemind-no-such-ocr-binary"}, disabled: true},
		{name: "unknown", cfg: config.OCRConfig{Engine: "paddle"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.cfg, nil)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if _, ok := p.(Disabled); ok != tt.disabled {
				t.Errorf("got %T", p)
			}
		})
	}
}

func TestNew_FindsBinary(t *testing.T) {
	bin := fakeTesseract(t, "echo ok")
	p, err := New(config.OCRConfig{Engine: config.OCREngineTesseract, Binary: bin}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(*Tesseract); !ok {
		t.Errorf("got %T, want *Tesseract", p)
	}
}
