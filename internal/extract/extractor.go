// Package extract turns a note file into the text that gets embedded: the note itself,
// plus the recognized text of its first embedded image.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/ocr"
	"github.com/hyperjump/notemind/pkg/utils"
)

// OCRLabel prefixes recognized image text appended to a note.
const OCRLabel = "[OCR Content]:"

// DefaultOCRTimeout bounds a single OCR call.
const DefaultOCRTimeout = 30 * time.Second

// Extractor reads notes and annotates them with OCR output.
type Extractor struct {
	ocr        ocr.Processor
	ocrTimeout time.Duration
	markdown   goldmark.Markdown
	logger     *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for skipped images and OCR failures.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithOCRTimeout bounds each OCR call. Zero or negative keeps DefaultOCRTimeout.
func WithOCRTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.ocrTimeout = d
		}
	}
}

// NewExtractor returns an Extractor using proc for image text. A nil proc disables OCR.
func NewExtractor(proc ocr.Processor, opts ...Option) *Extractor {
	if proc == nil {
		proc = ocr.Disabled{}
	}
	e := &Extractor{
		ocr:        proc,
		ocrTimeout: DefaultOCRTimeout,
		markdown:   goldmark.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Extract reads the note at path and returns its indexable content.
//
// Only the first Markdown image is considered. Remote images are skipped; a local image
// that exists is passed to OCR and a non-empty result is appended as
// "\n\n[OCR Content]: <text>\n". OCR failures are logged and the note is returned
// without the annotation. Only read errors are returned.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	content := decodeText(raw)

	target, ok := e.FirstImage(raw)
	if !ok {
		return content, nil
	}
	if isRemote(target) {
		e.logger.Debug("skipping remote image", zap.String("note", path), zap.String("image", target))
		return content, nil
	}
	imagePath, ok := resolveImage(filepath.Dir(path), target)
	if !ok {
		e.logger.Debug("image not found", zap.String("note", path), zap.String("image", target))
		return content, nil
	}

	ocrCtx, cancel := context.WithTimeout(ctx, e.ocrTimeout)
	defer cancel()
	recognized, err := e.ocr.ProcessImage(ocrCtx, imagePath)
	if err != nil {
		level := zap.WarnLevel
		if errors.Is(err, ocr.ErrUndecodable) {
			level = zap.InfoLevel
		}
		e.logger.Log(level, "ocr failed, indexing note without image text",
			zap.String("note", path), zap.String("image", imagePath), zap.Error(err))
		return content, nil
	}
	return Annotate(content, recognized), nil
}

// Annotate appends recognized image text to content. Empty text leaves content unchanged.
func Annotate(content, recognized string) string {
	if recognized == "" {
		return content
	}
	return content + "\n\n" + OCRLabel + " " + recognized + "\n"
}

// looseImage matches image syntax that CommonMark rejects, such as unescaped spaces in
// the destination ("![a](Pasted image 1.png)").
var looseImage = regexp.MustCompile(`!\[[^\]]*\]\(([^)]+)\)`)

// FirstImage returns the destination of the first image in the Markdown source. When
// the parser finds no image it falls back to a looser pattern scan.
func (e *Extractor) FirstImage(src []byte) (string, bool) {
	if dest, ok := e.parsedImage(src); ok {
		return dest, true
	}
	m := looseImage.FindSubmatch(src)
	if m == nil {
		return "", false
	}
	dest := looseDestination(string(m[1]))
	return dest, dest != ""
}

// looseDestination trims a raw destination and drops angle brackets or a quoted title.
func looseDestination(raw string) string {
	dest := strings.TrimSpace(raw)
	if strings.HasPrefix(dest, "<") && strings.HasSuffix(dest, ">") {
		return strings.TrimSpace(dest[1 : len(dest)-1])
	}
	if strings.HasSuffix(dest, `"`) {
		if i := strings.LastIndex(dest[:len(dest)-1], ` "`); i > 0 {
			dest = strings.TrimSpace(dest[:i])
		}
	}
	return dest
}

func (e *Extractor) parsedImage(src []byte) (string, bool) {
	doc := e.markdown.Parser().Parse(text.NewReader(src))
	var dest string
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if img, ok := n.(*ast.Image); ok {
			dest = string(img.Destination)
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return dest, found && dest != ""
}

// isRemote reports whether target carries a URL scheme or is protocol-relative.
// Single-letter schemes are Windows drive letters, not URLs.
func isRemote(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return len(u.Scheme) > 1
}

// resolveImage maps an image target to an existing file. Relative targets resolve
// against the note's directory; percent-encoded names are tried decoded as well.
func resolveImage(noteDir, target string) (string, bool) {
	candidates := []string{target}
	if unescaped, err := url.PathUnescape(target); err == nil && unescaped != target {
		candidates = append(candidates, unescaped)
	}
	for _, c := range candidates {
		p := filepath.FromSlash(c)
		if !filepath.IsAbs(p) {
			p = filepath.Join(noteDir, p)
		}
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
