// Package keyword provides a full-text index over notes, used for exact-term lookup
// alongside vector search.
package keyword

import (
	"context"

	"github.com/hyperjump/notemind/internal/models"
)

// SearchOptions are optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution of matches in the note name.
	// Values > 1 rank filename matches higher (e.g. 3.0).
	TitleBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum edit distance (1 or 2). Default 2 when FuzzyEnabled.
	Fuzziness int
}

// Index defines keyword index operations. Notes are keyed by filename.
type Index interface {
	Index(ctx context.Context, rec *models.NoteRecord) error
	Delete(ctx context.Context, filename string) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error)
	// Rebuild replaces the index contents with records.
	Rebuild(ctx context.Context, records []models.NoteRecord) error
	DocCount() (uint64, error)
	Close() error
}

// Result is a single keyword hit.
type Result struct {
	Filename string
	Score    float64
}
