package search

import (
	"context"
	"fmt"

	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/pkg/utils"
)

// FallbackAnswer is returned when no note matches.
const FallbackAnswer = "I couldn't find any relevant notes to answer your question."

// Searcher ranks notes for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]*models.SearchResult, error)
}

// Composer builds an extractive answer from the best matching note. No language model
// is involved.
type Composer struct {
	searcher      Searcher
	snippetLength int
}

// NewComposer creates a composer. snippetLength <= 0 uses DefaultSnippetLength.
func NewComposer(searcher Searcher, snippetLength int) *Composer {
	if snippetLength <= 0 {
		snippetLength = DefaultSnippetLength
	}
	return &Composer{searcher: searcher, snippetLength: snippetLength}
}

// Answer searches for query and composes an answer from the top result, or returns
// FallbackAnswer when nothing matches. Search errors are returned unchanged.
func (c *Composer) Answer(ctx context.Context, query string) (string, error) {
	results, err := c.searcher.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return c.Compose(results), nil
}

// Compose formats the answer for ranked results.
func (c *Composer) Compose(results []*models.SearchResult) string {
	if len(results) == 0 {
		return FallbackAnswer
	}
	top := results[0]
	return fmt.Sprintf("Based on your note '%s' (score: %.2f):\n\n%s\n\n(Extractive answer: generative responses are not enabled yet.)",
		top.Title, top.Score, utils.FirstRunes(top.ContentSnippet, c.snippetLength))
}
