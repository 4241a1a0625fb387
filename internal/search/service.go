// Package search ranks stored notes against a query and composes extractive answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/embedding"
	"github.com/hyperjump/notemind/internal/keyword"
	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/internal/storage"
	"github.com/hyperjump/notemind/internal/vector"
	"github.com/hyperjump/notemind/pkg/utils"
)

const (
	// DefaultLimit is the number of results returned by Search.
	DefaultLimit = 5
	// DefaultSnippetLength is the number of characters of content in a result snippet.
	DefaultSnippetLength = 200
)

// ErrKeywordDisabled is returned by Keyword when no keyword index is configured.
var ErrKeywordDisabled = errors.New("keyword search is not enabled")

// Service answers similarity queries against the vector store. It only reads the store.
type Service struct {
	repo          *storage.Repository
	embedder      embedding.Embedder
	keyword       keyword.Index
	notesDir      string
	limit         int
	snippetLength int
	logger        *zap.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets a logger for query failures.
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithLimit sets how many results Search returns.
func WithLimit(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithSnippetLength sets the snippet length in characters.
func WithSnippetLength(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.snippetLength = n
		}
	}
}

// WithNotesDir resolves result paths against dir.
func WithNotesDir(dir string) ServiceOption {
	return func(s *Service) { s.notesDir = dir }
}

// WithKeywordIndex enables Keyword lookups.
func WithKeywordIndex(idx keyword.Index) ServiceOption {
	return func(s *Service) { s.keyword = idx }
}

// NewService creates a search service.
func NewService(repo *storage.Repository, embedder embedding.Embedder, opts ...ServiceOption) *Service {
	s := &Service{
		repo:          repo,
		embedder:      embedder,
		limit:         DefaultLimit,
		snippetLength: DefaultSnippetLength,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Search returns at most the configured limit of notes ranked by cosine similarity to
// query, best first. Notes with equal scores keep their store order.
//
// An empty or missing store yields no results. A corrupt store, or one built with
// another embedding dimension, is logged and returned as an error so callers can tell it
// apart from "no notes". Other failures are logged and yield no results.
func (s *Service) Search(ctx context.Context, query string) ([]*models.SearchResult, error) {
	qvec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		return []*models.SearchResult{}, nil
	}
	snap, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrCorrupt) || errors.Is(err, storage.ErrDimensionMismatch) {
			s.logger.Error("vector store unusable", zap.Error(err))
			return nil, fmt.Errorf("search: %w", err)
		}
		s.logger.Error("vector store load failed", zap.Error(err))
		return []*models.SearchResult{}, nil
	}
	return s.rank(snap.Records, qvec), nil
}

func (s *Service) rank(records []models.NoteRecord, qvec []float32) []*models.SearchResult {
	results := make([]*models.SearchResult, len(records))
	for i := range records {
		results[i] = s.result(&records[i], vector.Cosine(records[i].Vector, qvec))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > s.limit {
		results = results[:s.limit]
	}
	return results
}

func (s *Service) result(rec *models.NoteRecord, score float64) *models.SearchResult {
	return &models.SearchResult{
		Title:          rec.Filename,
		Path:           s.notePath(rec.Filename),
		Score:          score,
		ContentSnippet: utils.FirstRunes(rec.Content, s.snippetLength),
	}
}

func (s *Service) notePath(key string) string {
	if s.notesDir == "" {
		return key
	}
	return filepath.Join(s.notesDir, filepath.FromSlash(key))
}

// Keyword runs an exact-term lookup. Snippets are centered on the first matching term.
func (s *Service) Keyword(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if s.keyword == nil {
		return nil, ErrKeywordDisabled
	}
	hits, err := s.keyword.Search(ctx, query, limit, &keyword.SearchOptions{TitleBoost: 2})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	if len(hits) == 0 {
		return []*models.SearchResult{}, nil
	}
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	results := make([]*models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		rec, ok := snap.Get(hit.Filename)
		if !ok {
			// Index ahead of or behind the store; the store wins.
			continue
		}
		results = append(results, &models.SearchResult{
			Title:          rec.Filename,
			Path:           s.notePath(rec.Filename),
			Score:          hit.Score,
			ContentSnippet: Highlight(rec.Content, query, s.snippetLength),
		})
	}
	return results, nil
}

// Notes returns the stored note keys in store order.
func (s *Service) Notes(ctx context.Context) ([]string, error) {
	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Filenames(), nil
}
