package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/config"
	"github.com/hyperjump/notemind/internal/embedding"
	"github.com/hyperjump/notemind/internal/extract"
	"github.com/hyperjump/notemind/internal/indexer"
	"github.com/hyperjump/notemind/internal/keyword"
	"github.com/hyperjump/notemind/internal/ocr"
	"github.com/hyperjump/notemind/internal/search"
	"github.com/hyperjump/notemind/internal/storage"
)

// Components holds the wired indexing and query pipeline.
type Components struct {
	embedder    embedding.Embedder
	repo        *storage.Repository
	keyword     *keyword.BleveIndex
	coordinator *indexer.Coordinator
	search      *search.Service
	composer    *search.Composer
}

// Close releases the embedder, keyword index and store backend.
func (c *Components) Close() {
	if c.keyword != nil {
		_ = c.keyword.Close()
	}
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
	if c.repo != nil {
		_ = c.repo.Backend().Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	comps := &Components{embedder: embedder}

	backend, err := storage.NewBackend(cfg.Storage, embedder.Dimensions())
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	comps.repo = storage.NewRepository(backend, embedder.Dimensions(), storage.WithLogger(logger))

	proc, err := ocr.New(cfg.OCR, logger)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to initialize ocr: %w", err)
	}

	comps.keyword, err = keyword.NewMemIndex()
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	extractor := extract.NewExtractor(proc,
		extract.WithLogger(logger),
		extract.WithOCRTimeout(cfg.OCR.Timeout))
	comps.coordinator = indexer.NewCoordinator(cfg.Watch.Directory, extractor, embedder, comps.repo,
		indexer.WithLogger(logger),
		indexer.WithKeywordIndex(comps.keyword),
		indexer.WithExtensions(cfg.Watch.Extensions...))

	comps.search = search.NewService(comps.repo, embedder,
		search.WithLogger(logger),
		search.WithLimit(cfg.Search.Limit),
		search.WithSnippetLength(cfg.Search.SnippetLength),
		search.WithNotesDir(cfg.Watch.Directory),
		search.WithKeywordIndex(comps.keyword))
	comps.composer = search.NewComposer(comps.search, cfg.Search.AnswerSnippetLength)

	logger.Info("components initialized",
		zap.String("embedder", embedder.Name()),
		zap.Int("dimensions", embedder.Dimensions()),
		zap.String("store", backend.Location()))
	return comps, nil
}
