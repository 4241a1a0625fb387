// Package indexer turns note change events into vector store updates, one event at a
// time in arrival order.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/embedding"
	"github.com/hyperjump/notemind/internal/fileid"
	"github.com/hyperjump/notemind/internal/keyword"
	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/internal/storage"
	"github.com/hyperjump/notemind/internal/watcher"
	"github.com/hyperjump/notemind/pkg/utils"
)

// Extractor produces the indexable content of a note.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Stats counts what the coordinator has done since it was created.
type Stats struct {
	Indexed       uint64    `json:"indexed"`
	Unchanged     uint64    `json:"unchanged"`
	Removed       uint64    `json:"removed"`
	Failed        uint64    `json:"failed"`
	LastError     string    `json:"last_error,omitempty"`
	LastIndexedAt time.Time `json:"last_indexed_at,omitempty"`
}

// Summary reports a one-shot directory indexing run.
type Summary struct {
	Indexed   int
	Unchanged int
	Failed    int
	Pruned    int
	Duration  time.Duration
}

// Coordinator indexes notes into the repository. Per-note failures are logged and
// counted; they never stop the coordinator.
type Coordinator struct {
	notesDir   string
	extractor  Extractor
	embedder   embedding.Embedder
	repo       *storage.Repository
	keyword    keyword.Index
	extensions []string
	state      atomic.Int32
	mu         sync.Mutex
	stats      Stats
	logger     *zap.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets a logger for indexing progress and failures.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithKeywordIndex keeps idx in sync with the repository. Keyword updates are best effort.
func WithKeywordIndex(idx keyword.Index) CoordinatorOption {
	return func(c *Coordinator) { c.keyword = idx }
}

// WithExtensions sets which files IndexDirectory picks up. Default ".md".
func WithExtensions(exts ...string) CoordinatorOption {
	return func(c *Coordinator) { c.extensions = exts }
}

// NewCoordinator creates a coordinator for notes under notesDir.
func NewCoordinator(
	notesDir string,
	extractor Extractor,
	embedder embedding.Embedder,
	repo *storage.Repository,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		notesDir:   filepath.Clean(notesDir),
		extractor:  extractor,
		embedder:   embedder,
		repo:       repo,
		extensions: []string{".md"},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// State returns the current state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
}

// Stats returns a copy of the counters.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Run consumes events until ctx is cancelled or events is closed. Each event runs to
// completion even if ctx is cancelled meanwhile, so a shutdown never leaves a half-saved
// store.
func (c *Coordinator) Run(ctx context.Context, events <-chan watcher.Event) error {
	c.logger.Info("indexing coordinator started", zap.String("notes_dir", c.notesDir))
	defer c.logger.Info("indexing coordinator stopped")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(context.WithoutCancel(ctx), ev)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, ev watcher.Event) {
	log := c.logger.With(zap.Stringer("event_id", ev.ID), zap.Stringer("op", ev.Op), zap.String("path", ev.Path))
	start := time.Now()
	var err error
	switch ev.Op {
	case watcher.OpIndex:
		_, err = c.IndexFile(ctx, ev.Path)
	case watcher.OpRemove:
		_, err = c.RemoveFile(ctx, ev.Path)
	case watcher.OpRemoveTree:
		_, err = c.RemoveTree(ctx, ev.Path)
	default:
		err = fmt.Errorf("unknown event op %d", ev.Op)
		c.recordFailure(err)
	}
	if err != nil {
		log.Error("indexing event failed", zap.Error(err))
		return
	}
	log.Debug("indexing event done", zap.Duration("took", time.Since(start)))
}

// IndexFile extracts, embeds and upserts the note at path. It reports whether the store
// changed; re-indexing an unchanged note is a no-op.
func (c *Coordinator) IndexFile(ctx context.Context, path string) (bool, error) {
	defer c.setState(StateIdle)
	key := fileid.NoteKey(c.notesDir, path)

	c.setState(StateExtracting)
	content, err := c.extractor.Extract(ctx, path)
	if err != nil {
		return false, c.recordFailure(fmt.Errorf("extract %s: %w", key, err))
	}

	c.setState(StateEmbedding)
	vec, err := c.embedder.Embed(ctx, content)
	if err != nil {
		return false, c.recordFailure(fmt.Errorf("embed %s: %w", key, err))
	}

	c.setState(StateUpserting)
	rec := models.NoteRecord{Filename: key, Content: content, Vector: vec}
	written, err := c.repo.Upsert(ctx, rec)
	if err != nil {
		return false, c.recordFailure(fmt.Errorf("upsert %s: %w", key, err))
	}
	c.setState(StatePersisted)

	if c.keyword != nil {
		if err := c.keyword.Index(ctx, &rec); err != nil {
			c.logger.Warn("keyword index update failed", zap.String("filename", key), zap.Error(err))
		}
	}

	c.mu.Lock()
	if written {
		c.stats.Indexed++
		c.stats.LastIndexedAt = time.Now()
	} else {
		c.stats.Unchanged++
	}
	c.mu.Unlock()
	c.logger.Info("note indexed", zap.String("filename", key), zap.Bool("changed", written), zap.Int("bytes", len(content)))
	return written, nil
}

// RemoveFile deletes the record of the note at path. It reports whether one existed.
func (c *Coordinator) RemoveFile(ctx context.Context, path string) (bool, error) {
	key := fileid.NoteKey(c.notesDir, path)
	return c.removeKey(ctx, key)
}

// RemoveTree deletes the records of every note under dir, which was deleted or renamed
// away as a whole. It returns how many records were removed.
func (c *Coordinator) RemoveTree(ctx context.Context, dir string) (int, error) {
	prefix, ok := fileid.DirPrefix(c.notesDir, dir)
	if !ok {
		return 0, c.recordFailure(fmt.Errorf("remove tree %s: not inside %s", dir, c.notesDir))
	}
	snap, err := c.repo.Load(ctx)
	if err != nil {
		return 0, c.recordFailure(fmt.Errorf("remove tree %s: load store: %w", dir, err))
	}
	removed := 0
	for _, key := range snap.Filenames() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		ok, err := c.removeKey(ctx, key)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	c.logger.Info("directory removed", zap.String("dir", dir), zap.Int("notes", removed))
	return removed, nil
}

func (c *Coordinator) removeKey(ctx context.Context, key string) (bool, error) {
	defer c.setState(StateIdle)
	c.setState(StateUpserting)
	removed, err := c.repo.Delete(ctx, key)
	if err != nil {
		return false, c.recordFailure(fmt.Errorf("remove %s: %w", key, err))
	}
	c.setState(StatePersisted)
	if c.keyword != nil {
		if err := c.keyword.Delete(ctx, key); err != nil {
			c.logger.Warn("keyword index delete failed", zap.String("filename", key), zap.Error(err))
		}
	}
	if removed {
		c.mu.Lock()
		c.stats.Removed++
		c.mu.Unlock()
		c.logger.Info("note removed", zap.String("filename", key))
	}
	return removed, nil
}

// IndexDirectory indexes every matching note under dir. Failures are logged and counted
// in the summary; only a missing dir or cancellation stops the walk.
func (c *Coordinator) IndexDirectory(ctx context.Context, dir string) (Summary, error) {
	start := time.Now()
	var sum Summary
	info, err := os.Stat(dir)
	if err != nil {
		return sum, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return sum, fmt.Errorf("not a directory: %s", dir)
	}
	runID := uuid.New()
	c.logger.Info("indexing directory", zap.String("dir", dir), zap.Stringer("run_id", runID))

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			c.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !extensionAllowed(filepath.Ext(path), c.extensions) {
			return nil
		}
		written, err := c.IndexFile(ctx, path)
		switch {
		case err != nil:
			sum.Failed++
			c.logger.Error("indexing note failed", zap.String("path", path), zap.Stringer("run_id", runID), zap.Error(err))
		case written:
			sum.Indexed++
		default:
			sum.Unchanged++
		}
		return nil
	})
	sum.Duration = time.Since(start)
	if err != nil {
		return sum, err
	}
	c.logger.Info("directory indexed",
		zap.Stringer("run_id", runID),
		zap.Int("indexed", sum.Indexed),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("failed", sum.Failed),
		zap.Duration("took", sum.Duration))
	return sum, nil
}

// Prune removes records whose note no longer exists under the notes directory, catching
// up on deletions that happened while nothing was watching.
func (c *Coordinator) Prune(ctx context.Context) (int, error) {
	snap, err := c.repo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load store: %w", err)
	}
	pruned := 0
	for _, key := range snap.Filenames() {
		if _, err := os.Stat(fileid.NotePath(c.notesDir, key)); !errors.Is(err, os.ErrNotExist) {
			continue
		}
		removed, err := c.removeKey(ctx, key)
		if err != nil {
			return pruned, err
		}
		if removed {
			pruned++
		}
	}
	if pruned > 0 {
		c.logger.Info("pruned deleted notes", zap.Int("count", pruned))
	}
	return pruned, nil
}

// RebuildKeywordIndex reloads the keyword index from the store.
func (c *Coordinator) RebuildKeywordIndex(ctx context.Context) error {
	if c.keyword == nil {
		return nil
	}
	snap, err := c.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if err := c.keyword.Rebuild(ctx, snap.Records); err != nil {
		return fmt.Errorf("rebuild keyword index: %w", err)
	}
	c.logger.Debug("keyword index rebuilt", zap.Int("notes", snap.Len()))
	return nil
}

func (c *Coordinator) recordFailure(err error) error {
	c.mu.Lock()
	c.stats.Failed++
	c.stats.LastError = err.Error()
	c.mu.Unlock()
	return err
}

func extensionAllowed(ext string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
