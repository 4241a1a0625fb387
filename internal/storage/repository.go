package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/pkg/utils"
)

// lockRetryDelay is how often a writer polls for the store lock held by another process.
const lockRetryDelay = 20 * time.Millisecond

// Repository owns all access to one Backend within a process. Reads share a read lock;
// every mutation is a load-modify-save cycle under the write lock, so two upserts can
// never interleave and lose each other's records. Mutations also hold an exclusive
// file lock next to the store (<location>.lock), which extends the same guarantee to
// other processes writing the same store, such as `index` running beside `serve`.
type Repository struct {
	backend    Backend
	dimensions int
	mu         sync.RWMutex
	fileLock   *flock.Flock
	logger     *zap.Logger
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithLogger sets a logger for debug output (loads, saves, upserts).
func WithLogger(l *zap.Logger) RepositoryOption {
	return func(r *Repository) { r.logger = l }
}

// NewRepository wraps backend. dimensions is the active embedder dimension; records of
// any other dimension are rejected.
func NewRepository(backend Backend, dimensions int, opts ...RepositoryOption) *Repository {
	r := &Repository{
		backend:    backend,
		dimensions: dimensions,
		fileLock:   flock.New(backend.Location() + ".lock"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	return r
}

// Load returns the full current snapshot. The caller owns the returned value.
func (r *Repository) Load(ctx context.Context) (*Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.backend.Load(ctx)
}

// Upsert inserts rec or replaces the record with the same filename, then saves the
// snapshot. It reports whether anything was written; an identical record is a no-op.
// A corrupt snapshot is never overwritten.
func (r *Repository) Upsert(ctx context.Context, rec models.NoteRecord) (bool, error) {
	if len(rec.Vector) != r.dimensions {
		return false, fmt.Errorf("%w: %q has %d dimensions, store expects %d",
			ErrDimensionMismatch, rec.Filename, len(rec.Vector), r.dimensions)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	unlock, err := r.lockStore(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	snap, err := r.backend.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load store: %w", err)
	}
	if existing, ok := snap.Get(rec.Filename); ok && existing.Equal(&rec) {
		r.logger.Debug("store record unchanged", zap.String("filename", rec.Filename))
		return false, nil
	}
	replaced := snap.Upsert(rec)
	if err := r.backend.Save(ctx, snap); err != nil {
		return false, fmt.Errorf("save store: %w", err)
	}
	r.logger.Debug("store record upserted",
		zap.String("filename", rec.Filename),
		zap.Bool("replaced", replaced),
		zap.Int("records", snap.Len()))
	return true, nil
}

// Delete removes the record for filename and saves the snapshot.
// It reports whether a record existed.
func (r *Repository) Delete(ctx context.Context, filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	unlock, err := r.lockStore(ctx)
	if err != nil {
		return false, err
	}
	defer unlock()

	snap, err := r.backend.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load store: %w", err)
	}
	if !snap.Delete(filename) {
		return false, nil
	}
	if err := r.backend.Save(ctx, snap); err != nil {
		return false, fmt.Errorf("save store: %w", err)
	}
	r.logger.Debug("store record deleted", zap.String("filename", filename), zap.Int("records", snap.Len()))
	return true, nil
}

// Reset replaces the stored snapshot with an empty one. It is the recovery path for a
// corrupt store or an embedder dimension change, followed by a full re-index.
func (r *Repository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	unlock, err := r.lockStore(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if err := r.backend.Save(ctx, NewSnapshot(r.dimensions)); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	r.logger.Info("store reset", zap.String("location", r.backend.Location()))
	return nil
}

// lockStore takes the cross-process store lock, waiting for other writers until ctx is
// done. The caller must hold r.mu.
func (r *Repository) lockStore(ctx context.Context) (func(), error) {
	path := r.fileLock.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	locked, err := r.fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("lock store %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock store %s: held by another process", path)
	}
	return func() {
		if err := r.fileLock.Unlock(); err != nil {
			r.logger.Warn("store unlock failed", zap.String("lock", path), zap.Error(err))
		}
	}, nil
}

// Dimensions returns the vector dimension the store accepts.
func (r *Repository) Dimensions() int {
	return r.dimensions
}

// Backend returns the underlying backend.
func (r *Repository) Backend() Backend {
	return r.backend
}
