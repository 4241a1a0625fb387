package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/notemind/internal/config"
)

// Backend loads and saves whole snapshots.
//
// Load returns an empty snapshot (not an error) when nothing has been saved yet, and an
// error wrapping ErrCorrupt when stored data exists but cannot be parsed.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Location() string
	Close() error
}

// NewBackend returns the backend selected by cfg.Backend.
func NewBackend(cfg config.StorageConfig, dimensions int) (Backend, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileBackend(cfg.SnapshotPath, dimensions), nil
	case config.BackendSQLite:
		return NewSQLiteBackend(cfg.DatabasePath, dimensions)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: %s, %s)",
			cfg.Backend, config.BackendFile, config.BackendSQLite)
	}
}
