package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/notemind/internal/models"
)

// codec serializes snapshots for the file backend.
type codec interface {
	marshal(*Snapshot) ([]byte, error)
	unmarshal([]byte, *Snapshot) error
}

type jsonCodec struct{}

func (jsonCodec) marshal(s *Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) unmarshal(data []byte, s *Snapshot) error {
	return json.Unmarshal(data, s)
}

type yamlCodec struct{}

func (yamlCodec) marshal(s *Snapshot) ([]byte, error) {
	return yaml.Marshal(s)
}

func (yamlCodec) unmarshal(data []byte, s *Snapshot) error {
	return yaml.Unmarshal(data, s)
}

// codecFor picks YAML for .yaml/.yml paths and JSON otherwise.
func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlCodec{}
	default:
		return jsonCodec{}
	}
}

// FileBackend stores the snapshot as one human-readable JSON or YAML file.
// Saves write a temporary file in the same directory and rename it over the
// snapshot, so readers see either the old or the new snapshot, never a partial one.
type FileBackend struct {
	path       string
	dimensions int
	codec      codec
}

// NewFileBackend returns a backend for the snapshot at path. The format follows the
// extension: .yaml/.yml for YAML, anything else for JSON.
func NewFileBackend(path string, dimensions int) *FileBackend {
	return &FileBackend{
		path:       path,
		dimensions: dimensions,
		codec:      codecFor(path),
	}
}

// Load reads the snapshot. A missing file yields an empty snapshot.
func (b *FileBackend) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(b.dimensions), nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := b.codec.unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, b.path, err)
	}
	if err := validate(&snap, b.dimensions); err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}
	return &snap, nil
}

// Save atomically replaces the snapshot file with snap.
func (b *FileBackend) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prepare(snap, b.dimensions)
	data, err := b.codec.marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Location returns the snapshot path.
func (b *FileBackend) Location() string {
	return b.path
}

// Close is a no-op for FileBackend.
func (b *FileBackend) Close() error {
	return nil
}

// validate checks a decoded snapshot. Unknown versions are treated as corrupt; a
// dimension different from the active embedder is reported as ErrDimensionMismatch.
func validate(snap *Snapshot, dimensions int) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, snap.Version)
	}
	if snap.Records == nil {
		snap.Records = []models.NoteRecord{}
	}
	if len(snap.Records) == 0 {
		if dimensions > 0 {
			snap.Dimensions = dimensions
		}
		return nil
	}
	for i := range snap.Records {
		if len(snap.Records[i].Vector) != snap.Dimensions {
			return fmt.Errorf("%w: record %q has %d dimensions, snapshot declares %d",
				ErrCorrupt, snap.Records[i].Filename, len(snap.Records[i].Vector), snap.Dimensions)
		}
	}
	if dimensions > 0 && snap.Dimensions != dimensions {
		return fmt.Errorf("%w: snapshot has %d dimensions, embedder produces %d",
			ErrDimensionMismatch, snap.Dimensions, dimensions)
	}
	return nil
}

// prepare fills header fields before a save.
func prepare(snap *Snapshot, dimensions int) {
	snap.Version = SnapshotVersion
	if snap.Dimensions == 0 {
		snap.Dimensions = dimensions
	}
	if snap.Records == nil {
		snap.Records = []models.NoteRecord{}
	}
}
