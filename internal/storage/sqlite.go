package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/notemind/internal/models"
)

// SQLiteBackend stores the snapshot in a SQLite database, one row per record.
// Save replaces every row in a single transaction, so it keeps the full-snapshot
// contract of the file backend while scaling to larger note collections.
type SQLiteBackend struct {
	db         *sql.DB
	path       string
	dimensions int
}

// NewSQLiteBackend opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. A file that is not a SQLite
// database is reported as ErrCorrupt.
func NewSQLiteBackend(dbPath string, dimensions int) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, classifySQLiteError(dbPath, fmt.Errorf("failed to enable WAL: %w", err))
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, classifySQLiteError(dbPath, fmt.Errorf("failed to initialize schema: %w", err))
	}
	return &SQLiteBackend{db: db, path: dbPath, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS notes (
		filename TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		vector BLOB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notes_position ON notes(position);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func classifySQLiteError(path string, err error) error {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) && (sqlErr.Code == sqlite3.ErrNotADB || sqlErr.Code == sqlite3.ErrCorrupt) {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return err
}

// Load reads all records ordered by their snapshot position.
func (b *SQLiteBackend) Load(ctx context.Context) (*Snapshot, error) {
	snap := NewSnapshot(b.dimensions)
	var dims string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = 'dimensions'`).Scan(&dims)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, classifySQLiteError(b.path, fmt.Errorf("read store metadata: %w", err))
	default:
		n, convErr := strconv.Atoi(dims)
		if convErr != nil {
			return nil, fmt.Errorf("%w: %s: invalid dimensions %q", ErrCorrupt, b.path, dims)
		}
		snap.Dimensions = n
	}

	rows, err := b.db.QueryContext(ctx, `SELECT filename, content, vector FROM notes ORDER BY position`)
	if err != nil {
		return nil, classifySQLiteError(b.path, fmt.Errorf("query notes: %w", err))
	}
	defer rows.Close()
	for rows.Next() {
		var rec models.NoteRecord
		var blob []byte
		if err := rows.Scan(&rec.Filename, &rec.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		if len(blob)%4 != 0 {
			return nil, fmt.Errorf("%w: %s: vector for %q has %d bytes", ErrCorrupt, b.path, rec.Filename, len(blob))
		}
		rec.Vector = bytesToFloat32Slice(blob)
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classifySQLiteError(b.path, err)
	}
	if err := validate(snap, b.dimensions); err != nil {
		return nil, fmt.Errorf("%s: %w", b.path, err)
	}
	return snap, nil
}

// Save replaces all stored records with snap in one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, snap *Snapshot) error {
	prepare(snap, b.dimensions)
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("clear notes: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO notes (filename, position, content, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, rec := range snap.Records {
		if _, err := stmt.ExecContext(ctx, rec.Filename, i, rec.Content, float32SliceToBytes(rec.Vector)); err != nil {
			return fmt.Errorf("insert note %q: %w", rec.Filename, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO store_meta (key, value) VALUES ('dimensions', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(snap.Dimensions)); err != nil {
		return fmt.Errorf("write store metadata: %w", err)
	}
	return tx.Commit()
}

// Location returns the database path.
func (b *SQLiteBackend) Location() string {
	return b.path
}

// Close closes the database connection.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
