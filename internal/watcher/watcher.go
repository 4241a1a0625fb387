// Package watcher watches the notes directory with fsnotify and turns note changes into
// an ordered stream of events on a bounded channel.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/notemind/pkg/utils"
)

// DefaultQueueSize is the capacity of the event channel.
const DefaultQueueSize = 64

// Watcher watches one root directory and emits events for matching files.
// Sends block while the queue is full, so a slow consumer applies back-pressure
// instead of losing events.
type Watcher struct {
	root         string
	extensions   []string
	recursive    bool
	pruneDeleted bool
	debounce     time.Duration
	events       chan Event

	dirsMu sync.Mutex
	dirs   map[string]struct{}

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	debounceMap map[string]*time.Timer
	started     bool
	done        chan struct{}
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (file events, new directories, errors).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithExtensions limits events to files with these extensions (case-insensitive,
// leading dot optional). Empty matches every file.
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) { w.extensions = exts }
}

// WithRecursive controls whether subdirectories are watched. Default true.
func WithRecursive(recursive bool) WatcherOption {
	return func(w *Watcher) { w.recursive = recursive }
}

// WithPruneDeleted controls whether removals and renames emit OpRemove and OpRemoveTree. Default true.
func WithPruneDeleted(prune bool) WatcherOption {
	return func(w *Watcher) { w.pruneDeleted = prune }
}

// WithDebounce coalesces bursts of writes to one path into a single OpIndex emitted
// d after the last write. Zero (the default) emits every event immediately.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithQueueSize sets the event channel capacity.
func WithQueueSize(n int) WatcherOption {
	return func(w *Watcher) {
		if n > 0 {
			w.events = make(chan Event, n)
		}
	}
}

// NewWatcher creates a watcher for root. Call Start to begin watching.
func NewWatcher(root string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		root:         filepath.Clean(root),
		extensions:   []string{".md"},
		recursive:    true,
		pruneDeleted: true,
		events:       make(chan Event, DefaultQueueSize),
		debounceMap:  make(map[string]*time.Timer),
		dirs:         make(map[string]struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = utils.OrNop(w.logger)
	return w
}

// Events returns the channel events are delivered on. It is never closed; consumers
// stop on Done or their own context.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Done is closed once the watcher has stopped.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Start creates the root if missing and begins watching. It runs until ctx is cancelled
// or Stop is called. A root that cannot be created or watched, or is not a directory,
// is an error.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	select {
	case <-w.done:
		return errors.New("watcher already stopped")
	default:
	}
	if err := ensureDir(w.root); err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher started",
		zap.String("root", w.root),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
		zap.Duration("debounce", w.debounce))
	go w.run(ctx, fw)
	return nil
}

func ensureDir(root string) error {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(root, 0755); err != nil {
			return fmt.Errorf("create notes directory: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat notes directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("notes path %s is not a directory", root)
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, fw, ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fw *fsnotify.Watcher, ev fsnotify.Event) {
	path := ev.Name
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			// Gone again before we looked; a Remove event follows.
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.recursive && !hidden(info.Name()) {
				w.handleNewDirectory(ctx, fw, path)
			}
			return
		}
		if w.matchExtension(path) {
			w.index(ctx, path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancelDebounce(path)
		if gone := w.untrackTree(path); len(gone) > 0 {
			// The notes inside produce no events of their own when their directory moves.
			for _, dir := range gone {
				_ = fw.Remove(dir)
			}
			if w.pruneDeleted && path != w.root {
				w.emit(ctx, newEvent(OpRemoveTree, path))
			}
			return
		}
		if w.pruneDeleted && w.matchExtension(path) {
			w.emit(ctx, newEvent(OpRemove, path))
		}
	}
}

// handleNewDirectory watches a directory that appeared under the root (created or moved
// in) and emits its existing notes, which produced no events of their own.
func (w *Watcher) handleNewDirectory(ctx context.Context, fw *fsnotify.Watcher, dir string) {
	w.logger.Debug("watcher handling new directory", zap.String("path", dir))
	if err := w.addTree(fw, dir); err != nil {
		w.logger.Warn("watcher failed to add directory", zap.String("path", dir), zap.Error(err))
	}
	if err := w.walkNotes(ctx, dir, func(path string) { w.index(ctx, path) }); err != nil {
		w.logger.Debug("watcher new directory walk stopped", zap.String("path", dir), zap.Error(err))
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	if !w.recursive {
		return w.addDir(fw, dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.addDir(fw, path)
	})
}

func (w *Watcher) addDir(fw *fsnotify.Watcher, dir string) error {
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.dirsMu.Lock()
	w.dirs[filepath.Clean(dir)] = struct{}{}
	w.dirsMu.Unlock()
	return nil
}

// untrackTree forgets dir and every watched directory below it. It returns the
// forgotten directories, or nil when dir was not being watched.
func (w *Watcher) untrackTree(dir string) []string {
	dir = filepath.Clean(dir)
	w.dirsMu.Lock()
	defer w.dirsMu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		return nil
	}
	var gone []string
	for d := range w.dirs {
		if d == dir || strings.HasPrefix(d, dir+string(filepath.Separator)) {
			gone = append(gone, d)
			delete(w.dirs, d)
		}
	}
	return gone
}

// walkNotes calls fn for every matching file under dir, in lexical order.
func (w *Watcher) walkNotes(ctx context.Context, dir string, fn func(path string)) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (!w.recursive || hidden(d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.matchExtension(path) {
			fn(path)
		}
		return nil
	})
}

// SyncExistingFiles emits OpIndex for every matching file already under the root.
// Call it after Start to catch up on notes written while the watcher was not running.
func (w *Watcher) SyncExistingFiles(ctx context.Context) error {
	w.logger.Debug("watcher syncing existing files", zap.String("root", w.root))
	return w.walkNotes(ctx, w.root, func(path string) {
		w.emit(ctx, newEvent(OpIndex, path))
	})
}

func (w *Watcher) index(ctx context.Context, path string) {
	if w.debounce <= 0 {
		w.emit(ctx, newEvent(OpIndex, path))
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.emit(ctx, newEvent(OpIndex, path))
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// emit blocks until the event is queued, the watcher stops, or ctx is done.
func (w *Watcher) emit(ctx context.Context, ev Event) {
	select {
	case w.events <- ev:
		w.logger.Debug("watcher queued event",
			zap.Stringer("id", ev.ID), zap.Stringer("op", ev.Op), zap.String("path", ev.Path))
	case <-w.done:
	case <-ctx.Done():
	}
}

// Stop stops the watcher and releases resources. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	fw := w.watcher
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() {
		close(w.done)
		w.logger.Debug("watcher stopped", zap.String("root", w.root))
	})
	if fw != nil {
		_ = fw.Close()
	}
}

func (w *Watcher) matchExtension(path string) bool {
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hidden reports dot-directories such as .git or .obsidian, which never hold notes.
func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
