// Package fileid derives the store key of a note from its path.
package fileid

import (
	"path/filepath"
	"strings"
)

// NoteKey returns the key under which the note at path is stored: its path relative to
// notesDir, slash-separated. Notes outside notesDir (or when notesDir is empty) are keyed
// by their base name. The same path always yields the same key.
func NoteKey(notesDir, path string) string {
	clean := filepath.Clean(path)
	if notesDir != "" {
		rel, err := filepath.Rel(filepath.Clean(notesDir), clean)
		if err == nil && rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(clean)
}

// NotePath is the inverse of NoteKey for notes inside notesDir.
func NotePath(notesDir, key string) string {
	return filepath.Join(notesDir, filepath.FromSlash(key))
}

// DirPrefix returns the key prefix ("work/") shared by every note under dir. It reports
// false unless dir lies strictly inside notesDir.
func DirPrefix(notesDir, dir string) (string, bool) {
	if notesDir == "" {
		return "", false
	}
	rel, err := filepath.Rel(filepath.Clean(notesDir), filepath.Clean(dir))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel) + "/", true
}
