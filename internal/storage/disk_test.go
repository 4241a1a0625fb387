package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "vectors.json")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{sub}, 3},
		{"file and dir", []string{f1, sub}, 8},
		{"missing skipped", []string{f1, filepath.Join(dir, "nonexistent"), sub}, 8},
		{"empty skipped", []string{"", f1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}

func TestFootprintPaths(t *testing.T) {
	fb := NewFileBackend("/data/vectors.json", 4)
	if got := FootprintPaths(fb); len(got) != 1 || got[0] != "/data/vectors.json" {
		t.Errorf("file footprint: %v", got)
	}
	sb, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "notes.db"), 4)
	if err != nil {
		t.Fatal(err)
	}
	defer sb.Close()
	if got := FootprintPaths(sb); len(got) != 3 {
		t.Errorf("sqlite footprint: %v", got)
	}
}
