package fileid

import (
	"path/filepath"
	"testing"
)

func TestNoteKey(t *testing.T) {
	root := filepath.FromSlash("/home/u/MyAINote/notes")
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "root note", path: "/home/u/MyAINote/notes/a.md", want: "a.md"},
		{name: "nested note", path: "/home/u/MyAINote/notes/work/b.md", want: "work/b.md"},
		{name: "unclean path", path: "/home/u/MyAINote/notes/./work/../c.md", want: "c.md"},
		{name: "outside root", path: "/tmp/elsewhere/d.md", want: "d.md"},
		{name: "sibling prefix", path: "/home/u/MyAINote/notes2/e.md", want: "e.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoteKey(root, filepath.FromSlash(tt.path)); got != tt.want {
				t.Errorf("NoteKey(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNoteKey_deterministic(t *testing.T) {
	p := filepath.FromSlash("/n/x/y.md")
	if NoteKey("/n", p) != NoteKey("/n", p) {
		t.Error("same path should give same key")
	}
}

func TestNoteKey_noRoot(t *testing.T) {
	if got := NoteKey("", filepath.FromSlash("/a/b/c.md")); got != "c.md" {
		t.Errorf("got %q", got)
	}
}

func TestNotePath_roundTrip(t *testing.T) {
	root := filepath.FromSlash("/n")
	p := filepath.FromSlash("/n/work/b.md")
	if got := NotePath(root, NoteKey(root, p)); got != p {
		t.Errorf("NotePath(NoteKey(%q)) = %q", p, got)
	}
}

func TestDirPrefix(t *testing.T) {
	root := filepath.FromSlash("/home/u/MyAINote/notes")
	tests := []struct {
		name   string
		dir    string
		want   string
		wantOK bool
	}{
		{name: "child", dir: "/home/u/MyAINote/notes/work", want: "work/", wantOK: true},
		{name: "nested", dir: "/home/u/MyAINote/notes/work/2024", want: "work/2024/", wantOK: true},
		{name: "trailing slash", dir: "/home/u/MyAINote/notes/work/", want: "work/", wantOK: true},
		{name: "root itself", dir: "/home/u/MyAINote/notes", wantOK: false},
		{name: "outside", dir: "/tmp/work", wantOK: false},
		{name: "sibling prefix", dir: "/home/u/MyAINote/notes2", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DirPrefix(root, filepath.FromSlash(tt.dir))
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("DirPrefix(%q) = %q, %v, want %q, %v", tt.dir, got, ok, tt.want, tt.wantOK)
			}
		})
	}
	if _, ok := DirPrefix("", "/x"); ok {
		t.Error("empty notes dir should never match")
	}
}
