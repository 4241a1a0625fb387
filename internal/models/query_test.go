package models

import (
	"errors"
	"testing"
)

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *Query
		want    string
		wantErr bool
	}{
		{"empty query", &Query{Query: ""}, "", true},
		{"whitespace only", &Query{Query: " \t\n"}, "", true},
		{"valid query", &Query{Query: "hello"}, "hello", false},
		{"trims surrounding space", &Query{Query: "  cat dog "}, "cat dog", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrEmptyQuery) {
				t.Errorf("expected ErrEmptyQuery, got %v", err)
			}
			if !tt.wantErr && tt.query.Query != tt.want {
				t.Errorf("Query = %q, want %q", tt.query.Query, tt.want)
			}
		})
	}
}

func TestNoteRecord_Equal(t *testing.T) {
	a := &NoteRecord{Filename: "a.md", Content: "x", Vector: []float32{1, 2}}
	b := &NoteRecord{Filename: "a.md", Content: "x", Vector: []float32{1, 2}}
	if !a.Equal(b) {
		t.Error("identical records should be equal")
	}
	b.Vector[1] = 3
	if a.Equal(b) {
		t.Error("different vectors should not be equal")
	}
	c := &NoteRecord{Filename: "a.md", Content: "y", Vector: []float32{1, 2}}
	if a.Equal(c) {
		t.Error("different content should not be equal")
	}
}
