// Package models defines core data structures for notes, queries, and search results.
package models

// NoteRecord is one indexed note. Filename is the unique key within the vector store.
type NoteRecord struct {
	Filename string    `json:"filename" yaml:"filename"`
	Content  string    `json:"content" yaml:"content"`
	Vector   []float32 `json:"vector" yaml:"vector,flow"`
}

// Equal reports whether r and other hold the same filename, content, and vector.
func (r *NoteRecord) Equal(other *NoteRecord) bool {
	if r.Filename != other.Filename || r.Content != other.Content || len(r.Vector) != len(other.Vector) {
		return false
	}
	for i := range r.Vector {
		if r.Vector[i] != other.Vector[i] {
			return false
		}
	}
	return true
}
