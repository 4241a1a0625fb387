package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/notemind/internal/indexer"
	"github.com/hyperjump/notemind/internal/models"
)

func sampleResponse() *models.SearchResponse {
	return &models.SearchResponse{
		Query:     "cat dog",
		QueryTime: 42,
		Total:     2,
		Results: []*models.SearchResult{
			{Title: "a.md", Path: "/notes/a.md", Score: 1, ContentSnippet: "cat\ndog"},
			{Title: "b.md", Path: "/notes/b.md", Score: 0.8149, ContentSnippet: "cat dog cat"},
		},
	}
}

func TestWriteSearchResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Query != "cat dog" || len(decoded.Results) != 2 || decoded.Results[1].Title != "b.md" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSearchResults_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, sampleResponse(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 2 results in 42ms", "1. a.md | Score: 1.0000", "2. b.md | Score: 0.8149", "Path: /notes/a.md", "cat dog\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, &models.SearchResponse{Query: "x"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No notes match \"x\".\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteChat(t *testing.T) {
	resp := &models.ChatResponse{Answer: "answer text", Query: "q"}
	var buf bytes.Buffer
	if err := WriteChat(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "answer text\n" {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	if err := WriteChat(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"answer": "answer text"`) {
		t.Errorf("got %s", buf.String())
	}
}

func TestWriteSummary(t *testing.T) {
	sum := indexer.Summary{Indexed: 3, Unchanged: 1, Failed: 1, Pruned: 2, Duration: 1500 * time.Millisecond}
	var buf bytes.Buffer
	if err := WriteSummary(&buf, sum, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Indexed 3 notes (1 unchanged, 1 failed, 2 pruned) in 1.5s\n" {
		t.Errorf("got %q", buf.String())
	}
	buf.Reset()
	if err := WriteSummary(&buf, sum, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"duration_ms": 1500`) {
		t.Errorf("got %s", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	status := map[string]interface{}{"notes": 2, "backend": "file", "extra": true}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, status, []string{"backend", "notes", "missing"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "backend:  file\nnotes:    2\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"", OutputText, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}
