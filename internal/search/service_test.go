package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/notemind/internal/embedding"
	"github.com/hyperjump/notemind/internal/keyword"
	"github.com/hyperjump/notemind/internal/models"
	"github.com/hyperjump/notemind/internal/storage"
)

func newTestService(t *testing.T, notes [][2]string, opts ...ServiceOption) (*Service, string) {
	t.Helper()
	ctx := context.Background()
	emb := embedding.NewByteEmbedder(embedding.DefaultDimensions)
	path := filepath.Join(t.TempDir(), "vectors.json")
	repo := storage.NewRepository(storage.NewFileBackend(path, emb.Dimensions()), emb.Dimensions())
	for _, n := range notes {
		vec, err := emb.Embed(ctx, n[1])
		if err != nil {
			t.Fatal(err)
		}
		if _, err := repo.Upsert(ctx, models.NoteRecord{Filename: n[0], Content: n[1], Vector: vec}); err != nil {
			t.Fatal(err)
		}
	}
	return NewService(repo, emb, opts...), path
}

func titles(results []*models.SearchResult) string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Title
	}
	return strings.Join(names, ",")
}

func TestSearch_emptyStore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	results, err := svc.Search(context.Background(), "anything")
	if err != nil {
		t.Fatal(err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestSearch_catDogRanking(t *testing.T) {
	svc, _ := newTestService(t, [][2]string{
		{"b.md", "cat dog cat"},
		{"a.md", "cat dog"},
	})
	results, err := svc.Search(context.Background(), "cat dog")
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); got != "a.md,b.md" {
		t.Fatalf("order = %s", got)
	}
	// Precomputed with the byte-accumulation embedding at 384 dimensions.
	want := []float64{1.0, 0.8149485642643777}
	for i, w := range want {
		if math.Abs(results[i].Score-w) > 1e-4 {
			t.Errorf("score[%d] = %v, want %v", i, results[i].Score, w)
		}
	}
}

func TestSearch_exactMatchIsMaximum(t *testing.T) {
	svc, _ := newTestService(t, [][2]string{
		{"x.md", "zzz"},
		{"y.md", "dog cat"},
		{"exact.md", "quarterly planning notes"},
		{"z.md", "quarterly"},
	})
	results, err := svc.Search(context.Background(), "quarterly planning notes")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Title != "exact.md" || math.Abs(results[0].Score-1) > 1e-5 {
		t.Errorf("top = %+v", results[0])
	}
	for i := 1; i < len(results); i++ {
		if results[i].Score > results[i-1].Score {
			t.Errorf("results not sorted at %d: %v > %v", i, results[i].Score, results[i-1].Score)
		}
	}
}

func TestSearch_tiesKeepStoreOrder(t *testing.T) {
	svc, _ := newTestService(t, [][2]string{
		{"first.md", "same"},
		{"second.md", "same"},
		{"third.md", "same"},
	})
	results, err := svc.Search(context.Background(), "same")
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); got != "first.md,second.md,third.md" {
		t.Errorf("order = %s", got)
	}
}

func TestSearch_limit(t *testing.T) {
	var notes [][2]string
	for i := 0; i < 8; i++ {
		notes = append(notes, [2]string{fmt.Sprintf("n%d.md", i), strings.Repeat("a", i+1)})
	}
	svc, _ := newTestService(t, notes)
	results, err := svc.Search(context.Background(), "aaa")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != DefaultLimit {
		t.Errorf("len = %d, want %d", len(results), DefaultLimit)
	}

	svc2, _ := newTestService(t, notes, WithLimit(2))
	results, _ = svc2.Search(context.Background(), "aaa")
	if len(results) != 2 {
		t.Errorf("len = %d, want 2", len(results))
	}
}

func TestSearch_zeroVectorScoresZero(t *testing.T) {
	svc, _ := newTestService(t, [][2]string{{"empty.md", ""}, {"a.md", "a"}})
	results, err := svc.Search(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); got != "a.md,empty.md" {
		t.Fatalf("order = %s", got)
	}
	if results[1].Score != 0 {
		t.Errorf("empty note score = %v, want 0", results[1].Score)
	}
}

func TestSearch_snippetAndPath(t *testing.T) {
	long := strings.Repeat("é", 250)
	svc, _ := newTestService(t, [][2]string{{"work/long.md", long}}, WithNotesDir("/notes"))
	results, err := svc.Search(context.Background(), "é")
	if err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if r.ContentSnippet != strings.Repeat("é", DefaultSnippetLength) {
		t.Errorf("snippet has %d runes", len([]rune(r.ContentSnippet)))
	}
	if r.Path != filepath.Join("/notes", "work", "long.md") {
		t.Errorf("path = %q", r.Path)
	}
}

func TestSearch_corruptStore(t *testing.T) {
	svc, path := newTestService(t, nil)
	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(context.Background(), "cat")
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestSearch_dimensionMismatchIsAnError(t *testing.T) {
	_, path := newTestService(t, [][2]string{{"a.md", "cat dog"}})
	emb := embedding.NewByteEmbedder(8)
	repo := storage.NewRepository(storage.NewFileBackend(path, emb.Dimensions()), emb.Dimensions())
	svc := NewService(repo, emb)

	results, err := svc.Search(context.Background(), "cat")
	if !errors.Is(err, storage.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}

func TestKeyword(t *testing.T) {
	ctx := context.Background()
	kw, err := keyword.NewMemIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Close()
	notes := [][2]string{
		{"a.md", "meeting notes about the zebra migration"},
		{"b.md", "groceries"},
	}
	svc, _ := newTestService(t, notes, WithKeywordIndex(kw))
	for _, n := range notes {
		if err := kw.Index(ctx, &models.NoteRecord{Filename: n[0], Content: n[1]}); err != nil {
			t.Fatal(err)
		}
	}
	// Indexed but not stored: dropped from results.
	if err := kw.Index(ctx, &models.NoteRecord{Filename: "ghost.md", Content: "zebra"}); err != nil {
		t.Fatal(err)
	}

	results, err := svc.Keyword(ctx, "zebra", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got := titles(results); got != "a.md" {
		t.Errorf("keyword results = %s", got)
	}
}

func TestKeyword_disabled(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Keyword(context.Background(), "x", 5); !errors.Is(err, ErrKeywordDisabled) {
		t.Errorf("expected ErrKeywordDisabled, got %v", err)
	}
}

func TestNotes(t *testing.T) {
	svc, _ := newTestService(t, [][2]string{{"b.md", "b"}, {"a.md", "a"}})
	names, err := svc.Notes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "b.md,a.md" {
		t.Errorf("notes = %v", names)
	}
}

func BenchmarkSearch(b *testing.B) {
	ctx := context.Background()
	emb := embedding.NewByteEmbedder(embedding.DefaultDimensions)
	repo := storage.NewRepository(storage.NewFileBackend(filepath.Join(b.TempDir(), "vectors.json"), emb.Dimensions()), emb.Dimensions())
	for i := 0; i < 200; i++ {
		content := fmt.Sprintf("note %d about topic %d with some filler text", i, i%17)
		vec, _ := emb.Embed(ctx, content)
		if _, err := repo.Upsert(ctx, models.NoteRecord{Filename: fmt.Sprintf("n%03d.md", i), Content: content, Vector: vec}); err != nil {
			b.Fatal(err)
		}
	}
	svc := NewService(repo, emb)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Search(ctx, "topic 3 filler"); err != nil {
			b.Fatal(err)
		}
	}
}
