package keyword

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/notemind/internal/models"
)

// BleveIndex implements Index using Bleve. The vector store is the source of truth, so
// the index lives in memory by default and is rebuilt from the store on startup.
type BleveIndex struct {
	mu    sync.RWMutex
	index bleve.Index
}

// noteDoc is the indexed form of a note.
type noteDoc struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func newMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so "bayes" matches "Bayes"
	// but is not conflated with "bay".
	text.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", text)
	docMapping.AddFieldMappingsAt("content", text)
	im.AddDocumentMapping("note", docMapping)
	im.DefaultType = "note"
	im.DefaultMapping = docMapping
	return im
}

// NewMemIndex returns an empty in-memory index.
func NewMemIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the note.
func (b *BleveIndex) Index(ctx context.Context, rec *models.NoteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Index(rec.Filename, toDoc(rec))
}

// Delete removes the note. Deleting an unknown filename is not an error.
func (b *BleveIndex) Delete(ctx context.Context, filename string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.Delete(filename)
}

// Rebuild swaps in a fresh index holding exactly records. Searches running concurrently
// see either the old or the new index.
func (b *BleveIndex) Rebuild(ctx context.Context, records []models.NoteRecord) error {
	fresh, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return fmt.Errorf("failed to create Bleve index: %w", err)
	}
	batch := fresh.NewBatch()
	for i := range records {
		if err := ctx.Err(); err != nil {
			_ = fresh.Close()
			return err
		}
		if err := batch.Index(records[i].Filename, toDoc(&records[i])); err != nil {
			_ = fresh.Close()
			return fmt.Errorf("index %s: %w", records[i].Filename, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		_ = fresh.Close()
		return fmt.Errorf("Bleve batch failed: %w", err)
	}

	b.mu.Lock()
	old := b.index
	b.index = fresh
	b.mu.Unlock()
	return old.Close()
}

// Search runs a match query and returns up to limit results, best first.
// With opts.TitleBoost > 1 title and content are queried separately and merged
// additively; notes matching only some terms of a multi-term query are penalized.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	titleBoost := 1.0
	fuzzy := false
	fuzziness := 2
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzzy = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}
	if limit <= 0 {
		limit = 10
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if titleBoost <= 1.0 {
		return b.searchSingle(query, limit, fuzzy, fuzziness)
	}
	return b.searchWithBoost(query, limit, titleBoost, fuzzy, fuzziness)
}

func (b *BleveIndex) searchSingle(query string, limit int, fuzzy bool, fuzziness int) ([]*Result, error) {
	req := bleve.NewSearchRequest(buildQuery(query, fuzzy, fuzziness, ""))
	req.Size = limit
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Result, len(res.Hits))
	for i, hit := range res.Hits {
		out[i] = &Result{Filename: hit.ID, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchWithBoost(query string, limit int, titleBoost float64, fuzzy bool, fuzziness int) ([]*Result, error) {
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}
	scores := make(map[string]float64)
	for _, field := range []string{"title", "content"} {
		req := bleve.NewSearchRequest(buildQuery(query, fuzzy, fuzziness, field))
		req.Size = reqSize
		res, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("Bleve %s search failed: %w", field, err)
		}
		for _, hit := range res.Hits {
			s := hit.Score
			if field == "title" {
				s *= titleBoost
			}
			scores[hit.ID] += s
		}
	}

	terms := tokenizeQuery(query)
	if len(terms) > 1 {
		coverage := make(map[string]int)
		for _, term := range terms {
			req := bleve.NewSearchRequest(buildQuery(term, fuzzy, fuzziness, ""))
			req.Size = reqSize
			res, err := b.index.Search(req)
			if err != nil {
				continue
			}
			for _, hit := range res.Hits {
				coverage[hit.ID]++
			}
		}
		// (matched/total)^2 so notes matching every term outrank partial matches.
		for id := range scores {
			matched := coverage[id]
			if matched == 0 {
				matched = 1
			}
			c := float64(matched) / float64(len(terms))
			scores[id] *= c * c
		}
	}

	out := make([]*Result, 0, len(scores))
	for id, s := range scores {
		out = append(out, &Result{Filename: id, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Filename < out[j].Filename
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries when fuzzy is
// set. An empty field searches all fields.
func buildQuery(query string, fuzzy bool, fuzziness int, field string) blevequery.Query {
	terms := tokenizeQuery(query)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// DocCount returns the number of indexed notes.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

func toDoc(rec *models.NoteRecord) noteDoc {
	return noteDoc{Title: titleTerms(rec.Filename), Content: rec.Content}
}

// titleTerms turns a note key into searchable words: "work/q3_plan-draft.md" becomes
// "work q3 plan draft". The standard analyzer does not split on underscores.
func titleTerms(filename string) string {
	name := strings.TrimSuffix(filename, path.Ext(filename))
	return strings.NewReplacer("/", " ", "_", " ", "-", " ").Replace(name)
}
