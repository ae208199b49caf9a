package searcher

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Match is one search hit.
type Match struct {
	Path      string
	Lang      string
	Score     float64
	Fragments []string // highlighted content snippets
}

// Index is a full-text index over repository documents. It lives in
// memory and is rebuilt on open; incremental updates keep it fresh while
// a task runs.
type Index struct {
	mu  sync.RWMutex
	idx bleve.Index
}

func buildMapping() mapping.IndexMapping {
	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true
	content.IncludeTermVectors = true // required for highlighting

	path := bleve.NewTextFieldMapping()
	path.Analyzer = standard.Name
	path.Store = true

	lang := bleve.NewKeywordFieldMapping()
	lang.Store = true

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", content)
	doc.AddFieldMappingsAt("path", path)
	doc.AddFieldMappingsAt("lang", lang)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// NewIndex creates an empty in-memory index.
func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Put indexes or reindexes documents in one batch.
func (ix *Index) Put(docs ...Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.idx.NewBatch()
	for _, doc := range docs {
		if err := batch.Index(doc.Path, doc); err != nil {
			return fmt.Errorf("index %s: %w", doc.Path, err)
		}
	}
	return ix.idx.Batch(batch)
}

// Remove drops documents from the index. Unknown paths are no-ops.
func (ix *Index) Remove(paths ...string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	batch := ix.idx.NewBatch()
	for _, p := range paths {
		batch.Delete(p)
	}
	return ix.idx.Batch(batch)
}

// Count reports how many documents are indexed.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.idx.DocCount()
}

// Search runs a free-text query and returns up to limit matches, best
// first, with highlighted fragments.
func (ix *Index) Search(queryText string, limit int) ([]Match, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = 10
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	query := bleve.NewMatchQuery(queryText)
	query.SetField("content")

	req := bleve.NewSearchRequestOptions(query, limit, 0, false)
	req.Fields = []string{"path", "lang"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("content")

	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	matches := make([]Match, 0, len(res.Hits))
	for _, hit := range res.Hits {
		m := Match{Path: hit.ID, Score: hit.Score}
		if lang, ok := hit.Fields["lang"].(string); ok {
			m.Lang = lang
		}
		m.Fragments = hit.Fragments["content"]
		matches = append(matches, m)
	}
	return matches, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.idx.Close()
}
