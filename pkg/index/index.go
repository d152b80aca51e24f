// Package index is the content-index source: site records (blog posts,
// pages, bookmarks) kept in an in-memory bleve index and searched by title.
package index

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"
	"github.com/charmbracelet/log"
)

// DefaultName is the name the resolver asks for.
const DefaultName = "local"

// textAnalyzer lowercases unicode words and keeps stop words, so every
// typed term has a token it can prefix-match.
const textAnalyzer = "omni_text"

// Record is one indexed item as stored on disk.
type Record struct {
	Path  string `toml:"path"`
	URL   string `toml:"url"`
	Title string `toml:"title"`
	Href  string `toml:"href"`
	Site  string `toml:"site"`
}

type file struct {
	Record []Record `toml:"record"`
}

// document is what bleve stores; it reads the json tags.
type document struct {
	Path  string `json:"path"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Href  string `json:"href"`
	Site  string `json:"site"`
}

// Store is a named bleve index over Records.
type Store struct {
	name  string
	mu    sync.RWMutex
	index bleve.Index
	count int
	log   *log.Logger
}

func keywordField() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = keyword.Name
	fm.IncludeInAll = false
	return fm
}

func textField() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = textAnalyzer
	return fm
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	err := m.AddCustomAnalyzer(textAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("text analyzer: %w", err)
	}

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", keywordField())
	doc.AddFieldMappingsAt("url", keywordField())
	doc.AddFieldMappingsAt("href", keywordField())
	doc.AddFieldMappingsAt("title", textField())
	doc.AddFieldMappingsAt("site", textField())
	m.DefaultMapping = doc
	return m, nil
}

// New creates an empty in-memory index answering to name.
func New(name string) (*Store, error) {
	if name == "" {
		name = DefaultName
	}
	m, err := newMapping()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Store{name: name, index: idx, log: logger.New("index")}, nil
}

// Load builds a store from a TOML file. A missing file yields an empty store.
func Load(path, name string) (*Store, error) {
	s, err := New(name)
	if err != nil {
		return nil, err
	}
	if !utils.FileExists(path) {
		s.log.Warnf("Index file %s not found, starting empty", path)
		return s, nil
	}
	var f file
	if err := utils.LoadTOMLFile(path, &f); err != nil {
		s.Close()
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	if err := s.Add(f.Record...); err != nil {
		s.Close()
		return nil, err
	}
	s.log.Debugf("Indexed %d records from %s", len(f.Record), path)
	return s, nil
}

// Add indexes records. A record is keyed by its URL, or its path when it
// has none, so re-adding replaces it.
func (s *Store) Add(records ...Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.index.NewBatch()
	for _, r := range records {
		if r.Path == "" {
			s.log.Debug("skipping record without path", "url", r.URL)
			continue
		}
		id := r.URL
		if id == "" {
			id = r.Path
		}
		doc := document{Path: r.Path, URL: r.URL, Title: r.Title, Href: r.Href, Site: r.Site}
		if err := batch.Index(id, doc); err != nil {
			return fmt.Errorf("index %s: %w", id, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	n, err := s.index.DocCount()
	if err != nil {
		return err
	}
	s.count = int(n)
	return nil
}

// Len returns the number of indexed records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Close releases the index.
func (s *Store) Close() error {
	return s.index.Close()
}

// Search finds records whose field contains a token starting with each
// input term and whose path matches one of q.Paths. Matches in q.Field
// are marked with <b>..</b>. A query for another index name finds nothing.
func (s *Store) Search(ctx context.Context, input string, q suggest.IndexQuery) ([]suggest.IndexRecord, error) {
	if q.Index != "" && q.Index != s.name {
		s.log.Debug("unknown index", "name", q.Index)
		return nil, nil
	}
	field := q.Field
	if field == "" {
		field = "title"
	}
	terms := utils.SearchTerms(input)
	if len(terms) == 0 {
		return nil, nil
	}

	conjuncts := make([]query.Query, 0, len(terms)+1)
	for _, term := range terms {
		pq := bleve.NewPrefixQuery(strings.ToLower(term))
		pq.SetField(field)
		conjuncts = append(conjuncts, pq)
	}
	if len(q.Paths) > 0 {
		paths := make([]query.Query, 0, len(q.Paths))
		for _, p := range q.Paths {
			wq := bleve.NewWildcardQuery(p)
			wq.SetField("path")
			paths = append(paths, wq)
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(paths...))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(conjuncts...), limit, 0, false)
	req.Fields = []string{"*"}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField(field)

	s.mu.RLock()
	res, err := s.index.SearchInContext(ctx, req)
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", input, err)
	}

	out := make([]suggest.IndexRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		rec := suggest.IndexRecord{
			Path: fieldString(hit.Fields, "path"),
			URL:  fieldString(hit.Fields, "url"),
			Metadata: suggest.IndexMetadata{
				Title: fieldString(hit.Fields, "title"),
				Href:  fieldString(hit.Fields, "href"),
			},
			Site: suggest.Site{Title: fieldString(hit.Fields, "site")},
		}
		if frags := hit.Fragments[field]; len(frags) > 0 {
			rec.Matches = append(rec.Matches, suggest.Match{Key: field, Value: markToBold(frags[0])})
		}
		out = append(out, rec)
	}
	return out, nil
}

var markReplacer = strings.NewReplacer("<mark>", "<b>", "</mark>", "</b>")

// markToBold rewrites the html highlighter's <mark> tags.
func markToBold(fragment string) string {
	return markReplacer.Replace(fragment)
}

func fieldString(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}
