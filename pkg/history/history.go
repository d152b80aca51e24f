// Package history is the in-process history source. Visits are tokenised
// with the resolver's term rules and indexed in a patricia trie, so a query
// term matches every token it prefixes.
package history

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

// DefaultLimit caps Search results.
const DefaultLimit = 20

const (
	columnURL   = 0
	columnTitle = 1
)

// Visit is one history entry as stored on disk.
type Visit struct {
	URL    string `toml:"url"`
	Title  string `toml:"title"`
	Visits int    `toml:"visits"`
}

type file struct {
	Visit []Visit `toml:"visit"`
}

// posting is one token occurrence.
type posting struct {
	entry  int
	column int
	offset int
	size   int
}

// Store keeps visits in memory and answers prefix queries over their tokens.
type Store struct {
	mu      sync.RWMutex
	entries []Visit
	byURL   map[string]int
	trie    *patricia.Trie
	limit   int
	log     *log.Logger
}

// New creates an empty store. A limit <= 0 uses DefaultLimit.
func New(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		byURL: make(map[string]int),
		trie:  patricia.NewTrie(),
		limit: limit,
		log:   logger.New("history"),
	}
}

// Load reads visits from a TOML file. A missing file yields an empty store.
func Load(path string, limit int) (*Store, error) {
	s := New(limit)
	if !utils.FileExists(path) {
		s.log.Warnf("History file %s not found, starting empty", path)
		return s, nil
	}
	var f file
	if err := utils.LoadTOMLFile(path, &f); err != nil {
		return nil, fmt.Errorf("load history %s: %w", path, err)
	}
	for _, v := range f.Visit {
		if v.URL == "" {
			continue
		}
		s.add(v)
	}
	s.log.Debugf("Loaded %d visits from %s", len(s.entries), path)
	return s, nil
}

// Save writes the visits back to a TOML file.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	f := file{Visit: append([]Visit(nil), s.entries...)}
	s.mu.RUnlock()
	return utils.SaveTOMLFile(f, path)
}

// Add records a visit to url. A known URL has its count bumped and keeps
// its title unless it had none.
func (s *Store) Add(url, title string) {
	if url == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.byURL[url]; ok {
		s.entries[i].Visits++
		if s.entries[i].Title == "" && title != "" {
			s.entries[i].Title = title
			s.index(i, columnTitle, title)
		}
		return
	}
	s.add(Visit{URL: url, Title: title, Visits: 1})
}

// Len returns the number of distinct URLs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// add appends v; callers hold the write lock or own the store.
func (s *Store) add(v Visit) {
	if i, ok := s.byURL[v.URL]; ok {
		s.entries[i].Visits += v.Visits
		return
	}
	i := len(s.entries)
	s.entries = append(s.entries, v)
	s.byURL[v.URL] = i
	s.index(i, columnURL, v.URL)
	s.index(i, columnTitle, v.Title)
}

func (s *Store) index(entry, column int, text string) {
	for _, tok := range utils.Tokenize(text) {
		key := patricia.Prefix(strings.ToLower(tok.Text))
		p := posting{entry: entry, column: column, offset: tok.Offset, size: len(tok.Text)}
		if item := s.trie.Get(key); item != nil {
			s.trie.Set(key, append(item.([]posting), p))
			continue
		}
		s.trie.Insert(key, []posting{p})
	}
}

// hit collects the postings of one entry, per query term.
type hit struct {
	entry  int
	tuples [][4]int
	terms  int
}

// Search returns the entries where every query term prefixes one of the
// tokens, most visited first. Each result carries the match offsets as
// "column term offset size" groups sorted by column then offset.
func (s *Store) Search(ctx context.Context, query string) ([]*suggest.History, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	terms := utils.SearchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits map[int]*hit
	for ti, term := range terms {
		found := make(map[int]*hit)
		err := s.trie.VisitSubtree(patricia.Prefix(strings.ToLower(term)), func(_ patricia.Prefix, item patricia.Item) error {
			for _, p := range item.([]posting) {
				if hits != nil && hits[p.entry] == nil {
					continue
				}
				h := found[p.entry]
				if h == nil {
					h = &hit{entry: p.entry}
					if prev := hits[p.entry]; prev != nil {
						h.tuples = prev.tuples
					}
					found[p.entry] = h
				}
				h.tuples = append(h.tuples, [4]int{p.column, ti, p.offset, p.size})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		hits = found
		if len(hits) == 0 {
			return nil, nil
		}
	}

	ordered := make([]*hit, 0, len(hits))
	for _, h := range hits {
		ordered = append(ordered, h)
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := s.entries[ordered[i].entry], s.entries[ordered[j].entry]
		if a.Visits != b.Visits {
			return a.Visits > b.Visits
		}
		return a.URL < b.URL
	})
	if len(ordered) > s.limit {
		ordered = ordered[:s.limit]
	}

	out := make([]*suggest.History, 0, len(ordered))
	for _, h := range ordered {
		v := s.entries[h.entry]
		out = append(out, &suggest.History{
			URL:     v.URL,
			Title:   v.Title,
			Offsets: formatOffsets(h.tuples),
		})
	}
	return out, nil
}

func formatOffsets(tuples [][4]int) string {
	sort.SliceStable(tuples, func(i, j int) bool {
		if tuples[i][0] != tuples[j][0] {
			return tuples[i][0] < tuples[j][0]
		}
		return tuples[i][2] < tuples[j][2]
	})
	var b strings.Builder
	for i, t := range tuples {
		for k, n := range t {
			if i > 0 || k > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strconv.Itoa(n))
		}
	}
	return b.String()
}
