// Package resolver merges history, content-index and bookmark results into
// the ranked suggestion list of a location bar.
//
// Each call to Resolve advances the session's generation. When its lookups
// return, a resolution only applies its results if no newer resolution was
// started in the meantime, so a slow query can never overwrite the list of a
// fresher one.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/location"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// HistorySearcher searches browsing history. Returned records are owned by
// the caller, which decorates them in place.
type HistorySearcher interface {
	Search(ctx context.Context, query string) ([]*suggest.History, error)
}

// IndexSearcher searches the content index.
type IndexSearcher interface {
	Search(ctx context.Context, query string, q suggest.IndexQuery) ([]suggest.IndexRecord, error)
}

// DataPaths are the content-index records offered as suggestions.
var DataPaths = []string{
	"/blog/*.md",
	"/bookmarks/*.goto",
	"/pages/*.md",
}

// Options tune a Resolver.
type Options struct {
	// MaxResults caps the merged content and history entries.
	MaxResults int
	Index      suggest.IndexQuery
}

// DefaultOptions returns the stock limits.
func DefaultOptions() Options {
	return Options{
		MaxResults: 10,
		Index: suggest.IndexQuery{
			Paths: DataPaths,
			Limit: 10,
			Index: "local",
			Field: "title",
		},
	}
}

// Resolver builds suggestion lists for sessions.
type Resolver struct {
	history HistorySearcher
	index   IndexSearcher
	opts    Options
	metrics *Metrics
	log     *log.Logger
}

// New creates a Resolver. metrics may be nil.
func New(history HistorySearcher, index IndexSearcher, opts Options, metrics *Metrics) *Resolver {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultOptions().MaxResults
	}
	return &Resolver{
		history: history,
		index:   index,
		opts:    opts,
		metrics: metrics,
		log:     logger.New("resolver"),
	}
}

// Resolve computes the suggestion list for the session's current input and
// calls onResults once it has been applied to the session. Until onResults
// returns no other resolution can apply to the session, so the callback sees
// this resolution's results, last input and guess. onResults must not
// resolve the same session synchronously. A resolution that was superseded
// returns nil without touching the session or calling onResults. Any lookup
// error aborts the resolution and is returned.
func (r *Resolver) Resolve(ctx context.Context, s *Session, onResults func()) error {
	start := time.Now()
	snap := s.begin()
	input := snap.input

	engines, err := snap.engines.Wait(ctx)
	if err != nil {
		r.metrics.observe(outcomeError, start)
		return fmt.Errorf("search engines: %w", err)
	}
	engine, _ := suggest.SelectEngine(engines)

	examineInput := input
	if examineInput == "" {
		examineInput = "/"
	}
	examined := location.Examine(examineInput)

	var (
		history   []*suggest.History
		records   []suggest.IndexRecord
		bookmarks []suggest.Item
	)
	g, gctx := errgroup.WithContext(ctx)
	if input != "" {
		g.Go(func() error {
			res, err := r.history.Search(gctx, input)
			if err != nil {
				return fmt.Errorf("history search: %w", err)
			}
			history = res
			return nil
		})
		g.Go(func() error {
			res, err := r.index.Search(gctx, input, r.opts.Index)
			if err != nil {
				return fmt.Errorf("index search: %w", err)
			}
			records = res
			return nil
		})
	}
	g.Go(func() error {
		res, err := snap.bookmarks.Wait(gctx)
		if err != nil {
			return fmt.Errorf("bookmarks fetch: %w", err)
		}
		bookmarks = res
		return nil
	})
	if err := g.Wait(); err != nil {
		r.metrics.observe(outcomeError, start)
		return err
	}

	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	s.mu.Lock()
	if snap.generation != s.generation {
		s.mu.Unlock()
		r.log.Debug("dropping stale resolution", "input", input, "gen", snap.generation)
		r.metrics.observe(outcomeStale, start)
		return nil
	}
	if input == "" {
		s.results = bookmarks
		if s.lastInput != input {
			s.urlGuess = nil
		}
	} else {
		merged := r.merge(utils.SearchTerms(input), records, history)
		if s.lastInput != input {
			s.urlGuess = guessURL(input, merged)
		}
		s.results = assemble(input, engine, examined, s.urlGuess, merged)
	}
	s.lastInput = input
	count := len(s.results)
	s.mu.Unlock()

	r.log.Debug("resolved", "input", input, "results", count, "took", time.Since(start))
	r.metrics.observe(outcomeApplied, start)
	onResults()
	return nil
}
