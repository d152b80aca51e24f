package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []suggest.History
	err     error
	// gates block Search for a given query until the channel is closed.
	gates   map[string]chan struct{}
	entered chan string
}

func (f *fakeHistory) Search(ctx context.Context, query string) ([]*suggest.History, error) {
	f.mu.Lock()
	gate := f.gates[query]
	records := f.records
	err := f.err
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- query
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	out := make([]*suggest.History, len(records))
	for i := range records {
		h := records[i]
		out[i] = &h
	}
	return out, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	records []suggest.IndexRecord
	lastQ   suggest.IndexQuery
}

func (f *fakeIndex) Search(ctx context.Context, query string, q suggest.IndexQuery) ([]suggest.IndexRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQ = q
	return f.records, nil
}

var testEngines = []suggest.Engine{
	{Name: "First", URL: "https://first.example/"},
	{Name: "Example", URL: "https://search.example/", Selected: true},
}

func newTestSession(input string) *Session {
	s := NewSession()
	s.SetInput(input)
	s.SetSearchEngines(Ready(testEngines))
	s.SetBookmarksFetch(Ready([]suggest.Item{}))
	return s
}

func resolve(t *testing.T, r *Resolver, s *Session) int {
	t.Helper()
	calls := 0
	require.NoError(t, r.Resolve(context.Background(), s, func() { calls++ }))
	return calls
}

func TestResolveOrdering(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []suggest.Kind
	}{
		{"space means search", "weather today", []suggest.Kind{suggest.KindSearch}},
		{"url-like goes first", "github.com/foo", []suggest.Kind{suggest.KindGoTo, suggest.KindSearch}},
		{"plain word searches first", "weather", []suggest.Kind{suggest.KindSearch, suggest.KindGoTo}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(&fakeHistory{}, &fakeIndex{}, DefaultOptions(), nil)
			s := newTestSession(tt.input)
			assert.Equal(t, 1, resolve(t, r, s))

			var kinds []suggest.Kind
			for _, item := range s.Results() {
				kinds = append(kinds, item.Kind())
			}
			assert.Equal(t, tt.kinds, kinds)
		})
	}
}

func TestResolveSyntheticItems(t *testing.T) {
	r := New(&fakeHistory{}, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("weather today")
	resolve(t, r, s)

	require.Len(t, s.Results(), 1)
	assert.Equal(t, suggest.Search{
		URL:   "https://search.example/?q=weather+today",
		Title: `Search Example for "weather today"`,
		Query: "weather today",
	}, s.Results()[0])

	s.SetInput("github.com/foo")
	resolve(t, r, s)
	assert.Equal(t, suggest.GoTo{
		URL:              "https://github.com/foo",
		Title:            "Go to github.com/foo",
		IsGuessingScheme: true,
		IsGoto:           true,
	}, s.Results()[0])
}

func TestResolveDedupPrefersContent(t *testing.T) {
	history := &fakeHistory{records: []suggest.History{{URL: "http://a.com", Title: "A from history"}}}
	index := &fakeIndex{records: []suggest.IndexRecord{{
		Path:     "/bookmarks/a.goto",
		Metadata: suggest.IndexMetadata{Title: "A", Href: "http://a.com/"},
		Site:     suggest.Site{Title: "Alice"},
	}}}
	r := New(history, index, DefaultOptions(), nil)
	s := newTestSession("a")
	resolve(t, r, s)

	results := s.Results()
	require.Len(t, results, 3)
	content, ok := results[2].(*suggest.Content)
	require.True(t, ok, "expected content item, got %T", results[2])
	assert.Equal(t, "http://a.com/", content.URL)
	assert.Equal(t, suggest.Origin{Icon: "far fa-star", Label: "Bookmarked by Alice"}, content.Origin)
}

func TestResolveTruncatesMergedResults(t *testing.T) {
	history := &fakeHistory{}
	for i := 0; i < 15; i++ {
		history.records = append(history.records, suggest.History{
			URL:   fmt.Sprintf("https://site%02d.example/", i),
			Title: fmt.Sprintf("Site %d", i),
		})
	}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("zz")
	resolve(t, r, s)

	results := s.Results()
	require.Len(t, results, 12)
	assert.Equal(t, "https://site00.example/", results[2].Target())
	assert.Equal(t, "https://site09.example/", results[11].Target())
}

func TestResolveEmptyInputReturnsBookmarks(t *testing.T) {
	bookmarks := []suggest.Item{
		suggest.Bookmark{URL: "https://one.example", Title: "One"},
		suggest.Bookmark{URL: "https://two.example", Title: "Two"},
	}
	history := &fakeHistory{err: errors.New("must not be called")}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("")
	s.SetBookmarksFetch(Ready(bookmarks))

	assert.Equal(t, 1, resolve(t, r, s))
	results := s.Results()
	assert.Equal(t, bookmarks, results)
	assert.Same(t, &bookmarks[0], &results[0])
	_, ok := s.URLGuess()
	assert.False(t, ok)
}

func TestResolveStaleResolutionIsDropped(t *testing.T) {
	gate := make(chan struct{})
	history := &fakeHistory{
		gates:   map[string]chan struct{}{"exa": gate},
		entered: make(chan string, 2),
	}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("exa")

	var firstCalls int
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- r.Resolve(context.Background(), s, func() { firstCalls++ })
	}()
	require.Equal(t, "exa", <-history.entered)

	s.SetInput("exam")
	secondCalls := 0
	require.NoError(t, r.Resolve(context.Background(), s, func() { secondCalls++ }))
	resultsAfterSecond := s.Results()

	close(gate)
	require.NoError(t, <-firstDone)

	assert.Equal(t, 0, firstCalls)
	assert.Equal(t, 1, secondCalls)
	assert.Equal(t, "exam", s.LastInput())
	assert.Equal(t, resultsAfterSecond, s.Results())
	assert.Equal(t, uint64(2), s.Generation())
}

func TestResolveCallbackSeesOwnResults(t *testing.T) {
	history := &fakeHistory{
		records: []suggest.History{{URL: "https://example.com/a", Title: "A"}},
		entered: make(chan string, 2),
	}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("a")

	inCallback := make(chan struct{})
	release := make(chan struct{})
	var firstInput string
	var firstResults []suggest.Item
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- r.Resolve(context.Background(), s, func() {
			close(inCallback)
			<-release
			firstInput = s.LastInput()
			firstResults = s.Results()
		})
	}()
	require.Equal(t, "a", <-history.entered)
	<-inCallback

	s.SetInput("ab")
	var secondInput string
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- r.Resolve(context.Background(), s, func() { secondInput = s.LastInput() })
	}()
	require.Equal(t, "ab", <-history.entered)
	// Give the second resolution time to reach its apply step.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "a", s.LastInput())

	close(release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	assert.Equal(t, "a", firstInput)
	require.NotEmpty(t, firstResults)
	assert.Equal(t, "https://search.example/?q=a", firstResults[0].Target())
	assert.Equal(t, "ab", secondInput)
	assert.Equal(t, "ab", s.LastInput())
}

func TestResolveURLGuess(t *testing.T) {
	history := &fakeHistory{records: []suggest.History{{URL: "https://example.com/abc/def", Title: "Deep"}}}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("example.com/ab")
	resolve(t, r, s)

	guess, ok := s.URLGuess()
	require.True(t, ok)
	assert.Equal(t, URLGuess{Input: "example.com/abc", URL: "https://example.com/abc"}, guess)
	assert.Equal(t, suggest.GoTo{
		URL:    "https://example.com/abc",
		Title:  "Go to example.com/abc",
		IsGoto: true,
	}, s.Results()[0])
}

func TestResolveURLGuessKeptWhileInputUnchanged(t *testing.T) {
	history := &fakeHistory{records: []suggest.History{{URL: "https://www.github.com/x", Title: "GH"}}}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("git")
	resolve(t, r, s)

	guess, ok := s.URLGuess()
	require.True(t, ok)
	assert.Equal(t, URLGuess{Input: "github.com", URL: "https://www.github.com"}, guess)

	history.mu.Lock()
	history.records = nil
	history.mu.Unlock()
	resolve(t, r, s)
	_, ok = s.URLGuess()
	assert.True(t, ok, "guess must survive a resolution with the same input")

	s.SetInput("gitx")
	resolve(t, r, s)
	_, ok = s.URLGuess()
	assert.False(t, ok)
}

func TestResolveErrorAbortsCycle(t *testing.T) {
	boom := errors.New("boom")
	r := New(&fakeHistory{err: boom}, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("a")

	called := false
	err := r.Resolve(context.Background(), s, func() { called = true })
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
	assert.Nil(t, s.Results())
	assert.Equal(t, "", s.LastInput())
}

func TestResolveHighlightsHistory(t *testing.T) {
	history := &fakeHistory{records: []suggest.History{{
		URL:     "https://beakerbrowser.com",
		Title:   "Using Beaker Browser",
		Offsets: "1 0 6 4",
	}}}
	r := New(history, &fakeIndex{}, DefaultOptions(), nil)
	s := newTestSession("beaker")
	resolve(t, r, s)

	h, ok := s.Results()[2].(*suggest.History)
	require.True(t, ok)
	assert.Equal(t, []string{"Using ", "Beaker", " Browser"}, h.TitleDecorated)
	assert.Equal(t, []string{"https://beakerbrowser.com"}, h.URLDecorated)
}

func TestResolvePassesIndexQuery(t *testing.T) {
	index := &fakeIndex{}
	r := New(&fakeHistory{}, index, DefaultOptions(), nil)
	resolve(t, r, newTestSession("x"))
	assert.Equal(t, suggest.IndexQuery{
		Paths: []string{"/blog/*.md", "/bookmarks/*.goto", "/pages/*.md"},
		Limit: 10,
		Index: "local",
		Field: "title",
	}, index.lastQ)
}

func TestContentItem(t *testing.T) {
	tests := []struct {
		name string
		rec  suggest.IndexRecord
		want *suggest.Content
	}{
		{
			name: "blog falls back to url title",
			rec: suggest.IndexRecord{
				Path:    "/blog/post.md",
				URL:     "hyper://alice/blog/post.md",
				Site:    suggest.Site{Title: "Alice"},
				Matches: []suggest.Match{{Key: "title", Value: "<b>Bea</b>ker"}},
			},
			want: &suggest.Content{
				URL:            "hyper://alice/blog/post.md",
				Title:          "hyper://alice/blog/post.md",
				TitleDecorated: []string{"", "Bea", "ker"},
				Origin:         suggest.Origin{Icon: "fas fa-blog", Label: "Blogged by Alice"},
			},
		},
		{
			name: "match entities are decoded",
			rec: suggest.IndexRecord{
				Path:     "/pages/tom.md",
				URL:      "hyper://bob/pages/tom.md",
				Metadata: suggest.IndexMetadata{Title: "Tom & Jerry <3"},
				Site:     suggest.Site{Title: "Bob"},
				Matches:  []suggest.Match{{Key: "title", Value: "<b>Tom</b> &amp; Jerry &lt;3"}},
			},
			want: &suggest.Content{
				URL:            "hyper://bob/pages/tom.md",
				Title:          "Tom & Jerry <3",
				TitleDecorated: []string{"", "Tom", " & Jerry <3"},
				Origin:         suggest.Origin{Icon: "far fa-file", Label: "Page by Bob"},
			},
		},
		{
			name: "page without match uses title",
			rec: suggest.IndexRecord{
				Path:     "/pages/about.md",
				URL:      "hyper://bob/pages/about.md",
				Metadata: suggest.IndexMetadata{Title: "About"},
				Site:     suggest.Site{Title: "Bob"},
			},
			want: &suggest.Content{
				URL:            "hyper://bob/pages/about.md",
				Title:          "About",
				TitleDecorated: []string{"About"},
				Origin:         suggest.Origin{Icon: "far fa-file", Label: "Page by Bob"},
			},
		},
		{
			name: "bookmark without href dropped",
			rec:  suggest.IndexRecord{Path: "/bookmarks/x.goto", Metadata: suggest.IndexMetadata{Title: "X"}},
		},
		{
			name: "unknown path dropped",
			rec:  suggest.IndexRecord{Path: "/comments/x.md", URL: "hyper://c/x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := contentItem(tt.rec, "title")
			if tt.want == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGuessURL(t *testing.T) {
	item := func(u string) suggest.Item { return &suggest.History{URL: u} }
	tests := []struct {
		name       string
		input      string
		candidates []suggest.Item
		want       *URLGuess
	}{
		{"no candidates", "abc", nil, nil},
		{"no match", "zzz", []suggest.Item{item("https://example.com")}, nil},
		{"whole url when no slash follows", "exa", []suggest.Item{item("https://example.com")},
			&URLGuess{Input: "example.com", URL: "https://example.com"}},
		{"typed scheme is matched literally", "https://exa", []suggest.Item{item("https://example.com/a")},
			&URLGuess{Input: "https://example.com", URL: "https://example.com"}},
		{"typed www is matched literally", "www.ex", []suggest.Item{item("https://www.example.com/")},
			&URLGuess{Input: "www.example.com", URL: "https://www.example.com"}},
		{"first match wins", "ex", []suggest.Item{item("https://zzz.com"), item("http://ex1.com/a"), item("http://ex2.com")},
			&URLGuess{Input: "ex1.com", URL: "http://ex1.com"}},
		{"substring not at start", "ample", []suggest.Item{item("https://example.com")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, guessURL(tt.input, tt.candidates))
		})
	}
}

func TestResolveMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	r := New(&fakeHistory{}, &fakeIndex{}, DefaultOptions(), m)
	resolve(t, r, newTestSession("a"))

	failing := New(&fakeHistory{err: errors.New("x")}, &fakeIndex{}, DefaultOptions(), m)
	require.Error(t, failing.Resolve(context.Background(), newTestSession("a"), func() {}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(outcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(outcomeError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.resolutions.WithLabelValues(outcomeStale)))
}

func TestPendingWaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := Start(func() ([]suggest.Item, error) {
		<-block
		return nil, nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	var nilPending *Pending[int]
	v, err := nilPending.Wait(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, v)
}
