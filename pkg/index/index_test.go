package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRecords = []Record{
	{Path: "/blog/beaker.md", URL: "hyper://alice/blog/beaker.md", Title: "Beaker notes", Site: "Alice"},
	{Path: "/pages/about.md", URL: "hyper://alice/pages/about.md", Title: "About Beaker", Site: "Alice"},
	{Path: "/bookmarks/b.goto", URL: "hyper://bob/bookmarks/b.goto", Title: "Beaker homepage", Href: "https://beakerbrowser.com", Site: "Bob"},
	{Path: "/comments/c.md", URL: "hyper://carol/comments/c.md", Title: "Beaker comment", Site: "Carol"},
	{Path: "/pages/weather.md", URL: "hyper://carol/pages/weather.md", Title: "Weather", Site: "Carol"},
}

var testQuery = suggest.IndexQuery{
	Paths: []string{"/blog/*.md", "/bookmarks/*.goto", "/pages/*.md"},
	Limit: 10,
	Index: DefaultName,
	Field: "title",
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Add(testRecords...))
	return s
}

func paths(recs []suggest.IndexRecord) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.Path)
	}
	return out
}

func TestSearchFiltersByPath(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.Search(context.Background(), "beak", testQuery)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/blog/beaker.md", "/pages/about.md", "/bookmarks/b.goto"}, paths(recs))
}

func TestSearchAllTermsMustMatch(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.Search(context.Background(), "beaker home", testQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"/bookmarks/b.goto"}, paths(recs))

	recs, err = s.Search(context.Background(), "beaker weather", testQuery)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSearchRecordFields(t *testing.T) {
	s := newTestStore(t)
	recs, err := s.Search(context.Background(), "homepage", testQuery)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "hyper://bob/bookmarks/b.goto", rec.URL)
	assert.Equal(t, suggest.IndexMetadata{Title: "Beaker homepage", Href: "https://beakerbrowser.com"}, rec.Metadata)
	assert.Equal(t, suggest.Site{Title: "Bob"}, rec.Site)

	m, ok := rec.FindMatch("title")
	require.True(t, ok)
	assert.Equal(t, "Beaker <b>homepage</b>", m.Value)
}

func TestSearchKeepsStopWords(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(Record{Path: "/pages/browser.md", URL: "hyper://dave/pages/browser.md", Title: "The Beaker Browser", Site: "Dave"}))

	for _, input := range []string{"the beaker", "the", "the beaker browser", "beaker the"} {
		recs, err := s.Search(context.Background(), input, testQuery)
		require.NoError(t, err, input)
		assert.Contains(t, paths(recs), "/pages/browser.md", input)
	}

	recs, err := s.Search(context.Background(), "the beaker", testQuery)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	m, ok := recs[0].FindMatch("title")
	require.True(t, ok)
	assert.Equal(t, "<b>The</b> <b>Beaker</b> Browser", m.Value)
}

func TestSearchEscapesMatchMarkup(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add(Record{Path: "/pages/tom.md", URL: "hyper://dave/pages/tom.md", Title: "Tom & Jerry", Site: "Dave"}))

	recs, err := s.Search(context.Background(), "tom", testQuery)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Tom & Jerry", recs[0].Metadata.Title)

	m, ok := recs[0].FindMatch("title")
	require.True(t, ok)
	assert.Equal(t, "<b>Tom</b> &amp; Jerry", m.Value)
}

func TestSearchLimit(t *testing.T) {
	s := newTestStore(t)
	q := testQuery
	q.Limit = 2
	recs, err := s.Search(context.Background(), "beaker", q)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestSearchUnknownIndex(t *testing.T) {
	s := newTestStore(t)
	q := testQuery
	q.Index = "remote"
	recs, err := s.Search(context.Background(), "beaker", q)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestSearchEmptyInput(t *testing.T) {
	recs, err := newTestStore(t).Search(context.Background(), " / ", testQuery)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAddReplacesByURL(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, len(testRecords), s.Len())

	require.NoError(t, s.Add(Record{Path: "/blog/beaker.md", URL: "hyper://alice/blog/beaker.md", Title: "Renamed post"}))
	assert.Equal(t, len(testRecords), s.Len())

	recs, err := s.Search(context.Background(), "renamed", testQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"/blog/beaker.md"}, paths(recs))
}

func TestMarkToBold(t *testing.T) {
	assert.Equal(t, "<b>Bea</b>ker <b>x</b>", markToBold("<mark>Bea</mark>ker <mark>x</mark>"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[record]]
path = "/pages/weather.md"
url = "hyper://carol/pages/weather.md"
title = "Weather"
site = "Carol"

[[record]]
url = "hyper://nowhere"
title = "No path"
`), 0644))

	s, err := Load(path, "")
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, 1, s.Len())

	recs, err := s.Search(context.Background(), "weath", testQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{"/pages/weather.md"}, paths(recs))

	missing, err := Load(filepath.Join(dir, "missing.toml"), "")
	require.NoError(t, err)
	defer missing.Close()
	assert.Equal(t, 0, missing.Len())
}
