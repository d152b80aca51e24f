package resolver

import (
	"fmt"
	"html"
	"strings"

	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/highlight"
	"github.com/bastiangx/omniserve/pkg/location"
	"github.com/bastiangx/omniserve/pkg/suggest"
)

// merge ranks content before history, drops URL duplicates and applies the limit.
func (r *Resolver) merge(terms []string, records []suggest.IndexRecord, history []*suggest.History) []suggest.Item {
	candidates := make([]suggest.Item, 0, len(records)+len(history))
	for _, rec := range records {
		if item, ok := contentItem(rec, r.opts.Index.Field); ok {
			candidates = append(candidates, item)
		}
	}
	for _, h := range history {
		h.Highlight(terms)
		candidates = append(candidates, h)
	}

	filter := utils.NewURLFilter()
	merged := make([]suggest.Item, 0, min(len(candidates), r.opts.MaxResults))
	for _, item := range candidates {
		if !filter.ShouldInclude(item.Target()) {
			continue
		}
		merged = append(merged, item)
		if len(merged) == r.opts.MaxResults {
			break
		}
	}
	return merged
}

// contentItem maps an index record by its path prefix. Records of unknown
// kinds, and bookmark records without a target, are dropped.
func contentItem(rec suggest.IndexRecord, field string) (*suggest.Content, bool) {
	var item suggest.Content
	switch {
	case strings.HasPrefix(rec.Path, "/bookmarks/"):
		if rec.Metadata.Href == "" {
			return nil, false
		}
		item.URL = rec.Metadata.Href
		item.Origin = suggest.Origin{Icon: "far fa-star", Label: "Bookmarked by " + rec.Site.Title}
	case strings.HasPrefix(rec.Path, "/blog/"):
		item.URL = rec.URL
		item.Origin = suggest.Origin{Icon: "fas fa-blog", Label: "Blogged by " + rec.Site.Title}
	case strings.HasPrefix(rec.Path, "/pages/"):
		item.URL = rec.URL
		item.Origin = suggest.Origin{Icon: "far fa-file", Label: "Page by " + rec.Site.Title}
	default:
		return nil, false
	}

	item.Title = rec.Metadata.Title
	if item.Title == "" {
		item.Title = item.URL
	}
	if m, ok := rec.FindMatch(field); ok {
		frags := highlight.SplitMarkup(m.Value, "b")
		for i, f := range frags {
			frags[i] = html.UnescapeString(f)
		}
		item.TitleDecorated = frags
	} else {
		item.TitleDecorated = []string{item.Title}
	}
	return &item, true
}

// guessURL finds the first candidate whose URL continues the input, ignoring
// the scheme and a leading "www." unless the user typed them. The guess
// extends to the next path separator after the input.
func guessURL(input string, candidates []suggest.Item) *URLGuess {
	typedScheme := strings.Contains(input, "://")
	typedWWW := strings.Contains(input, "www.")

	for _, item := range candidates {
		u := item.Target()
		start := 0
		if !typedScheme {
			if i := strings.Index(u, "://"); i >= 0 {
				start = i + len("://")
			}
		}
		if !typedWWW && strings.HasPrefix(u[start:], "www.") {
			start += len("www.")
		}
		if !strings.HasPrefix(u[start:], input) {
			continue
		}

		end := len(u)
		if i := strings.IndexByte(u[start+len(input):], '/'); i >= 0 {
			end = start + len(input) + i
		}
		return &URLGuess{Input: u[start:end], URL: u[:end]}
	}
	return nil
}

// assemble puts the search and go-to rows in front of the merged results.
func assemble(input string, engine suggest.Engine, examined location.Examined, guess *URLGuess, merged []suggest.Item) []suggest.Item {
	search := suggest.Search{
		URL:   engine.URL + examined.SearchQuery,
		Title: fmt.Sprintf("Search %s for \"%s\"", engine.Name, input),
		Query: input,
	}

	probablyURL := examined.IsProbablyURL
	var goTo suggest.GoTo
	if guess != nil {
		goTo = suggest.GoTo{URL: guess.URL, Title: "Go to " + guess.Input, IsGoto: true}
		probablyURL = true
	} else {
		goTo = suggest.GoTo{
			URL:              examined.URLWithScheme,
			Title:            "Go to " + input,
			IsGuessingScheme: examined.IsGuessingScheme,
			IsGoto:           true,
		}
	}

	out := make([]suggest.Item, 0, len(merged)+2)
	switch {
	case strings.Contains(input, " "):
		out = append(out, search)
	case probablyURL:
		out = append(out, goTo, search)
	default:
		out = append(out, search, goTo)
	}
	return append(out, merged...)
}
