package suggest

// IndexQuery narrows a content-index search.
type IndexQuery struct {
	// Paths are wildcard patterns over record paths, e.g. "/blog/*.md".
	Paths []string
	Limit int
	// Index selects the named index ("local").
	Index string
	// Field is the field matched and highlighted ("title").
	Field string
}

// IndexMetadata is the optional metadata of an indexed record.
type IndexMetadata struct {
	Title string
	Href  string
}

// Site is the site that published an indexed record.
type Site struct {
	Title string
}

// Match is one highlighted field. Value is HTML: matched text is wrapped in
// <b>..</b> and the rest is entity-escaped.
type Match struct {
	Key   string
	Value string
}

// IndexRecord is a content-index hit.
type IndexRecord struct {
	Path     string
	URL      string
	Metadata IndexMetadata
	Site     Site
	Matches  []Match
}

// FindMatch returns the match for key.
func (r IndexRecord) FindMatch(key string) (Match, bool) {
	for _, m := range r.Matches {
		if m.Key == key {
			return m, true
		}
	}
	return Match{}, false
}

// Engine is a configured search engine. URL is the prefix the search query
// string is appended to.
type Engine struct {
	Name     string `toml:"name"`
	URL      string `toml:"url"`
	Selected bool   `toml:"selected"`
}

// SelectEngine returns the selected engine, or the first one.
func SelectEngine(engines []Engine) (Engine, bool) {
	for _, e := range engines {
		if e.Selected {
			return e, true
		}
	}
	if len(engines) == 0 {
		return Engine{}, false
	}
	return engines[0], true
}
