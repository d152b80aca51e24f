// Package suggest holds the suggestion model shared by the resolver, its
// sources and the outer surfaces: the Item sum type and the records the
// collaborators return.
package suggest

// Kind names an Item variant on the wire and in logs.
type Kind string

const (
	KindGoTo     Kind = "goto"
	KindSearch   Kind = "search"
	KindContent  Kind = "content"
	KindHistory  Kind = "history"
	KindBookmark Kind = "bookmark"
)

// Item is one row of the suggestion list. The set of implementations is
// closed: GoTo, Search, Content, History and Bookmark.
type Item interface {
	Kind() Kind
	// Target is the URL the row navigates to.
	Target() string
	// Label is the display title.
	Label() string

	isItem()
}

// GoTo navigates directly to a URL.
type GoTo struct {
	URL              string
	Title            string
	IsGuessingScheme bool
	IsGoto           bool
}

// Search runs the input through a search engine.
type Search struct {
	URL   string
	Title string
	Query string
}

// Origin attributes a content row to its source.
type Origin struct {
	Icon  string
	Label string
}

// Content is a record from the content index.
type Content struct {
	URL            string
	Title          string
	TitleDecorated []string
	Origin         Origin
}

// History is a history search hit. Offsets is the raw match encoding from
// the history source; the Decorated fields are filled by highlighting.
type History struct {
	URL            string
	Title          string
	Offsets        string
	URLDecorated   []string
	TitleDecorated []string
}

// Bookmark is passed through from the bookmarks source untouched.
type Bookmark struct {
	URL   string
	Title string
}

func (GoTo) Kind() Kind { return KindGoTo }
func (Search) Kind() Kind { return KindSearch }
func (*Content) Kind() Kind { return KindContent }
func (*History) Kind() Kind { return KindHistory }
func (Bookmark) Kind() Kind { return KindBookmark }
func (g GoTo) Target() string { return g.URL }
func (s Search) Target() string { return s.URL }
func (c *Content) Target() string { return c.URL }
func (h *History) Target() string { return h.URL }
func (b Bookmark) Target() string { return b.URL }
func (g GoTo) Label() string { return g.Title }
func (s Search) Label() string { return s.Title }
func (c *Content) Label() string { return c.Title }
func (h *History) Label() string { return h.Title }
func (b Bookmark) Label() string { return b.Title }

func (GoTo) isItem() {}
func (Search) isItem() {}
func (*Content) isItem() {}
func (*History) isItem() {}
func (Bookmark) isItem() {}
