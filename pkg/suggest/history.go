package suggest

import "github.com/bastiangx/omniserve/pkg/highlight"

// Highlight fills URLDecorated and TitleDecorated from Offsets. A record
// with empty or malformed offsets is left as is.
func (h *History) Highlight(terms []string) {
	urlSegs, titleSegs, ok := highlight.Offsets(terms, h.URL, h.Title, h.Offsets)
	if !ok {
		return
	}
	h.URLDecorated = urlSegs
	h.TitleDecorated = titleSegs
}
