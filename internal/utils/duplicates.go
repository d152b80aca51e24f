package utils

import "strings"

// URLFilter drops repeated URLs. Two URLs are the same when they match after
// one trailing slash is removed, so http://a.com/ and http://a.com collide.
// The first URL seen wins.
type URLFilter struct {
	seen map[string]struct{}
}

// NewURLFilter creates an empty filter.
func NewURLFilter() *URLFilter {
	return &URLFilter{seen: make(map[string]struct{})}
}

// ShouldInclude returns true the first time a normalized URL is seen.
func (f *URLFilter) ShouldInclude(url string) bool {
	key := NormalizeURL(url)
	if _, dup := f.seen[key]; dup {
		return false
	}
	f.seen[key] = struct{}{}
	return true
}

// NormalizeURL strips a single trailing slash.
func NormalizeURL(url string) string {
	return strings.TrimSuffix(url, "/")
}
