// Package location examines what the user typed into the location bar and
// decides whether it looks like a URL, which URL it means and how it reads
// as a search query.
package location

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Examined is the outcome of Examine.
type Examined struct {
	// URLWithScheme is the input as a navigable URL.
	URLWithScheme string
	// SearchQuery is the "?q=..." string appended to a search engine URL.
	SearchQuery string
	// IsProbablyURL is true when the input reads like an address rather than a search.
	IsProbablyURL bool
	// IsGuessingScheme is true when https:// was assumed.
	IsGuessingScheme bool
}

var (
	driveHash   = regexp.MustCompile(`^[0-9a-fA-F]{64}`)
	dotThenWord = regexp.MustCompile(`\.[A-Za-z]`)
)

// opaqueSchemes are accepted as typed, without "//".
var opaqueSchemes = []string{"about:", "beaker:", "data:", "mailto:", "intent:"}

// Examine interprets input. Whitespace is trimmed and the text is NFC
// normalised first.
func Examine(input string) Examined {
	v := strings.TrimSpace(norm.NFC.String(input))

	isHash := driveHash.MatchString(v)
	hasScheme := strings.Contains(v, "://")
	opaque := hasOpaqueScheme(v)
	isLocal := strings.HasPrefix(v, "localhost")

	out := Examined{
		URLWithScheme: v,
		SearchQuery:   searchQuery(v),
		IsProbablyURL: !strings.Contains(v, " ") &&
			(dotThenWord.MatchString(v) || isHash || isLocal || hasScheme || opaque),
	}

	switch {
	case hasScheme || opaque:
	case isHash:
		out.URLWithScheme = "hyper://" + v
	case isLocal:
		out.URLWithScheme = "http://" + v
	default:
		out.URLWithScheme = "https://" + v
		out.IsGuessingScheme = true
	}
	return out
}

func hasOpaqueScheme(v string) bool {
	lower := strings.ToLower(v)
	for _, s := range opaqueSchemes {
		if strings.HasPrefix(lower, s) {
			return true
		}
	}
	return false
}

// searchQuery builds "?q=a+b" from "a b".
func searchQuery(v string) string {
	words := strings.Split(v, " ")
	for i, w := range words {
		words[i] = url.QueryEscape(w)
	}
	return "?q=" + strings.Join(words, "+")
}
