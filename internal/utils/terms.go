package utils

import "strings"

// termSeparators are the characters that break search input into terms,
// on top of the space: : ^ * + , - . /
const termSeparators = ":^*+,-./"

func isTermSeparator(b byte) bool {
	return b == ' ' || strings.IndexByte(termSeparators, b) >= 0
}

// SearchTerms splits user input into the terms used for matching and
// highlighting. Tabs and other whitespace stay inside terms; only the space
// and termSeparators split.
func SearchTerms(input string) []string {
	var terms []string
	for _, tok := range Tokenize(input) {
		terms = append(terms, tok.Text)
	}
	return terms
}

// Token is a term with its byte offset in the source text.
type Token struct {
	Text   string
	Offset int
}

// Tokenize splits text with the same rules as SearchTerms, keeping offsets.
func Tokenize(text string) []Token {
	var tokens []Token
	start := -1
	for i := 0; i < len(text); i++ {
		if isTermSeparator(text[i]) {
			if start >= 0 {
				tokens = append(tokens, Token{Text: text[start:i], Offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, Token{Text: text[start:], Offset: start})
	}
	return tokens
}
