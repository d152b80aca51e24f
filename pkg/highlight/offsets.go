// Package highlight turns match positions into fragment sequences that
// alternate plain and matched text, ready to be joined with bold markup.
//
// A fragment list always starts with plain text, so even indexes are plain
// and odd indexes are matches.
package highlight

import (
	"strconv"
	"strings"
)

const (
	columnURL   = 0
	columnTitle = 1
)

// Tuple is one match position from the history source:
// column, term index, byte offset and the source's own token size.
type Tuple struct {
	Column int
	Term   int
	Offset int
	Size   int
}

// ParseOffsets reads whitespace separated integers in groups of four.
// A field that is not a non-negative integer discards the group being
// collected, and collection restarts after it. A trailing partial group is
// ignored. ok is false when no complete group was found.
func ParseOffsets(offsets string) (tuples []Tuple, ok bool) {
	group := make([]int, 0, 4)
	for _, f := range strings.Fields(offsets) {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			group = group[:0]
			continue
		}
		group = append(group, n)
		if len(group) == 4 {
			tuples = append(tuples, Tuple{
				Column: group[0],
				Term:   group[1],
				Offset: group[2],
				Size:   group[3],
			})
			group = group[:0]
		}
	}
	return tuples, len(tuples) > 0
}

// Offsets splits url and title into fragments using an offsets string.
//
// The matched length is the length of terms[tuple.Term], not the token size
// reported by the source, since the source matches whole (possibly stemmed)
// tokens. A tuple at the same column and offset as the previous one is
// skipped: several terms hitting one position would otherwise move the
// cursor twice. Tuples are used in the order given.
func Offsets(terms []string, url, title, offsets string) (urlSegs, titleSegs []string, ok bool) {
	tuples, ok := ParseOffsets(offsets)
	if !ok {
		return nil, nil, false
	}

	text := [2]string{url, title}
	var segs [2][]string
	var cursor [2]int

	var last *Tuple
	for i := range tuples {
		tu := tuples[i]
		if tu.Column != columnURL && tu.Column != columnTitle {
			continue
		}
		if last != nil && last.Column == tu.Column && last.Offset == tu.Offset {
			continue
		}
		last = &tuples[i]

		if tu.Term >= len(terms) || terms[tu.Term] == "" {
			continue
		}
		n := len(terms[tu.Term])

		col := tu.Column
		segs[col] = append(segs[col], slice(text[col], cursor[col], tu.Offset))
		segs[col] = append(segs[col], slice(text[col], tu.Offset, tu.Offset+n))
		cursor[col] = tu.Offset + n
	}

	segs[columnURL] = append(segs[columnURL], slice(url, cursor[columnURL], len(url)))
	segs[columnTitle] = append(segs[columnTitle], slice(title, cursor[columnTitle], len(title)))
	return segs[columnURL], segs[columnTitle], true
}

// slice is s[from:to] clamped to the string; an inverted range is empty.
func slice(s string, from, to int) string {
	from = min(max(from, 0), len(s))
	to = min(max(to, 0), len(s))
	if to <= from {
		return ""
	}
	return s[from:to]
}
