package highlight

import "strings"

// SplitMarkup splits value on <tag> and </tag>, so "a <b>x</b> c" with tag
// "b" yields ["a ", "x", " c"].
func SplitMarkup(value, tag string) []string {
	openTag, closeTag := "<"+tag+">", "</"+tag+">"
	var out []string
	for {
		i := strings.Index(value, openTag)
		j := strings.Index(value, closeTag)
		switch {
		case i < 0 && j < 0:
			return append(out, value)
		case j < 0 || (i >= 0 && i < j):
			out = append(out, value[:i])
			value = value[i+len(openTag):]
		default:
			out = append(out, value[:j])
			value = value[j+len(closeTag):]
		}
	}
}

// Join renders fragments with the matched ones wrapped by wrap.
func Join(fragments []string, wrap func(string) string) string {
	var b strings.Builder
	for i, f := range fragments {
		if i%2 == 1 && f != "" {
			b.WriteString(wrap(f))
			continue
		}
		b.WriteString(f)
	}
	return b.String()
}
