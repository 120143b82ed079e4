package matching

import "strings"

// stopwords are words that carry no signal when comparing report titles:
// articles plus the boilerplate almost every Secretary-General report title
// shares.
var stopwords = map[string]struct{}{
	"the": {}, "of": {}, "and": {}, "to": {}, "a": {}, "in": {}, "for": {},
	"on": {}, "by": {},
	"report": {}, "secretary-general": {}, "secretarygeneral": {},
	"general": {}, "united": {}, "nations": {},
}

// NormalizeTitle reduces a title to a canonical comparison form: bracket and
// quote characters stripped, whitespace collapsed, trimmed, lowercased.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch r {
		case '[', ']', '"':
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}

// SignificantWords returns the set of stopword-filtered words of a
// normalized title.
func SignificantWords(normalized string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(normalized) {
		if _, skip := stopwords[w]; skip {
			continue
		}
		words[w] = struct{}{}
	}
	return words
}

func sharedWordCount(a, b map[string]struct{}) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
