package cleaning

import (
	"regexp"
	"strings"

	"github.com/unpulse/sg-report-tracker/internal/core/domain"
)

// symbolSeparators are the single characters that delimit the components of
// a UN document symbol.
const symbolSeparators = "/()[]-. "

// SplitSymbol tokenizes a document symbol into content runs and single
// separator characters. The split is lossless:
// strings.Join(SplitSymbol(s), "") == s for every s. A missing symbol yields
// an empty sequence.
//
//	"A/RES/37/125A-B" -> ["A" "/" "RES" "/" "37" "/" "125A" "-" "B"]
func SplitSymbol(symbol string) []string {
	if symbol == "" {
		return nil
	}

	var tokens []string
	var run strings.Builder
	for _, r := range symbol {
		if strings.ContainsRune(symbolSeparators, r) {
			if run.Len() > 0 {
				tokens = append(tokens, run.String())
				run.Reset()
			}
			tokens = append(tokens, string(r))
			continue
		}
		run.WriteRune(r)
	}
	if run.Len() > 0 {
		tokens = append(tokens, run.String())
	}
	return tokens
}

// issuingBodyPrefixes maps known issuing-body symbol prefixes to the body
// name. Order matters: the first matching prefix wins.
var issuingBodyPrefixes = []struct {
	Prefix string
	Body   string
}{
	{"A/RES/", "General Assembly"},
	{"A/DEC/", "General Assembly"},
	{"S/RES/", "Security Council"},
	{"S/PRST/", "Security Council"},
	{"E/RES/", "Economic and Social Council"},
	{"E/DEC/", "Economic and Social Council"},
	{"A/HRC/RES/", "Human Rights Council"},
	{"A/HRC/DEC/", "Human Rights Council"},
	{"A/HRC/PRST/", "Human Rights Council"},
}

// StripBodyPrefix removes the first matching issuing-body prefix. Symbols
// with no known prefix are returned unchanged.
func StripBodyPrefix(symbol string) string {
	for _, entry := range issuingBodyPrefixes {
		if strings.HasPrefix(symbol, entry.Prefix) {
			return symbol[len(entry.Prefix):]
		}
	}
	return symbol
}

// IsPart reports whether a symbol denotes a part or subpart of a document
// (bracketed component).
func IsPart(symbol string) bool {
	return strings.Contains(symbol, "[") || strings.Contains(symbol, "]")
}

// CanonicalizeSymbol uppercases and trims the symbol. Interior whitespace is
// meaningful and never touched.
func CanonicalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// resolutionPrefixes are the symbol prefixes that mark a resolution.
var resolutionPrefixes = []string{
	"A/RES/",
	"S/RES/",
	"E/RES/",
	"A/HRC/RES/",
}

// InferCategory resolves the document category: an explicit override wins,
// then the resolution-prefix table, then resource-type text, then the
// "report" default.
func InferCategory(override domain.DocumentCategory, symbol string, resourceTypes []string) domain.DocumentCategory {
	if override != domain.CategoryUnset {
		return override
	}
	for _, prefix := range resolutionPrefixes {
		if strings.HasPrefix(symbol, prefix) {
			return domain.CategoryResolution
		}
	}
	for _, rt := range resourceTypes {
		lower := strings.ToLower(rt)
		switch {
		case strings.Contains(lower, "resolution"):
			return domain.CategoryResolution
		case strings.Contains(lower, "letter"):
			return domain.CategoryLetter
		case strings.Contains(lower, "report"):
			return domain.CategoryReport
		}
	}
	return domain.CategoryReport
}

// Catalog date fields are too messy for strict layout parsing; a leading
// four-digit year is the only reliable component.
var yearPrefixPattern = regexp.MustCompile(`^\s*(\d{4})\b`)

// ParseYear extracts the year component from a messy date string, nil when
// unparseable.
func ParseYear(date string) *int {
	m := yearPrefixPattern.FindStringSubmatch(date)
	if m == nil {
		return nil
	}
	year := 0
	for _, c := range m[1] {
		year = year*10 + int(c-'0')
	}
	return &year
}
