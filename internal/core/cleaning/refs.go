package cleaning

import (
	"fmt"
	"regexp"
)

// bodyRefPattern recognizes one issuing body's resolution citations inside
// free-text notes. The outer expression matches the whole mention including
// enumerations ("resolutions 78/70, 79/1 and 79/2"); the inner expression
// pulls the individual citations out, and build rebuilds the canonical
// symbol from the inner captures.
type bodyRefPattern struct {
	outer *regexp.Regexp
	inner *regexp.Regexp
	build func(match []string) string
}

// The body mention is matched case-insensitively, but the optional
// single-letter part suffix after a session number must be an actual capital
// letter: "resolutions 78/70 and 79/1" carries no suffix, "resolution
// 77/276 A" does.
var (
	sessionEnumRe = `((?:\d+/\d+(?:\s+[A-Z]\b)?(?:\s*(?:,|and)\s*)?)+)`
	sessionRefRe  = regexp.MustCompile(`(\d+/\d+)(?:\s+([A-Z])\b)?`)
	yearRefRe     = regexp.MustCompile(`(\d+)\s*\((\d{4})\)`)

	buildSessionRef = func(prefix string) func([]string) string {
		return func(match []string) string {
			if match[1] != "" {
				return prefix + match[0] + " " + match[1]
			}
			return prefix + match[0]
		}
	}

	bodyRefPatterns = []bodyRefPattern{
		{
			outer: regexp.MustCompile(`(?i)General Assembly resolutions?\s+` + sessionEnumRe),
			inner: sessionRefRe,
			build: buildSessionRef("A/RES/"),
		},
		{
			outer: regexp.MustCompile(`(?i)Security Council resolutions?\s+((?:\d+\s*\(\d{4}\)(?:\s*(?:,|and)\s*)?)+)`),
			inner: yearRefRe,
			build: func(match []string) string {
				return fmt.Sprintf("S/RES/%s (%s)", match[0], match[1])
			},
		},
		{
			outer: regexp.MustCompile(`(?i)(?:ECOSOC|Economic and Social Council) resolutions?\s+` + sessionEnumRe),
			inner: sessionRefRe,
			build: buildSessionRef("E/RES/"),
		},
		{
			outer: regexp.MustCompile(`(?i)Human Rights Council resolutions?\s+` + sessionEnumRe),
			inner: sessionRefRe,
			build: buildSessionRef("A/HRC/RES/"),
		},
	}
)

// ExtractResolutionSymbols scans free-text notes for resolution citations and
// returns the reconstructed canonical symbols in first-occurrence order, with
// duplicates across notes removed.
func ExtractResolutionSymbols(notes []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, note := range notes {
		for _, pattern := range bodyRefPatterns {
			for _, outer := range pattern.outer.FindAllStringSubmatch(note, -1) {
				for _, m := range pattern.inner.FindAllStringSubmatch(outer[1], -1) {
					symbol := pattern.build(m[1:])
					if !seen[symbol] {
						seen[symbol] = true
						out = append(out, symbol)
					}
				}
			}
		}
	}
	return out
}
