package domain

import (
	"fmt"
	"sort"
	"strings"
)

// EntityCode identifies a Secretariat organizational unit (e.g. "DPPA").
// Codes are only meaningful relative to the loaded vocabulary; validate at
// every boundary instead of trusting the string.
type EntityCode string

// EntityInfo describes one vocabulary entry for prompt construction.
type EntityInfo struct {
	Code        EntityCode
	Name        string
	Description string
	Category    string
}

// EntityVocabulary is the controlled vocabulary of valid responsible
// entities, loaded once at startup and immutable afterwards.
type EntityVocabulary struct {
	entries map[EntityCode]EntityInfo
}

func NewEntityVocabulary(entries []EntityInfo) (*EntityVocabulary, error) {
	if len(entries) == 0 {
		return nil, WrapError(ErrConfiguration, "build entity vocabulary", fmt.Errorf("no entities loaded"))
	}
	m := make(map[EntityCode]EntityInfo, len(entries))
	for _, e := range entries {
		code := EntityCode(strings.TrimSpace(string(e.Code)))
		if code == "" {
			return nil, WrapError(ErrConfiguration, "build entity vocabulary", fmt.Errorf("empty entity code"))
		}
		if _, dup := m[code]; dup {
			return nil, WrapError(ErrConfiguration, "build entity vocabulary", fmt.Errorf("duplicate entity code %q", code))
		}
		e.Code = code
		m[code] = e
	}
	return &EntityVocabulary{entries: m}, nil
}

func (v *EntityVocabulary) Contains(code EntityCode) bool {
	_, ok := v.entries[code]
	return ok
}

func (v *EntityVocabulary) Len() int { return len(v.entries) }

// Codes returns all valid codes in deterministic order, for constraining
// classifier output schemas.
func (v *EntityVocabulary) Codes() []EntityCode {
	codes := make([]EntityCode, 0, len(v.entries))
	for code := range v.entries {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// PromptReference renders the vocabulary as markdown grouped by category for
// inclusion in classifier prompts.
func (v *EntityVocabulary) PromptReference() string {
	byCategory := make(map[string][]EntityInfo)
	for _, info := range v.entries {
		category := info.Category
		if category == "" {
			category = "Departments and Offices"
		}
		byCategory[category] = append(byCategory[category], info)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, category := range categories {
		items := byCategory[category]
		sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })
		fmt.Fprintf(&b, "\n## %s\n", category)
		for _, info := range items {
			desc := info.Description
			if len(desc) > 200 {
				desc = desc[:200] + "..."
			}
			if desc != "" {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", info.Code, info.Name, desc)
			} else {
				fmt.Fprintf(&b, "- **%s** (%s)\n", info.Code, info.Name)
			}
		}
	}
	return b.String()
}
