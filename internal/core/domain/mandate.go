package domain

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Mandate is one operative paragraph of a resolution that requests a report
// from the Secretary-General.
type Mandate struct {
	ResolutionSymbol   string
	VerbatimParagraph  string
	Summary            string
	ExplicitFrequency  string
	ImplicitFrequency  string
	FrequencyReasoning string
	RawResponse        json.RawMessage
	CreatedAt          time.Time
}

// ParagraphHash is the content hash that makes re-extraction of an unchanged
// paragraph a no-op upsert.
func (m Mandate) ParagraphHash() string {
	sum := md5.Sum([]byte(m.VerbatimParagraph))
	return hex.EncodeToString(sum[:])
}

// MandateExtraction is the per-resolution outcome of one extraction call.
// Zero mandates with Success=true is a common, valid result.
type MandateExtraction struct {
	ResolutionSymbol string
	Success          bool
	Error            string
	Mandates         []Mandate
}

// ResolutionText is the slice of a stored resolution the extractor consumes.
type ResolutionText struct {
	Symbol      string
	ProperTitle string
	Text        string
}
